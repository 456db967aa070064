//go:build linux

package hotkey

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

const inputDir = "/dev/input"

// evdevButton reads every keyboard directly, so the button works on a
// headless board with no X or Wayland session.
type evdevButton struct {
	keydown chan struct{}
	keyup   chan struct{}
	files   []*os.File
	once    sync.Once
}

func New() Hotkey {
	return &evdevButton{
		keydown: make(chan struct{}, 1),
		keyup:   make(chan struct{}, 1),
	}
}

func (h *evdevButton) Register() error {
	keyboards, err := findKeyboards()
	if err != nil {
		return fmt.Errorf("finding keyboards: %w", err)
	}
	if len(keyboards) == 0 {
		return errors.New("no keyboard devices found (is user in 'input' group?)")
	}
	for _, path := range keyboards {
		f, err := os.Open(path)
		if err != nil {
			continue
		}
		h.files = append(h.files, f)
		go h.readEvents(f)
	}
	if len(h.files) == 0 {
		return errors.New("could not open any keyboard device (run: sudo usermod -aG input $USER, then re-login)")
	}
	return nil
}

// readEvents runs until the file is closed by Unregister or the device is
// unplugged.
func (h *evdevButton) readEvents(f *os.File) {
	buf := make([]byte, inputEventSize*16)
	var c chord
	for {
		n, err := f.Read(buf)
		if err != nil {
			return
		}
		for _, ev := range parseEvents(buf[:n]) {
			down, up := c.feed(ev)
			if down {
				notify(h.keydown)
			}
			if up {
				notify(h.keyup)
			}
		}
	}
}

func notify(ch chan struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}

func (h *evdevButton) Unregister() {
	h.once.Do(func() {
		for _, f := range h.files {
			f.Close()
		}
	})
}

func (h *evdevButton) Keydown() <-chan struct{} { return h.keydown }
func (h *evdevButton) Keyup() <-chan struct{}   { return h.keyup }

func findKeyboards() ([]string, error) {
	entries, err := os.ReadDir(inputDir)
	if err != nil {
		return nil, err
	}
	var keyboards []string
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), "event") && isKeyboard(e.Name()) {
			keyboards = append(keyboards, filepath.Join(inputDir, e.Name()))
		}
	}
	return keyboards, nil
}

// isKeyboard checks the key capability bitmap. Mice and power buttons
// advertise only a few keys; keyboards and button pads advertise many.
func isKeyboard(eventName string) bool {
	capsPath := filepath.Join("/sys/class/input", eventName, "device", "capabilities", "key")
	data, err := os.ReadFile(capsPath)
	if err != nil {
		return false
	}
	return len(strings.TrimSpace(string(data))) > 10
}

func Diagnose() (string, error) {
	keyboards, err := findKeyboards()
	if err != nil {
		return "", fmt.Errorf("cannot scan input devices: %w", err)
	}
	if len(keyboards) == 0 {
		return "", errors.New("no keyboard devices found (is user in 'input' group?)")
	}
	opened := 0
	for _, path := range keyboards {
		if f, err := os.Open(path); err == nil {
			f.Close()
			opened++
		}
	}
	if opened == 0 {
		return "", fmt.Errorf("found %d keyboard(s) but cannot open any (run: sudo usermod -aG input $USER)", len(keyboards))
	}
	return fmt.Sprintf("mode button on Ctrl+Shift+H or F13: %d of %d keyboard(s) readable", opened, len(keyboards)), nil
}
