package audio

import (
	"errors"
	"fmt"
	"io"
	"os"

	"golang.org/x/term"
)

var ErrSelectionAborted = errors.New("device selection aborted")

type pickAction int

const (
	pickMove pickAction = iota
	pickConfirm
	pickAbort
)

// pickKey applies one keypress (a byte or an arrow escape) to the cursor.
func pickKey(cursor, n int, key []byte) (int, pickAction) {
	switch {
	case len(key) == 1 && key[0] == '\r':
		return cursor, pickConfirm
	case len(key) == 1 && (key[0] == 3 || key[0] == 'q'):
		return cursor, pickAbort
	case len(key) == 1 && key[0] == 'j', len(key) == 3 && string(key) == "\x1b[B":
		return min(cursor+1, n-1), pickMove
	case len(key) == 1 && key[0] == 'k', len(key) == 3 && string(key) == "\x1b[A":
		return max(cursor-1, 0), pickMove
	}
	return cursor, pickMove
}

// preferredDevice is the first device that is not a headset; headset mics
// hear the wearer, not the room.
func preferredDevice(devices []DeviceInfo) int {
	for i, d := range devices {
		if !IsBluetooth(d.Name) {
			return i
		}
	}
	return 0
}

// SelectDevice asks which microphone listens to the room. With a single
// device it returns that device without prompting.
func SelectDevice(ctx Context) (*DeviceInfo, error) {
	devices, err := ctx.Devices()
	if err != nil {
		return nil, fmt.Errorf("enumerating devices: %w", err)
	}
	if len(devices) == 0 {
		return nil, errors.New("no capture devices found")
	}
	if len(devices) == 1 {
		return &devices[0], nil
	}

	fd := int(os.Stdin.Fd())
	oldState, err := term.MakeRaw(fd)
	if err != nil {
		return nil, fmt.Errorf("setting raw mode: %w", err)
	}
	defer term.Restore(fd, oldState)

	i, err := pick(os.Stdin, os.Stdout, devices)
	if err != nil {
		return nil, err
	}
	return &devices[i], nil
}

func pick(in io.Reader, out io.Writer, devices []DeviceInfo) (int, error) {
	cursor := preferredDevice(devices)
	render := func() {
		fmt.Fprint(out, "\r\x1b[J")
		fmt.Fprint(out, "Select the classroom microphone (↑/↓, Enter to confirm):\r\n\r\n")
		for i, d := range devices {
			tag := ""
			if IsBluetooth(d.Name) {
				tag = " \x1b[33m[headset mic, levels unreliable]\x1b[0m"
			}
			if i == cursor {
				fmt.Fprintf(out, "  \x1b[1;36m▶ %s%s\x1b[0m\r\n", d.Name, tag)
			} else {
				fmt.Fprintf(out, "    %s%s\r\n", d.Name, tag)
			}
		}
	}
	render()

	buf := make([]byte, 3)
	for {
		n, err := in.Read(buf)
		if err != nil {
			return 0, fmt.Errorf("reading input: %w", err)
		}
		var action pickAction
		cursor, action = pickKey(cursor, len(devices), buf[:n])
		switch action {
		case pickConfirm:
			fmt.Fprint(out, "\r\n")
			return cursor, nil
		case pickAbort:
			fmt.Fprint(out, "\r\n")
			return 0, ErrSelectionAborted
		}
		fmt.Fprintf(out, "\x1b[%dA", len(devices)+2)
		render()
	}
}
