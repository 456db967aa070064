package hotkey

import "time"

// FakeHotkey is a mode button driven by tests. Press and Release block
// until the button goroutine reads them.
type FakeHotkey struct {
	down chan struct{}
	up   chan struct{}
}

func NewFake() *FakeHotkey {
	return &FakeHotkey{down: make(chan struct{}), up: make(chan struct{})}
}

func (f *FakeHotkey) Register() error          { return nil }
func (f *FakeHotkey) Unregister()              {}
func (f *FakeHotkey) Keydown() <-chan struct{} { return f.down }
func (f *FakeHotkey) Keyup() <-chan struct{}   { return f.up }

func (f *FakeHotkey) Press()   { f.down <- struct{}{} }
func (f *FakeHotkey) Release() { f.up <- struct{}{} }

// Tap presses and releases the button, holding it for hold.
func (f *FakeHotkey) Tap(hold time.Duration) {
	f.Press()
	time.Sleep(hold)
	f.Release()
}
