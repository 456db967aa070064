// Package hotkey exposes the unit's mode button. On the board it is a key
// combination read from evdev; on desktops a global hotkey.
package hotkey

// Hotkey reports presses and releases of the mode button. Keydown and Keyup
// alternate; Register must succeed before either delivers anything.
type Hotkey interface {
	Register() error
	Unregister()
	Keydown() <-chan struct{}
	Keyup() <-chan struct{}
}
