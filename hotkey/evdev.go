package hotkey

import "encoding/binary"

// Linux input_event layout on 64-bit: 16 bytes of timeval, then type, code
// and value.
const inputEventSize = 24

const (
	evKey = 1

	keyRelease = 0
	keyPress   = 1

	keyLCtrl  = 29
	keyRCtrl  = 97
	keyLShift = 42
	keyRShift = 54
	keyH      = 35
	// keyF13 is what most single-button USB pads send out of the box.
	keyF13 = 183
)

type keyEvent struct {
	code  uint16
	value int32
}

// parseEvents decodes the key events in buf; other event types and any
// trailing partial event are skipped.
func parseEvents(buf []byte) []keyEvent {
	var out []keyEvent
	for i := 0; i+inputEventSize <= len(buf); i += inputEventSize {
		if binary.LittleEndian.Uint16(buf[i+16:]) != evKey {
			continue
		}
		out = append(out, keyEvent{
			code:  binary.LittleEndian.Uint16(buf[i+18:]),
			value: int32(binary.LittleEndian.Uint32(buf[i+20:])),
		})
	}
	return out
}

// chord tracks modifier state for one keyboard and reports presses and
// releases of the mode button: Ctrl+Shift+H, or F13 on its own. Autorepeat
// (value 2) is ignored.
type chord struct {
	ctrl, shift bool
	held        bool
}

func (c *chord) feed(ev keyEvent) (down, up bool) {
	if ev.value != keyPress && ev.value != keyRelease {
		return false, false
	}
	pressed := ev.value == keyPress

	switch ev.code {
	case keyLCtrl, keyRCtrl:
		c.ctrl = pressed
	case keyLShift, keyRShift:
		c.shift = pressed
	case keyH, keyF13:
		if pressed && !c.held && (ev.code == keyF13 || (c.ctrl && c.shift)) {
			c.held = true
			return true, false
		}
		if !pressed && c.held {
			c.held = false
			return false, true
		}
	}
	return false, false
}
