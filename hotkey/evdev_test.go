package hotkey

import (
	"encoding/binary"
	"testing"
)

func rawEvent(typ, code uint16, value int32) []byte {
	b := make([]byte, inputEventSize)
	binary.LittleEndian.PutUint16(b[16:], typ)
	binary.LittleEndian.PutUint16(b[18:], code)
	binary.LittleEndian.PutUint32(b[20:], uint32(value))
	return b
}

func TestParseEventsSkipsNonKey(t *testing.T) {
	var buf []byte
	buf = append(buf, rawEvent(0, 0, 0)...) // EV_SYN
	buf = append(buf, rawEvent(evKey, keyH, keyPress)...)
	buf = append(buf, 1, 2, 3) // partial
	evs := parseEvents(buf)
	if len(evs) != 1 || evs[0].code != keyH || evs[0].value != keyPress {
		t.Fatalf("events = %+v", evs)
	}
}

func TestChord(t *testing.T) {
	tests := []struct {
		name   string
		events []keyEvent
		downs  int
		ups    int
	}{
		{"bare H", []keyEvent{{keyH, keyPress}, {keyH, keyRelease}}, 0, 0},
		{"ctrl+shift+H", []keyEvent{
			{keyLCtrl, keyPress}, {keyRShift, keyPress},
			{keyH, keyPress}, {keyH, 2}, {keyH, 2}, {keyH, keyRelease},
		}, 1, 1},
		{"modifiers released first", []keyEvent{
			{keyLCtrl, keyPress}, {keyLShift, keyPress}, {keyH, keyPress},
			{keyLCtrl, keyRelease}, {keyLShift, keyRelease}, {keyH, keyRelease},
		}, 1, 1},
		{"ctrl only", []keyEvent{{keyRCtrl, keyPress}, {keyH, keyPress}, {keyH, keyRelease}}, 0, 0},
		{"F13 pad", []keyEvent{{keyF13, keyPress}, {keyF13, keyRelease}, {keyF13, keyPress}, {keyF13, keyRelease}}, 2, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var c chord
			var downs, ups int
			for _, ev := range tt.events {
				d, u := c.feed(ev)
				if d {
					downs++
				}
				if u {
					ups++
				}
			}
			if downs != tt.downs || ups != tt.ups {
				t.Errorf("downs=%d ups=%d, want %d/%d", downs, ups, tt.downs, tt.ups)
			}
		})
	}
}
