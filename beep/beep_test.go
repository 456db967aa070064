package beep

import "testing"

func TestGenerateTickLength(t *testing.T) {
	s := generateTick(sampleRate, 440, 0.1, 0.5, 10)
	if len(s) != sampleRate/10 {
		t.Fatalf("len = %d, want %d", len(s), sampleRate/10)
	}
	if s[0] != 0 {
		t.Errorf("sine should start at zero, got %d", s[0])
	}
}

func TestTickDecays(t *testing.T) {
	s := generateTick(sampleRate, 440, 0.5, 0.5, 20)
	peak := func(from, to int) int16 {
		var p int16
		for _, v := range s[from:to] {
			if v > p {
				p = v
			}
		}
		return p
	}
	early := peak(0, 1000)
	late := peak(len(s)-1000, len(s))
	if late >= early/4 {
		t.Errorf("envelope did not decay: early peak %d, late peak %d", early, late)
	}
}

func TestChimeShapes(t *testing.T) {
	rate := float64(sampleRate)
	note := int(rate * rewardNote)
	if got := len(rewardSamples()); got != note*len(rewardNotes) {
		t.Errorf("reward len = %d, want %d", got, note*len(rewardNotes))
	}
	beep := int(float64(sampleRate) * 0.12)
	gap := int(float64(sampleRate) * 0.06)
	if got := len(penaltySamples()); got != 2*beep+gap {
		t.Errorf("penalty len = %d, want %d", got, 2*beep+gap)
	}
}

func TestCursorFill(t *testing.T) {
	c := &cursor{clip: []byte{1, 2, 3, 4, 5}}
	out := []byte{9, 9, 9}
	if c.fill(out) {
		t.Fatal("clip reported done after the first piece")
	}
	if out[0] != 1 || out[2] != 3 {
		t.Errorf("first piece = %v", out)
	}
	if !c.fill(out) {
		t.Fatal("clip not done after the second piece")
	}
	if out[0] != 4 || out[1] != 5 || out[2] != 0 {
		t.Errorf("tail piece = %v, want zero-filled", out)
	}
}

func TestToBytesLittleEndian(t *testing.T) {
	b := toBytes([]int16{0x0102, -1})
	want := []byte{0x02, 0x01, 0xff, 0xff}
	for i := range want {
		if b[i] != want[i] {
			t.Fatalf("toBytes = %x, want %x", b, want)
		}
	}
}
