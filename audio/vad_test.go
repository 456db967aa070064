package audio

import "testing"

func TestVADSilence(t *testing.T) {
	v, err := NewVAD()
	if err != nil {
		t.Fatal(err)
	}
	v.Process(genSilence(200))
	total, speech := v.Stats()
	if total != 10 {
		t.Errorf("frames = %d, want 10", total)
	}
	if speech != 0 {
		t.Errorf("speech frames on silence = %d", speech)
	}
}

func TestVADOddChunkSizes(t *testing.T) {
	v, err := NewVAD()
	if err != nil {
		t.Fatal(err)
	}
	// 200ms of silence in 100-byte chunks, not aligned to 640-byte frames
	silence := genSilence(200)
	for i := 0; i < len(silence); i += 100 {
		end := min(i+100, len(silence))
		v.Process(silence[i:end])
	}
	if total, _ := v.Stats(); total != 10 {
		t.Errorf("frames = %d, want 10", total)
	}
}

func TestVADSpeechRatioIsDelta(t *testing.T) {
	v, err := NewVAD()
	if err != nil {
		t.Fatal(err)
	}
	v.Process(genSilence(100))
	if r := v.SpeechRatio(); r != 0 {
		t.Errorf("ratio on silence = %v", r)
	}
	if r := v.SpeechRatio(); r != 0 {
		t.Errorf("ratio with no new frames = %v", r)
	}
	v.Reset()
	if total, speech := v.Stats(); total != 0 || speech != 0 {
		t.Errorf("stats after reset = %d/%d", total, speech)
	}
}

func TestMeterFeedsVAD(t *testing.T) {
	v, err := NewVAD()
	if err != nil {
		t.Fatal(err)
	}
	m := NewLevelMeter(90).WithVAD(v)
	m.Write(genSilence(100), 0)
	if total, _ := v.Stats(); total != 5 {
		t.Errorf("vad frames = %d, want 5", total)
	}
	if r := m.SpeechRatio(); r != 0 {
		t.Errorf("speech ratio = %v", r)
	}
}
