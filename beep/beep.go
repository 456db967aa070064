package beep

import "math"

var disabled bool

func Disable() { disabled = true }

const (
	sampleRate = 44100

	// Reward: rising three-note arpeggio
	rewardVolume = 0.45
	rewardDecay  = 9
	rewardNote   = 0.14

	// Penalty: low double-beep
	penaltyFreq   = 330
	penaltyVolume = 0.6
	penaltyDecay  = 30

	// Mode toggle: single short tick
	modeFreq   = 1200
	modeVolume = 0.4
	modeDecay  = 60
)

var rewardNotes = []float64{880, 1108.73, 1318.51}

// generateTick returns mono samples of a decaying sine.
func generateTick(sampleRate int, freq, duration, volume, decay float64) []int16 {
	n := int(float64(sampleRate) * duration)
	samples := make([]int16, n)
	for i := 0; i < n; i++ {
		t := float64(i) / float64(sampleRate)
		envelope := math.Exp(-t * decay)
		samples[i] = int16(math.Sin(2*math.Pi*freq*t) * 32767 * volume * envelope)
	}
	return samples
}

func generateDoubleBeep(sampleRate int, freq, beepDur, gapDur, volume, decay float64) []int16 {
	beep := generateTick(sampleRate, freq, beepDur, volume, decay)
	gap := make([]int16, int(float64(sampleRate)*gapDur))
	result := make([]int16, 0, len(beep)*2+len(gap))
	result = append(result, beep...)
	result = append(result, gap...)
	result = append(result, beep...)
	return result
}

func generateArpeggio(sampleRate int, freqs []float64, noteDur, volume, decay float64) []int16 {
	var result []int16
	for _, f := range freqs {
		result = append(result, generateTick(sampleRate, f, noteDur, volume, decay)...)
	}
	return result
}

func rewardSamples() []int16 {
	return generateArpeggio(sampleRate, rewardNotes, rewardNote, rewardVolume, rewardDecay)
}

func penaltySamples() []int16 {
	return generateDoubleBeep(sampleRate, penaltyFreq, 0.12, 0.06, penaltyVolume, penaltyDecay)
}

func modeSamples() []int16 {
	return generateTick(sampleRate, modeFreq, 0.05, modeVolume, modeDecay)
}

// toBytes packs mono samples as little-endian S16.
func toBytes(samples []int16) []byte {
	buf := make([]byte, len(samples)*2)
	for i, v := range samples {
		buf[i*2] = byte(v)
		buf[i*2+1] = byte(v >> 8)
	}
	return buf
}

// cursor hands a clip out in device-sized pieces.
type cursor struct {
	clip []byte
	pos  int
}

// fill copies the next piece into out and zero-fills the rest. It reports
// whether the clip has been used up.
func (c *cursor) fill(out []byte) bool {
	n := copy(out, c.clip[c.pos:])
	c.pos += n
	clear(out[n:])
	return c.pos >= len(c.clip)
}

// Chime plays the classroom sounds for reward and penalty events.
type Chime struct{}

func (Chime) Reward()  { PlayReward() }
func (Chime) Penalty() { PlayPenalty() }
func (Chime) Mode()    { PlayMode() }
