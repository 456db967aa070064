package audio

import (
	"context"
	"encoding/binary"
	"errors"
	"math"
	"sync"
	"time"
)

const (
	DefaultReadTimeout = 150 * time.Millisecond
	// FloorDb is the quietest level reported; digital silence maps here.
	FloorDb = 20.0
)

var ErrNoFrames = errors.New("audio: no frames within timeout")

// LevelMeter turns a capture stream into a decibel-equivalent reading each
// time Read is called.
type LevelMeter struct {
	offset  float64
	timeout time.Duration
	vad     *VAD

	mu     sync.Mutex
	sumSq  float64
	n      int
	notify chan struct{}
}

// NewLevelMeter calibrates full-scale to 0 dBFS + offset.
func NewLevelMeter(offset float64) *LevelMeter {
	return &LevelMeter{
		offset:  offset,
		timeout: DefaultReadTimeout,
		notify:  make(chan struct{}, 1),
	}
}

// WithVAD also runs every frame through v so SpeechRatio has data.
func (m *LevelMeter) WithVAD(v *VAD) *LevelMeter {
	m.vad = v
	return m
}

func (m *LevelMeter) Attach(dev CaptureDevice) {
	dev.SetCallback(m.Write)
}

// Write accepts 16-bit little-endian mono PCM. It matches DataCallback.
func (m *LevelMeter) Write(data []byte, _ uint32) {
	var sum float64
	n := len(data) / 2
	for i := 0; i < n; i++ {
		s := float64(int16(binary.LittleEndian.Uint16(data[i*2:]))) / 32768
		sum += s * s
	}
	if n == 0 {
		return
	}
	m.mu.Lock()
	m.sumSq += sum
	m.n += n
	m.mu.Unlock()

	if m.vad != nil {
		m.vad.Process(data)
	}
	select {
	case m.notify <- struct{}{}:
	default:
	}
}

// Read returns the level of all audio received since the previous Read.
func (m *LevelMeter) Read(ctx context.Context) (float64, error) {
	if db, ok := m.drain(); ok {
		return db, nil
	}
	timer := time.NewTimer(m.timeout)
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return 0, ctx.Err()
		case <-timer.C:
			return 0, ErrNoFrames
		case <-m.notify:
			if db, ok := m.drain(); ok {
				return db, nil
			}
		}
	}
}

func (m *LevelMeter) drain() (float64, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.n == 0 {
		return 0, false
	}
	rms := math.Sqrt(m.sumSq / float64(m.n))
	m.sumSq, m.n = 0, 0
	return Level(rms, m.offset), true
}

func (m *LevelMeter) SpeechRatio() float64 {
	if m.vad == nil {
		return 0
	}
	return m.vad.SpeechRatio()
}

// Level converts a normalised RMS (1.0 = full scale) to dB with the mic offset.
func Level(rms, offset float64) float64 {
	if rms <= 0 || math.IsNaN(rms) {
		return FloorDb
	}
	return math.Max(FloorDb, 20*math.Log10(rms)+offset)
}
