package audio

import (
	"sync"

	webrtcvad "github.com/maxhawkins/go-webrtcvad"
)

const (
	vadMode       = 2
	vadFrameMs    = 20
	vadFrameBytes = SampleRate * vadFrameMs / 1000 * 2 // 640 bytes
)

// VAD classifies 20ms frames as speech or not and reports the voiced share
// since the last query. Classrooms are loud for many reasons; the ratio tells
// chatter apart from chairs and doors in telemetry.
type VAD struct {
	vad *webrtcvad.VAD

	mu           sync.Mutex
	buf          []byte
	totalFrames  int
	speechFrames int
	lastTotal    int
	lastSpeech   int
}

func NewVAD() (*VAD, error) {
	v, err := webrtcvad.New()
	if err != nil {
		return nil, err
	}
	if err := v.SetMode(vadMode); err != nil {
		return nil, err
	}
	return &VAD{vad: v}, nil
}

func (p *VAD) Process(data []byte) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.buf = append(p.buf, data...)
	for len(p.buf) >= vadFrameBytes {
		frame := p.buf[:vadFrameBytes]
		p.buf = p.buf[vadFrameBytes:]

		active, err := p.vad.Process(SampleRate, frame)
		if err != nil {
			continue
		}
		p.totalFrames++
		if active {
			p.speechFrames++
		}
	}
}

func (p *VAD) Stats() (total, speech int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.totalFrames, p.speechFrames
}

// SpeechRatio is the voiced share of frames since the previous call.
func (p *VAD) SpeechRatio() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	t, s := p.totalFrames-p.lastTotal, p.speechFrames-p.lastSpeech
	p.lastTotal, p.lastSpeech = p.totalFrames, p.speechFrames
	if t == 0 {
		return 0
	}
	return float64(s) / float64(t)
}

func (p *VAD) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.buf = p.buf[:0]
	p.totalFrames, p.speechFrames = 0, 0
	p.lastTotal, p.lastSpeech = 0, 0
}
