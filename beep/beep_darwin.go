//go:build darwin

package beep

import (
	"sync"

	"github.com/gen2brain/malgo"
)

// player keeps one playback device running once opened. A new chime
// replaces whatever is still sounding; between chimes it plays silence.
type player struct {
	devMu sync.Mutex
	ctx   *malgo.AllocatedContext
	dev   *malgo.Device

	mu  sync.Mutex
	cur *cursor
}

var (
	out       player
	clips     map[string][]byte
	soundOnce sync.Once
)

func initSound() {
	clips = map[string][]byte{
		"reward":  toBytes(rewardSamples()),
		"penalty": toBytes(penaltySamples()),
		"mode":    toBytes(modeSamples()),
	}
	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return
	}
	out.ctx = ctx
}

func (p *player) open() error {
	cfg := malgo.DefaultDeviceConfig(malgo.Playback)
	cfg.Playback.Format = malgo.FormatS16
	cfg.Playback.Channels = 1
	cfg.SampleRate = sampleRate

	dev, err := malgo.InitDevice(p.ctx.Context, cfg, malgo.DeviceCallbacks{Data: p.data})
	if err != nil {
		return err
	}
	p.dev = dev
	return nil
}

func (p *player) data(output, _ []byte, _ uint32) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cur == nil {
		clear(output)
		return
	}
	if p.cur.fill(output) {
		p.cur = nil
	}
}

func (p *player) play(clip []byte) {
	if p.ctx == nil || len(clip) == 0 {
		return
	}
	p.mu.Lock()
	p.cur = &cursor{clip: clip}
	p.mu.Unlock()

	p.devMu.Lock()
	defer p.devMu.Unlock()
	if p.dev == nil {
		if err := p.open(); err != nil {
			return
		}
	}
	if p.dev.IsStarted() {
		return
	}
	if err := p.dev.Start(); err != nil {
		// The device goes stale across sleep/wake; reopen once.
		p.dev.Uninit()
		p.dev = nil
		if p.open() == nil {
			p.dev.Start()
		}
	}
}

func Init() {
	soundOnce.Do(initSound)
}

func play(name string) {
	if disabled {
		return
	}
	soundOnce.Do(initSound)
	go out.play(clips[name])
}

func PlayReward()  { play("reward") }
func PlayPenalty() { play("penalty") }
func PlayMode()    { play("mode") }
