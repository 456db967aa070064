//go:build linux

package beep

import (
	"sync"

	"github.com/jfreymuth/pulse"
	"github.com/jfreymuth/pulse/proto"
)

var (
	clips     map[string][]int16
	soundOnce sync.Once

	// queue holds at most one pending chime; a chime requested while
	// another is pending is dropped.
	queue = make(chan []int16, 1)
)

func initSound() {
	clips = map[string][]int16{
		"reward":  rewardSamples(),
		"penalty": penaltySamples(),
		"mode":    modeSamples(),
	}
	go player()
}

// player owns the pulse connection and plays chimes one after another.
// The connection is reopened after an error, e.g. a restarted sound server.
func player() {
	var c *pulse.Client
	for samples := range queue {
		if c == nil {
			var err error
			if c, err = pulse.NewClient(pulse.ClientApplicationName("hushlight")); err != nil {
				continue
			}
		}
		if err := playOn(c, samples); err != nil {
			c.Close()
			c = nil
		}
	}
}

func playOn(c *pulse.Client, samples []int16) error {
	pos := 0
	reader := pulse.Int16Reader(func(buf []int16) (int, error) {
		if pos >= len(samples) {
			return 0, pulse.EndOfData
		}
		n := copy(buf, samples[pos:])
		pos += n
		return n, nil
	})
	stream, err := c.NewPlayback(reader,
		pulse.PlaybackMono,
		pulse.PlaybackSampleRate(sampleRate),
		pulse.PlaybackLatency(0.1),
		pulse.PlaybackMediaName("classroom chime"),
		pulse.PlaybackRawOption(func(p *proto.CreatePlaybackStream) {
			p.ChannelVolumes = proto.ChannelVolumes{uint32(proto.VolumeNorm)}
		}),
	)
	if err != nil {
		return err
	}
	defer stream.Close()
	stream.Start()
	stream.Drain()
	return stream.Error()
}

func play(name string) {
	if disabled {
		return
	}
	soundOnce.Do(initSound)
	select {
	case queue <- clips[name]:
	default:
	}
}

func Init() {
	soundOnce.Do(initSound)
}

func PlayReward()  { play("reward") }
func PlayPenalty() { play("penalty") }
func PlayMode()    { play("mode") }
