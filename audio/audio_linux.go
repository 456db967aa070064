//go:build linux

package audio

import (
	"encoding/binary"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/jfreymuth/pulse"
	"github.com/jfreymuth/pulse/proto"
)

// captureLatency is how much audio pulse batches per write; well under the
// loop's 200 ms sample interval.
const captureLatency = 0.05

type pulseContext struct {
	client *pulse.Client
}

func NewContext() (Context, error) {
	c, err := pulse.NewClient(pulse.ClientApplicationName("hushlight"))
	if err != nil {
		return nil, fmt.Errorf("pulse: %w", err)
	}
	return &pulseContext{client: c}, nil
}

// Devices lists microphones. Monitor sources replay what the speakers play,
// not what the room hears, so they are left out.
func (p *pulseContext) Devices() ([]DeviceInfo, error) {
	sources, err := p.client.ListSources()
	if err != nil {
		return nil, fmt.Errorf("pulse list sources: %w", err)
	}
	var devices []DeviceInfo
	for _, s := range sources {
		if strings.HasSuffix(s.ID(), ".monitor") {
			continue
		}
		devices = append(devices, DeviceInfo{ID: s.ID(), Name: s.Name()})
	}
	return devices, nil
}

func (p *pulseContext) NewCapture(device *DeviceInfo, config CaptureConfig) (CaptureDevice, error) {
	if config.Channels > 1 {
		return nil, errors.New("pulse capture is mono only")
	}
	var source *pulse.Source
	if device != nil {
		s, err := p.client.SourceByID(device.ID)
		if err != nil {
			return nil, fmt.Errorf("pulse source %s: %w", device.Name, err)
		}
		source = s
	}
	return &pulseCapture{client: p.client, source: source, rate: int(config.SampleRate)}, nil
}

func (p *pulseContext) Close() {
	p.client.Close()
}

type pulseCapture struct {
	client   *pulse.Client
	source   *pulse.Source
	rate     int
	callback atomic.Pointer[DataCallback]

	mu     sync.Mutex
	stream *pulse.RecordStream
	buf    []byte
}

func (c *pulseCapture) Start() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stream != nil {
		return nil
	}

	// Pulse calls the writer from its own goroutine, one batch at a time, so
	// the byte buffer can be reused. Consumers copy what they keep.
	writer := pulse.Int16Writer(func(samples []int16) (int, error) {
		cb := c.callback.Load()
		if cb == nil || len(samples) == 0 {
			return len(samples), nil
		}
		if cap(c.buf) < len(samples)*2 {
			c.buf = make([]byte, len(samples)*2)
		}
		data := c.buf[:len(samples)*2]
		for i, s := range samples {
			binary.LittleEndian.PutUint16(data[i*2:], uint16(s))
		}
		(*cb)(data, uint32(len(samples)))
		return len(samples), nil
	})

	// Unity volume: the meter needs a linear signal and MIC_DB_OFFSET
	// absorbs the mic's sensitivity.
	opts := []pulse.RecordOption{
		pulse.RecordMono,
		pulse.RecordSampleRate(c.rate),
		pulse.RecordLatency(captureLatency),
		pulse.RecordMediaName("classroom noise level"),
		pulse.RecordRawOption(func(r *proto.CreateRecordStream) {
			r.ChannelVolumes = proto.ChannelVolumes{uint32(proto.VolumeNorm)}
		}),
	}
	if c.source != nil {
		opts = append(opts, pulse.RecordSource(c.source))
	}

	stream, err := c.client.NewRecord(writer, opts...)
	if err != nil {
		return fmt.Errorf("pulse record: %w", err)
	}
	stream.Start()
	c.stream = stream
	return nil
}

func (c *pulseCapture) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stream == nil {
		return
	}
	c.stream.Stop()
	c.stream.Close()
	c.stream = nil
}

func (c *pulseCapture) Close() {
	c.Stop()
}

func (c *pulseCapture) SetCallback(cb DataCallback) {
	c.callback.Store(&cb)
}

func (c *pulseCapture) ClearCallback() {
	c.callback.Store(nil)
}
