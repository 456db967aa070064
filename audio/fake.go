package audio

import (
	"errors"
	"os"
	"sync"
	"time"
)

// fakeChunk is 64 ms of audio, close to what pulse delivers per callback.
const fakeChunk = 1024 * 2

// FakeContext stands in for a microphone by looping a recording of a room.
// It backs tests and the -wav flag.
type FakeContext struct {
	pcm []byte
}

// NewFakeContext loops a 16 kHz 16-bit mono WAV file.
func NewFakeContext(wavPath string) (*FakeContext, error) {
	data, err := os.ReadFile(wavPath)
	if err != nil {
		return nil, err
	}
	if len(data) <= WAVHeaderSize {
		return nil, errors.New("wav file has no samples")
	}
	return NewFakeContextPCM(data[WAVHeaderSize:]), nil
}

// NewFakeContextPCM loops raw 16-bit mono PCM at SampleRate.
func NewFakeContextPCM(pcm []byte) *FakeContext {
	return &FakeContext{pcm: pcm[:len(pcm)&^1]}
}

func (f *FakeContext) Devices() ([]DeviceInfo, error) {
	return []DeviceInfo{{ID: "fake", Name: "recording"}}, nil
}

func (f *FakeContext) Close() {}

func (f *FakeContext) NewCapture(_ *DeviceInfo, _ CaptureConfig) (CaptureDevice, error) {
	return &FakeCapture{pcm: f.pcm}, nil
}

// FakeCapture delivers its clip in real time, wrapping at the end.
type FakeCapture struct {
	mu   sync.Mutex
	pcm  []byte
	pos  int
	cb   DataCallback
	stop chan struct{}
	done chan struct{}
}

// SetPCM swaps the clip from the next chunk on, e.g. to make the room loud.
func (f *FakeCapture) SetPCM(pcm []byte) {
	f.mu.Lock()
	f.pcm = pcm[:len(pcm)&^1]
	f.pos = 0
	f.mu.Unlock()
}

func (f *FakeCapture) SetCallback(cb DataCallback) {
	f.mu.Lock()
	f.cb = cb
	f.mu.Unlock()
}

func (f *FakeCapture) ClearCallback() { f.SetCallback(nil) }

func (f *FakeCapture) Start() error {
	f.mu.Lock()
	if f.stop != nil {
		f.mu.Unlock()
		return errors.New("capture already started")
	}
	f.stop = make(chan struct{})
	f.done = make(chan struct{})
	stop, done := f.stop, f.done
	f.mu.Unlock()

	interval := time.Duration(fakeChunk/2) * time.Second / SampleRate
	go func() {
		defer close(done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			if chunk, cb := f.next(); cb != nil && len(chunk) > 0 {
				cb(chunk, uint32(len(chunk)/2))
			}
			select {
			case <-stop:
				return
			case <-ticker.C:
			}
		}
	}()
	return nil
}

// next copies out one chunk, wrapping around the clip.
func (f *FakeCapture) next() ([]byte, DataCallback) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.pcm) == 0 {
		return nil, f.cb
	}
	chunk := make([]byte, fakeChunk)
	for i := range chunk {
		chunk[i] = f.pcm[f.pos]
		f.pos = (f.pos + 1) % len(f.pcm)
	}
	return chunk, f.cb
}

func (f *FakeCapture) Stop() {
	f.mu.Lock()
	stop, done := f.stop, f.done
	f.stop, f.done = nil, nil
	f.mu.Unlock()
	if stop == nil {
		return
	}
	close(stop)
	<-done
}

func (f *FakeCapture) Close() { f.Stop() }
