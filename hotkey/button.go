package hotkey

import "time"

// DefaultMinHold filters contact bounce on the physical button.
const DefaultMinHold = 30 * time.Millisecond

// Button turns press/release pairs into mode toggles. A toggle fires on
// release, and only when the key was held for at least minHold.
type Button struct {
	stop chan struct{}
	done chan struct{}
}

// NewButton forwards toggles into out without blocking; a toggle that finds
// out full is dropped, since one is already pending.
func NewButton(hk Hotkey, minHold time.Duration, out chan<- struct{}) *Button {
	b := &Button{
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}
	go b.run(hk, minHold, out)
	return b
}

func (b *Button) run(hk Hotkey, minHold time.Duration, out chan<- struct{}) {
	defer close(b.done)
	for {
		select {
		case <-b.stop:
			return
		case <-hk.Keydown():
		}
		pressed := time.Now()

		select {
		case <-b.stop:
			return
		case <-hk.Keyup():
		}
		if time.Since(pressed) < minHold {
			continue
		}
		select {
		case out <- struct{}{}:
		default:
		}
	}
}

func (b *Button) Stop() {
	close(b.stop)
	<-b.done
}
