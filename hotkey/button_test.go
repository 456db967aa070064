package hotkey

import (
	"testing"
	"time"
)

func waitToggle(t *testing.T, ch <-chan struct{}) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for toggle")
	}
}

func noToggle(t *testing.T, ch <-chan struct{}) {
	t.Helper()
	select {
	case <-ch:
		t.Fatal("unexpected toggle")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestButtonTapToggles(t *testing.T) {
	fk := NewFake()
	out := make(chan struct{}, 1)
	b := NewButton(fk, 10*time.Millisecond, out)
	defer b.Stop()

	fk.Press()
	noToggle(t, out) // fires on release, not on press
	fk.Release()
	waitToggle(t, out)
}

func TestButtonIgnoresBounce(t *testing.T) {
	fk := NewFake()
	out := make(chan struct{}, 1)
	b := NewButton(fk, 200*time.Millisecond, out)
	defer b.Stop()

	fk.Press()
	fk.Release()
	noToggle(t, out)
}

func TestButtonMultipleCycles(t *testing.T) {
	fk := NewFake()
	out := make(chan struct{}, 1)
	b := NewButton(fk, 10*time.Millisecond, out)
	defer b.Stop()

	for i := 0; i < 3; i++ {
		fk.Tap(20 * time.Millisecond)
		waitToggle(t, out)
	}
}

func TestButtonDropsWhenPending(t *testing.T) {
	fk := NewFake()
	out := make(chan struct{}, 1)
	b := NewButton(fk, 0, out)
	defer b.Stop()

	fk.Press()
	fk.Release()
	fk.Press()
	fk.Release()
	time.Sleep(50 * time.Millisecond)
	if len(out) != 1 {
		t.Fatalf("pending toggles = %d, want 1", len(out))
	}
}
