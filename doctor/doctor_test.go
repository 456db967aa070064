package doctor

import (
	"context"
	"errors"
	"math"
	"path/filepath"
	"testing"
	"time"

	"hushlight/audio"
)

type steady struct{ db float64 }

func (s steady) Read(ctx context.Context) (float64, error) {
	select {
	case <-ctx.Done():
		return 0, ctx.Err()
	case <-time.After(10 * time.Millisecond):
		return s.db, nil
	}
}

type silent struct{}

func (silent) Read(ctx context.Context) (float64, error) {
	select {
	case <-ctx.Done():
		return 0, ctx.Err()
	case <-time.After(5 * time.Millisecond):
		return 0, audio.ErrNoFrames
	}
}

func TestMeasureSteadyLevel(t *testing.T) {
	got, err := measure(context.Background(), steady{db: 52}, 100*time.Millisecond)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(got-52) > 1e-9 {
		t.Errorf("measure = %v, want 52", got)
	}
}

func TestMeasureNoAudio(t *testing.T) {
	if _, err := measure(context.Background(), silent{}, 50*time.Millisecond); err == nil {
		t.Fatal("expected an error when nothing was captured")
	}
}

type broken struct{}

func (broken) Read(context.Context) (float64, error) { return 0, errors.New("device gone") }

func TestMeasurePropagatesErrors(t *testing.T) {
	if _, err := measure(context.Background(), broken{}, time.Second); err == nil || err.Error() != "device gone" {
		t.Fatalf("err = %v", err)
	}
}

func TestProbeStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "hushlight.db")
	id, err := probeStore(path)
	if err != nil {
		t.Fatal(err)
	}
	again, err := probeStore(path)
	if err != nil {
		t.Fatal(err)
	}
	if id == "" || id != again {
		t.Errorf("device id not stable: %q then %q", id, again)
	}
}
