package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"hushlight/clock"
	"hushlight/config"
	"hushlight/display"
	"hushlight/log"
	"hushlight/monitor"
)

// step is one scenario line: from At onwards the room reads Db.
type step struct {
	At time.Duration
	Db float64
}

// parseScenario reads "<seconds> <dB>" lines. Blank lines and lines starting
// with # are skipped. The last line marks the end of the run.
func parseScenario(r io.Reader) ([]step, error) {
	var steps []step
	sc := bufio.NewScanner(r)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		fields := strings.Fields(text)
		if len(fields) != 2 {
			return nil, fmt.Errorf("line %d: want \"<seconds> <dB>\"", line)
		}
		sec, err := strconv.ParseFloat(fields[0], 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: seconds: %w", line, err)
		}
		db, err := strconv.ParseFloat(fields[1], 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: dB: %w", line, err)
		}
		at := time.Duration(sec * float64(time.Second))
		if len(steps) > 0 && at < steps[len(steps)-1].At {
			return nil, fmt.Errorf("line %d: time goes backwards", line)
		}
		steps = append(steps, step{At: at, Db: db})
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if len(steps) == 0 {
		return nil, fmt.Errorf("scenario is empty")
	}
	return steps, nil
}

// scenarioSource replays the scenario against the fake clock.
type scenarioSource struct {
	clk   *clock.Fake
	start time.Time
	steps []step
}

func (s *scenarioSource) Read(context.Context) (float64, error) {
	elapsed := s.clk.Time().Sub(s.start)
	db := s.steps[0].Db
	for _, st := range s.steps {
		if st.At > elapsed {
			break
		}
		db = st.Db
	}
	return db, nil
}

// runSimulation drives the control loop through a scenario file as fast as
// it can, printing every light change to out.
func runSimulation(path string, start time.Time, cfg config.Config, out io.Writer) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	steps, err := parseScenario(f)
	f.Close()
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}

	clk := clock.NewFake(start)
	src := &scenarioSource{clk: clk, start: start, steps: steps}
	s, err := monitor.New(monitor.Options{
		Source:   src,
		Wall:     clk,
		Counter:  clk,
		Display:  display.NewLogger(out),
		DeviceID: "simulator",
		Config:   cfg,
	})
	if err != nil {
		return err
	}

	ctx := context.Background()
	end := steps[len(steps)-1].At
	for elapsed := time.Duration(0); elapsed <= end; elapsed += monitor.TickInterval {
		s.Tick(ctx, clk.Millis())
		clk.Advance(monitor.TickInterval)
	}

	snap := s.Snapshot()
	log.Infof("simulation done: rewards=%d penalties=%d", snap.Rewards, snap.Penalties)
	fmt.Fprintf(out, "rewards=%d penalties=%d\n", snap.Rewards, snap.Penalties)
	return nil
}
