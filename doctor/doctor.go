package doctor

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"strings"
	"time"

	"hushlight/audio"
	"hushlight/config"
	"hushlight/hotkey"
	"hushlight/noise"
	"hushlight/shutdown"
	"hushlight/store"
	"hushlight/telemetry"
)

const (
	measureFor = 3 * time.Second
	// A clap or raised voice should clear the quiet room by at least this.
	minContrastDb = 6.0
)

type Options struct {
	Config config.Config
	DBPath string
}

// Run executes interactive diagnostic checks and returns an exit code (0=all pass, 1=any fail).
func Run(opts Options) int {
	saveTerminal()
	setupInterruptHandler()

	fmt.Println("hushlight doctor - interactive unit diagnostics")
	fmt.Println("===============================================")

	allPass := true

	if !checkButton() {
		allPass = false
	}
	if !checkMicrophone(opts.Config) {
		allPass = false
	}
	if !checkStore(opts.DBPath) {
		allPass = false
	}
	if !checkTelemetry(opts.Config) {
		allPass = false
	}

	fmt.Println()
	if allPass {
		fmt.Println("All checks passed!")
	} else {
		fmt.Println("Some checks failed. See details above.")
	}

	if allPass {
		return 0
	}
	return 1
}

func setupInterruptHandler() {
	sigChan := make(chan os.Signal, 1)
	shutdown.Notify(sigChan)
	go func() {
		<-sigChan
		resetTerminal()
		println("\nInterrupted")
		os.Exit(1)
	}()
}

func checkButton() bool {
	fmt.Println()
	fmt.Println("[1/4] Mode button")
	fmt.Println("Press Ctrl+Shift+H (or the F13 pad)...")

	hk := hotkey.New()
	if err := hk.Register(); err != nil {
		fmt.Printf("  FAIL: could not register mode button: %v\n", err)
		return false
	}
	defer hk.Unregister()

	select {
	case <-hk.Keydown():
		fmt.Println("  PASS: button press detected")
		select {
		case <-hk.Keyup():
		case <-time.After(5 * time.Second):
		}
		resetTerminal()
		return true
	case <-time.After(10 * time.Second):
		fmt.Println("  FAIL: timeout waiting for button")
		return false
	}
}

func checkMicrophone(cfg config.Config) bool {
	fmt.Println()
	fmt.Println("[2/4] Microphone level")

	reader := bufio.NewReader(os.Stdin)

	actx, err := audio.NewContext()
	if err != nil {
		fmt.Printf("  FAIL: cannot connect to audio: %v\n", err)
		return false
	}
	defer actx.Close()

	devices, err := actx.Devices()
	if err != nil {
		fmt.Printf("  FAIL: cannot list devices: %v\n", err)
		return false
	}
	if len(devices) == 0 {
		fmt.Println("  FAIL: no capture devices found")
		return false
	}

	var device *audio.DeviceInfo
	if len(devices) == 1 {
		device = &devices[0]
		fmt.Printf("Using device: %s\n", device.Name)
	} else {
		fmt.Println()
		fmt.Println("Select input device:")
		for i, d := range devices {
			fmt.Printf("  %d. %s\n", i+1, d.Name)
		}
		fmt.Printf("Choice [1-%d]: ", len(devices))

		devChoice, _ := reader.ReadString('\n')
		devChoice = strings.TrimSpace(devChoice)
		idx := 0
		if devChoice != "" {
			fmt.Sscanf(devChoice, "%d", &idx)
			idx--
		}
		if idx < 0 || idx >= len(devices) {
			fmt.Printf("  FAIL: invalid choice\n")
			return false
		}
		device = &devices[idx]
		fmt.Printf("Selected: %s\n", device.Name)
	}
	if audio.IsBluetooth(device.Name) {
		fmt.Println("  Warning: headset microphones do not hear the whole room")
	}

	capture, err := actx.NewCapture(device, audio.CaptureConfig{SampleRate: audio.SampleRate, Channels: 1})
	if err != nil {
		fmt.Printf("  FAIL: cannot open capture: %v\n", err)
		return false
	}
	defer capture.Close()
	meter := audio.NewLevelMeter(cfg.MicDbOffset)
	meter.Attach(capture)
	if err := capture.Start(); err != nil {
		fmt.Printf("  FAIL: cannot start capture: %v\n", err)
		return false
	}
	defer capture.Stop()

	fmt.Println()
	fmt.Print("Press Enter, then keep the room quiet for 3 seconds...")
	reader.ReadString('\n')
	quiet, err := measure(context.Background(), meter, measureFor)
	if err != nil {
		fmt.Printf("  FAIL: %v\n", err)
		return false
	}
	fmt.Printf("  Quiet room: %.1f dB\n", quiet)

	fmt.Print("Press Enter, then talk loudly or clap for 3 seconds...")
	reader.ReadString('\n')
	loud, err := measure(context.Background(), meter, measureFor)
	if err != nil {
		fmt.Printf("  FAIL: %v\n", err)
		return false
	}
	fmt.Printf("  Noisy room: %.1f dB\n", loud)

	band, _ := noise.LookupBand(cfg.Band)
	t := band.Default()
	fmt.Printf("  %s thresholds: green <= %.0f, amber <= %.0f, red above %.0f\n", band.Name, t.GreenMax, t.AmberMax, t.RedWarnDb)

	if loud-quiet < minContrastDb {
		fmt.Printf("  FAIL: only %.1f dB between quiet and noisy; check the mic or MIC_DB_OFFSET\n", loud-quiet)
		return false
	}
	fmt.Println("  PASS: microphone responds to the room")
	return true
}

type loudness interface {
	Read(ctx context.Context) (float64, error)
}

// measure averages readings in the power domain over d.
func measure(ctx context.Context, src loudness, d time.Duration) (float64, error) {
	ctx, cancel := context.WithTimeout(ctx, d)
	defer cancel()

	var sum float64
	var n int
	for ctx.Err() == nil {
		db, err := src.Read(ctx)
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			if errors.Is(err, audio.ErrNoFrames) {
				continue
			}
			return 0, err
		}
		sum += math.Pow(10, db/10)
		n++
	}
	if n == 0 {
		return 0, errors.New("no audio captured")
	}
	return 10 * math.Log10(sum/float64(n)), nil
}

func checkStore(path string) bool {
	fmt.Println()
	fmt.Println("[3/4] State store")

	id, err := probeStore(path)
	if err != nil {
		fmt.Printf("  FAIL: %v\n", err)
		return false
	}
	fmt.Printf("  PASS: %s is writable, device id %s\n", path, id)
	return true
}

func probeStore(path string) (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	db, err := store.Open(ctx, path)
	if err != nil {
		return "", err
	}
	defer db.Close()

	probe := time.Now().UTC().Format(time.RFC3339)
	if err := db.SetMany(map[string]string{"doctor.probe": probe}); err != nil {
		return "", fmt.Errorf("write: %w", err)
	}
	got, ok, err := db.Get("doctor.probe")
	if err != nil {
		return "", fmt.Errorf("read: %w", err)
	}
	if !ok || got != probe {
		return "", fmt.Errorf("read back %q, want %q", got, probe)
	}
	return store.DeviceID(db)
}

func checkTelemetry(cfg config.Config) bool {
	fmt.Println()
	fmt.Println("[4/4] Telemetry")

	if cfg.MQTTBroker == "" {
		fmt.Println("  SKIP: no MQTT_BROKER configured")
		return true
	}
	sink := telemetry.NewMQTTSink(cfg.MQTTBroker, cfg.MQTTTopic, "hushlight-doctor")
	sink.Connect()
	defer sink.Close()

	deadline := time.Now().Add(10 * time.Second)
	for !sink.Connected() {
		if time.Now().After(deadline) {
			fmt.Printf("  FAIL: cannot reach %s\n", cfg.MQTTBroker)
			return false
		}
		time.Sleep(200 * time.Millisecond)
	}
	fmt.Printf("  PASS: connected to %s\n", cfg.MQTTBroker)
	return true
}
