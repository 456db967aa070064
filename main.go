package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	_ "net/http/pprof"
	"os"
	"path/filepath"
	"runtime/debug"
	"time"

	"hushlight/audio"
	"hushlight/beep"
	"hushlight/clock"
	"hushlight/config"
	"hushlight/display"
	"hushlight/doctor"
	"hushlight/hotkey"
	"hushlight/httpapi"
	"hushlight/log"
	"hushlight/metrics"
	"hushlight/monitor"
	"hushlight/shutdown"
	"hushlight/store"
	"hushlight/telemetry"
)

var version = "dev"

var guiMode bool

// overrides carries mode-button presses from the hotkey, the TUI, the tray
// and the HTTP API into the control loop.
var overrides = make(chan struct{}, 1)

func requestToggle() {
	select {
	case overrides <- struct{}{}:
	default:
	}
}

func deviceLineText(dev *audio.DeviceInfo) string {
	name := "system default"
	suffix := ""
	if dev != nil {
		name = dev.Name
		if audio.IsBluetooth(dev.Name) {
			suffix = " (headset mic, levels unreliable)"
		}
	}
	return "mic: " + name + suffix
}

// wantsGUI reports whether -gui was given. It runs before flag.Parse since
// the GUI has to own the main thread.
func wantsGUI(args []string) bool {
	for _, arg := range args {
		switch arg {
		case "-gui", "--gui", "-gui=true", "--gui=true":
			return true
		}
	}
	return false
}

func fatalf(format string, args ...any) {
	log.Errorf(format, args...)
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	log.Close()
	os.Exit(1)
}

func run() {
	configFlag := flag.String("config", "", "config file (default: $HUSHLIGHT_CONFIG, else environment only)")
	logPathFlag := flag.String("logpath", "", "log directory path (default: OS-specific location, use ./ for current dir)")
	dbFlag := flag.String("db", "", "state database path (default: user config dir)")
	setupFlag := flag.Bool("setup", false, "Select microphone device (otherwise uses system default)")
	deviceFlag := flag.String("device", "", "Use named microphone device")
	wavFlag := flag.String("wav", "", "Loop a 16 kHz mono WAV recording instead of the microphone")
	httpFlag := flag.String("http", "", "Serve status, health and metrics on this address (e.g. :8080)")
	profileFlag := flag.String("profile", "", "Enable pprof profiling server (e.g., :6060 or localhost:6060)")
	tuiFlag := flag.Bool("tui", true, "Run with terminal UI")
	_ = flag.Bool("gui", false, "Show the light in a desktop window (requires -tags gui)")
	simulateFlag := flag.String("simulate", "", "Replay a \"<seconds> <dB>\" scenario file headlessly and exit")
	simStartFlag := flag.String("simstart", "2025-03-03T09:00:00Z", "Wall clock at the start of a -simulate run (RFC 3339)")
	doctorFlag := flag.Bool("doctor", false, "Run unit diagnostics and exit")
	versionFlag := flag.Bool("version", false, "Print version and exit")
	flag.Parse()

	if *versionFlag {
		fmt.Printf("hushlight %s\n", version)
		os.Exit(0)
	}

	logPath, err := log.ResolveDir(*logPathFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to resolve log directory: %v\n", err)
		os.Exit(1)
	}
	log.SetDir(logPath)

	if err := log.EnsureDir(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not create log directory: %v\n", err)
	}

	crashPath := filepath.Join(log.Dir(), "crash_log.txt")
	crashFile, err := os.OpenFile(crashPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err == nil {
		fmt.Fprintf(crashFile, "\n=== Session %s [pid=%d] ===\n", time.Now().Format("2006-01-02 15:04:05"), os.Getpid())
		debug.SetCrashOutput(crashFile, debug.CrashOptions{})
	}

	if *profileFlag != "" {
		go func() {
			fmt.Fprintf(os.Stderr, "pprof server listening on http://%s/debug/pprof/\n", *profileFlag)
			if err := http.ListenAndServe(*profileFlag, nil); err != nil {
				fmt.Fprintf(os.Stderr, "pprof server error: %v\n", err)
			}
		}()
	}

	cfgPath := config.ResolveSource(*configFlag)
	cfg, warnings, err := config.Load(cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	dbPath := *dbFlag
	if dbPath == "" {
		if dbPath, err = store.DefaultPath(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: cannot locate state database: %v\n", err)
			os.Exit(1)
		}
	}

	if *doctorFlag {
		os.Exit(doctor.Run(doctor.Options{Config: cfg, DBPath: dbPath}))
	}

	if err := log.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not init logging: %v\n", err)
	}
	defer log.Close()
	log.Infof("hushlight %s starting", version)
	for _, w := range warnings {
		log.Warnf("config: %v", w)
		fmt.Fprintf(os.Stderr, "Warning: %v\n", w)
	}

	if *simulateFlag != "" {
		start, err := time.Parse(time.RFC3339, *simStartFlag)
		if err != nil {
			fatalf("bad -simstart: %v", err)
		}
		if err := runSimulation(*simulateFlag, start, cfg, os.Stdout); err != nil {
			fatalf("simulation: %v", err)
		}
		return
	}

	ctx, cancel := shutdown.Context(context.Background())
	defer cancel()

	db, err := store.Open(ctx, dbPath)
	if err != nil {
		fatalf("opening state database: %v", err)
	}
	defer db.Close()

	deviceID, err := store.DeviceID(db)
	if err != nil {
		log.Warnf("device id: %v", err)
	}

	actx := guiAudioCtx
	if *wavFlag != "" {
		if actx, err = audio.NewFakeContext(*wavFlag); err != nil {
			fatalf("loading %s: %v", *wavFlag, err)
		}
	} else if actx == nil {
		if actx, err = audio.NewContext(); err != nil {
			fatalf("initializing audio context: %v", err)
		}
		defer actx.Close()
	}

	var selectedDevice *audio.DeviceInfo
	if *deviceFlag != "" {
		if selectedDevice, err = audio.FindDevice(actx, *deviceFlag); err != nil {
			log.Warnf("%v, using default", err)
		}
	} else if *setupFlag {
		selectedDevice, err = audio.SelectDevice(actx)
		if err != nil {
			log.Warnf("device selection failed: %v", err)
			fmt.Printf("Warning: device selection failed: %v\n", err)
			fmt.Println("Falling back to default device")
			selectedDevice = nil
		}
	}
	if selectedDevice != nil && audio.IsBluetooth(selectedDevice.Name) {
		log.Warnf("%s looks like a headset; room levels will be unreliable", selectedDevice.Name)
	}

	capture := guiCaptureDevice
	if capture == nil || selectedDevice != nil || *wavFlag != "" {
		capture, err = actx.NewCapture(selectedDevice, audio.CaptureConfig{SampleRate: audio.SampleRate, Channels: 1})
		if err != nil {
			fatalf("initializing capture device: %v", err)
		}
	}
	defer capture.Close()

	meter := audio.NewLevelMeter(cfg.MicDbOffset)
	if vad, err := audio.NewVAD(); err != nil {
		log.Warnf("voice activity detection unavailable: %v", err)
	} else {
		meter.WithVAD(vad)
	}
	meter.Attach(capture)
	if err := capture.Start(); err != nil {
		fatalf("starting capture: %v", err)
	}
	defer capture.Stop()

	wall, err := clock.NewSystem(cfg.Timezone)
	if err != nil {
		log.Warnf("timezone %q: %v, using local time", cfg.Timezone, err)
		wall, _ = clock.NewSystem("")
	}

	m := metrics.New()

	var sinks []telemetry.Sink
	if cfg.MQTTBroker != "" {
		ms := telemetry.NewMQTTSink(cfg.MQTTBroker, cfg.MQTTTopic, "hushlight-"+deviceID)
		ms.Connect()
		defer ms.Close()
		sinks = append(sinks, ms)
	}
	if cfg.WebhookURL != "" {
		sinks = append(sinks, telemetry.NewWebhookSink(cfg.WebhookURL))
	}
	var publisher monitor.Publisher
	if len(sinks) > 0 {
		d := telemetry.NewDispatcher(telemetry.DefaultQueueSize, sinks...)
		d.OnResult = m.SinkResult
		d.Start(ctx)
		defer d.Close()
		publisher = d
	}

	beep.Init()

	var reconfig <-chan config.Config
	if cfgPath != "" {
		w, err := config.Watch(ctx, cfgPath, config.DefaultDebounce)
		if err != nil {
			log.Warnf("config reload disabled: %v", err)
		} else {
			defer w.Close()
			reconfig = w.Updates()
		}
	}

	hk := hotkey.New()
	if err := hk.Register(); err != nil {
		log.Warnf("mode button unavailable: %v", err)
		if diag, derr := hotkey.Diagnose(); derr == nil && diag != "" {
			log.Warn(diag)
		}
	} else {
		btn := hotkey.NewButton(hk, hotkey.DefaultMinHold, overrides)
		defer btn.Stop()
		defer hk.Unregister()
	}

	useTUI := *tuiFlag && !guiMode
	var sink display.Sink
	switch {
	case guiMode:
		sink = guiSink()
		guiBindToggle(requestToggle)
	case useTUI:
		sink = &tuiSink{}
		tuiMu.Lock()
		tuiProgram = NewTUIProgram()
		tuiMu.Unlock()

		go func() {
			if _, err := tuiProgram.Run(); err != nil {
				log.Errorf("TUI error: %v", err)
			}
			cancel()
		}()
		tuiSend(DeviceLineMsg{Text: deviceLineText(selectedDevice)})
	default:
		sink = display.NewLogger(os.Stdout)
	}

	sess, err := monitor.New(monitor.Options{
		Source:    meter,
		Wall:      wall,
		Counter:   clock.NewMonotonic(),
		Store:     db,
		Display:   sink,
		Telemetry: publisher,
		Metrics:   m,
		Chime:     beep.Chime{},
		DeviceID:  deviceID,
		Config:    cfg,
		OnSnapshot: func(s monitor.Snapshot) {
			if useTUI {
				tuiSend(SnapshotMsg{Snapshot: s})
			}
			guiStatus(s)
		},
	})
	if err != nil {
		fatalf("starting monitor: %v", err)
	}

	if *httpFlag != "" {
		srv := httpapi.NewServer(*httpFlag, &httpapi.Handlers{
			Status:   sess,
			Metrics:  m.Handler(),
			Checks:   []httpapi.Check{{Name: "store", Run: db.Ping}},
			Override: overrides,
		})
		go func() {
			if err := srv.Start(); err != nil {
				log.Errorf("http server: %v", err)
			}
		}()
		defer func() {
			sctx, scancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer scancel()
			srv.Stop(sctx)
		}()
		log.Infof("http listening on %s", *httpFlag)
	}

	if err := sess.Run(ctx, overrides, reconfig); err != nil && !errors.Is(err, context.Canceled) {
		log.Errorf("monitor stopped: %v", err)
	}

	tuiMu.Lock()
	if tuiProgram != nil {
		tuiProgram.Quit()
	}
	tuiMu.Unlock()
	guiQuit()
}
