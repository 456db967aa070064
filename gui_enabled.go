//go:build gui

package main

import (
	"fmt"
	"os"
	"runtime"

	"hushlight/audio"
	"hushlight/display"
	"hushlight/gui"
	"hushlight/monitor"
)

var guiApp *gui.App

// Audio context initialized on main thread for macOS Core Audio compatibility
var guiAudioCtx audio.Context
var guiCaptureDevice audio.CaptureDevice

func initGUI() {
	guiMode = true

	// macOS Core Audio requires main thread access for proper capture.
	var err error
	guiAudioCtx, err = audio.NewContext()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing audio context: %v\n", err)
		os.Exit(1)
	}
	guiCaptureDevice, err = guiAudioCtx.NewCapture(nil, audio.CaptureConfig{SampleRate: audio.SampleRate, Channels: 1})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing capture device: %v\n", err)
		os.Exit(1)
	}

	// Lock this goroutine to OS thread for Fyne/GLFW
	runtime.LockOSThread()

	guiApp = gui.NewApp(run)
	if err := gui.Run(guiApp); err != nil {
		guiCaptureDevice.Close()
		guiAudioCtx.Close()
		panic(err)
	}
}

func guiSink() display.Sink {
	if guiApp == nil {
		return display.NewLogger(nil)
	}
	return guiApp
}

func guiBindToggle(fn func()) {
	if guiApp != nil {
		guiApp.OnToggle = fn
	}
}

func guiStatus(s monitor.Snapshot) {
	if guiApp == nil {
		return
	}
	line := fmt.Sprintf("%s  %.0f dB  %s", s.Zone, s.DisplayDb, s.Window)
	if s.Override {
		line += "  (hop)"
	}
	guiApp.SetStatus(line)
}

func guiQuit() {
	if guiApp != nil {
		guiApp.Quit()
	}
}
