//go:build !gui

package main

import (
	"hushlight/audio"
	"hushlight/display"
	"hushlight/monitor"
)

// Stubs for non-GUI builds (these are never used since guiMode is false)
var guiAudioCtx audio.Context
var guiCaptureDevice audio.CaptureDevice

func initGUI() {
	panic("hushlight: built without GUI support (rebuild with -tags gui)")
}

func guiSink() display.Sink      { return display.NewLogger(nil) }
func guiBindToggle(func())       {}
func guiStatus(monitor.Snapshot) {}
func guiQuit()                   {}
