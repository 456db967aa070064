package main

import (
	"testing"

	"hushlight/audio"
)

func TestWantsGUI(t *testing.T) {
	tests := []struct {
		args []string
		want bool
	}{
		{nil, false},
		{[]string{"-tui=false"}, false},
		{[]string{"-http", ":8080", "-gui"}, true},
		{[]string{"--gui=true"}, true},
		{[]string{"-gui=false"}, false},
	}
	for _, tt := range tests {
		if got := wantsGUI(tt.args); got != tt.want {
			t.Errorf("wantsGUI(%q) = %v, want %v", tt.args, got, tt.want)
		}
	}
}

func TestDeviceLineText(t *testing.T) {
	if got := deviceLineText(nil); got != "mic: system default" {
		t.Errorf("nil device: %q", got)
	}
	got := deviceLineText(&audio.DeviceInfo{Name: "AirPods Pro"})
	if got != "mic: AirPods Pro (headset mic, levels unreliable)" {
		t.Errorf("headset: %q", got)
	}
}
