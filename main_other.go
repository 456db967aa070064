//go:build !linux

package main

import (
	"os"
	"runtime"

	"golang.design/x/hotkey/mainthread"
)

// The global hotkey and the GUI both need the process's first thread.
func init() { runtime.LockOSThread() }

func main() {
	if wantsGUI(os.Args[1:]) {
		initGUI()
		return
	}
	mainthread.Init(run)
}
