//go:build !windows

package shutdown

import (
	"os"
	"os/signal"
	"syscall"
)

// Notify also listens for SIGHUP so a unit started from an ssh session
// flushes its state when the session drops.
func Notify(ch chan os.Signal) {
	signal.Notify(ch, os.Interrupt, syscall.SIGTERM, syscall.SIGHUP)
}
