//go:build windows

package shutdown

import (
	"os"
	"os/signal"
)

// Notify has only Ctrl+C to offer on Windows; service stops arrive as it.
func Notify(ch chan os.Signal) { signal.Notify(ch, os.Interrupt) }
