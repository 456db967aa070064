package config

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"hushlight/log"
)

const DefaultDebounce = 500 * time.Millisecond

// Watcher re-reads the config file after it changes and publishes the result.
// Only the newest config is kept if the consumer falls behind.
type Watcher struct {
	path     string
	debounce time.Duration
	fsw      *fsnotify.Watcher
	updates  chan Config
	done     chan struct{}
}

// Watch follows the file's directory so editors that save by rename are seen.
func Watch(ctx context.Context, path string, debounce time.Duration) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create file watcher: %w", err)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		fsw.Close()
		return nil, err
	}
	if err := fsw.Add(filepath.Dir(abs)); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("watch %s: %w", filepath.Dir(abs), err)
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	w := &Watcher{
		path:     abs,
		debounce: debounce,
		fsw:      fsw,
		updates:  make(chan Config, 1),
		done:     make(chan struct{}),
	}
	go w.loop(ctx)
	return w, nil
}

func (w *Watcher) Updates() <-chan Config { return w.updates }

func (w *Watcher) Close() error {
	err := w.fsw.Close()
	<-w.done
	return err
}

func (w *Watcher) loop(ctx context.Context) {
	defer close(w.done)
	timer := time.NewTimer(time.Hour)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != w.path {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			timer.Reset(w.debounce)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			log.Warnf("config watcher: %v", err)
		case <-timer.C:
			w.reload()
		}
	}
}

func (w *Watcher) reload() {
	cfg, warnings, err := Load(w.path)
	if err != nil {
		// Usually a half-written file; the next write event retries.
		log.Warnf("config reload: %v", err)
		return
	}
	for _, warn := range warnings {
		log.Warnf("config: %v", warn)
	}
	select {
	case <-w.updates:
	default:
	}
	w.updates <- cfg
	log.Info("config reloaded from " + w.path)
}
