package display

import (
	"fmt"
	"io"
	"sync"

	"hushlight/log"
)

// Command is one rendered instruction.
type Command struct {
	Animated  bool
	Colour    RGB
	Animation Animation
}

func (c Command) String() string {
	if c.Animated {
		return "animate " + c.Animation.String()
	}
	return "fill " + c.Colour.String()
}

// Logger is the headless sink. It reports only changes, since the loop
// repeats the same command every tick.
type Logger struct {
	w    io.Writer
	last Command
	seen bool
}

func NewLogger(w io.Writer) *Logger {
	return &Logger{w: w}
}

func (l *Logger) Fill(c RGB)          { l.emit(Command{Colour: c}) }
func (l *Logger) Animate(a Animation) { l.emit(Command{Animated: true, Animation: a}) }

func (l *Logger) emit(c Command) {
	if l.seen && c == l.last {
		return
	}
	l.last, l.seen = c, true
	log.Info("display " + c.String())
	if l.w != nil {
		fmt.Fprintln(l.w, c.String())
	}
}

// Recorder keeps every command for tests.
type Recorder struct {
	mu       sync.Mutex
	commands []Command
}

func (r *Recorder) Fill(c RGB)          { r.add(Command{Colour: c}) }
func (r *Recorder) Animate(a Animation) { r.add(Command{Animated: true, Animation: a}) }

func (r *Recorder) add(c Command) {
	r.mu.Lock()
	r.commands = append(r.commands, c)
	r.mu.Unlock()
}

func (r *Recorder) Commands() []Command {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Command(nil), r.commands...)
}

func (r *Recorder) Last() (Command, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.commands) == 0 {
		return Command{}, false
	}
	return r.commands[len(r.commands)-1], true
}

func (r *Recorder) Reset() {
	r.mu.Lock()
	r.commands = nil
	r.mu.Unlock()
}
