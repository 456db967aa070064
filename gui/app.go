//go:build gui

// Package gui shows the noise light as a full-window lamp for desktops and
// classroom screens without an LED ring.
package gui

import (
	"image/color"
	"sync"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/driver/desktop"

	"hushlight/display"
)

const frameInterval = 50 * time.Millisecond

type App struct {
	fyneApp fyne.App
	window  fyne.Window
	lamp    *canvas.Rectangle
	status  *canvas.Text
	onReady func()

	// OnToggle runs when the tray's mode item is clicked.
	OnToggle func()

	mu      sync.Mutex
	cmd     display.Command
	started time.Time
	line    string
}

func NewApp(onReady func()) *App {
	return &App{onReady: onReady, started: time.Now()}
}

func Run(a *App) error {
	a.fyneApp = app.NewWithID("io.hushlight.lamp")
	a.fyneApp.Settings().SetTheme(lampTheme{})

	if desk, ok := a.fyneApp.(desktop.App); ok {
		menu := fyne.NewMenu("hushlight",
			fyne.NewMenuItem("Toggle hop mode", func() {
				if a.OnToggle != nil {
					a.OnToggle()
				}
			}),
			fyne.NewMenuItem("Quit", func() {
				a.fyneApp.Quit()
			}),
		)
		desk.SetSystemTrayMenu(menu)
		desk.SetSystemTrayIcon(trayIcon())
	}

	a.window = a.fyneApp.NewWindow("hushlight")
	a.lamp = canvas.NewRectangle(color.Black)
	a.lamp.CornerRadius = 24
	a.status = canvas.NewText("", captionColour)
	a.status.Alignment = fyne.TextAlignCenter
	a.status.TextSize = 18

	a.window.SetContent(container.NewStack(a.lamp, container.NewVBox(a.status)))
	a.window.SetPadded(false)
	a.window.Resize(fyne.NewSize(480, 480))
	a.window.Show()

	stop := make(chan struct{})
	go a.render(stop)
	go a.onReady()

	a.fyneApp.Run()
	close(stop)
	return nil
}

func (a *App) render(stop <-chan struct{}) {
	ticker := time.NewTicker(frameInterval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
		}
		a.mu.Lock()
		c := display.Frame(a.cmd, time.Since(a.started))
		line := a.line
		a.mu.Unlock()

		fyne.Do(func() {
			a.lamp.FillColor = color.RGBA{c.R, c.G, c.B, 255}
			a.lamp.Refresh()
			if a.status.Text != line {
				a.status.Text = line
				a.status.Refresh()
			}
		})
	}
}

func (a *App) Quit() {
	if a.fyneApp != nil {
		a.fyneApp.Quit()
	}
}

func (a *App) Fill(c display.RGB) { a.set(display.Command{Colour: c}) }

func (a *App) Animate(an display.Animation) {
	a.set(display.Command{Animated: true, Animation: an})
}

// set restarts the animation clock only when the command changes, since
// the loop repeats it every tick.
func (a *App) set(c display.Command) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if c != a.cmd {
		a.cmd = c
		a.started = time.Now()
	}
}

// SetStatus replaces the caption drawn over the lamp.
func (a *App) SetStatus(line string) {
	a.mu.Lock()
	a.line = line
	a.mu.Unlock()
}
