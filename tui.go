package main

import (
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"hushlight/display"
	"hushlight/monitor"
)

// TUI message types
type CommandMsg struct{ Command display.Command }
type SnapshotMsg struct{ Snapshot monitor.Snapshot }
type DeviceLineMsg struct{ Text string } // Microphone device name
type tickMsg time.Time

const (
	ringLEDs   = 12
	ringWidth  = 29
	ringHeight = 13
	panelWidth = ringWidth + 4
)

type tuiModel struct {
	cmd        display.Command
	cmdStart   time.Time
	now        time.Time
	snap       monitor.Snapshot
	haveSnap   bool
	deviceLine string
	width      int
	height     int
}

var (
	tuiProgram *tea.Program
	tuiMu      sync.Mutex
)

var (
	dimStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	labelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	helpStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("239"))
	boldHelp   = lipgloss.NewStyle().Foreground(lipgloss.Color("239")).Bold(true)
	warnStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("208"))
)

func NewTUIProgram() *tea.Program {
	now := time.Now()
	m := tuiModel{cmdStart: now, now: now}
	return tea.NewProgram(m, tea.WithAltScreen())
}

func tuiSend(msg tea.Msg) {
	tuiMu.Lock()
	p := tuiProgram
	tuiMu.Unlock()
	if p != nil {
		p.Send(msg)
	}
}

func tuiTick() tea.Cmd {
	return tea.Tick(60*time.Millisecond, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m tuiModel) Init() tea.Cmd {
	return tuiTick()
}

func (m tuiModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit
		case "h":
			requestToggle()
		}

	case tickMsg:
		m.now = time.Time(msg)
		return m, tuiTick()

	case CommandMsg:
		if msg.Command != m.cmd {
			m.cmd = msg.Command
			m.cmdStart = m.now
		}

	case SnapshotMsg:
		m.snap = msg.Snapshot
		m.haveSnap = true

	case DeviceLineMsg:
		m.deviceLine = msg.Text
	}
	return m, nil
}

func (m tuiModel) View() string {
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	ring := renderRing(display.Ring(m.cmd, m.now.Sub(m.cmdStart), ringLEDs))

	var info []string
	info = append(info, "")
	if m.haveSnap {
		info = append(info, statusLines(m.snap)...)
	} else {
		info = append(info, dimStyle.Render("waiting for first reading"))
	}
	if m.deviceLine != "" {
		info = append(info, dimStyle.Render(m.deviceLine))
	}
	info = append(info, "")
	info = append(info, boldHelp.Render("Ctrl+Shift+H")+helpStyle.Render(" or h toggles hop mode"))
	info = append(info, helpStyle.Render("hushlight "+version))

	panel := ring + "\n" + strings.Join(info, "\n")
	return lipgloss.NewStyle().Width(panelWidth).PaddingLeft(2).Render(panel)
}

func statusLines(s monitor.Snapshot) []string {
	zone := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(zoneColour(s).String()))

	lines := []string{
		zone.Render(strings.ToUpper(s.Zone.String())) +
			labelStyle.Render(fmt.Sprintf("  %.1f dB (avg %.1f)", s.DisplayDb, s.AverageDb)),
		labelStyle.Render(fmt.Sprintf("%s | %s", s.Window, s.Band)),
		dimStyle.Render(fmt.Sprintf("green <= %.0f  amber <= %.0f  red > %.0f",
			s.Thresholds.GreenMax, s.Thresholds.AmberMax, s.Thresholds.RedWarnDb)),
		dimStyle.Render(fmt.Sprintf("streak %s  rewards %d  penalties %d",
			formatStreak(s.StreakSeconds), s.Rewards, s.Penalties)),
	}
	if s.Override {
		lines = append(lines, warnStyle.Render("hop mode"))
	}
	if s.Calibrating {
		lines = append(lines, dimStyle.Render(fmt.Sprintf("learning the room %.0f%% (%d samples)",
			s.CalibrationProgress*100, s.CalibrationSamples)))
	}
	if !s.ClockValid {
		lines = append(lines, warnStyle.Render("clock not set"))
	}
	if !s.SensorOK {
		lines = append(lines, warnStyle.Render("microphone not responding"))
	}
	return lines
}

func zoneColour(s monitor.Snapshot) display.RGB {
	return display.ZoneColour(s.Zone, s.DisplayDb, s.Thresholds)
}

func formatStreak(sec float64) string {
	d := time.Duration(sec * float64(time.Second)).Round(time.Second)
	return fmt.Sprintf("%d:%02d", int(d.Minutes()), int(d.Seconds())%60)
}

// renderRing lays the LEDs out clockwise from twelve o'clock. Terminal cells
// are about twice as tall as wide, so the x radius is doubled.
func renderRing(leds []display.RGB) string {
	grid := make([][]string, ringHeight)
	for y := range grid {
		grid[y] = make([]string, ringWidth)
		for x := range grid[y] {
			grid[y][x] = " "
		}
	}

	cx := float64(ringWidth-1) / 2
	cy := float64(ringHeight-1) / 2
	ry := cy - 0.5
	rx := ry * 2
	for i, c := range leds {
		a := 2*math.Pi*float64(i)/float64(len(leds)) - math.Pi/2
		x := int(math.Round(cx + rx*math.Cos(a)))
		y := int(math.Round(cy + ry*math.Sin(a)))
		grid[y][x] = lipgloss.NewStyle().Foreground(lipgloss.Color(c.String())).Render("●")
	}

	var b strings.Builder
	for _, row := range grid {
		b.WriteString(strings.Join(row, ""))
		b.WriteString("\n")
	}
	return b.String()
}

// tuiSink forwards light commands to the TUI. Only changes are sent; the
// model animates between them.
type tuiSink struct {
	last display.Command
	seen bool
}

func (s *tuiSink) Fill(c display.RGB) { s.send(display.Command{Colour: c}) }

func (s *tuiSink) Animate(a display.Animation) {
	s.send(display.Command{Animated: true, Animation: a})
}

func (s *tuiSink) send(c display.Command) {
	if s.seen && c == s.last {
		return
	}
	s.last, s.seen = c, true
	tuiSend(CommandMsg{Command: c})
}
