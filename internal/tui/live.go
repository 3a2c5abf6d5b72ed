// Package tui renders a running simulation as a live terminal view: a 2D
// cell-density canvas (first two axes) next to a stats pane.
package tui

import (
	"fmt"
	"strings"
	"sync"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/jonaspleyer/cellular-control/internal/cell"
)

const (
	canvasWidth  = 64
	canvasHeight = 24
)

var densityRamp = []rune(" .:-=+*#%@")

var (
	canvasStyle = lipgloss.NewStyle().Border(lipgloss.NormalBorder()).Padding(0, 1)
	statsStyle  = lipgloss.NewStyle().Padding(1, 2).Width(28)
	headerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("86")).Bold(true)
	labelStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Width(10)
	valueStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	helpStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("240")).MarginTop(1)
)

// Frame is one completed simulation step projected onto the first two axes.
type Frame struct {
	Step      int
	Count     int
	Positions [][2]float64
}

// FrameObserver aggregates per-partition step reports into whole-simulation
// frames and streams them to the view. Frames are dropped when the terminal
// cannot keep up; the simulation never blocks on rendering.
type FrameObserver struct {
	mu       sync.Mutex
	parts    int
	pending  map[int]*Frame
	reported map[int]int
	frames   chan Frame
	closed   bool
}

func NewFrameObserver(partitions int) *FrameObserver {
	return &FrameObserver{
		parts:    partitions,
		pending:  make(map[int]*Frame),
		reported: make(map[int]int),
		frames:   make(chan Frame, 16),
	}
}

func (o *FrameObserver) OnStep(iteration int, partition int, cells []cell.Box) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return
	}
	fr, ok := o.pending[iteration]
	if !ok {
		fr = &Frame{Step: iteration}
		o.pending[iteration] = fr
	}
	for _, c := range cells {
		pos := c.Cell.Pos()
		p := [2]float64{pos[0], 0}
		if len(pos) > 1 {
			p[1] = pos[1]
		}
		fr.Positions = append(fr.Positions, p)
	}
	fr.Count += len(cells)

	o.reported[iteration]++
	if o.reported[iteration] == o.parts {
		delete(o.pending, iteration)
		delete(o.reported, iteration)
		select {
		case o.frames <- *fr:
		default:
		}
	}
}

// Close ends the frame stream; the view quits after draining it.
func (o *FrameObserver) Close() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if !o.closed {
		o.closed = true
		close(o.frames)
	}
}

type frameMsg Frame

type streamDoneMsg struct{}

// Model is the bubbletea model of the live view.
type Model struct {
	min, max [2]float64
	frames   <-chan Frame
	last     Frame
	steps    int
	done     bool
}

func NewModel(min, max [2]float64, steps int, obs *FrameObserver) Model {
	return Model{min: min, max: max, steps: steps, frames: obs.frames}
}

func (m Model) Init() tea.Cmd {
	return m.waitFrame()
}

func (m Model) waitFrame() tea.Cmd {
	return func() tea.Msg {
		fr, ok := <-m.frames
		if !ok {
			return streamDoneMsg{}
		}
		return frameMsg(fr)
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case frameMsg:
		m.last = Frame(msg)
		return m, m.waitFrame()
	case streamDoneMsg:
		m.done = true
		return m, nil
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		}
	}
	return m, nil
}

func (m Model) View() string {
	canvas := m.renderCanvas()

	var stats strings.Builder
	stats.WriteString(headerStyle.Render("cellular-control") + "\n\n")
	stats.WriteString(labelStyle.Render("step") + valueStyle.Render(fmt.Sprintf("%d / %d", m.last.Step, m.steps)) + "\n")
	stats.WriteString(labelStyle.Render("cells") + valueStyle.Render(fmt.Sprintf("%d", m.last.Count)) + "\n")
	if m.done {
		stats.WriteString("\n" + valueStyle.Render("run finished"))
	}
	stats.WriteString(helpStyle.Render("\nq: quit"))

	return lipgloss.JoinHorizontal(lipgloss.Top,
		canvasStyle.Render(canvas),
		statsStyle.Render(stats.String()),
	)
}

func (m Model) renderCanvas() string {
	counts := make([][]int, canvasHeight)
	for y := range counts {
		counts[y] = make([]int, canvasWidth)
	}

	sx := float64(canvasWidth) / (m.max[0] - m.min[0])
	sy := float64(canvasHeight) / (m.max[1] - m.min[1])
	for _, p := range m.last.Positions {
		x := int((p[0] - m.min[0]) * sx)
		y := int((p[1] - m.min[1]) * sy)
		if x < 0 || x >= canvasWidth || y < 0 || y >= canvasHeight {
			continue
		}
		counts[y][x]++
	}

	var b strings.Builder
	for y := canvasHeight - 1; y >= 0; y-- {
		for x := 0; x < canvasWidth; x++ {
			idx := counts[y][x]
			if idx >= len(densityRamp) {
				idx = len(densityRamp) - 1
			}
			b.WriteRune(densityRamp[idx])
		}
		if y > 0 {
			b.WriteByte('\n')
		}
	}
	return b.String()
}
