package viz

import (
	"fmt"
	"image"
	"math"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"
	"github.com/sirupsen/logrus"

	"github.com/san-kum/flocksim/internal/analysis"
	"github.com/san-kum/flocksim/internal/bird"
	"github.com/san-kum/flocksim/internal/logging"
	"github.com/san-kum/flocksim/internal/sim"
)

const (
	width           = 60
	height          = 24
	historyCapacity = 600
	noiseStep       = 0.05
	gifPath         = "flock.gif"
)

type TickMsg time.Time

// Model steps an Engine on every tick and draws the flock on a rotating
// globe. Changing the noise rebuilds the engine from the current flock.
type Model struct {
	eng     *sim.Engine
	params  sim.Params
	initial []bird.Particle
	log     logrus.FieldLogger

	title        string
	steps        uint64
	time         float64
	stepsPerTick int
	order        []float64

	canvas    *Canvas
	camera    *Camera
	theme     Theme
	running   bool
	spin      bool
	showBack  bool
	showHelp  bool
	recording bool
	frames    []*image.Paletted
	err       error
}

func NewModel(initial []bird.Particle, p sim.Params, title string, log logrus.FieldLogger) (Model, error) {
	log = logging.OrDiscard(log)
	eng, err := sim.New(initial, p, nil, log)
	if err != nil {
		return Model{}, err
	}
	return Model{
		eng:          eng,
		params:       p,
		initial:      eng.Particles(),
		log:          log,
		title:        title,
		stepsPerTick: 1,
		order:        make([]float64, 0, historyCapacity),
		canvas:       NewCanvas(width, height),
		camera:       NewCamera(),
		theme:        Themes[0],
		running:      true,
		spin:         true,
	}, nil
}

func tick() tea.Cmd {
	return tea.Tick(time.Second/30, func(t time.Time) tea.Msg { return TickMsg(t) })
}

func (m Model) Init() tea.Cmd { return tick() }

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			if m.recording {
				m.stopRecording()
			}
			return m, tea.Quit
		case " ", "space":
			m.running = !m.running
		case "r":
			m.reset()
		case "up", "k":
			m.setNoise(m.params.Eta + noiseStep)
		case "down", "j":
			m.setNoise(m.params.Eta - noiseStep)
		case ">", ".":
			m.stepsPerTick = min(m.stepsPerTick*2, 64)
		case "<", ",":
			m.stepsPerTick = max(m.stepsPerTick/2, 1)
		case "left", "h":
			m.camera.RotateY(-0.1)
		case "right", "l":
			m.camera.RotateY(0.1)
		case "w":
			m.camera.RotateX(-0.1)
		case "s":
			m.camera.RotateX(0.1)
		case "+", "=":
			m.camera.ZoomIn()
		case "-", "_":
			m.camera.ZoomOut()
		case "a":
			m.spin = !m.spin
		case "b":
			m.showBack = !m.showBack
		case "t":
			m.theme = NextTheme(m.theme)
		case "g":
			if m.recording {
				m.stopRecording()
			} else {
				m.recording = true
				m.frames = make([]*image.Paletted, 0)
			}
		case "?":
			m.showHelp = !m.showHelp
		}
	case TickMsg:
		if m.running && m.steps < m.params.Iterations {
			m.advance()
		}
		if m.spin {
			m.camera.RotateY(0.01)
		}
		m.draw()
		if m.recording {
			m.frames = append(m.frames, canvasImage(m.canvas))
		}
		return m, tick()
	}
	return m, nil
}

func (m *Model) advance() {
	n := min(uint64(m.stepsPerTick), m.params.Iterations-m.steps)
	for i := uint64(0); i < n; i++ {
		m.eng.Step()
	}
	m.steps += n
	m.time += float64(n) * m.params.Dt

	m.order = append(m.order, analysis.OrderParameter(m.eng.Particles()))
	if len(m.order) > historyCapacity {
		m.order = m.order[1:]
	}
}

// setNoise restarts the engine from the current flock with a new eta.
func (m *Model) setNoise(eta float64) {
	eta = math.Max(0, math.Round(eta/noiseStep)*noiseStep)
	p := m.params
	p.Eta = eta
	p.Seed = m.params.Seed + int64(m.steps)
	eng, err := sim.New(m.eng.Particles(), p, nil, m.log)
	if err != nil {
		m.err = err
		return
	}
	m.eng, m.params = eng, p
	m.log.WithField("noise", eta).Debug("noise changed")
}

func (m *Model) reset() {
	eng, err := sim.New(m.initial, m.params, nil, m.log)
	if err != nil {
		m.err = err
		return
	}
	m.eng = eng
	m.steps, m.time = 0, 0
	m.order = m.order[:0]
}

func (m *Model) stopRecording() {
	if err := saveGIF(gifPath, m.frames); err != nil {
		m.err = err
	} else {
		m.log.WithField("frames", len(m.frames)).Infof("saved %s", gifPath)
	}
	m.recording = false
	m.frames = nil
}

func (m *Model) draw() {
	m.canvas.Clear()
	DrawGlobe(m.canvas, m.camera, m.params.Radius)
	DrawFlock(m.canvas, m.camera, m.eng.Particles(), m.params.Radius, m.showBack)
}

func (m Model) View() string {
	m.draw()
	canvasView := canvasStyle.Render(m.canvas.String())

	var s strings.Builder
	s.WriteString(headerStyle(m.theme).Render(strings.ToUpper(m.title)) + "\n")

	status := "RUNNING"
	switch {
	case m.steps >= m.params.Iterations:
		status = "DONE"
	case !m.running:
		status = "PAUSED"
	}
	if m.recording {
		status += " ● REC"
	}
	s.WriteString(statusStyle(m.theme, m.running).Render(status) + "\n\n")

	if len(m.order) > 1 {
		chart := asciigraph.Plot(m.order,
			asciigraph.Height(5), asciigraph.Width(30),
			asciigraph.LowerBound(0), asciigraph.UpperBound(1),
			asciigraph.Caption("order"))
		s.WriteString(chart + "\n\n")
	}

	last := 0.0
	if len(m.order) > 0 {
		last = m.order[len(m.order)-1]
	}
	row := func(label, value string) {
		s.WriteString(labelStyle.Render(label) + valueStyle.Render(value) + "\n")
	}
	row("Step", fmt.Sprintf("%d / %d", m.steps, m.params.Iterations))
	row("Time", fmt.Sprintf("%.2f", m.time))
	row("Birds", fmt.Sprintf("%d", len(m.initial)))
	row("Order", fmt.Sprintf("%.3f", last))
	row("Noise", fmt.Sprintf("%.2f", m.params.Eta))
	row("Radius", fmt.Sprintf("%.2f", m.params.InteractionRadius))
	row("Speed", fmt.Sprintf("x%d", m.stepsPerTick))
	if m.params.Iterations > 0 {
		s.WriteString("\n" + ProgressBar(float64(m.steps)/float64(m.params.Iterations), 30) + "\n")
	}
	s.WriteString(Sparkline(m.order, 30) + "\n")

	if m.err != nil {
		s.WriteString("\n" + SparkLow.Render(m.err.Error()) + "\n")
	}
	s.WriteString(helpStyle.Render("SP:Pause R:Reset Q:Quit ?:Help\n↑↓:Noise <>:Speed ←→:Rotate"))

	mainView := lipgloss.JoinHorizontal(lipgloss.Top, canvasView, statsStyle.Render(s.String()))
	if m.showHelp {
		return helpText + "\n" + mainView
	}
	return mainView
}

const helpText = `
  Space   pause / resume        R     reset to initial flock
  Up/K    noise +0.05           Down/J noise -0.05
  > <     more / fewer steps    A     toggle auto-rotate
  Left/H  rotate left           Right/L rotate right
  W / S   tilt                  + -   zoom
  B       show far side         T     cycle theme
  G       toggle GIF recording  Q     quit
`

// Run starts the live view in the alternate screen.
func Run(m Model) error {
	_, err := tea.NewProgram(m, tea.WithAltScreen()).Run()
	return err
}
