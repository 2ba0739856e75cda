package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"github.com/NimbleMarkets/ntcharts/canvas/runes"
	"github.com/NimbleMarkets/ntcharts/linechart/streamlinechart"

	"github.com/gwillem/pickplace/pkg/motion"
	"github.com/gwillem/pickplace/pkg/robot"
	"github.com/gwillem/pickplace/pkg/scene"
)

type RunCommand struct {
	Step int `long:"step" default:"10" description:"Distance moved by one arrow key press"`
}

const (
	headerHeight = 2 // title + blank line
	statusHeight = 2 // status row + blank
	legendHeight = 2 // legend row + blank
	footerHeight = 7 // log box height
	maxLogs      = 5 // number of log messages to show
	borderSize   = 2 // chart border
	sceneCols    = 60
	sceneRows    = 30
)

// Axis colors - distinct colors for each coordinate
var axisColors = map[robot.Axis]string{
	robot.AxisX: "196", // red
	robot.AxisY: "46",  // green
	robot.AxisZ: "51",  // cyan
}

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	chartStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("240"))
	statusStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	openStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("10"))
	closedStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("9"))
)

type runModel struct {
	seq       *motion.Sequencer
	store     *robot.Store
	workspace robot.Workspace
	step      int
	chart     *streamlinechart.Model
	snap      robot.Snapshot
	grid      scene.Grid
	width     int      // terminal width
	height    int      // terminal height
	logs      []string // last N log messages
	quitting  bool
	lastPose  *robot.Pose // previous pose, to freeze the chart when idle
}

func (m *runModel) addLog(msg string) {
	m.logs = append(m.logs, msg)
	if len(m.logs) > maxLogs {
		m.logs = m.logs[len(m.logs)-maxLogs:]
	}
}

// Messages from the store and the sequencer
type snapshotMsg robot.Snapshot
type logMsg string
type opDoneMsg struct {
	what string
	err  error
}

func waitForSnapshot(store *robot.Store) tea.Cmd {
	return func() tea.Msg {
		return snapshotMsg(<-store.Changes())
	}
}

func waitForLog(seq *motion.Sequencer) tea.Cmd {
	return func() tea.Msg {
		return logMsg(<-seq.Logs())
	}
}

func runOp(what string, fn func(ctx context.Context) error) tea.Cmd {
	return func() tea.Msg {
		return opDoneMsg{what: what, err: fn(context.Background())}
	}
}

// chartSize calculates the size of the chart based on terminal dimensions
func (m *runModel) chartSize() (width, height int) {
	if m.width == 0 || m.height == 0 {
		return 40, 20 // default size before we know terminal size
	}
	width = m.width - sceneCols - 2*borderSize - 2
	if width < 20 {
		width = 20
	}
	height = m.height - headerHeight - statusHeight - legendHeight - footerHeight - borderSize
	if height < 10 {
		height = 10
	}
	return width, height
}

func (m *runModel) resizeChart() {
	w, h := m.chartSize()
	m.chart.Resize(w, h)
}

func initialRunModel(seq *motion.Sequencer, store *robot.Store, ws robot.Workspace, step int) runModel {
	chart := streamlinechart.New(40, 20,
		streamlinechart.WithYRange(-100, 100),
	)

	// Set up data set styles for each axis
	for _, axis := range robot.AllAxes() {
		style := lipgloss.NewStyle().Foreground(lipgloss.Color(axisColors[axis]))
		chart.SetDataSetStyles(string(axis), runes.ThinLineStyle, style)
	}

	m := runModel{
		seq:       seq,
		store:     store,
		workspace: ws,
		step:      step,
		chart:     &chart,
	}
	m.render(store.Snapshot())
	return m
}

// render redraws the scene from a snapshot.
func (m *runModel) render(snap robot.Snapshot) {
	m.snap = snap
	m.grid = scene.Rasterize(scene.Render(snap.State, snap.Layout), sceneCols, sceneRows)
}

func (m *runModel) nudge(axis robot.Axis, delta int) {
	pose := m.store.RobotPose()
	if err := m.store.UpdateField(robot.StationRobot, axis, pose.Get(axis)+delta); err != nil {
		m.addLog(err.Error())
	}
}

func (m runModel) Init() tea.Cmd {
	// Start listening for store and log updates
	return tea.Batch(
		waitForSnapshot(m.store),
		waitForLog(m.seq),
	)
}

func (m runModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resizeChart()
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.seq.Cancel()
			m.quitting = true
			return m, tea.Quit
		case "i":
			return m, runOp("initialize", m.seq.Initialize)
		case "r":
			m.seq.Reset()
		case "p":
			return m, runOp("pick and place", func(ctx context.Context) error {
				report, err := m.seq.PickAndPlace(ctx)
				if err != nil {
					return err
				}
				return report.Err()
			})
		case "h":
			return m, runOp("move home", func(ctx context.Context) error {
				out, err := m.seq.MoveHome(ctx)
				if err != nil {
					return err
				}
				return out.Err
			})
		case "c":
			m.seq.Cancel()
		case "left":
			m.nudge(robot.AxisX, -m.step)
		case "right":
			m.nudge(robot.AxisX, m.step)
		case "up":
			m.nudge(robot.AxisY, -m.step)
		case "down":
			m.nudge(robot.AxisY, m.step)
		case "pgup":
			m.nudge(robot.AxisZ, m.step)
		case "pgdown":
			m.nudge(robot.AxisZ, -m.step)
		}

	case snapshotMsg:
		snap := robot.Snapshot(msg)
		m.render(snap)
		// Only update chart if there's movement (freeze when idle)
		if pose := snap.State.Pose; m.lastPose == nil || *m.lastPose != pose {
			for axis, v := range m.workspace.Normalize(pose) {
				m.chart.PushDataSet(string(axis), v)
			}
			m.chart.DrawAll()
			m.lastPose = &pose
		}
		return m, waitForSnapshot(m.store)

	case logMsg:
		m.addLog(string(msg))
		return m, waitForLog(m.seq)

	case opDoneMsg:
		if msg.err != nil {
			m.addLog(fmt.Sprintf("%s failed: %v", msg.what, msg.err))
		}
		return m, nil
	}

	return m, nil
}

func (m runModel) View() string {
	if m.quitting {
		return "Simulator stopped.\n"
	}

	var sb strings.Builder

	// Header
	sb.WriteString(titleStyle.Render("Pick and Place"))
	sb.WriteString(fmt.Sprintf(" - %s", m.seq.Stage()))
	if m.width > 0 {
		sb.WriteString(statusStyle.Render(fmt.Sprintf("  [%dx%d]", m.width, m.height)))
	}
	sb.WriteString("\n\n")

	// Status
	sb.WriteString(renderStatus(m.snap))
	sb.WriteString("\n\n")

	// Scene and chart side by side
	sb.WriteString(lipgloss.JoinHorizontal(lipgloss.Top,
		chartStyle.Render(m.grid.String()),
		chartStyle.Render(m.chart.View()),
	))
	sb.WriteString("\n")

	// Legend
	sb.WriteString(renderLegend())
	sb.WriteString("\n")

	// Log box
	width := m.width - 4
	if width < 20 {
		width = 20
	}
	logStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("240")).
		Width(width)

	var logLines string
	if len(m.logs) == 0 {
		logLines = statusStyle.Render("i init  p pick & place  h home  c cancel  r reset  arrows move  q quit")
	} else {
		logLines = strings.Join(m.logs, "\n")
	}
	sb.WriteString(logStyle.Render(logLines))
	sb.WriteString("\n")

	return sb.String()
}

func renderStatus(snap robot.Snapshot) string {
	gripper := openStyle.Render("OPEN")
	if snap.State.GripperClosed() {
		gripper = closedStyle.Render("CLOSED")
	}
	lock := statusStyle.Render("editable")
	if snap.State.Locked {
		lock = statusStyle.Render("locked")
	}
	return fmt.Sprintf("Robot %v  Gripper %s  Session %s", snap.State.Pose, gripper, lock)
}

func renderLegend() string {
	var items []string
	for _, axis := range robot.AllAxes() {
		colorStyle := lipgloss.NewStyle().Foreground(lipgloss.Color(axisColors[axis])).Bold(true)
		item := colorStyle.Render("━━") + " " + string(axis)
		items = append(items, item)
	}
	items = append(items,
		scene.Style(scene.ColorTable).Render(string(scene.RuneTable))+" table",
		scene.Style(scene.ColorRobot).Render(string(scene.RuneRobot))+" robot",
		scene.Style(scene.ColorPayload).Render(string(scene.RunePayload))+" object",
	)
	return strings.Join(items, "  ")
}

func (c *RunCommand) Execute(args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	ws := cfg.Workspace
	if len(ws) == 0 {
		ws = robot.DefaultWorkspace()
	}

	store := cfg.NewStore()
	client := motion.NewHTTPClient(cfg.Service.BaseURL, cfg.RequestTimeout())
	// The TUI owns the terminal, so service logs go through the log box only.
	seq := motion.NewSequencer(client, store, motion.OptionsFromConfig(cfg), zap.NewNop().Sugar())

	p := tea.NewProgram(initialRunModel(seq, store, ws, c.Step), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error running program: %v\n", err)
		os.Exit(1)
	}

	return nil
}
