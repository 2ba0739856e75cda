package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/gwillem/pickplace/pkg/robot"
)

var (
	headerStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

type SetupCommand struct{}

// stationFields holds the form values of one station, as text.
type stationFields struct {
	station robot.Station
	values  map[robot.Axis]*string
}

func (c *SetupCommand) Execute(args []string) error {
	fmt.Println(headerStyle.Render("Pick and Place Setup"))
	fmt.Println(dimStyle.Render("━━━━━━━━━━━━━━━━━━━━"))
	fmt.Println()

	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	store := cfg.NewStore()
	snap := store.Snapshot()

	// Build one form group per station
	var fields []stationFields
	var groups []*huh.Group
	for _, st := range robot.AllStations() {
		pose := snap.State.Pose
		if p, ok := snap.Layout.Station(st); ok {
			pose = p
		}
		sf := stationFields{station: st, values: make(map[robot.Axis]*string)}
		var inputs []huh.Field
		for _, axis := range robot.AllAxes() {
			v := strconv.Itoa(pose.Get(axis))
			sf.values[axis] = &v
			inputs = append(inputs, huh.NewInput().
				Title(fmt.Sprintf("%s %s", st.Label(), axis)).
				Value(&v).
				Validate(validateCoordinate))
		}
		fields = append(fields, sf)
		groups = append(groups, huh.NewGroup(inputs...))
	}

	baseURL := cfg.Service.BaseURL
	abort := !cfg.Motion.ContinueOnFailure
	groups = append(groups, huh.NewGroup(
		huh.NewInput().
			Title("Robot-control service URL").
			Value(&baseURL),
		huh.NewConfirm().
			Title("Abort pick-and-place when a stage fails?").
			Affirmative("Abort").
			Negative("Continue").
			Value(&abort),
	))

	if err := huh.NewForm(groups...).Run(); err != nil {
		fmt.Println()
		os.Exit(0)
	}

	// Apply through the store so edits are validated like any other
	for _, sf := range fields {
		for _, axis := range robot.AllAxes() {
			v, _ := strconv.Atoi(*sf.values[axis])
			if err := store.UpdateField(sf.station, axis, v); err != nil {
				fmt.Fprintln(os.Stderr, errorStyle.Render(err.Error()))
				os.Exit(1)
			}
		}
	}

	snap = store.Snapshot()
	cfg.Robot = snap.State.Pose
	cfg.Layout = snap.Layout
	cfg.Service.BaseURL = baseURL
	cfg.Motion.ContinueOnFailure = !abort

	if err := cfg.SaveTo(opts.Config); err != nil {
		fmt.Fprintf(os.Stderr, "Error saving config: %v\n", err)
		os.Exit(1)
	}

	fmt.Println(renderLayoutTable(snap))
	fmt.Println()
	fmt.Println(successStyle.Render("Setup complete!"))
	fmt.Printf("Configuration saved to %s\n", opts.Config)
	fmt.Println()
	fmt.Println("Start the simulator view with: " + headerStyle.Render("pickplace run"))

	return nil
}

func validateCoordinate(s string) error {
	if _, err := strconv.Atoi(s); err != nil {
		return fmt.Errorf("enter a whole number")
	}
	return nil
}

func renderLayoutTable(snap robot.Snapshot) string {
	tableHeaderStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12")).Padding(0, 1)
	tableStationStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("14")).Padding(0, 1)
	tableCellStyle := lipgloss.NewStyle().Padding(0, 1)

	rows := make([][]string, 0, len(robot.AllStations()))
	for _, st := range robot.AllStations() {
		pose := snap.State.Pose
		if p, ok := snap.Layout.Station(st); ok {
			pose = p
		}
		rows = append(rows, []string{
			st.Label(),
			strconv.Itoa(pose.X),
			strconv.Itoa(pose.Y),
			strconv.Itoa(pose.Z),
		})
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(dimStyle).
		Headers("Station", "X", "Y", "Z").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return tableHeaderStyle
			}
			if col == 0 {
				return tableStationStyle
			}
			return tableCellStyle
		})

	return t.Render()
}
