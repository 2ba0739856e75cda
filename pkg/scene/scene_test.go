package scene

import (
	"math"
	"strings"
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/require"

	"github.com/gwillem/pickplace/pkg/robot"
)

var defaultLayout = robot.Layout{
	TableA: robot.Pose{X: 50, Y: 50},
	TableB: robot.Pose{X: 250, Y: 250},
	Home:   robot.Pose{X: 150, Y: 150},
}

func primitive(t *testing.T, s Scene, kind Kind, label string) Primitive {
	t.Helper()
	for _, p := range s.Primitives {
		if p.Kind == kind && p.Label == label {
			return p
		}
	}
	t.Fatalf("no primitive kind=%d label=%q", kind, label)
	return Primitive{}
}

func TestRenderIsIdempotent(t *testing.T) {
	st := robot.State{Pose: robot.Pose{X: 120, Y: 80}, CarryingObject: true}

	first := Render(st, defaultLayout)
	second := Render(st, defaultLayout)
	require.Equal(t, first, second)
}

func TestRenderOrder(t *testing.T) {
	s := Render(robot.State{Pose: robot.Pose{X: 100, Y: 100}}, defaultLayout)

	kinds := make([]Kind, len(s.Primitives))
	for i, p := range s.Primitives {
		kinds[i] = p.Kind
	}
	require.Equal(t, []Kind{KindBoundary, KindTable, KindTable, KindRobot, KindPayload}, kinds)
	require.Equal(t, orb.Bound{Min: orb.Point{0, 0}, Max: orb.Point{400, 400}}, s.Bound)
}

func TestPayloadPlacement(t *testing.T) {
	pose := robot.Pose{X: 120, Y: 80}

	tests := []struct {
		name  string
		state robot.State
		want  orb.Point
	}{
		{"on table A", robot.State{Pose: pose}, orb.Point{65, 60}},
		{"carried", robot.State{Pose: pose, CarryingObject: true}, orb.Point{120, 55}},
		{"carried wins over drop-off", robot.State{Pose: pose, CarryingObject: true, AtDropOff: true}, orb.Point{120, 55}},
		{"dropped on table B", robot.State{Pose: pose, AtDropOff: true}, orb.Point{265, 260}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := Render(tt.state, defaultLayout)
			payload := primitive(t, s, KindPayload, "")
			require.Equal(t, tt.want, payload.Center)
			require.Equal(t, PayloadRadius, payload.Radius)
			require.Equal(t, tt.want, PayloadPosition(tt.state, defaultLayout))
		})
	}
}

func TestTableBRotationIsPositionInvariant(t *testing.T) {
	offsets := func(layout robot.Layout) []orb.Point {
		b := primitive(t, Render(robot.State{}, layout), KindTable, "Table B")
		require.Equal(t, TableBRotation, b.Rotation)
		out := make([]orb.Point, len(b.Ring))
		for i, p := range b.Ring {
			out[i] = orb.Point{p[0] - b.Center[0], p[1] - b.Center[1]}
		}
		return out
	}

	base := offsets(defaultLayout)
	moved := defaultLayout
	moved.TableB = robot.Pose{X: 17, Y: 333}
	other := offsets(moved)

	require.Len(t, other, len(base))
	for i := range base {
		require.InDelta(t, base[i][0], other[i][0], 1e-9)
		require.InDelta(t, base[i][1], other[i][1], 1e-9)
	}

	// The top-left corner of the unrotated square lands straight above the
	// center after a 45 degree turn.
	half := TableSize / 2 * math.Sqrt2
	require.InDelta(t, 0, base[0][0], 1e-9)
	require.InDelta(t, -half, base[0][1], 1e-9)
}

func TestTableGeometry(t *testing.T) {
	s := Render(robot.State{}, defaultLayout)

	a := primitive(t, s, KindTable, "Table A")
	require.Zero(t, a.Rotation)
	require.Equal(t, orb.Point{75, 75}, a.Center)
	require.Equal(t, orb.Bound{Min: orb.Point{50, 50}, Max: orb.Point{100, 100}}, a.Ring.Bound())
	require.Equal(t, orb.Point{55, 80}, a.LabelAt)

	b := primitive(t, s, KindTable, "Table B")
	require.Equal(t, orb.Point{275, 275}, b.Center)
	require.True(t, b.Ring.Closed())
}

func TestRobotMarker(t *testing.T) {
	s := Render(robot.State{Pose: robot.Pose{X: 100, Y: 120, Z: 40}}, defaultLayout)
	r := primitive(t, s, KindRobot, "Robot")
	require.True(t, r.IsCircle())
	require.Equal(t, orb.Point{100, 120}, r.Center)
	require.Equal(t, RobotRadius, r.Radius)
	require.Equal(t, orb.Point{85, 125}, r.LabelAt)
}

func TestRasterize(t *testing.T) {
	s := Render(robot.State{Pose: robot.Pose{X: 200, Y: 200}, CarryingObject: true}, defaultLayout)
	g := Rasterize(s, 80, 40)

	require.Equal(t, 80, g.Cols)
	require.Len(t, g.Cells, 40)
	require.Equal(t, RuneWall, g.At(0, 0).Rune)
	require.Equal(t, RuneWall, g.At(79, 39).Rune)

	// Table A covers world (50..100, 50..100): columns 10..19, rows 5..9.
	require.Equal(t, Cell{Rune: RuneTable, Color: ColorTable}, g.At(15, 6))

	// Carried payload sits above the robot (world y=175 -> row 17).
	col, row, ok := g.Find(RunePayload)
	require.True(t, ok)
	require.InDelta(t, 40, col, 2)
	require.InDelta(t, 17, row, 1)

	plain := g.Plain()
	require.Contains(t, plain, "Table A")
	require.Contains(t, plain, "Robot")
	require.Len(t, strings.Split(plain, "\n"), 40)
}

func TestRasterizeDropOff(t *testing.T) {
	s := Render(robot.State{Pose: robot.Pose{X: 150, Y: 150}, AtDropOff: true}, defaultLayout)
	g := Rasterize(s, 80, 40)

	// Payload on table B (world 265, 260).
	col, row, ok := g.Find(RunePayload)
	require.True(t, ok)
	require.InDelta(t, 52, col, 2)
	require.InDelta(t, 25, row, 1)
}

func TestRasterizeEmpty(t *testing.T) {
	g := Rasterize(Render(robot.State{}, defaultLayout), 0, 0)
	require.Empty(t, g.Cells)
	require.Empty(t, g.String())
}
