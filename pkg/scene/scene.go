// Package scene projects the session state onto a list of drawing
// primitives. It holds no state between calls.
package scene

import (
	"math"

	"github.com/paulmach/orb"

	"github.com/gwillem/pickplace/pkg/robot"
)

// Dimensions of the simulated room and its markers.
const (
	RoomSize      = 400.0
	TableSize     = 50.0
	RobotRadius   = 20.0
	PayloadRadius = 10.0
	// TableBRotation is the rotation of table B about its center, degrees.
	TableBRotation = 45.0
)

// Color is a CSS-style color name.
type Color string

const (
	ColorRoom    Color = "#003f87"
	ColorTable   Color = "#1e90ff"
	ColorRobot   Color = "green"
	ColorPayload Color = "red"
	ColorLabel   Color = "white"
)

// Kind classifies a primitive.
type Kind int

const (
	KindBoundary Kind = iota
	KindTable
	KindRobot
	KindPayload
)

// Primitive is one drawable element. Polygons carry a closed Ring; circles
// carry Center and Radius.
type Primitive struct {
	Kind   Kind
	Label  string
	Color  Color
	Filled bool

	Ring     orb.Ring
	Center   orb.Point
	Radius   float64
	Rotation float64

	LabelAt    orb.Point
	LabelColor Color
}

// IsCircle reports whether the primitive is a circle.
func (p Primitive) IsCircle() bool {
	return p.Radius > 0
}

// Scene is the ordered list of primitives, back to front.
type Scene struct {
	Bound      orb.Bound
	Primitives []Primitive
}

// Render derives the scene for a state and layout.
func Render(st robot.State, layout robot.Layout) Scene {
	room := orb.Bound{Min: orb.Point{0, 0}, Max: orb.Point{RoomSize, RoomSize}}

	return Scene{
		Bound: room,
		Primitives: []Primitive{
			{
				Kind:  KindBoundary,
				Color: ColorRoom,
				Ring:  room.ToRing(),
			},
			table("Table A", layout.TableA, 0),
			table("Table B", layout.TableB, TableBRotation),
			{
				Kind:       KindRobot,
				Label:      "Robot",
				Color:      ColorRobot,
				Center:     point(st.Pose),
				Radius:     RobotRadius,
				LabelAt:    orb.Point{float64(st.Pose.X) - 15, float64(st.Pose.Y) + 5},
				LabelColor: ColorRobot,
			},
			{
				Kind:   KindPayload,
				Color:  ColorPayload,
				Filled: true,
				Center: PayloadPosition(st, layout),
				Radius: PayloadRadius,
			},
		},
	}
}

// PayloadPosition places the object: above the robot while carried,
// otherwise on table B after drop-off and on table A before.
func PayloadPosition(st robot.State, layout robot.Layout) orb.Point {
	switch {
	case st.CarryingObject:
		return orb.Point{float64(st.Pose.X), float64(st.Pose.Y) - 25}
	case st.AtDropOff:
		return orb.Point{float64(layout.TableB.X) + 15, float64(layout.TableB.Y) + 10}
	default:
		return orb.Point{float64(layout.TableA.X) + 15, float64(layout.TableA.Y) + 10}
	}
}

func table(label string, p robot.Pose, rotation float64) Primitive {
	b := orb.Bound{
		Min: point(p),
		Max: orb.Point{float64(p.X) + TableSize, float64(p.Y) + TableSize},
	}
	center := b.Center()
	return Primitive{
		Kind:       KindTable,
		Label:      label,
		Color:      ColorTable,
		Filled:     true,
		Ring:       rotate(b.ToRing(), center, rotation),
		Center:     center,
		Rotation:   rotation,
		LabelAt:    orb.Point{float64(p.X) + 5, float64(p.Y) + 30},
		LabelColor: ColorLabel,
	}
}

// rotate turns a ring about c by deg degrees, clockwise on a y-down canvas.
func rotate(r orb.Ring, c orb.Point, deg float64) orb.Ring {
	if deg == 0 {
		return r
	}
	rad := deg * math.Pi / 180
	sin, cos := math.Sincos(rad)
	out := make(orb.Ring, len(r))
	for i, p := range r {
		dx, dy := p[0]-c[0], p[1]-c[1]
		out[i] = orb.Point{
			c[0] + dx*cos - dy*sin,
			c[1] + dx*sin + dy*cos,
		}
	}
	return out
}

func point(p robot.Pose) orb.Point {
	return orb.Point{float64(p.X), float64(p.Y)}
}
