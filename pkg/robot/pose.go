// Package robot holds the session state of the simulated pick-and-place
// robot: its believed pose, the station layout and the carry/drop-off flags.
package robot

import (
	"fmt"
	"math"
)

// Pose is a position in the simulated workspace. Components are integers.
type Pose struct {
	X int `json:"x" yaml:"x"`
	Y int `json:"y" yaml:"y"`
	Z int `json:"z" yaml:"z"`
}

// Vector returns the pose as the [x, y, z] triple used on the wire.
func (p Pose) Vector() [3]float64 {
	return [3]float64{float64(p.X), float64(p.Y), float64(p.Z)}
}

// PoseFromVector rounds a wire triple to the nearest integer pose.
func PoseFromVector(v [3]float64) Pose {
	return Pose{
		X: int(math.Round(v[0])),
		Y: int(math.Round(v[1])),
		Z: int(math.Round(v[2])),
	}
}

// Get returns the component for the given axis.
func (p Pose) Get(axis Axis) int {
	switch axis {
	case AxisX:
		return p.X
	case AxisY:
		return p.Y
	default:
		return p.Z
	}
}

// With returns a copy of p with one component replaced.
func (p Pose) With(axis Axis, value int) Pose {
	switch axis {
	case AxisX:
		p.X = value
	case AxisY:
		p.Y = value
	case AxisZ:
		p.Z = value
	}
	return p
}

func (p Pose) String() string {
	return fmt.Sprintf("(%d, %d, %d)", p.X, p.Y, p.Z)
}

// Axis identifies one pose component.
type Axis string

const (
	AxisX Axis = "x"
	AxisY Axis = "y"
	AxisZ Axis = "z"
)

// AllAxes returns the axes in wire order.
func AllAxes() []Axis {
	return []Axis{AxisX, AxisY, AxisZ}
}

// ParseAxis converts a user-supplied axis name.
func ParseAxis(s string) (Axis, error) {
	for _, a := range AllAxes() {
		if string(a) == s {
			return a, nil
		}
	}
	return "", &ValidationError{Field: s, Reason: "unknown axis"}
}

// Station identifies an editable pose in the session.
type Station string

// Stations of the pick-and-place cell.
const (
	StationRobot  Station = "robot"
	StationHome   Station = "home"
	StationTableA Station = "table_a"
	StationTableB Station = "table_b"
)

// AllStations returns all stations in display order.
func AllStations() []Station {
	return []Station{
		StationRobot,
		StationHome,
		StationTableA,
		StationTableB,
	}
}

// Label returns the human-readable station name.
func (s Station) Label() string {
	switch s {
	case StationRobot:
		return "Robot"
	case StationHome:
		return "Home"
	case StationTableA:
		return "Table A"
	case StationTableB:
		return "Table B"
	}
	return string(s)
}

// ParseStation converts a user-supplied station name.
func ParseStation(s string) (Station, error) {
	for _, st := range AllStations() {
		if string(st) == s {
			return st, nil
		}
	}
	return "", &ValidationError{Field: s, Reason: "unknown station"}
}
