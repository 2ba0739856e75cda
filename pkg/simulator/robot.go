// Package simulator implements the robot-control service the motion client
// talks to: a point robot that moves at constant per-axis speeds towards
// its target and is observed one sample at a time.
package simulator

import (
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/golang/geo/r3"
)

// GripperState is the gripper bit sent on initialization.
type GripperState int

const (
	GripperOpen GripperState = iota
	GripperClosed
)

// Speed limits in units per second.
const (
	MinSpeed = 0
	MaxSpeed = 100
)

// DefaultLimit bounds every axis to [-DefaultLimit, DefaultLimit].
const DefaultLimit = 1000

// Robot is the simulated robot. It only moves while it is being sampled.
type Robot struct {
	mu         sync.Mutex
	position   r3.Vector
	home       r3.Vector
	gripper    GripperState
	axisSpeed  r3.Vector
	target     r3.Vector // target the axis speeds were planned for
	lastMotion time.Time
	limits     r3.Vector
	now        func() time.Time
}

// NewRobot creates a robot at rest. A nil clock uses time.Now.
func NewRobot(initial, home r3.Vector, gripper GripperState, clock func() time.Time) *Robot {
	if clock == nil {
		clock = time.Now
	}
	return &Robot{
		position: initial,
		home:     home,
		gripper:  gripper,
		limits:   r3.Vector{X: DefaultLimit, Y: DefaultLimit, Z: DefaultLimit},
		now:      clock,
	}
}

// Position returns the current position.
func (r *Robot) Position() r3.Vector {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.position
}

// Home returns the home position.
func (r *Robot) Home() r3.Vector {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.home
}

// Gripper returns the gripper state.
func (r *Robot) Gripper() GripperState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.gripper
}

// CloseGripper closes the gripper.
func (r *Robot) CloseGripper() GripperState {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.gripper = GripperClosed
	return r.gripper
}

// OpenGripper opens the gripper.
func (r *Robot) OpenGripper() GripperState {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.gripper = GripperOpen
	return r.gripper
}

// MoveTo advances the robot towards target and returns the new position,
// the axis speeds and an error message. The first sample of a move plans
// the axis speeds; later samples integrate the time elapsed since the
// previous one. A new target replans from the current position, so an
// abandoned move does not leak its speeds. A rejected request leaves the
// robot untouched.
func (r *Robot) MoveTo(target r3.Vector, speed float64) (position, axisSpeed r3.Vector, errMsg string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if speed < MinSpeed || speed > MaxSpeed {
		return r.position, r.axisSpeed, fmt.Sprintf("Requested speed of : %g mm/s is outside of the limits [%d,%d]", speed, MinSpeed, MaxSpeed)
	}
	for i, v := range components(target) {
		limit := components(r.limits)[i]
		if v > limit || v < -limit {
			return r.position, r.axisSpeed, fmt.Sprintf("Requested position of : %g for axis %d is outside of the limits %v", v, i, components(r.limits))
		}
	}

	if target == r.position {
		r.axisSpeed = r3.Vector{}
		return r.position, r.axisSpeed, ""
	}
	if speed == 0 {
		return r.position, r.axisSpeed, "Requested speed of : 0 mm/s cannot reach the target"
	}

	now := r.now()
	if r.axisSpeed == (r3.Vector{}) || target != r.target {
		r.axisSpeed = plan(r.position, target, speed)
		r.target = target
		r.lastMotion = now
	}

	dt := now.Sub(r.lastMotion).Seconds()
	r.position = r.position.Add(r.axisSpeed.Mul(dt))
	r.lastMotion = now

	if r.motionCompleted(target) {
		r.axisSpeed = r3.Vector{}
		r.position = target
	}
	return r.position, r.axisSpeed, ""
}

// MoveHome moves towards the home position.
func (r *Robot) MoveHome(speed float64) (position, axisSpeed r3.Vector, errMsg string) {
	return r.MoveTo(r.Home(), speed)
}

// plan scales the per-axis speeds so that the axis with the largest delta
// travels at speed and all axes arrive together.
func plan(from, to r3.Vector, speed float64) r3.Vector {
	delta := to.Sub(from)
	control := 0.0
	for _, d := range components(delta) {
		control = math.Max(control, math.Abs(d))
	}
	return delta.Mul(speed / control)
}

// motionCompleted reports whether no axis is still heading towards target.
func (r *Robot) motionCompleted(target r3.Vector) bool {
	pos := components(r.position)
	spd := components(r.axisSpeed)
	for i, t := range components(target) {
		d := t - pos[i]
		if (d > 0 && spd[i] > 0) || (d < 0 && spd[i] < 0) {
			return false
		}
	}
	return true
}

func components(v r3.Vector) [3]float64 {
	return [3]float64{v.X, v.Y, v.Z}
}
