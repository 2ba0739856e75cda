package robot

import (
	"fmt"
	"sync"
)

// Layout holds the station poses of the cell.
type Layout struct {
	TableA Pose `json:"table_a" yaml:"table_a"`
	TableB Pose `json:"table_b" yaml:"table_b"`
	Home   Pose `json:"home" yaml:"home"`
}

// Station returns the pose of a layout station. StationRobot is not part of
// the layout.
func (l Layout) Station(s Station) (Pose, bool) {
	switch s {
	case StationTableA:
		return l.TableA, true
	case StationTableB:
		return l.TableB, true
	case StationHome:
		return l.Home, true
	}
	return Pose{}, false
}

// State is the believed state of the robot.
type State struct {
	Pose           Pose
	CarryingObject bool
	AtDropOff      bool
	Locked         bool
}

// GripperClosed reports the gripper bit sent on initialization.
func (s State) GripperClosed() bool {
	return s.CarryingObject
}

// Snapshot is a consistent copy of the store contents.
type Snapshot struct {
	State  State
	Layout Layout
}

// Store holds the session's robot state and station layout. All reads reflect
// the latest write. It is safe for concurrent use.
type Store struct {
	mu        sync.RWMutex
	state     State
	layout    Layout
	workspace Workspace
	changes   chan Snapshot
}

// NewStore creates a store with the robot at pose and the given layout.
func NewStore(pose Pose, layout Layout) *Store {
	return &Store{
		state:   State{Pose: pose},
		layout:  layout,
		changes: make(chan Snapshot, 1),
	}
}

// Changes returns a channel that receives the latest snapshot after every
// mutation. Stale snapshots are replaced, so a slow reader only sees the
// newest one.
func (s *Store) Changes() <-chan Snapshot {
	return s.changes
}

// SetWorkspace turns on bound enforcement for user edits. A nil workspace
// turns it off.
func (s *Store) SetWorkspace(ws Workspace) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.workspace = ws
}

// RobotPose returns the current believed robot pose.
func (s *Store) RobotPose() Pose {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Pose
}

// SetRobotPose records a sampled robot pose.
func (s *Store) SetRobotPose(p Pose) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Pose = p
	s.publish()
}

// Layout returns the station layout.
func (s *Store) Layout() Layout {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.layout
}

// State returns the robot state.
func (s *Store) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Snapshot returns state and layout read under one lock.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Snapshot{State: s.state, Layout: s.layout}
}

// UpdateField sets one axis of a station pose. It fails with a
// ValidationError wrapping ErrLocked once the session is locked.
func (s *Store) UpdateField(station Station, axis Axis, value int) error {
	field := fmt.Sprintf("%s.%s", station, axis)
	if _, err := ParseAxis(string(axis)); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state.Locked {
		return &ValidationError{Field: field, Reason: "session is initialized", Err: ErrLocked}
	}

	var target *Pose
	switch station {
	case StationRobot:
		target = &s.state.Pose
	case StationHome:
		target = &s.layout.Home
	case StationTableA:
		target = &s.layout.TableA
	case StationTableB:
		target = &s.layout.TableB
	default:
		return &ValidationError{Field: field, Reason: "unknown station"}
	}

	if r, ok := s.workspace[axis]; ok && !r.Contains(value) {
		return &ValidationError{
			Field:  field,
			Reason: fmt.Sprintf("%d outside [%d, %d]", value, r.Min, r.Max),
			Err:    ErrOutOfBounds,
		}
	}

	*target = target.With(axis, value)
	s.publish()
	return nil
}

// SetCarrying sets the carry flag.
func (s *Store) SetCarrying(v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.CarryingObject = v
	s.publish()
}

// SetAtDropOff sets the drop-off flag.
func (s *Store) SetAtDropOff(v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.AtDropOff = v
	s.publish()
}

// SetLocked gates user edits.
func (s *Store) SetLocked(v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Locked = v
	s.publish()
}

// publish must be called with mu held.
func (s *Store) publish() {
	snap := Snapshot{State: s.state, Layout: s.layout}
	select {
	case s.changes <- snap:
	default:
		// Drop old snapshot if channel full, replace with new
		select {
		case <-s.changes:
		default:
		}
		select {
		case s.changes <- snap:
		default:
		}
	}
}
