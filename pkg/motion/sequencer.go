package motion

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/edaniels/golog"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/gwillem/pickplace/pkg/robot"
)

// ErrNotInitialized is returned for motion commands issued before Initialize.
var ErrNotInitialized = errors.New("robot not initialized")

// Stage is the position of the sequencer in its choreography.
type Stage int

const (
	Idle Stage = iota
	MovingToPick
	Picked
	MovingToPlace
	Placed
	MovingHome
	Failed
)

func (s Stage) String() string {
	switch s {
	case Idle:
		return "idle"
	case MovingToPick:
		return "moving to pick"
	case Picked:
		return "picked"
	case MovingToPlace:
		return "moving to place"
	case Placed:
		return "placed"
	case MovingHome:
		return "moving home"
	case Failed:
		return "failed"
	}
	return fmt.Sprintf("stage(%d)", int(s))
}

// Options configures a Sequencer.
type Options struct {
	Speed        float64
	HomeSpeed    float64
	GraspOffset  robot.Pose
	PollInterval time.Duration
	// ContinueOnFailure runs every pick-and-place stage and applies its flag
	// update even when the previous move failed.
	ContinueOnFailure bool
	// StrictInitialize only locks the session when the service accepted
	// the initialization.
	StrictInitialize bool
}

// OptionsFromConfig extracts sequencer options from a session config.
func OptionsFromConfig(cfg *robot.Config) Options {
	return Options{
		Speed:             cfg.Motion.Speed,
		HomeSpeed:         cfg.Motion.HomeSpeed,
		GraspOffset:       cfg.Motion.GraspOffset,
		PollInterval:      cfg.PollInterval(),
		ContinueOnFailure: cfg.Motion.ContinueOnFailure,
		StrictInitialize:  cfg.Motion.StrictInitialize,
	}
}

// GraspPoint returns the grasp center of a table: its x/y shifted by the
// offset, at the offset's absolute height.
func GraspPoint(table, offset robot.Pose) robot.Pose {
	return robot.Pose{
		X: table.X + offset.X,
		Y: table.Y + offset.Y,
		Z: offset.Z,
	}
}

// Report collects the outcomes of a pick-and-place choreography.
type Report struct {
	Pick  Outcome
	Place Outcome
	// Placed is true when stage (b) ran and its flag update was applied.
	Placed  bool
	Aborted bool
}

// Err returns the first stage error, if any.
func (r Report) Err() error {
	if r.Pick.Err != nil {
		return errors.Wrap(r.Pick.Err, "pick")
	}
	if r.Place.Err != nil {
		return errors.Wrap(r.Place.Err, "place")
	}
	return nil
}

// Sequencer composes driver runs into choreographies and updates the carry,
// drop-off and lock flags at stage boundaries.
type Sequencer struct {
	client Client
	store  *robot.Store
	driver *Driver
	opts   Options
	logger golog.Logger

	mu     sync.Mutex
	stage  Stage
	busy   bool
	cancel context.CancelFunc
	run    *Run

	logCh chan string
}

// NewSequencer creates a sequencer for one session.
func NewSequencer(client Client, store *robot.Store, opts Options, logger golog.Logger) *Sequencer {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	if opts.Speed <= 0 {
		opts.Speed = 90
	}
	if opts.HomeSpeed <= 0 {
		opts.HomeSpeed = opts.Speed
	}
	return &Sequencer{
		client: client,
		store:  store,
		driver: NewDriver(client, store, opts.PollInterval, logger),
		opts:   opts,
		logger: logger,
		logCh:  make(chan string, 10),
	}
}

// Logs returns a channel that receives log messages.
func (s *Sequencer) Logs() <-chan string {
	return s.logCh
}

// Stage returns the current choreography stage.
func (s *Sequencer) Stage() Stage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stage
}

// Busy reports whether a choreography is running.
func (s *Sequencer) Busy() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.busy
}

func (s *Sequencer) log(format string, args ...any) {
	msg := fmt.Sprintf("[%s] %s", time.Now().Format("15:04:05"), fmt.Sprintf(format, args...))
	select {
	case s.logCh <- msg:
	default:
		// Drop if channel full
	}
}

func (s *Sequencer) setStage(st Stage) {
	s.mu.Lock()
	s.stage = st
	s.mu.Unlock()
	s.logger.Debugw("stage", "stage", st.String())
}

// Initialize pushes the robot pose, home pose and gripper bit to the service
// and locks the session. Unless StrictInitialize is set, the session is
// locked even when the call fails; the error is logged and returned. It
// fails with ErrBusy while a choreography runs.
func (s *Sequencer) Initialize(ctx context.Context) error {
	s.mu.Lock()
	if s.busy {
		s.mu.Unlock()
		return ErrBusy
	}
	s.busy = true
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.busy = false
		s.mu.Unlock()
	}()

	snap := s.store.Snapshot()
	err := s.client.Initialize(ctx, InitRequest{
		Initial:       snap.State.Pose,
		Home:          snap.Layout.Home,
		GripperClosed: snap.State.GripperClosed(),
	})
	if err != nil {
		s.logger.Warnw("error initializing robot", "error", err)
		s.log("Error initializing robot: %v", err)
		if s.opts.StrictInitialize {
			return err
		}
	} else {
		s.log("Robot initialized at %v, home %v", snap.State.Pose, snap.Layout.Home)
	}
	s.store.SetLocked(true)
	return err
}

// Reset unlocks the session and clears the drop-off flag. An in-flight
// choreography keeps running.
func (s *Sequencer) Reset() {
	s.store.SetLocked(false)
	s.store.SetAtDropOff(false)

	s.mu.Lock()
	if !s.busy {
		s.stage = Idle
	}
	s.mu.Unlock()
	s.log("Session reset")
}

// Cancel stops the running choreography. No stage starts after Cancel and
// the active move performs no further store writes once Cancel returns.
func (s *Sequencer) Cancel() {
	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
	}
	run := s.run
	s.mu.Unlock()

	if run != nil {
		run.Cancel()
	}
}

func (s *Sequencer) begin(ctx context.Context) (context.Context, error) {
	if !s.store.State().Locked {
		return nil, ErrNotInitialized
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.busy {
		return nil, ErrBusy
	}
	ctx, cancel := context.WithCancel(ctx)
	s.busy = true
	s.cancel = cancel
	return ctx, nil
}

func (s *Sequencer) end() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
	}
	s.busy = false
	s.cancel = nil
	s.run = nil
}

// move runs one stage to completion. The run is registered under mu so that
// Cancel always sees it.
func (s *Sequencer) move(ctx context.Context, req MoveRequest) Outcome {
	s.mu.Lock()
	if ctx.Err() != nil {
		s.mu.Unlock()
		return Outcome{Status: Cancelled, Err: ctx.Err()}
	}
	run, err := s.driver.Start(ctx, req.Endpoint(), req)
	if err != nil {
		s.mu.Unlock()
		return Outcome{Status: Rejected, Err: err}
	}
	s.run = run
	s.mu.Unlock()

	out := run.Wait()

	s.mu.Lock()
	s.run = nil
	s.mu.Unlock()
	return out
}

func (s *Sequencer) logOutcome(what string, out Outcome) {
	if out.OK() {
		s.log("%s: reached %v after %d ticks", what, out.Pose, out.Ticks)
		return
	}
	s.log("%s: %s: %v", what, out.Status, out.Err)
}

// PickAndPlace moves to table A's grasp point, picks the object, moves to
// table B's grasp point and places it. Stage (b) starts only after stage
// (a)'s run has terminated and its flag update is applied. A failed stage
// aborts the choreography unless ContinueOnFailure is set; cancellation
// always aborts. The returned error is non-nil only when the choreography
// could not start.
func (s *Sequencer) PickAndPlace(ctx context.Context) (Report, error) {
	ctx, err := s.begin(ctx)
	if err != nil {
		return Report{}, err
	}
	defer s.end()

	var report Report
	layout := s.store.Layout()
	pick := GraspPoint(layout.TableA, s.opts.GraspOffset)
	place := GraspPoint(layout.TableB, s.opts.GraspOffset)

	s.setStage(MovingToPick)
	s.log("Moving to table A %v", pick)
	report.Pick = s.move(ctx, MoveToRequest(pick, s.opts.Speed))
	s.logOutcome("Table A", report.Pick)
	if s.abort(report.Pick) {
		report.Aborted = true
		s.setStage(Failed)
		s.logger.Warnw("pick-and-place aborted", "stage", "pick", "status", report.Pick.Status.String(), "error", report.Pick.Err)
		return report, nil
	}
	s.store.SetCarrying(true)
	s.setStage(Picked)

	s.setStage(MovingToPlace)
	s.log("Moving to table B %v", place)
	report.Place = s.move(ctx, MoveToRequest(place, s.opts.Speed))
	s.logOutcome("Table B", report.Place)
	if s.abort(report.Place) {
		report.Aborted = true
		s.setStage(Failed)
		s.logger.Warnw("pick-and-place aborted", "stage", "place", "status", report.Place.Status.String(), "error", report.Place.Err)
		return report, nil
	}
	s.store.SetCarrying(false)
	s.store.SetAtDropOff(true)
	report.Placed = true
	s.setStage(Placed)
	s.logger.Infow("pick-and-place complete", "pick", report.Pick.Status.String(), "place", report.Place.Status.String())

	return report, nil
}

func (s *Sequencer) abort(out Outcome) bool {
	switch out.Status {
	case Succeeded:
		return false
	case Cancelled, Rejected:
		return true
	}
	return !s.opts.ContinueOnFailure
}

// MoveHome returns the robot to the service's home position and releases the
// object whatever the outcome of the move.
func (s *Sequencer) MoveHome(ctx context.Context) (Outcome, error) {
	ctx, err := s.begin(ctx)
	if err != nil {
		return Outcome{Status: Rejected, Err: err}, err
	}
	defer s.end()

	s.setStage(MovingHome)
	s.log("Moving home")
	out := s.move(ctx, MoveHomeRequest(s.opts.HomeSpeed))
	s.logOutcome("Home", out)
	s.store.SetCarrying(false)

	if out.OK() {
		s.setStage(Idle)
	} else {
		s.setStage(Failed)
		s.logger.Warnw("move home failed", "status", out.Status.String(), "error", out.Err)
	}
	return out, nil
}
