// Package motion turns high-level robot intents into polled, cancellable
// moves against the robot-control service.
package motion

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/edaniels/golog"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/gwillem/pickplace/pkg/robot"
)

// DefaultPollInterval is the delay between two samples of one move.
const DefaultPollInterval = 20 * time.Millisecond

// ErrBusy is returned when a motion is started while another is active.
var ErrBusy = errors.New("motion already in progress")

// ServiceError is a failure reported by the service in an otherwise valid
// response.
type ServiceError struct {
	Message string
}

func (e *ServiceError) Error() string {
	return "service reported: " + e.Message
}

// Status is the terminal condition of a run.
type Status int

const (
	Succeeded Status = iota
	ServiceFailed
	TransportFailed
	Cancelled
	Rejected
)

func (s Status) String() string {
	switch s {
	case Succeeded:
		return "succeeded"
	case ServiceFailed:
		return "service error"
	case TransportFailed:
		return "transport error"
	case Cancelled:
		return "cancelled"
	case Rejected:
		return "rejected"
	}
	return fmt.Sprintf("status(%d)", int(s))
}

// Outcome is the single result of a run.
type Outcome struct {
	RunID  string
	Status Status
	// Pose is the last pose applied to the store, valid when Status is
	// Succeeded.
	Pose  robot.Pose
	Ticks int
	Err   error
}

// OK reports whether the move reached its target.
func (o Outcome) OK() bool {
	return o.Status == Succeeded
}

// Driver repeatedly samples a move until the robot is at rest, the service
// reports an error, the transport fails or the run is cancelled. At most one
// run is active per driver.
type Driver struct {
	client   Client
	store    *robot.Store
	interval time.Duration
	logger   golog.Logger

	mu     sync.Mutex
	active *Run
}

// NewDriver creates a driver that writes sampled poses to store. A zero
// interval uses DefaultPollInterval; a nil logger discards output.
func NewDriver(client Client, store *robot.Store, interval time.Duration, logger golog.Logger) *Driver {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Driver{
		client:   client,
		store:    store,
		interval: interval,
		logger:   logger,
	}
}

// Run is one in-flight move.
type Run struct {
	ID       string
	Endpoint Endpoint
	Request  MoveRequest

	ctx    context.Context
	cancel context.CancelFunc

	// writeMu serializes store writes with Cancel.
	writeMu   sync.Mutex
	cancelled bool

	done    chan struct{}
	outcome Outcome
}

// Cancel stops the run. Once Cancel returns the run performs no further
// store writes. A request already in flight is aborted through its context.
func (r *Run) Cancel() {
	r.writeMu.Lock()
	r.cancelled = true
	r.writeMu.Unlock()
	r.cancel()
}

// Done is closed when the run has terminated.
func (r *Run) Done() <-chan struct{} {
	return r.done
}

// Wait blocks until the run terminates and returns its outcome.
func (r *Run) Wait() Outcome {
	<-r.done
	return r.outcome
}

// Active reports whether a run is in progress.
func (d *Driver) Active() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.active != nil
}

// Start begins polling ep with req. It fails with ErrBusy if a run is
// already active.
func (d *Driver) Start(ctx context.Context, ep Endpoint, req MoveRequest) (*Run, error) {
	d.mu.Lock()
	if d.active != nil {
		d.mu.Unlock()
		return nil, ErrBusy
	}
	runCtx, cancel := context.WithCancel(ctx)
	run := &Run{
		ID:       uuid.NewString(),
		Endpoint: ep,
		Request:  req,
		ctx:      runCtx,
		cancel:   cancel,
		done:     make(chan struct{}),
	}
	d.active = run
	d.mu.Unlock()

	d.logger.Debugw("move started", "run", run.ID, "endpoint", ep.Path(), "request", req.String())
	go d.loop(run)
	return run, nil
}

// Move starts a run and waits for it.
func (d *Driver) Move(ctx context.Context, ep Endpoint, req MoveRequest) (Outcome, error) {
	run, err := d.Start(ctx, ep, req)
	if err != nil {
		return Outcome{Status: Rejected, Err: err}, err
	}
	return run.Wait(), nil
}

func (d *Driver) loop(run *Run) {
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	ticks := 0
	for {
		select {
		case <-run.ctx.Done():
			d.finish(run, Outcome{Status: Cancelled, Ticks: ticks, Err: run.ctx.Err()})
			return
		case <-ticker.C:
			ticks++
			if out, done := d.step(run); done {
				out.Ticks = ticks
				d.finish(run, out)
				return
			}
		}
	}
}

// step performs one poll tick and reports whether it was terminal.
func (d *Driver) step(run *Run) (Outcome, bool) {
	sample, err := d.client.Sample(run.ctx, run.Endpoint, run.Request)
	if err != nil {
		if run.ctx.Err() != nil {
			return Outcome{Status: Cancelled, Err: run.ctx.Err()}, true
		}
		d.logger.Warnw("error moving robot", "run", run.ID, "endpoint", run.Endpoint.Path(), "error", err)
		return Outcome{Status: TransportFailed, Err: err}, true
	}

	if sample.ErrorMessage != "" {
		d.logger.Warnw("service reported error", "run", run.ID, "endpoint", run.Endpoint.Path(), "err_msg", sample.ErrorMessage)
		return Outcome{Status: ServiceFailed, Err: &ServiceError{Message: sample.ErrorMessage}}, true
	}

	if !d.apply(run, sample.Pose) {
		return Outcome{Status: Cancelled, Err: context.Canceled}, true
	}

	if sample.AtRest() {
		return Outcome{Status: Succeeded, Pose: sample.Pose}, true
	}
	return Outcome{}, false
}

func (d *Driver) apply(run *Run, p robot.Pose) bool {
	run.writeMu.Lock()
	defer run.writeMu.Unlock()
	if run.cancelled || run.ctx.Err() != nil {
		return false
	}
	d.store.SetRobotPose(p)
	return true
}

func (d *Driver) finish(run *Run, out Outcome) {
	out.RunID = run.ID
	run.outcome = out
	run.cancel()

	d.mu.Lock()
	if d.active == run {
		d.active = nil
	}
	d.mu.Unlock()

	d.logger.Debugw("move finished", "run", run.ID, "status", out.Status.String(), "ticks", out.Ticks)
	close(run.done)
}
