package motion

import (
	"context"
	"sync"
	"time"

	"github.com/gwillem/pickplace/pkg/robot"
)

// scriptFunc answers the n-th Sample call (0-based).
type scriptFunc func(call int, ep Endpoint, req MoveRequest) (MoveSample, error)

type fakeClient struct {
	script scriptFunc
	delay  time.Duration
	// onSample runs before each Sample call is answered.
	onSample func(call int, ep Endpoint, req MoveRequest)

	mu          sync.Mutex
	calls       []MoveRequest
	inFlight    int
	maxInFlight int
	inits       []InitRequest
	initErr     error
}

func (c *fakeClient) Initialize(ctx context.Context, req InitRequest) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.inits = append(c.inits, req)
	return c.initErr
}

func (c *fakeClient) Sample(ctx context.Context, ep Endpoint, req MoveRequest) (MoveSample, error) {
	c.mu.Lock()
	call := len(c.calls)
	c.calls = append(c.calls, req)
	c.inFlight++
	if c.inFlight > c.maxInFlight {
		c.maxInFlight = c.inFlight
	}
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.inFlight--
		c.mu.Unlock()
	}()

	if c.onSample != nil {
		c.onSample(call, ep, req)
	}
	if c.delay > 0 {
		select {
		case <-time.After(c.delay):
		case <-ctx.Done():
			return MoveSample{}, ctx.Err()
		}
	}
	return c.script(call, ep, req)
}

func (c *fakeClient) callCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.calls)
}

func (c *fakeClient) requests() []MoveRequest {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]MoveRequest(nil), c.calls...)
}

func moving(p robot.Pose) MoveSample {
	return MoveSample{Pose: p, AxisSpeed: [3]float64{10, 10, 0}}
}

func resting(p robot.Pose) MoveSample {
	return MoveSample{Pose: p}
}

// approach answers every request with two moving samples followed by a
// resting sample at the request target, or at home for home requests.
func approach(home robot.Pose) scriptFunc {
	var mu sync.Mutex
	seen := map[string]int{}
	return func(call int, ep Endpoint, req MoveRequest) (MoveSample, error) {
		target := home
		if req.Target != nil {
			target = *req.Target
		}
		mu.Lock()
		defer mu.Unlock()
		key := req.String()
		seen[key]++
		if seen[key] < 3 {
			return moving(robot.Pose{X: target.X - 1, Y: target.Y - 1}), nil
		}
		delete(seen, key)
		return resting(target), nil
	}
}

func newTestStore() *robot.Store {
	cfg := robot.DefaultConfig()
	return cfg.NewStore()
}
