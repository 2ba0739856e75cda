package motion

import (
	"context"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/edaniels/golog"
	"github.com/stretchr/testify/require"

	"github.com/gwillem/pickplace/pkg/robot"
	"github.com/gwillem/pickplace/pkg/simulator"
)

func steppingClock(step time.Duration) func() time.Time {
	var mu sync.Mutex
	t := time.Unix(0, 0)
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		t = t.Add(step)
		return t
	}
}

func TestChoreographyAgainstSimulator(t *testing.T) {
	srv := httptest.NewServer(simulator.NewServer(simulator.WithClock(steppingClock(100 * time.Millisecond))))
	defer srv.Close()

	cfg := robot.DefaultConfig()
	store := cfg.NewStore()
	opts := OptionsFromConfig(cfg)
	opts.PollInterval = time.Millisecond
	seq := NewSequencer(NewHTTPClient(srv.URL, time.Second), store, opts, golog.NewTestLogger(t))
	ctx := context.Background()

	require.NoError(t, seq.Initialize(ctx))

	report, err := seq.PickAndPlace(ctx)
	require.NoError(t, err)
	require.NoError(t, report.Err())
	require.True(t, report.Placed)
	require.Equal(t, robot.Pose{X: 75, Y: 75}, report.Pick.Pose)
	require.Greater(t, report.Place.Ticks, 10)

	st := store.State()
	require.Equal(t, robot.Pose{X: 275, Y: 275}, st.Pose)
	require.False(t, st.CarryingObject)
	require.True(t, st.AtDropOff)

	out, err := seq.MoveHome(ctx)
	require.NoError(t, err)
	require.True(t, out.OK())
	require.Equal(t, robot.Pose{X: 150, Y: 150}, store.RobotPose())
	require.Equal(t, Idle, seq.Stage())
}

func TestServiceLimitsSurfaceAsServiceError(t *testing.T) {
	srv := httptest.NewServer(simulator.NewServer())
	defer srv.Close()

	cfg := robot.DefaultConfig()
	cfg.Motion.Speed = 150
	store := cfg.NewStore()
	opts := OptionsFromConfig(cfg)
	opts.PollInterval = time.Millisecond
	seq := NewSequencer(NewHTTPClient(srv.URL, time.Second), store, opts, golog.NewTestLogger(t))

	require.NoError(t, seq.Initialize(context.Background()))
	report, err := seq.PickAndPlace(context.Background())
	require.NoError(t, err)
	require.Equal(t, ServiceFailed, report.Pick.Status)
	require.True(t, report.Aborted)
	require.Equal(t, robot.Pose{X: 100, Y: 100}, store.RobotPose())
}
