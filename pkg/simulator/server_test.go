package simulator

import (
	"bytes"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/edaniels/golog"
	"github.com/golang/geo/r3"
	"github.com/stretchr/testify/require"
)

type sample struct {
	CurrentPosition []float64 `json:"current_position"`
	AxisSpeed       []float64 `json:"axis_speed"`
	ErrMsg          *string   `json:"err_msg"`
}

func post(t *testing.T, srv http.Handler, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	rw := httptest.NewRecorder()
	req := httptest.NewRequest("POST", path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	srv.ServeHTTP(rw, req)
	return rw
}

func decodeSample(t *testing.T, rw *httptest.ResponseRecorder) sample {
	t.Helper()
	require.Equal(t, http.StatusOK, rw.Code, rw.Body.String())
	var s sample
	require.NoError(t, json.Unmarshal(rw.Body.Bytes(), &s))
	return s
}

func TestInitializeRobot(t *testing.T) {
	srv := NewServer(WithLogger(golog.NewTestLogger(t)))

	rw := post(t, srv, "/initialize_robot",
		`{"initial_position":[100,100,0],"home_position":[150,150,0],"gripper_state":1}`)
	require.Equal(t, http.StatusOK, rw.Code)
	require.Contains(t, rw.Body.String(), "Robot initialized successfully")

	r := srv.Robot()
	require.Equal(t, r3.Vector{X: 100, Y: 100}, r.Position())
	require.Equal(t, r3.Vector{X: 150, Y: 150}, r.Home())
	require.Equal(t, GripperClosed, r.Gripper())
}

func TestInitializeRobotValidation(t *testing.T) {
	srv := NewServer()

	tests := []string{
		`{"initial_position":[100,100],"home_position":[150,150,0],"gripper_state":0}`,
		`{"initial_position":[100,100,0],"home_position":[150,150,0],"gripper_state":2}`,
		`{"initial_position":[100,100,0],"home_position":[150,150,0]}`,
		`not json`,
	}
	for _, body := range tests {
		rw := post(t, srv, "/initialize_robot", body)
		require.Equal(t, http.StatusUnprocessableEntity, rw.Code, body)
	}
}

func TestMoveToUntilRest(t *testing.T) {
	clock := newStepClock(100 * time.Millisecond)
	srv := NewServer(WithClock(clock.Now))
	post(t, srv, "/initialize_robot",
		`{"initial_position":[100,100,0],"home_position":[150,150,0],"gripper_state":0}`)

	var s sample
	for i := 0; i < 20; i++ {
		s = decodeSample(t, post(t, srv, "/move_to", `{"target_position":[75,75,0],"speed":90}`))
		require.Nil(t, s.ErrMsg)
		if s.AxisSpeed[0] == 0 && s.AxisSpeed[1] == 0 && s.AxisSpeed[2] == 0 {
			break
		}
	}
	require.Equal(t, []float64{75, 75, 0}, s.CurrentPosition)
	require.Equal(t, []float64{0, 0, 0}, s.AxisSpeed)
}

func TestMoveHomeDefaultSpeed(t *testing.T) {
	clock := newStepClock(100 * time.Millisecond)
	srv := NewServer(WithClock(clock.Now))
	post(t, srv, "/initialize_robot",
		`{"initial_position":[100,100,0],"home_position":[150,150,0],"gripper_state":0}`)

	s := decodeSample(t, post(t, srv, "/move_home", `{}`))
	require.Nil(t, s.ErrMsg)
	require.Equal(t, []float64{DefaultMoveHomeSpeed, DefaultMoveHomeSpeed, 0}, s.AxisSpeed)
}

func TestMoveReportsErrMsg(t *testing.T) {
	srv := NewServer()
	post(t, srv, "/initialize_robot",
		`{"initial_position":[10,10,0],"home_position":[0,0,0],"gripper_state":0}`)

	s := decodeSample(t, post(t, srv, "/move_to", `{"target_position":[75,75,0],"speed":150}`))
	require.NotNil(t, s.ErrMsg)
	require.Contains(t, *s.ErrMsg, "Requested speed of : 150 mm/s")
	require.Equal(t, []float64{10, 10, 0}, s.CurrentPosition)

	s = decodeSample(t, post(t, srv, "/move_to", `{"target_position":[5000,0,0],"speed":50}`))
	require.NotNil(t, s.ErrMsg)
	require.Contains(t, *s.ErrMsg, "Requested position of : 5000 for axis 0")
}

func TestMoveToValidation(t *testing.T) {
	srv := NewServer()
	rw := post(t, srv, "/move_to", `{"target_position":[1,2],"speed":50}`)
	require.Equal(t, http.StatusUnprocessableEntity, rw.Code)
}

func TestWriteMoveLogsEncodeFailure(t *testing.T) {
	logger, logs := golog.NewObservedTestLogger(t)
	c := &Context{Server: NewServer(WithLogger(logger))}

	rw := httptest.NewRecorder()
	c.writeMove(rw, r3.Vector{X: math.NaN()}, r3.Vector{}, "")

	require.Equal(t, 1, logs.FilterMessage("error encoding response").Len())
}
