package motion

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"

	"github.com/gwillem/pickplace/pkg/robot"
)

type recordedRequest struct {
	Path string
	Body map[string]any
}

func newRecordingServer(t *testing.T, status int, response string) (*httptest.Server, <-chan recordedRequest) {
	t.Helper()
	reqs := make(chan recordedRequest, 10)
	srv := httptest.NewServer(http.HandlerFunc(func(rw http.ResponseWriter, req *http.Request) {
		data, err := io.ReadAll(req.Body)
		require.NoError(t, err)
		var body map[string]any
		require.NoError(t, json.Unmarshal(data, &body))
		require.Equal(t, http.MethodPost, req.Method)
		require.Equal(t, "application/json", req.Header.Get("Content-Type"))
		reqs <- recordedRequest{Path: req.URL.Path, Body: body}
		rw.WriteHeader(status)
		io.WriteString(rw, response)
	}))
	t.Cleanup(srv.Close)
	return srv, reqs
}

func TestHTTPClientInitialize(t *testing.T) {
	srv, reqs := newRecordingServer(t, http.StatusOK, `{"message":"Robot initialized successfully"}`)
	c := NewHTTPClient(srv.URL+"/", time.Second)

	err := c.Initialize(context.Background(), InitRequest{
		Initial:       robot.Pose{X: 100, Y: 100},
		Home:          robot.Pose{X: 150, Y: 150},
		GripperClosed: true,
	})
	require.NoError(t, err)

	got := <-reqs
	require.Equal(t, "/initialize_robot", got.Path)
	require.Equal(t, []any{100.0, 100.0, 0.0}, got.Body["initial_position"])
	require.Equal(t, []any{150.0, 150.0, 0.0}, got.Body["home_position"])
	require.Equal(t, 1.0, got.Body["gripper_state"])
}

func TestHTTPClientMoveTo(t *testing.T) {
	srv, reqs := newRecordingServer(t, http.StatusOK,
		`{"current_position":[80.4,79.6,0],"axis_speed":[-63.6,-63.6,0],"err_msg":null}`)
	c := NewHTTPClient(srv.URL, time.Second)

	sample, err := c.Sample(context.Background(), MoveTo, MoveToRequest(robot.Pose{X: 75, Y: 75}, 90))
	require.NoError(t, err)
	require.Equal(t, robot.Pose{X: 80, Y: 80}, sample.Pose)
	require.False(t, sample.AtRest())
	require.Empty(t, sample.ErrorMessage)

	got := <-reqs
	require.Equal(t, "/move_to", got.Path)
	require.Equal(t, []any{75.0, 75.0, 0.0}, got.Body["target_position"])
	require.Equal(t, 90.0, got.Body["speed"])
}

func TestHTTPClientMoveHome(t *testing.T) {
	srv, reqs := newRecordingServer(t, http.StatusOK,
		`{"current_position":[150,150,0],"axis_speed":[0,0,0],"err_msg":null}`)
	c := NewHTTPClient(srv.URL, time.Second)

	sample, err := c.Sample(context.Background(), MoveHome, MoveHomeRequest(90))
	require.NoError(t, err)
	require.True(t, sample.AtRest())
	require.Equal(t, robot.Pose{X: 150, Y: 150}, sample.Pose)

	got := <-reqs
	require.Equal(t, "/move_home", got.Path)
	require.Equal(t, map[string]any{"speed": 90.0}, got.Body)
}

func TestHTTPClientServiceErrorIsNotTransportError(t *testing.T) {
	srv, _ := newRecordingServer(t, http.StatusOK,
		`{"current_position":[100,100,0],"axis_speed":[0,0,0],"err_msg":"Requested speed of : 120 mm/s is outside of the limits [0,100]"}`)
	c := NewHTTPClient(srv.URL, time.Second)

	sample, err := c.Sample(context.Background(), MoveHome, MoveHomeRequest(120))
	require.NoError(t, err)
	require.Contains(t, sample.ErrorMessage, "outside of the limits")
}

func TestHTTPClientTransportErrors(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		response string
	}{
		{"non-2xx", http.StatusUnprocessableEntity, `{"detail":"bad"}`},
		{"not json", http.StatusOK, `<html>`},
		{"short position", http.StatusOK, `{"current_position":[1,2],"axis_speed":[0,0,0],"err_msg":null}`},
		{"missing speed", http.StatusOK, `{"current_position":[1,2,3],"err_msg":null}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, _ := newRecordingServer(t, tt.status, tt.response)
			c := NewHTTPClient(srv.URL, time.Second)

			_, err := c.Sample(context.Background(), MoveTo, MoveToRequest(robot.Pose{X: 1}, 90))
			var terr *TransportError
			require.True(t, errors.As(err, &terr), "got %v", err)
			require.Equal(t, "move_to", terr.Op)
		})
	}
}

func TestHTTPClientUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := NewHTTPClient(url, 200*time.Millisecond)
	err := c.Initialize(context.Background(), InitRequest{})
	var terr *TransportError
	require.True(t, errors.As(err, &terr), "got %v", err)
	require.Equal(t, "initialize_robot", terr.Op)
}

func TestHTTPClientMoveToWithoutTarget(t *testing.T) {
	c := NewHTTPClient("http://127.0.0.1:1", time.Second)
	_, err := c.Sample(context.Background(), MoveTo, MoveHomeRequest(90))
	require.Error(t, err)
}
