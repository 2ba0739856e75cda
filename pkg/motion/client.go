package motion

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/gwillem/pickplace/pkg/robot"
)

// Endpoint selects the service operation sampled by a move.
type Endpoint int

const (
	MoveTo Endpoint = iota
	MoveHome
)

// Path returns the endpoint path relative to the service base URL.
func (e Endpoint) Path() string {
	if e == MoveHome {
		return "move_home"
	}
	return "move_to"
}

func (e Endpoint) String() string {
	return e.Path()
}

const initializePath = "initialize_robot"

// MoveRequest is one logical motion. A nil Target means "return home"; home
// is resolved by the service.
type MoveRequest struct {
	Target *robot.Pose
	Speed  float64
}

// MoveToRequest builds a request for an explicit target.
func MoveToRequest(target robot.Pose, speed float64) MoveRequest {
	return MoveRequest{Target: &target, Speed: speed}
}

// MoveHomeRequest builds a request for the home position.
func MoveHomeRequest(speed float64) MoveRequest {
	return MoveRequest{Speed: speed}
}

// Endpoint returns the endpoint that serves the request.
func (r MoveRequest) Endpoint() Endpoint {
	if r.Target == nil {
		return MoveHome
	}
	return MoveTo
}

func (r MoveRequest) String() string {
	if r.Target == nil {
		return fmt.Sprintf("home @%g", r.Speed)
	}
	return fmt.Sprintf("%v @%g", *r.Target, r.Speed)
}

// MoveSample is one polled observation of an in-flight move.
type MoveSample struct {
	Pose      robot.Pose
	AxisSpeed [3]float64
	// ErrorMessage is empty when the service reported no error.
	ErrorMessage string
}

// AtRest reports whether all three axes have stopped.
func (s MoveSample) AtRest() bool {
	return s.AxisSpeed[0] == 0 && s.AxisSpeed[1] == 0 && s.AxisSpeed[2] == 0
}

// InitRequest seeds the service with the session's starting state.
type InitRequest struct {
	Initial       robot.Pose
	Home          robot.Pose
	GripperClosed bool
}

// Client issues single-shot calls to the robot-control service. It never
// retries.
type Client interface {
	Initialize(ctx context.Context, req InitRequest) error
	Sample(ctx context.Context, ep Endpoint, req MoveRequest) (MoveSample, error)
}

// TransportError reports a failed call: network failure, non-2xx status or a
// malformed payload.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// HTTPClient talks JSON over HTTP to the robot-control service.
type HTTPClient struct {
	baseURL string
	http    *http.Client
}

// NewHTTPClient creates a client for the service at baseURL.
func NewHTTPClient(baseURL string, timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

type initializeBody struct {
	InitialPosition [3]float64 `json:"initial_position"`
	HomePosition    [3]float64 `json:"home_position"`
	GripperState    int        `json:"gripper_state"`
}

type moveToBody struct {
	TargetPosition [3]float64 `json:"target_position"`
	Speed          float64    `json:"speed"`
}

type moveHomeBody struct {
	Speed float64 `json:"speed"`
}

type moveResponse struct {
	CurrentPosition []float64 `json:"current_position"`
	AxisSpeed       []float64 `json:"axis_speed"`
	ErrMsg          *string   `json:"err_msg"`
}

// Initialize pushes the initial pose, home pose and gripper bit. The
// response body is ignored.
func (c *HTTPClient) Initialize(ctx context.Context, req InitRequest) error {
	body := initializeBody{
		InitialPosition: req.Initial.Vector(),
		HomePosition:    req.Home.Vector(),
	}
	if req.GripperClosed {
		body.GripperState = 1
	}
	return c.post(ctx, initializePath, body, nil)
}

// Sample issues one move request and returns the service's observation.
func (c *HTTPClient) Sample(ctx context.Context, ep Endpoint, req MoveRequest) (MoveSample, error) {
	var body any
	switch ep {
	case MoveTo:
		if req.Target == nil {
			return MoveSample{}, &TransportError{Op: ep.Path(), Err: errors.New("move_to needs a target")}
		}
		body = moveToBody{TargetPosition: req.Target.Vector(), Speed: req.Speed}
	case MoveHome:
		body = moveHomeBody{Speed: req.Speed}
	default:
		return MoveSample{}, &TransportError{Op: ep.Path(), Err: errors.Errorf("unknown endpoint %d", ep)}
	}

	var resp moveResponse
	if err := c.post(ctx, ep.Path(), body, &resp); err != nil {
		return MoveSample{}, err
	}

	if len(resp.CurrentPosition) != 3 {
		return MoveSample{}, &TransportError{
			Op:  ep.Path(),
			Err: errors.Errorf("current_position has %d components, want 3", len(resp.CurrentPosition)),
		}
	}
	if len(resp.AxisSpeed) != 3 {
		return MoveSample{}, &TransportError{
			Op:  ep.Path(),
			Err: errors.Errorf("axis_speed has %d components, want 3", len(resp.AxisSpeed)),
		}
	}

	sample := MoveSample{
		Pose: robot.PoseFromVector([3]float64{
			resp.CurrentPosition[0], resp.CurrentPosition[1], resp.CurrentPosition[2],
		}),
		AxisSpeed: [3]float64{resp.AxisSpeed[0], resp.AxisSpeed[1], resp.AxisSpeed[2]},
	}
	if resp.ErrMsg != nil {
		sample.ErrorMessage = *resp.ErrMsg
	}
	return sample, nil
}

func (c *HTTPClient) post(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return &TransportError{Op: path, Err: errors.Wrap(err, "encode request")}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/"+path, bytes.NewReader(payload))
	if err != nil {
		return &TransportError{Op: path, Err: errors.Wrap(err, "build request")}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return &TransportError{Op: path, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return &TransportError{Op: path, Err: errors.Wrap(err, "read response")}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &TransportError{Op: path, Err: errors.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))}
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return &TransportError{Op: path, Err: errors.Wrap(err, "decode response")}
	}
	return nil
}
