package simulator

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/edaniels/golog"
	"github.com/gocraft/web"
	"github.com/golang/geo/r3"
	"go.uber.org/zap"
)

// Default speeds used when a request omits one.
const (
	DefaultMoveToSpeed   = 90
	DefaultMoveHomeSpeed = 50
)

// Server exposes a Robot over the robot-control HTTP contract.
type Server struct {
	mu     sync.Mutex
	robot  *Robot
	clock  func() time.Time
	logger golog.Logger
	router *web.Router
}

// Option configures a Server.
type Option func(*Server)

// WithClock replaces the time source of the simulated robots.
func WithClock(clock func() time.Time) Option {
	return func(s *Server) {
		s.clock = clock
	}
}

// WithLogger sets the request logger.
func WithLogger(logger golog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// Context is the per-request context of the router.
type Context struct {
	Server *Server
}

// NewServer creates a server whose robot starts at the origin, homed at the
// origin, gripper open.
func NewServer(opts ...Option) *Server {
	s := &Server{clock: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = zap.NewNop().Sugar()
	}
	s.robot = NewRobot(r3.Vector{}, r3.Vector{}, GripperOpen, s.clock)
	s.router = AttachRoutes(web.New(Context{}).Middleware(s.inject))
	return s
}

// AttachRoutes attaches the robot-control routes to a provided router
func AttachRoutes(router *web.Router) *web.Router {
	return router.
		Middleware((*Context).logRequest).
		Post("/initialize_robot", (*Context).handleInitialize).
		Post("/move_to", (*Context).handleMoveTo).
		Post("/move_home", (*Context).handleMoveHome)
}

func (s *Server) ServeHTTP(rw http.ResponseWriter, req *http.Request) {
	s.router.ServeHTTP(rw, req)
}

// Robot returns the current simulated robot.
func (s *Server) Robot() *Robot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.robot
}

func (s *Server) reset(r *Robot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.robot = r
}

func (s *Server) inject(c *Context, rw web.ResponseWriter, req *web.Request, next web.NextMiddlewareFunc) {
	c.Server = s
	next(rw, req)
}

func (c *Context) logRequest(rw web.ResponseWriter, req *web.Request, next web.NextMiddlewareFunc) {
	start := time.Now()
	next(rw, req)
	c.Server.logger.Debugw("request",
		"method", req.Method,
		"path", req.URL.Path,
		"status", rw.StatusCode(),
		"duration", time.Since(start),
	)
}

type initializeRequest struct {
	InitialPosition []float64 `json:"initial_position"`
	HomePosition    []float64 `json:"home_position"`
	GripperState    *int      `json:"gripper_state"`
}

type moveToRequest struct {
	TargetPosition []float64 `json:"target_position"`
	Speed          *float64  `json:"speed"`
}

type moveHomeRequest struct {
	Speed *float64 `json:"speed"`
}

type moveResponse struct {
	CurrentPosition [3]float64 `json:"current_position"`
	AxisSpeed       [3]float64 `json:"axis_speed"`
	ErrMsg          *string    `json:"err_msg"`
}

type robotInfo struct {
	CurrentPosition [3]float64 `json:"current_position"`
	HomePosition    [3]float64 `json:"home_position"`
	GripperState    int        `json:"gripper_state"`
}

type initializeResponse struct {
	Message string    `json:"message"`
	Robot   robotInfo `json:"robot"`
}

func (c *Context) handleInitialize(rw web.ResponseWriter, req *web.Request) {
	var body initializeRequest
	if !c.decode(rw, req, &body) {
		return
	}
	initial, err := vector("initial_position", body.InitialPosition)
	if err != nil {
		c.writeError(rw, err)
		return
	}
	home, err := vector("home_position", body.HomePosition)
	if err != nil {
		c.writeError(rw, err)
		return
	}
	if body.GripperState == nil || (*body.GripperState != int(GripperOpen) && *body.GripperState != int(GripperClosed)) {
		c.writeError(rw, fmt.Errorf("gripper_state must be 0 or 1"))
		return
	}

	r := NewRobot(initial, home, GripperState(*body.GripperState), c.Server.clock)
	c.Server.reset(r)
	c.Server.logger.Infow("robot initialized", "initial", initial, "home", home, "gripper", *body.GripperState)

	c.writeJSON(rw, http.StatusOK, initializeResponse{
		Message: "Robot initialized successfully",
		Robot: robotInfo{
			CurrentPosition: components(initial),
			HomePosition:    components(home),
			GripperState:    *body.GripperState,
		},
	})
}

func (c *Context) handleMoveTo(rw web.ResponseWriter, req *web.Request) {
	var body moveToRequest
	if !c.decode(rw, req, &body) {
		return
	}
	target, err := vector("target_position", body.TargetPosition)
	if err != nil {
		c.writeError(rw, err)
		return
	}
	speed := float64(DefaultMoveToSpeed)
	if body.Speed != nil {
		speed = *body.Speed
	}
	position, axisSpeed, errMsg := c.Server.Robot().MoveTo(target, speed)
	c.writeMove(rw, position, axisSpeed, errMsg)
}

func (c *Context) handleMoveHome(rw web.ResponseWriter, req *web.Request) {
	var body moveHomeRequest
	if !c.decode(rw, req, &body) {
		return
	}
	speed := float64(DefaultMoveHomeSpeed)
	if body.Speed != nil {
		speed = *body.Speed
	}
	position, axisSpeed, errMsg := c.Server.Robot().MoveHome(speed)
	c.writeMove(rw, position, axisSpeed, errMsg)
}

func (c *Context) writeMove(rw http.ResponseWriter, position, axisSpeed r3.Vector, errMsg string) {
	resp := moveResponse{
		CurrentPosition: components(position),
		AxisSpeed:       components(axisSpeed),
	}
	if errMsg != "" {
		resp.ErrMsg = &errMsg
	}
	c.writeJSON(rw, http.StatusOK, resp)
}

func (c *Context) decode(rw http.ResponseWriter, req *web.Request, out any) bool {
	if err := json.NewDecoder(req.Body).Decode(out); err != nil {
		c.writeError(rw, fmt.Errorf("decode body: %w", err))
		return false
	}
	return true
}

func vector(field string, v []float64) (r3.Vector, error) {
	if len(v) != 3 {
		return r3.Vector{}, fmt.Errorf("%s must have 3 components, got %d", field, len(v))
	}
	return r3.Vector{X: v[0], Y: v[1], Z: v[2]}, nil
}

func (c *Context) writeError(rw http.ResponseWriter, err error) {
	c.writeJSON(rw, http.StatusUnprocessableEntity, map[string]string{"detail": err.Error()})
}

func (c *Context) writeJSON(rw http.ResponseWriter, status int, v any) {
	rw.Header().Set("Content-Type", "application/json")
	rw.WriteHeader(status)
	if err := json.NewEncoder(rw).Encode(v); err != nil {
		c.Server.logger.Warnw("error encoding response", "status", status, "error", err)
	}
}
