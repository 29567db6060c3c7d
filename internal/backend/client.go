package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strings"
	"time"

	"servopanel/internal/models"
)

// Servo is one entry of the full-fleet listing: the config plus the backend's
// cached position.
type Servo struct {
	models.ActuatorConfig
	CurrentPosition float64 `json:"current_position"`
}

// Health is the backend status document.
type Health struct {
	Status         string `json:"status"`
	BackendRunning bool   `json:"backend_running"`
	BackendURL     string `json:"backend_url,omitempty"`
	Timestamp      string `json:"timestamp,omitempty"`
	ServoCount     int    `json:"servo_count,omitempty"`
}

// envelope carries every field the backend may put next to success.
type envelope struct {
	Success   *bool                      `json:"success"`
	Error     string                     `json:"error"`
	Message   string                     `json:"message"`
	Angle     *float64                   `json:"angle"`
	Servos    []Servo                    `json:"servos"`
	Positions map[string]float64         `json:"positions"`
	Results   map[string]centerAllResult `json:"results"`
}

type centerAllResult struct {
	Success bool    `json:"success"`
	Angle   float64 `json:"angle"`
}

func (e envelope) ok() bool { return e.Success != nil && *e.Success }

func (e envelope) reason() string {
	if e.Error != "" {
		return e.Error
	}
	return e.Message
}

// Client talks to the actuator backend over plain HTTP+JSON.
type Client struct {
	baseURL string
	timeout time.Duration
	http    *http.Client
}

// NewClient returns a client for baseURL. timeout bounds every request whose
// context carries no deadline of its own.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		timeout: timeout,
		http:    &http.Client{},
	}
}

// BaseURL returns the configured backend location.
func (c *Client) BaseURL() string { return c.baseURL }

func (c *Client) do(ctx context.Context, op, method, path string, body any, out any) error {
	var rdr io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("%s: encode request: %w", op, err)
		}
		rdr = bytes.NewReader(buf)
	}

	if _, ok := ctx.Deadline(); !ok && c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rdr)
	if err != nil {
		return transportErr(op, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return transportErr(op, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return transportErr(op, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return transportErr(op, fmt.Errorf("bad status code: %s", resp.Status))
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return transportErr(op, fmt.Errorf("decode response: %w", err))
	}
	return nil
}

// call performs a request whose answer is a success envelope.
func (c *Client) call(ctx context.Context, op, method, path string, body any) (envelope, error) {
	var env envelope
	if err := c.do(ctx, op, method, path, body, &env); err != nil {
		return env, err
	}
	if !env.ok() {
		return env, &RejectedError{Op: op, Message: env.reason()}
	}
	return env, nil
}

func servoPath(id string, suffix ...string) string {
	p := "/api/servos/" + url.PathEscape(id)
	for _, s := range suffix {
		p += "/" + s
	}
	return p
}

// ListServos fetches the whole fleet.
func (c *Client) ListServos(ctx context.Context) ([]Servo, error) {
	env, err := c.call(ctx, "list servos", http.MethodGet, "/api/servos", nil)
	if err != nil {
		return nil, err
	}
	return env.Servos, nil
}

// SetAngle requests a move and returns the angle the backend reports.
func (c *Client) SetAngle(ctx context.Context, id string, angle int) (int, error) {
	env, err := c.call(ctx, "set angle", http.MethodPost, servoPath(id, "angle"), map[string]int{"angle": angle})
	if err != nil {
		return 0, err
	}
	if env.Angle == nil {
		return angle, nil
	}
	return roundAngle(*env.Angle), nil
}

// Sweep blocks until the backend finishes (or fails) the oscillation. The
// backend answers only once the motion is over, so callers pass a deadline
// sized to the sweep.
func (c *Client) Sweep(ctx context.Context, id string, p models.SweepParams) error {
	_, err := c.call(ctx, "sweep", http.MethodPost, servoPath(id, "sweep"), p)
	return err
}

// CenterAll returns the confirmed angle of every actuator the backend
// reported as centered. Actuators missing or failed are absent.
func (c *Client) CenterAll(ctx context.Context) (map[string]int, error) {
	env, err := c.call(ctx, "center all", http.MethodPost, "/api/servos/center_all", nil)
	if err != nil {
		return nil, err
	}
	out := make(map[string]int, len(env.Results))
	for id, r := range env.Results {
		if r.Success {
			out[id] = roundAngle(r.Angle)
		}
	}
	return out, nil
}

// Positions fetches every known position.
func (c *Client) Positions(ctx context.Context) (map[string]int, error) {
	env, err := c.call(ctx, "positions", http.MethodGet, "/api/servos/positions", nil)
	if err != nil {
		return nil, err
	}
	out := make(map[string]int, len(env.Positions))
	for id, a := range env.Positions {
		out[id] = roundAngle(a)
	}
	return out, nil
}

// Health fetches the backend status document. It carries no success field.
func (c *Client) Health(ctx context.Context) (Health, error) {
	var h Health
	if err := c.do(ctx, "health", http.MethodGet, "/api/health", nil, &h); err != nil {
		return Health{}, err
	}
	return h, nil
}

// AddServo creates a new actuator definition.
func (c *Client) AddServo(ctx context.Context, id string, cfg models.ActuatorConfig) (string, error) {
	body := struct {
		ServoID string                `json:"servo_id"`
		Config  models.ActuatorConfig `json:"config"`
	}{ServoID: id, Config: cfg}
	env, err := c.call(ctx, "add servo", http.MethodPost, "/api/servos", body)
	return env.Message, err
}

// UpdateServo replaces an actuator definition wholesale.
func (c *Client) UpdateServo(ctx context.Context, id string, cfg models.ActuatorConfig) (string, error) {
	env, err := c.call(ctx, "update servo", http.MethodPut, servoPath(id), cfg)
	return env.Message, err
}

// RemoveServo deletes an actuator definition.
func (c *Client) RemoveServo(ctx context.Context, id string) (string, error) {
	env, err := c.call(ctx, "remove servo", http.MethodDelete, servoPath(id), nil)
	return env.Message, err
}

func roundAngle(a float64) int {
	return int(math.Round(a))
}
