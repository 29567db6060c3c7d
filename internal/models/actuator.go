package models

// ActuatorConfig is the backend-owned definition of one servo. It is replaced
// wholesale on edit and cached locally until the next reload.
type ActuatorConfig struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Channel      int    `json:"channel"`
	MinAngle     int    `json:"min_angle"`
	MaxAngle     int    `json:"max_angle"`
	MinPulseUs   int    `json:"min_pulse_us"`
	MaxPulseUs   int    `json:"max_pulse_us"`
	DefaultAngle int    `json:"default_angle"`
	Enabled      bool   `json:"enabled"`
	OpenAngle    *int   `json:"open_angle,omitempty"`
	CloseAngle   *int   `json:"close_angle,omitempty"`
}

// Clamp limits angle to the configured [MinAngle, MaxAngle] range.
func (c ActuatorConfig) Clamp(angle int) int {
	if angle < c.MinAngle {
		return c.MinAngle
	}
	if angle > c.MaxAngle {
		return c.MaxAngle
	}
	return angle
}

// Center is the midpoint of the configured range, rounded down.
func (c ActuatorConfig) Center() int {
	return (c.MinAngle + c.MaxAngle) / 2
}

// Actuator is a registry entry: the cached config plus the last confirmed
// position and the UI-only debounce target.
type Actuator struct {
	ActuatorConfig
	CurrentPosition int  `json:"current_position"`
	TargetAngle     int  `json:"target_angle"`
	Moving          bool `json:"moving"`
}

// SweepParams describes a backend-driven oscillation.
type SweepParams struct {
	Step  int     `json:"step"`  // whole degrees per step
	Delay float64 `json:"delay"` // seconds between steps
}
