package models

import "time"

// Connectivity is the tri-state backend indicator.
type Connectivity string

const (
	Connected    Connectivity = "connected"
	Degraded     Connectivity = "degraded"
	Disconnected Connectivity = "disconnected"
)

// ConnectivityReport is the last health probe outcome.
type ConnectivityReport struct {
	State          Connectivity `json:"state"`
	BackendStatus  string       `json:"backend_status,omitempty"`
	BackendRunning bool         `json:"backend_running"`
	BackendURL     string       `json:"backend_url,omitempty"`
	ServoCount     int          `json:"servo_count,omitempty"`
	CheckedAt      time.Time    `json:"checked_at"`
}

// Status levels, mirroring the card styles of the control surface.
const (
	LevelInfo    = "default"
	LevelSuccess = "success"
	LevelError   = "error"
)

// StatusMessage is an ephemeral notification. An empty ActuatorID targets the
// global status bar.
type StatusMessage struct {
	ActuatorID string    `json:"actuator_id,omitempty"`
	Message    string    `json:"message"`
	Level      string    `json:"level"`
	ExpiresAt  time.Time `json:"expires_at"`
}
