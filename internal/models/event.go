package models

import "time"

// Event types published by the coordinator.
const (
	EventCommand      = "COMMAND"      // motion request dispatched
	EventPosition     = "POSITION"     // confirmed position applied to the registry
	EventMoving       = "MOVING"       // moving flag toggled
	EventRejected     = "REJECTED"     // backend answered success:false
	EventTransport    = "TRANSPORT"    // backend unreachable
	EventSweep        = "SWEEP"        // sweep started/settled
	EventCenterAll    = "CENTER_ALL"   // bulk center settled
	EventStatus       = "STATUS"       // status presenter message
	EventConnectivity = "CONNECTIVITY" // tri-state indicator changed
	EventFleet        = "FLEET"        // registry replaced by reload
	EventConfig       = "CONFIG"       // add/update/remove pass-through
)

// Event is a single coordinator notification; journal-worthy ones are also
// persisted.
type Event struct {
	EventID     string    `json:"event_id"`
	OccurredAt  time.Time `json:"occurred_at"`
	Type        string    `json:"type"`
	ActuatorID  string    `json:"actuator_id,omitempty"`
	Description string    `json:"description"`
	Metadata    any       `json:"metadata,omitempty"`
}
