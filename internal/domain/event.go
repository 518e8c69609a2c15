package domain

import "time"

// EventKind names a room-scoped state change.
type EventKind string

const (
	EventJoined        EventKind = "joined"
	EventLeft          EventKind = "left"
	EventPlaying       EventKind = "playing"
	EventPaused        EventKind = "paused"
	EventResumed       EventKind = "resumed"
	EventSkipped       EventKind = "skipped"
	EventVolumeChanged EventKind = "volume-changed"
	EventMessage       EventKind = "message"
)

// Event is emitted by a session on every successful transition that
// concerns a room, and fanned out to all viewers of that room.
type Event struct {
	Owner   OwnerID   `json:"owner"`
	Room    RoomID    `json:"room"`
	Kind    EventKind `json:"kind"`
	Payload any       `json:"payload,omitempty"`
	At      time.Time `json:"at"`
}
