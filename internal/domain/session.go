// Package domain contains entity types without logic, just meta-data.
package domain

type (
	// OwnerID identifies the authenticated caller that owns a session.
	OwnerID string

	// RoomID identifies a venue on the remote platform.
	RoomID string
)

// ConnState is the lifecycle state of a session.
type ConnState string

const (
	StateDisconnected ConnState = "disconnected"
	StateConnecting   ConnState = "connecting"
	StateConnected    ConnState = "connected"
	StateInRoom       ConnState = "in_room"
	StatePlaying      ConnState = "playing"
	StatePaused       ConnState = "paused"
	StateClosed       ConnState = "closed"
)

// InRoom reports whether the state implies a joined room.
func (s ConnState) InRoom() bool {
	return s == StateInRoom || s == StatePlaying || s == StatePaused
}

const (
	MinVolume     = 0
	MaxVolume     = 100
	DefaultVolume = 50
)

// RemoteIdentity is the identity granted by the remote platform after a
// successful login. It is never shared between sessions.
type RemoteIdentity struct {
	SessionToken string `json:"-"`
	UserID       string `json:"user_id"`
}

// Snapshot is the caller-visible view of a session at a point in time.
type Snapshot struct {
	Owner  OwnerID   `json:"owner"`
	State  ConnState `json:"state"`
	UserID string    `json:"user_id,omitempty"`
	Room   *RoomID   `json:"room"`
	Track  *Track    `json:"track"`
	Volume int       `json:"volume"`
}
