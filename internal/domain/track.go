package domain

import "time"

// PlayState is the playback state of the current track.
type PlayState string

const (
	PlayStatePlaying PlayState = "playing"
	PlayStatePaused  PlayState = "paused"
)

// Track is one unit of playable media. DurationSeconds of zero means
// the duration is unknown or the stream is live.
type Track struct {
	ID              string    `json:"id"`
	Title           string    `json:"title"`
	DurationSeconds int       `json:"duration_seconds"`
	StartedAt       time.Time `json:"started_at"`
	State           PlayState `json:"state"`
}
