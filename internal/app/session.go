// Package app holds the application services: the per-owner session
// state machine and the registry that owns all sessions.
package app

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/kellyg78/vu-music-sala/internal/broadcast"
	"github.com/kellyg78/vu-music-sala/internal/domain"
	"github.com/kellyg78/vu-music-sala/internal/remote"
)

// Session wraps one remote connection with a state machine. All
// operations are serialized by the session mutex: concurrent commands
// for the same owner queue up and apply in arrival order, including
// the remote call itself. A failed remote call leaves every field
// untouched.
type Session struct {
	mu sync.Mutex

	owner   domain.OwnerID
	client  remote.Client
	gateway *broadcast.Gateway

	state    domain.ConnState
	identity *domain.RemoteIdentity
	room     domain.RoomID
	track    *domain.Track
	volume   int
}

// NewSession returns a session in the Connecting state. It becomes
// usable only after Connect succeeds; the registry removes it again if
// the login fails.
func NewSession(owner domain.OwnerID, client remote.Client, gateway *broadcast.Gateway) *Session {
	return &Session{
		owner:   owner,
		client:  client,
		gateway: gateway,
		state:   domain.StateConnecting,
		volume:  domain.DefaultVolume,
	}
}

// Connect performs the remote login. The registry calls this exactly
// once per session; a second call observes ErrAlreadyConnected.
func (s *Session) Connect(ctx context.Context, creds remote.Credentials) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case domain.StateClosed:
		return ErrClosed
	case domain.StateDisconnected, domain.StateConnecting:
	default:
		return ErrAlreadyConnected
	}

	id, err := s.client.Authenticate(ctx, creds)
	if err != nil {
		return err
	}

	s.identity = &domain.RemoteIdentity{SessionToken: id.SessionToken, UserID: id.UserID}
	s.state = domain.StateConnected
	log.Info().Str("module", "app.session").Str("owner", string(s.owner)).Str("user_id", id.UserID).Msg("connected")
	return nil
}

// JoinRoom enters a room. Joining while already in a different room is
// a conflict; the caller must leave first. Re-joining the same room is
// allowed and resets playback.
func (s *Session) JoinRoom(ctx context.Context, room domain.RoomID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch {
	case s.state == domain.StateClosed:
		return ErrClosed
	case s.state == domain.StateConnected:
	case s.state.InRoom():
		if s.room != room {
			return ErrRoomConflict
		}
	default:
		return ErrNotConnected
	}

	if err := s.client.EnterRoom(ctx, s.identity.SessionToken, string(room)); err != nil {
		return err
	}

	s.room = room
	s.track = nil
	s.state = domain.StateInRoom
	log.Info().Str("module", "app.session").Str("owner", string(s.owner)).Str("room", string(room)).Msg("joined room")
	s.emit(domain.EventJoined, joinedPayload{UserID: s.identity.UserID})
	return nil
}

// LeaveRoom exits the current room and clears playback. The session
// stays connected.
func (s *Session) LeaveRoom(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == domain.StateClosed {
		return ErrClosed
	}
	if !s.state.InRoom() {
		return ErrNotInRoom
	}

	if err := s.client.ExitRoom(ctx, s.identity.SessionToken, string(s.room)); err != nil {
		return err
	}

	left := s.room
	s.emitTo(left, domain.EventLeft, leftPayload{UserID: s.identity.UserID})
	s.room = ""
	s.track = nil
	s.state = domain.StateConnected
	log.Info().Str("module", "app.session").Str("owner", string(s.owner)).Str("room", string(left)).Msg("left room")
	return nil
}

// Play starts a new track, replacing whatever was playing.
func (s *Session) Play(ctx context.Context, id, title string, durationSeconds int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == domain.StateClosed {
		return ErrClosed
	}
	if !s.state.InRoom() {
		return ErrNotInRoom
	}
	if durationSeconds < 0 {
		durationSeconds = 0
	}

	req := remote.TrackRequest{TrackID: id, Title: title, DurationSeconds: durationSeconds}
	if err := s.client.StartPlayback(ctx, s.identity.SessionToken, string(s.room), req); err != nil {
		return err
	}

	s.track = &domain.Track{
		ID:              id,
		Title:           title,
		DurationSeconds: durationSeconds,
		StartedAt:       time.Now().UTC(),
		State:           domain.PlayStatePlaying,
	}
	s.state = domain.StatePlaying
	log.Info().Str("module", "app.session").Str("owner", string(s.owner)).Str("track", title).Msg("playing")
	s.emit(domain.EventPlaying, trackPayload{TrackID: id, Title: title, DurationSeconds: durationSeconds})
	return nil
}

// Pause pauses the playing track.
func (s *Session) Pause(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == domain.StateClosed {
		return ErrClosed
	}
	if s.state != domain.StatePlaying {
		return ErrNoActiveTrack
	}

	if err := s.client.PausePlayback(ctx, s.identity.SessionToken, string(s.room)); err != nil {
		return err
	}

	s.track.State = domain.PlayStatePaused
	s.state = domain.StatePaused
	s.emit(domain.EventPaused, trackPayload{TrackID: s.track.ID, Title: s.track.Title})
	return nil
}

// Resume continues a paused track. This emits a distinct "resumed"
// event rather than a second "playing": viewers that missed the
// original "playing" still learn the title from the payload.
func (s *Session) Resume(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == domain.StateClosed {
		return ErrClosed
	}
	if s.state != domain.StatePaused {
		return ErrNoActiveTrack
	}

	if err := s.client.ResumePlayback(ctx, s.identity.SessionToken, string(s.room)); err != nil {
		return err
	}

	s.track.State = domain.PlayStatePlaying
	s.state = domain.StatePlaying
	s.emit(domain.EventResumed, trackPayload{TrackID: s.track.ID, Title: s.track.Title})
	return nil
}

// Skip drops the current track. The session goes back to the bare
// in-room state; the platform decides what plays next.
func (s *Session) Skip(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == domain.StateClosed {
		return ErrClosed
	}
	if s.state != domain.StatePlaying && s.state != domain.StatePaused {
		return ErrNoActiveTrack
	}

	if err := s.client.AdvanceTrack(ctx, s.identity.SessionToken, string(s.room)); err != nil {
		return err
	}

	s.track = nil
	s.state = domain.StateInRoom
	s.emit(domain.EventSkipped, nil)
	return nil
}

// SetVolume updates the room volume. The range is validated before the
// remote call so an invalid value never leaves the stored volume, even
// transiently.
func (s *Session) SetVolume(ctx context.Context, volume int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == domain.StateClosed {
		return ErrClosed
	}
	if volume < domain.MinVolume || volume > domain.MaxVolume {
		return ErrInvalidVolume
	}
	if !s.state.InRoom() {
		return ErrNotInRoom
	}

	if err := s.client.SetVolume(ctx, s.identity.SessionToken, string(s.room), volume); err != nil {
		return err
	}

	s.volume = volume
	s.emit(domain.EventVolumeChanged, volumePayload{Volume: volume})
	return nil
}

// SendMessage posts a chat message to the current room.
func (s *Session) SendMessage(ctx context.Context, message string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == domain.StateClosed {
		return ErrClosed
	}
	if !s.state.InRoom() {
		return ErrNotInRoom
	}

	if err := s.client.SendMessage(ctx, s.identity.SessionToken, string(s.room), message); err != nil {
		return err
	}

	s.emit(domain.EventMessage, messagePayload{UserID: s.identity.UserID, Message: message})
	return nil
}

// RoomInfo queries the platform for the current room. Read-only.
func (s *Session) RoomInfo(ctx context.Context) (remote.RoomInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == domain.StateClosed {
		return remote.RoomInfo{}, ErrClosed
	}
	if !s.state.InRoom() {
		return remote.RoomInfo{}, ErrNotInRoom
	}
	return s.client.FetchRoomInfo(ctx, s.identity.SessionToken, string(s.room))
}

// RoomMembers queries the platform for the room's occupants. Read-only.
func (s *Session) RoomMembers(ctx context.Context) ([]remote.RoomMember, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == domain.StateClosed {
		return nil, ErrClosed
	}
	if !s.state.InRoom() {
		return nil, ErrNotInRoom
	}
	return s.client.FetchRoomMembers(ctx, s.identity.SessionToken, string(s.room))
}

// Disconnect tears the session down from any state and never fails the
// caller: the in-room leave and the logout are best-effort, their
// errors are logged and the session always ends Closed so the owner's
// slot can be freed.
func (s *Session) Disconnect(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == domain.StateClosed {
		return
	}

	if s.state.InRoom() {
		if err := s.client.ExitRoom(ctx, s.identity.SessionToken, string(s.room)); err != nil {
			log.Warn().Err(err).Str("module", "app.session").Str("owner", string(s.owner)).Msg("leave room on disconnect")
		} else {
			s.emitTo(s.room, domain.EventLeft, leftPayload{UserID: s.identity.UserID})
		}
	}
	if s.identity != nil {
		if err := s.client.TerminateSession(ctx, s.identity.SessionToken); err != nil {
			log.Warn().Err(err).Str("module", "app.session").Str("owner", string(s.owner)).Msg("logout on disconnect")
		}
	}

	s.identity = nil
	s.room = ""
	s.track = nil
	s.state = domain.StateClosed
	log.Info().Str("module", "app.session").Str("owner", string(s.owner)).Msg("disconnected")
}

// Snapshot returns the caller-visible state. Never fails.
func (s *Session) Snapshot() domain.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := domain.Snapshot{
		Owner:  s.owner,
		State:  s.state,
		Volume: s.volume,
	}
	if s.identity != nil {
		snap.UserID = s.identity.UserID
	}
	if s.room != "" {
		room := s.room
		snap.Room = &room
	}
	if s.track != nil {
		track := *s.track
		snap.Track = &track
	}
	return snap
}

// emit publishes to the session's current room. Called with the mutex
// held, which is what keeps per-room event order equal to emit order.
func (s *Session) emit(kind domain.EventKind, payload any) {
	s.emitTo(s.room, kind, payload)
}

func (s *Session) emitTo(room domain.RoomID, kind domain.EventKind, payload any) {
	if room == "" || s.gateway == nil {
		return
	}
	s.gateway.Publish(room, domain.Event{
		Owner:   s.owner,
		Room:    room,
		Kind:    kind,
		Payload: payload,
		At:      time.Now().UTC(),
	})
}

type joinedPayload struct {
	UserID string `json:"user_id"`
}

type leftPayload struct {
	UserID string `json:"user_id"`
}

type trackPayload struct {
	TrackID         string `json:"track_id"`
	Title           string `json:"title"`
	DurationSeconds int    `json:"duration_seconds,omitempty"`
}

type volumePayload struct {
	Volume int `json:"volume"`
}

type messagePayload struct {
	UserID  string `json:"user_id"`
	Message string `json:"message"`
}
