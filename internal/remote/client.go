// Package remote wraps the unofficial HTTP surface of the VU platform.
// Every method performs exactly one network exchange, classifies the
// outcome and mutates no state. Retry policy belongs to the deployment,
// not here.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
)

// Credentials are the remote platform login of the end user's bot
// account, not the credentials of our own caller.
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Identity is granted on login and authorizes all room calls.
type Identity struct {
	SessionToken string `json:"sessionId"`
	UserID       string `json:"userId"`
}

// TrackRequest is the playback payload the platform expects.
type TrackRequest struct {
	TrackID         string `json:"videoId"`
	Title           string `json:"title"`
	DurationSeconds int    `json:"duration"`
	Source          string `json:"source"`
}

// RoomInfo is the platform's room description, passed through as-is.
type RoomInfo struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Members int    `json:"members"`
}

// RoomMember is one occupant of a remote room.
type RoomMember struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

// Client is one authenticated connection to the remote platform.
type Client interface {
	Authenticate(ctx context.Context, creds Credentials) (Identity, error)
	EnterRoom(ctx context.Context, token string, room string) error
	ExitRoom(ctx context.Context, token string, room string) error
	StartPlayback(ctx context.Context, token string, room string, track TrackRequest) error
	PausePlayback(ctx context.Context, token string, room string) error
	ResumePlayback(ctx context.Context, token string, room string) error
	AdvanceTrack(ctx context.Context, token string, room string) error
	SetVolume(ctx context.Context, token string, room string, volume int) error
	SendMessage(ctx context.Context, token string, room string, message string) error
	FetchRoomInfo(ctx context.Context, token string, room string) (RoomInfo, error)
	FetchRoomMembers(ctx context.Context, token string, room string) ([]RoomMember, error)
	TerminateSession(ctx context.Context, token string) error
}

// HTTPClient talks to the platform's JSON endpoints. The endpoints are
// unofficial and may change under us; nothing here is guaranteed.
type HTTPClient struct {
	baseURL string
	http    *http.Client
}

func NewHTTPClient(baseURL string, timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
	}
}

func (c *HTTPClient) Authenticate(ctx context.Context, creds Credentials) (Identity, error) {
	var id Identity
	if err := c.call(ctx, http.MethodPost, "/auth/login", "", creds, &id); err != nil {
		return Identity{}, fmt.Errorf("authenticate: %w", err)
	}
	if id.SessionToken == "" {
		return Identity{}, fmt.Errorf("authenticate: empty session token: %w", ErrRemoteRejected)
	}
	log.Debug().Str("module", "remote").Str("user_id", id.UserID).Msg("authenticated")
	return id, nil
}

func (c *HTTPClient) EnterRoom(ctx context.Context, token, room string) error {
	if err := c.call(ctx, http.MethodPost, "/rooms/"+room+"/join", token, nil, nil); err != nil {
		return fmt.Errorf("enter room %s: %w", room, err)
	}
	return nil
}

func (c *HTTPClient) ExitRoom(ctx context.Context, token, room string) error {
	if err := c.call(ctx, http.MethodPost, "/rooms/"+room+"/leave", token, nil, nil); err != nil {
		return fmt.Errorf("exit room %s: %w", room, err)
	}
	return nil
}

func (c *HTTPClient) StartPlayback(ctx context.Context, token, room string, track TrackRequest) error {
	if track.Source == "" {
		track.Source = "youtube"
	}
	if err := c.call(ctx, http.MethodPost, "/rooms/"+room+"/play", token, track, nil); err != nil {
		return fmt.Errorf("start playback: %w", err)
	}
	return nil
}

func (c *HTTPClient) PausePlayback(ctx context.Context, token, room string) error {
	if err := c.call(ctx, http.MethodPost, "/rooms/"+room+"/pause", token, nil, nil); err != nil {
		return fmt.Errorf("pause playback: %w", err)
	}
	return nil
}

func (c *HTTPClient) ResumePlayback(ctx context.Context, token, room string) error {
	if err := c.call(ctx, http.MethodPost, "/rooms/"+room+"/resume", token, nil, nil); err != nil {
		return fmt.Errorf("resume playback: %w", err)
	}
	return nil
}

func (c *HTTPClient) AdvanceTrack(ctx context.Context, token, room string) error {
	if err := c.call(ctx, http.MethodPost, "/rooms/"+room+"/skip", token, nil, nil); err != nil {
		return fmt.Errorf("advance track: %w", err)
	}
	return nil
}

func (c *HTTPClient) SetVolume(ctx context.Context, token, room string, volume int) error {
	body := struct {
		Volume int `json:"volume"`
	}{volume}
	if err := c.call(ctx, http.MethodPost, "/rooms/"+room+"/volume", token, body, nil); err != nil {
		return fmt.Errorf("set volume: %w", err)
	}
	return nil
}

func (c *HTTPClient) SendMessage(ctx context.Context, token, room, message string) error {
	body := struct {
		Message string `json:"message"`
	}{message}
	if err := c.call(ctx, http.MethodPost, "/rooms/"+room+"/message", token, body, nil); err != nil {
		return fmt.Errorf("send message: %w", err)
	}
	return nil
}

func (c *HTTPClient) FetchRoomInfo(ctx context.Context, token, room string) (RoomInfo, error) {
	var info RoomInfo
	if err := c.call(ctx, http.MethodGet, "/rooms/"+room, token, nil, &info); err != nil {
		return RoomInfo{}, fmt.Errorf("fetch room info: %w", err)
	}
	return info, nil
}

func (c *HTTPClient) FetchRoomMembers(ctx context.Context, token, room string) ([]RoomMember, error) {
	var resp struct {
		Users []RoomMember `json:"users"`
	}
	if err := c.call(ctx, http.MethodGet, "/rooms/"+room+"/users", token, nil, &resp); err != nil {
		return nil, fmt.Errorf("fetch room members: %w", err)
	}
	return resp.Users, nil
}

func (c *HTTPClient) TerminateSession(ctx context.Context, token string) error {
	if err := c.call(ctx, http.MethodPost, "/auth/logout", token, nil, nil); err != nil {
		return fmt.Errorf("terminate session: %w", err)
	}
	return nil
}

// call performs one JSON exchange. out may be nil when the response
// body does not matter.
func (c *HTTPClient) call(ctx context.Context, method, path, token string, in, out any) error {
	var body *bytes.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(b)
	} else {
		body = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return classifyTransport(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return classifyStatus(resp.StatusCode)
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response: %w", ErrRemoteRejected)
		}
	}
	return nil
}

func classifyTransport(err error) error {
	var netErr net.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%v: %w", err, ErrTimeout)
	case errors.As(err, &netErr) && netErr.Timeout():
		return fmt.Errorf("%v: %w", err, ErrTimeout)
	default:
		return fmt.Errorf("%v: %w", err, ErrRemoteUnavailable)
	}
}

func classifyStatus(code int) error {
	switch {
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return fmt.Errorf("status %d: %w", code, ErrAuthFailure)
	case code == http.StatusNotFound:
		return fmt.Errorf("status %d: %w", code, ErrNotFound)
	case code == http.StatusRequestTimeout:
		return fmt.Errorf("status %d: %w", code, ErrTimeout)
	case code >= 500:
		return fmt.Errorf("status %d: %w", code, ErrRemoteUnavailable)
	default:
		return fmt.Errorf("status %d: %w", code, ErrRemoteRejected)
	}
}
