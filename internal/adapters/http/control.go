package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/kellyg78/vu-music-sala/internal/app"
	"github.com/kellyg78/vu-music-sala/internal/domain"
	"github.com/kellyg78/vu-music-sala/internal/remote"
	"github.com/kellyg78/vu-music-sala/internal/search"
)

// Controller maps authenticated control requests onto the session
// registry and maps typed errors back to status codes. It holds no
// state of its own.
type Controller struct {
	Registry *app.Registry
	Search   search.Provider
}

func owner(c *gin.Context) domain.OwnerID {
	return domain.OwnerID(c.GetString("owner"))
}

// session resolves the caller's live session or answers 404.
func (ctl *Controller) session(c *gin.Context) (*app.Session, bool) {
	sess, ok := ctl.Registry.Get(owner(c))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "no active connection"})
		return nil, false
	}
	return sess, true
}

// fail translates errors that were not mapped to a route-specific code.
func fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, remote.ErrAuthFailure):
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
	case errors.Is(err, remote.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, remote.ErrRemoteUnavailable), errors.Is(err, remote.ErrTimeout):
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	}
}

func (ctl *Controller) Connect(c *gin.Context) {
	var req struct {
		Username string `json:"vuUsername"`
		Password string `json:"vuPassword"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.Username == "" || req.Password == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "vuUsername and vuPassword required"})
		return
	}

	sess, err := ctl.Registry.Connect(c.Request.Context(), owner(c), remote.Credentials{
		Username: req.Username,
		Password: req.Password,
	})
	if err != nil {
		if errors.Is(err, app.ErrAlreadyConnected) {
			c.JSON(http.StatusConflict, gin.H{"error": "connection already active"})
			return
		}
		log.Warn().Err(err).Str("module", "adapters.http").Str("owner", string(owner(c))).Msg("connect failed")
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "connected", "status": sess.Snapshot()})
}

// Disconnect always succeeds: the caller must be able to free the slot
// even when the remote side is gone.
func (ctl *Controller) Disconnect(c *gin.Context) {
	ctl.Registry.Disconnect(c.Request.Context(), owner(c))
	c.JSON(http.StatusOK, gin.H{"message": "disconnected"})
}

func (ctl *Controller) JoinRoom(c *gin.Context) {
	var req struct {
		RoomID string `json:"roomId"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.RoomID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "roomId required"})
		return
	}

	sess, ok := ctl.session(c)
	if !ok {
		return
	}

	if err := sess.JoinRoom(c.Request.Context(), domain.RoomID(req.RoomID)); err != nil {
		switch {
		case errors.Is(err, app.ErrRoomConflict):
			c.JSON(http.StatusConflict, gin.H{"error": "leave the current room first"})
		case errors.Is(err, app.ErrNotConnected), errors.Is(err, app.ErrClosed):
			c.JSON(http.StatusNotFound, gin.H{"error": "no active connection"})
		default:
			fail(c, err)
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "joined room", "status": sess.Snapshot()})
}

func (ctl *Controller) LeaveRoom(c *gin.Context) {
	sess, ok := ctl.session(c)
	if !ok {
		return
	}

	if err := sess.LeaveRoom(c.Request.Context()); err != nil {
		if errors.Is(err, app.ErrNotInRoom) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "not in a room"})
			return
		}
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "left room", "status": sess.Snapshot()})
}

func (ctl *Controller) Play(c *gin.Context) {
	var req struct {
		TrackID  string `json:"trackId"`
		Title    string `json:"title"`
		Duration int    `json:"duration"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.TrackID == "" || req.Title == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "trackId and title required"})
		return
	}

	sess, ok := ctl.session(c)
	if !ok {
		return
	}

	if err := sess.Play(c.Request.Context(), req.TrackID, req.Title, req.Duration); err != nil {
		if errors.Is(err, app.ErrNotInRoom) {
			c.JSON(http.StatusNotFound, gin.H{"error": "not in a room"})
			return
		}
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "playing track", "status": sess.Snapshot()})
}

func (ctl *Controller) Pause(c *gin.Context) {
	ctl.playbackOp(c, "paused track", (*app.Session).Pause)
}

func (ctl *Controller) Resume(c *gin.Context) {
	ctl.playbackOp(c, "resumed track", (*app.Session).Resume)
}

func (ctl *Controller) Skip(c *gin.Context) {
	ctl.playbackOp(c, "skipped track", (*app.Session).Skip)
}

// playbackOp covers the three no-payload playback transitions, which
// share their failure mapping.
func (ctl *Controller) playbackOp(c *gin.Context, message string, op func(*app.Session, context.Context) error) {
	sess, ok := ctl.session(c)
	if !ok {
		return
	}

	if err := op(sess, c.Request.Context()); err != nil {
		if errors.Is(err, app.ErrNoActiveTrack) || errors.Is(err, app.ErrNotInRoom) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": message, "status": sess.Snapshot()})
}

func (ctl *Controller) Volume(c *gin.Context) {
	var req struct {
		Volume *int `json:"volume"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.Volume == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "volume required"})
		return
	}

	sess, ok := ctl.session(c)
	if !ok {
		return
	}

	if err := sess.SetVolume(c.Request.Context(), *req.Volume); err != nil {
		if errors.Is(err, app.ErrInvalidVolume) || errors.Is(err, app.ErrNotInRoom) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "volume changed", "status": sess.Snapshot()})
}

func (ctl *Controller) Message(c *gin.Context) {
	var req struct {
		Message string `json:"message"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.Message == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "message required"})
		return
	}

	sess, ok := ctl.session(c)
	if !ok {
		return
	}

	if err := sess.SendMessage(c.Request.Context(), req.Message); err != nil {
		if errors.Is(err, app.ErrNotInRoom) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "not in a room"})
			return
		}
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "message sent"})
}

// Status never fails: an absent session just reports connected=false.
func (ctl *Controller) Status(c *gin.Context) {
	sess, ok := ctl.Registry.Get(owner(c))
	if !ok {
		c.JSON(http.StatusOK, gin.H{"connected": false})
		return
	}
	c.JSON(http.StatusOK, gin.H{"connected": true, "status": sess.Snapshot()})
}

func (ctl *Controller) RoomInfo(c *gin.Context) {
	sess, ok := ctl.session(c)
	if !ok {
		return
	}

	info, err := sess.RoomInfo(c.Request.Context())
	if err != nil {
		if errors.Is(err, app.ErrNotInRoom) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "not in a room"})
			return
		}
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, info)
}

func (ctl *Controller) RoomUsers(c *gin.Context) {
	sess, ok := ctl.session(c)
	if !ok {
		return
	}

	users, err := sess.RoomMembers(c.Request.Context())
	if err != nil {
		if errors.Is(err, app.ErrNotInRoom) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "not in a room"})
			return
		}
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"users": users})
}

func (ctl *Controller) SearchTracks(c *gin.Context) {
	query := c.Query("q")
	if query == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "q required"})
		return
	}

	results, err := ctl.Search.Search(c.Request.Context(), query)
	if err != nil {
		log.Warn().Err(err).Str("module", "adapters.http").Msg("search failed")
		c.JSON(http.StatusBadGateway, gin.H{"error": "search unavailable"})
		return
	}
	c.JSON(http.StatusOK, results)
}
