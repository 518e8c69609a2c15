package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/kellyg78/vu-music-sala/internal/broadcast"
	"github.com/kellyg78/vu-music-sala/internal/config"
	"github.com/kellyg78/vu-music-sala/internal/domain"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// ViewerController serves the viewer websocket. One instance is shared
// by all connections; the rate limiter spans reconnects of the same
// client token.
type ViewerController struct {
	gateway *broadcast.Gateway
	limiter *RateLimiter

	readLimit  int64
	pingPeriod time.Duration
}

func NewViewerController(gateway *broadcast.Gateway, cfg *config.Config) *ViewerController {
	return &ViewerController{
		gateway:    gateway,
		limiter:    NewRateLimiter(10, time.Second),
		readLimit:  cfg.ReadLimit,
		pingPeriod: cfg.PingPeriod,
	}
}

func (ctl *ViewerController) Handle(ctx context.Context, c *gin.Context) {
	token := c.GetString("client_token")

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Err(err).Str("module", "adapters.ws").Msg("ws upgrade")
		return
	}
	log.Info().Str("module", "adapters.ws").Str("viewer", token).Msg("viewer connected")

	viewer := newViewerConn(conn)
	ctx, cancel := context.WithCancel(ctx)
	// ReadMessage never observes ctx; closing the conn is what unblocks
	// the read loop on shutdown.
	context.AfterFunc(ctx, viewer.Close)

	go ctl.writePump(ctx, viewer)
	go func() {
		defer cancel()
		ctl.readPump(ctx, token, viewer)
	}()
}

func (ctl *ViewerController) writePump(ctx context.Context, c *ViewerConn) {
	ticker := time.NewTicker(ctl.pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case data, ok := <-c.send:
			if !ok {
				return
			}
			if err := c.conn.SetWriteDeadline(time.Now().Add(5 * time.Second)); err != nil {
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Debug().Err(err).Str("module", "adapters.ws").Msg("writePump write error")
				return
			}
		case <-ticker.C:
			if err := c.conn.SetWriteDeadline(time.Now().Add(5 * time.Second)); err != nil {
				return
			}
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (ctl *ViewerController) readPump(ctx context.Context, token string, c *ViewerConn) {
	defer func() {
		if room := c.currentRoom(); room != "" {
			ctl.gateway.Unsubscribe(room, c)
		}
		c.Close()
		log.Info().Str("module", "adapters.ws").Str("viewer", token).Msg("viewer disconnected")
	}()

	c.conn.SetReadLimit(ctl.readLimit)

	for {
		select {
		case <-ctx.Done():
			return
		default:
			_, data, err := c.conn.ReadMessage()
			if err != nil {
				return
			}
			ctl.handle(token, c, data)
		}
	}
}

func (ctl *ViewerController) handle(token string, c *ViewerConn, data []byte) {
	var env struct {
		Type string `json:"type"`
		Room string `json:"room"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		ctl.sendError(c, "bad_payload")
		return
	}

	switch env.Type {
	case "join":
		if !ctl.limiter.Allow(token) {
			ctl.sendError(c, "too_many_requests")
			return
		}
		if env.Room == "" {
			ctl.sendError(c, "room required")
			return
		}
		room := domain.RoomID(env.Room)
		if prev := c.setRoom(room); prev != "" && prev != room {
			ctl.gateway.Unsubscribe(prev, c)
		}
		ctl.gateway.Subscribe(room, c)
		ctl.ack(c, "joined", env.Room)
		log.Info().Str("module", "adapters.ws").Str("viewer", token).Str("room", env.Room).Msg("viewer joined room")
	case "leave":
		if prev := c.setRoom(""); prev != "" {
			ctl.gateway.Unsubscribe(prev, c)
		}
		ctl.ack(c, "left", "")
	case "ping":
		ctl.ack(c, "pong", "")
	default:
		log.Warn().Str("module", "adapters.ws").Str("type", env.Type).Msg("unknown message")
	}
}

func (ctl *ViewerController) ack(c *ViewerConn, kind, room string) {
	b, err := json.Marshal(struct {
		Type string `json:"type"`
		Room string `json:"room,omitempty"`
	}{kind, room})
	if err != nil {
		return
	}
	_ = c.enqueue(b)
}

func (ctl *ViewerController) sendError(c *ViewerConn, msg string) {
	b, err := json.Marshal(struct {
		Type  string `json:"type"`
		Error string `json:"error"`
	}{"error", msg})
	if err != nil {
		return
	}
	_ = c.enqueue(b)
}
