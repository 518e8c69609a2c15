package http

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/kellyg78/vu-music-sala/internal/adapters/ws"
	"github.com/kellyg78/vu-music-sala/internal/app"
	"github.com/kellyg78/vu-music-sala/internal/auth"
	"github.com/kellyg78/vu-music-sala/internal/broadcast"
	"github.com/kellyg78/vu-music-sala/internal/config"
	"github.com/kellyg78/vu-music-sala/internal/search"
)

// ClientTokenMiddleware tags every browser with a stable viewer token.
// Viewers watching a room over the websocket need no account, same as
// the cookie tokens the login-less UI used.
func ClientTokenMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, _ := c.Cookie("ct")
		if token == "" {
			token = uuid.NewString()
			c.SetCookie("ct", token, 3600*24*7, "/", "", false, true)
		}
		c.Set("client_token", token)
		c.Next()
	}
}

// AuthMiddleware resolves the bearer token to the caller identity and
// aborts with 401 otherwise. Control operations all require it.
func AuthMiddleware(a auth.Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token, _ := strings.CutPrefix(header, "Bearer ")
		owner, err := a.Resolve(strings.TrimSpace(token))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid or missing token"})
			return
		}
		c.Set("owner", string(owner))
		c.Next()
	}
}

func SetupRouter(
	ctx context.Context,
	cfg *config.Config,
	registry *app.Registry,
	gateway *broadcast.Gateway,
	authn auth.Authenticator,
	provider search.Provider,
) *gin.Engine {
	if cfg.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	if cfg.Mode == "debug" {
		r.Use(gin.Logger())
	}
	r.Use(gin.Recovery())

	store := cookie.NewStore([]byte(cfg.Secret))
	r.Use(sessions.Sessions("SalaSessions", store))
	r.Use(ClientTokenMiddleware())

	log.Info().Str("module", "adapters.http").Str("mode", cfg.Mode).Msg("router setup")

	ctl := &Controller{Registry: registry, Search: provider}

	api := r.Group("/api/vu", AuthMiddleware(authn))
	api.POST("/connect", ctl.Connect)
	api.POST("/disconnect", ctl.Disconnect)
	api.POST("/join-room", ctl.JoinRoom)
	api.POST("/leave-room", ctl.LeaveRoom)
	api.POST("/play", ctl.Play)
	api.POST("/pause", ctl.Pause)
	api.POST("/resume", ctl.Resume)
	api.POST("/skip", ctl.Skip)
	api.POST("/volume", ctl.Volume)
	api.POST("/message", ctl.Message)
	api.GET("/status", ctl.Status)
	api.GET("/room-info", ctl.RoomInfo)
	api.GET("/room-users", ctl.RoomUsers)

	r.GET("/api/search", AuthMiddleware(authn), ctl.SearchTracks)

	// One controller for every viewer connection, so the join rate limit
	// tracks the client token across reconnects.
	viewer := ws.NewViewerController(gateway, cfg)
	r.GET("/api/ws", func(c *gin.Context) {
		log.Info().Str("module", "adapters.http").Str("viewer", c.GetString("client_token")).Msg("ws endpoint hit")
		viewer.Handle(ctx, c)
	})

	return r
}
