package http

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/invopop/jsonschema"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/Overlay/internal/adapters/observe"
	"github.com/dkeye/Overlay/internal/app/orch"
	"github.com/dkeye/Overlay/internal/config"
	"github.com/dkeye/Overlay/internal/domain"
)

const (
	sessionHost = "last_host"
	sessionPort = "last_port"
)

// Overlay is the surface presentation talks to. *orch.Orchestrator implements it.
type Overlay interface {
	observe.Source
	Snapshot(ctx context.Context) (orch.Snapshot, error)
	Connect(host string, port int, token string)
	Disconnect()
	Reconnect()
	SendMessage(text string)
	TeleportToPlayer(id domain.PlayerID)
	Deactivate()
}

type connectRequest struct {
	Host  string `json:"host"`
	Port  int    `json:"port"`
	Token string `json:"token"`
}

type messageRequest struct {
	Text string `json:"text"`
}

func genClientToken() string {
	return uuid.NewString()
}

func ClientTokenMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, _ := c.Cookie("ct")
		if token == "" {
			token = genClientToken()
			c.SetCookie("ct", token, 3600*24*7, "/", "", false, true)
		}
		c.Set("client_token", token)
		c.Next()
	}
}

func SetupRouter(ctx context.Context, cfg *config.Config, ov Overlay) *gin.Engine {
	if cfg.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	if cfg.Mode == "debug" {
		r.Use(gin.Logger())
	}
	r.Use(gin.Recovery())

	store := cookie.NewStore([]byte(cfg.Secret))
	r.Use(sessions.Sessions("OverlaySessions", store))
	r.Use(ClientTokenMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	limiter := NewRateLimiter(cfg.Limits.MessageBurst, cfg.Limits.MessageWindow)
	schema := jsonschema.Reflect(&orch.Snapshot{})
	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool { return true },
	}

	api := r.Group("/api")

	read := func(pick func(orch.Snapshot) any) gin.HandlerFunc {
		return func(c *gin.Context) {
			snap, err := ov.Snapshot(c.Request.Context())
			if err != nil {
				log.Warn().Err(err).Str("module", "adapters.http").Str("path", c.FullPath()).Msg("snapshot failed")
				c.JSON(http.StatusServiceUnavailable, gin.H{"error": "state unavailable"})
				return
			}
			c.JSON(http.StatusOK, pick(snap))
		}
	}

	api.GET("/state", read(func(s orch.Snapshot) any { return s }))
	api.GET("/connection", read(func(s orch.Snapshot) any { return s.Connection }))
	api.GET("/roster", read(func(s orch.Snapshot) any { return s.Roster }))
	api.GET("/telemetry", read(func(s orch.Snapshot) any { return s.Telemetry }))
	api.GET("/chat", read(func(s orch.Snapshot) any { return s.Chat }))
	api.GET("/session", read(func(s orch.Snapshot) any { return s.Session }))
	api.GET("/schema", func(c *gin.Context) {
		c.JSON(http.StatusOK, schema)
	})

	api.GET("/connect/last", func(c *gin.Context) {
		s := sessions.Default(c)
		host, _ := s.Get(sessionHost).(string)
		if host == "" {
			c.JSON(http.StatusNotFound, gin.H{"error": "no previous connection"})
			return
		}
		port, _ := s.Get(sessionPort).(int)
		c.JSON(http.StatusOK, gin.H{"host": host, "port": port})
	})

	api.POST("/connect", func(c *gin.Context) {
		var req connectRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid connect request"})
			return
		}
		s := sessions.Default(c)
		s.Set(sessionHost, req.Host)
		s.Set(sessionPort, req.Port)
		if err := s.Save(); err != nil {
			log.Warn().Err(err).Str("module", "adapters.http").Msg("session save failed")
		}
		ov.Connect(req.Host, req.Port, req.Token)
		c.Status(http.StatusAccepted)
	})
	api.POST("/disconnect", func(c *gin.Context) {
		ov.Disconnect()
		c.Status(http.StatusAccepted)
	})
	api.POST("/reconnect", func(c *gin.Context) {
		ov.Reconnect()
		c.Status(http.StatusAccepted)
	})
	api.POST("/deactivate", func(c *gin.Context) {
		ov.Deactivate()
		c.Status(http.StatusAccepted)
	})
	api.POST("/message", func(c *gin.Context) {
		var req messageRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid message"})
			return
		}
		if !limiter.Allow(c.GetString("client_token")) {
			c.JSON(http.StatusTooManyRequests, gin.H{"error": "rate limited"})
			return
		}
		ov.SendMessage(req.Text)
		c.Status(http.StatusAccepted)
	})
	api.POST("/teleport/:id", func(c *gin.Context) {
		id, err := strconv.ParseInt(c.Param("id"), 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid player id"})
			return
		}
		ov.TeleportToPlayer(domain.PlayerID(id))
		c.Status(http.StatusAccepted)
	})

	api.GET("/ws/observe", func(c *gin.Context) {
		sid := c.GetString("client_token")
		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			log.Error().Err(err).Str("module", "adapters.http").Str("sid", sid).Msg("websocket upgrade failed")
			return
		}
		log.Info().Str("module", "adapters.http").Str("sid", sid).Msg("ws observe endpoint hit")
		observe.Serve(ctx, sid+"/"+uuid.NewString()[:8], conn, ov, observe.Options{
			Buffer:     cfg.Observe.Buffer,
			PingPeriod: cfg.Observe.PingPeriod,
		})
	})

	log.Info().Str("module", "adapters.http").Str("mode", cfg.Mode).Msg("router setup")
	return r
}
