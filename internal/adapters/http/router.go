package http

import (
	"context"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/peerchess/internal/adapters/signal"
	"github.com/dkeye/peerchess/internal/app/orch"
	"github.com/dkeye/peerchess/internal/config"
)

func genClientToken() string {
	idStr := uuid.NewString()
	return idStr
}

// ClientTokenMiddleware keeps a stable browser id in the signed session cookie.
func ClientTokenMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		session := sessions.Default(c)
		token, _ := session.Get("ct").(string)
		if token == "" {
			token = genClientToken()
			session.Set("ct", token)
			if err := session.Save(); err != nil {
				log.Warn().Err(err).Str("module", "adapters.http").Msg("session save")
			}
		}
		c.Set("client_token", token)
		c.Next()
	}
}

func SetupRouter(ctx context.Context, cfg *config.Config, sess *orch.Session) *gin.Engine {
	if cfg.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	if cfg.Mode == "debug" {
		r.Use(gin.Logger())
	}
	r.Use(gin.Recovery())

	store := cookie.NewStore([]byte(cfg.Secret))
	r.Use(sessions.Sessions("PeerChessSessions", store))
	r.Use(ClientTokenMiddleware())

	r.Static("/static", cfg.StaticPath)
	r.GET("/", func(c *gin.Context) {
		c.File(cfg.StaticPath + "/index.html")
	})

	log.Info().Str("module", "adapters.http").Str("static", cfg.StaticPath).Msg("router setup")

	h := &handlers{sess: sess}
	ctrl := signal.NewSignalWSController(sess, cfg)

	api := r.Group("/api")
	api.GET("/state", h.state)

	session := api.Group("/session")
	session.POST("/offer", h.offer)
	session.POST("/answer", h.answer)
	session.POST("/complete", h.complete)
	session.POST("/reset", h.reset)

	api.POST("/move", h.move)
	api.POST("/chat", h.chat)
	api.POST("/locator", h.locator)
	api.POST("/pgn", h.pgn)
	api.POST("/history/back", h.back)
	api.POST("/history/forward", h.forward)
	api.POST("/game/new", h.newGame)
	api.POST("/game/undo", h.undo)

	api.GET("/ws/events", func(c *gin.Context) {
		log.Info().Str("module", "adapters.http").Str("sid", c.GetString("client_token")).Msg("ws events endpoint hit")
		ctrl.HandleSignal(ctx, c)
	})

	return r
}
