package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/streamvault/streamvault/internal/api/handler"
	"github.com/streamvault/streamvault/internal/api/middleware"
	"github.com/streamvault/streamvault/internal/config"
	"github.com/streamvault/streamvault/internal/randomness"
	"github.com/streamvault/streamvault/internal/repository"
	"github.com/streamvault/streamvault/internal/service"
	"github.com/streamvault/streamvault/internal/ws"
)

// RouterDeps bundles every dependency needed to build the router.
// Populated once in main() and passed to SetupRouter.
type RouterDeps struct {
	AuthSvc       *service.AuthService
	StreamSvc     *service.StreamService
	MarketSvc     *service.MarketEngineService
	ResolutionSvc *service.ResolutionService
	Oracle        *randomness.HTTPOracle
	UserRepo      *repository.UserRepository
	Hub           *ws.Hub
	Cfg           *config.Config
}

// SetupRouter creates and configures the main Gin engine with all routes,
// middleware, CORS, and rate limiting rules.
func SetupRouter(deps RouterDeps) *gin.Engine {
	if deps.Cfg.IsProd() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Logger())
	r.Use(gin.Recovery())

	// ── CORS ─────────────────────────────────────────────────────────────────
	r.Use(corsMiddleware(deps.Cfg))

	// ── Health check ─────────────────────────────────────────────────────────
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// ── Handlers ─────────────────────────────────────────────────────────────
	userH := handler.NewUserHandler(deps.AuthSvc, deps.UserRepo)
	streamH := handler.NewStreamHandler(deps.StreamSvc)
	marketH := handler.NewMarketHandler(deps.MarketSvc)
	resolutionH := handler.NewResolutionHandler(deps.ResolutionSvc, deps.Oracle)

	// ── JWT middleware (shared) ───────────────────────────────────────────────
	jwtMW := middleware.JWTMiddleware(deps.AuthSvc)

	// ── Rate limiters ─────────────────────────────────────────────────────────
	authRL := middleware.RateLimitMiddleware(10)   // 10 req/s per IP for auth endpoints
	marketRL := middleware.RateLimitMiddleware(30) // 30 req/s per IP for authenticated market routes

	api := r.Group("/api")
	{
		// ── Auth (public, strict rate limit) ─────────────────────────────────
		auth := api.Group("/auth")
		auth.Use(authRL)
		{
			auth.POST("/register", userH.Register)
			auth.POST("/login", userH.Login)
			auth.POST("/refresh", userH.Refresh)
		}

		// ── Markets (public reads) ────────────────────────────────────────────
		markets := api.Group("/markets")
		{
			markets.GET("/:id", marketH.GetByID)
			markets.GET("/:id/odds", marketH.GetOdds)
		}

		// ── Authenticated routes ──────────────────────────────────────────────
		authed := api.Group("")
		authed.Use(jwtMW)
		{
			// Profile
			authed.GET("/me", userH.Me)

			// Streams
			streams := authed.Group("/streams")
			{
				streams.POST("", streamH.Initialize)
				streams.GET("/mine", streamH.ListMine)
				streams.GET("/:id", streamH.GetByID)
				streams.POST("/:id/start", streamH.StartStream)
				streams.POST("/:id/deposit", streamH.Deposit)
				streams.POST("/:id/distribute", streamH.Distribute)
				streams.POST("/:id/refund", streamH.Refund)
				streams.POST("/:id/complete", streamH.CompleteStream)
				streams.POST("/:id/update", streamH.UpdateStream)
			}

			// Markets (mutating + position endpoints)
			authedMarkets := authed.Group("/markets")
			authedMarkets.Use(marketRL)
			{
				authedMarkets.POST("", marketH.InitializeBettingMarket)
				authedMarkets.POST("/:id/bets", marketH.PlaceBet)
				authedMarkets.POST("/:id/claim", marketH.ClaimWinnings)
				authedMarkets.GET("/:id/position", marketH.GetMyPosition)
				authedMarkets.POST("/:id/resolution", resolutionH.RequestResolution)
				authedMarkets.POST("/:id/resolution/override", resolutionH.OverrideResolution)
			}

			// Positions
			authed.GET("/positions/mine", marketH.GetMyPositions)
		}
	}

	// ── Oracle callback (public, signature-verified in-handler) ──────────────
	r.POST("/v1/randomness/callback", resolutionH.HandleCallback)

	// ── Live-update WebSocket (public upgrade, optional JWT via ?token=) ──────
	if deps.Hub != nil {
		r.GET("/ws", func(c *gin.Context) {
			deps.Hub.ServeWs(c.Writer, c.Request)
		})
	}

	return r
}

// ── CORS helper ───────────────────────────────────────────────────────────────

// corsMiddleware returns a gin middleware that sets appropriate CORS headers.
// In development all origins are allowed; in production only origins listed
// in Server.AllowedOrigins.
func corsMiddleware(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")

		if !cfg.IsProd() {
			c.Header("Access-Control-Allow-Origin", "*")
		} else if origin != "" {
			allowed := make(map[string]bool, len(cfg.Server.AllowedOrigins))
			for _, o := range cfg.Server.AllowedOrigins {
				allowed[o] = true
			}
			if allowed[origin] {
				c.Header("Access-Control-Allow-Origin", origin)
			}
		}

		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Authorization, Content-Type, X-Request-ID")
		c.Header("Access-Control-Max-Age", "86400")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
