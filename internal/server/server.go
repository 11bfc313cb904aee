package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/gravadigital/wishdraw-api/internal/auth"
	"github.com/gravadigital/wishdraw-api/internal/config"
	"github.com/gravadigital/wishdraw-api/internal/domain/draw"
	"github.com/gravadigital/wishdraw-api/internal/handlers"
	"github.com/gravadigital/wishdraw-api/internal/logger"
	authmw "github.com/gravadigital/wishdraw-api/internal/middleware/auth"
	"github.com/gravadigital/wishdraw-api/internal/middleware/requestlog"
	"github.com/gravadigital/wishdraw-api/internal/response"
	"github.com/gravadigital/wishdraw-api/internal/services"
	"github.com/gravadigital/wishdraw-api/internal/storage/objects"
)

// Dependencies are the collaborators the routes are wired to
type Dependencies struct {
	Store        draw.Store
	Draws        *draw.Service
	Participants *services.ParticipantService
	Tokens       *auth.TokenIssuer
	Exporter     objects.Exporter // optional
}

// Server represents the HTTP server
type Server struct {
	httpServer *http.Server
	config     *config.Config
	deps       Dependencies
}

// New creates a new server instance with its routes already built
func New(cfg *config.Config, deps Dependencies) *Server {
	s := &Server{
		config: cfg,
		deps:   deps,
	}
	s.httpServer = &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: s.Router(),

		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Start serves HTTP and blocks until the server stops. It returns nil
// after Stop, even when Stop ran first.
func (s *Server) Start() error {
	logger.Get().Info("Starting HTTP server", "port", s.config.Server.Port, "draw_mode", s.deps.Draws.Mode())

	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start server: %w", err)
	}
	return nil
}

// Stop gracefully stops the HTTP server
func (s *Server) Stop(ctx context.Context) error {
	logger.Get().Info("Shutting down HTTP server...")
	return s.httpServer.Shutdown(ctx)
}

// Router builds the gin engine with middleware and routes
func (s *Server) Router() *gin.Engine {
	switch {
	case s.config.Server.GinMode != "":
		gin.SetMode(s.config.Server.GinMode)
	case s.config.IsProduction():
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestlog.New(logger.HTTP()))

	corsConfig := cors.DefaultConfig()
	origins := s.config.AllowOrigins()
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		corsConfig.AllowAllOrigins = true
	} else {
		corsConfig.AllowOrigins = origins
		corsConfig.AllowCredentials = true
	}
	if methods := s.config.AllowMethods(); len(methods) > 0 {
		corsConfig.AllowMethods = methods
	}
	if headers := s.config.AllowHeaders(); len(headers) > 0 {
		corsConfig.AllowHeaders = headers
	}
	corsConfig.ExposeHeaders = []string{"Content-Disposition", requestlog.HeaderRequestID}
	router.Use(cors.New(corsConfig))

	authHandler := handlers.NewAuthHandler(s.deps.Participants)
	wishlistHandler := handlers.NewWishlistHandler(s.deps.Draws, s.deps.Exporter)

	router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "Wishdraw API is running",
			"status":  "healthy",
		})
	})
	router.GET("/health", s.health)

	s.setupAPIRoutes(router, authHandler, wishlistHandler)
	return router
}

func (s *Server) setupAPIRoutes(
	router *gin.Engine,
	authHandler *handlers.AuthHandler,
	wishlistHandler *handlers.WishlistHandler,
) {
	requireParticipant := authmw.RequireParticipant(s.deps.Tokens)

	authRoutes := router.Group("/auth")
	{
		authRoutes.POST("/signup", authHandler.Signup)
		authRoutes.POST("/login", authHandler.Login)
		authRoutes.GET("/me", requireParticipant, authHandler.Me)
	}

	wishlist := router.Group("/wishlist", requireParticipant)
	{
		wishlist.POST("/submit", wishlistHandler.Submit)
		wishlist.GET("/pick", wishlistHandler.List)
		wishlist.POST("/pick", wishlistHandler.Pick)
		wishlist.GET("/pick/export", wishlistHandler.Export)
		wishlist.GET("/stats", wishlistHandler.Stats)
	}
}

func (s *Server) health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()

	if err := s.deps.Store.Health(ctx); err != nil {
		logger.HTTP().Warn("Health check failed", "error", err)
		response.ServiceUnavailableError(c, "storage unavailable")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"draw_mode": s.deps.Draws.Mode(),
	})
}
