package api

import (
	"context"
	"fmt"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	db "github.com/minhvu/taskhive-BE/internal/db/sqlc"
	"github.com/minhvu/taskhive-BE/internal/hub"
	"github.com/minhvu/taskhive-BE/internal/notification"
	"github.com/minhvu/taskhive-BE/internal/token"
	"github.com/minhvu/taskhive-BE/internal/util"
	"github.com/minhvu/taskhive-BE/internal/worker"
	"github.com/rs/zerolog/log"
)

// Reconciler is the operational entry point for on-demand reconciliation.
type Reconciler interface {
	Reconcile(ctx context.Context) (int, error)
}

type Server struct {
	router          *gin.Engine
	dbStore         db.Store
	tokenMaker      token.Maker
	config          *util.Config
	registry        *hub.Registry
	notifier        *notification.Service
	reconciler      Reconciler
	taskDistributor worker.TaskDistributor
	taskInspector   worker.TaskInspector
}

// NewServer creates a new HTTP server and set up routing.
func NewServer(store db.Store, registry *hub.Registry, notifier *notification.Service, reconciler Reconciler, taskDistributor worker.TaskDistributor, taskInspector worker.TaskInspector, config *util.Config) (*Server, error) {
	// Create a new JWT token maker
	tokenMaker, err := token.NewJWTMaker(config.TokenSecretKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create token maker: %w", err)
	}
	log.Info().Msg("Token maker created successfully ✅")

	server := &Server{
		dbStore:         store,
		tokenMaker:      tokenMaker,
		config:          config,
		registry:        registry,
		notifier:        notifier,
		reconciler:      reconciler,
		taskDistributor: taskDistributor,
		taskInspector:   taskInspector,
	}

	server.setupRouter()
	return server, nil
}

// setupRouter configures the HTTP server routes.
func (server *Server) setupRouter() *gin.Engine {
	gin.ForceConsoleColor()
	router := gin.Default()
	router.Use(cors.New(cors.Config{
		AllowOrigins:     server.config.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE"},
		AllowHeaders:     []string{"Origin", "Content-Length", "Content-Type", "Authorization"},
		AllowCredentials: true,
	}))

	v1 := router.Group("/v1")

	// Real-time channel. Token rides a query parameter because browsers
	// cannot set headers on a WebSocket handshake.
	v1.GET("/channels/:channelID/ws", server.serveChannelSocket)

	authorized := v1.Group("")
	authorized.Use(authMiddleware(server.tokenMaker))

	notificationGroup := authorized.Group("/notifications")
	{
		notificationGroup.POST("", server.createNotification)
		notificationGroup.PATCH(":id/read", server.markNotificationRead)
	}

	meGroup := authorized.Group("/users/me")
	{
		meGroup.GET("/notifications", server.listMyNotifications)
		meGroup.GET("/notifications/unread-count", server.countMyUnreadNotifications)
	}

	opsGroup := authorized.Group("/ops")
	{
		opsGroup.POST("/reconcile", server.runReconciliation)
		opsGroup.GET("/tasks/:queue/:id", server.getTaskInfo)
		opsGroup.DELETE("/tasks/:queue/:id", server.deleteTask)
	}

	server.router = router
	return router
}

// Start runs the HTTP server on a specific address.
func (server *Server) Start(address string) error {
	return server.router.Run(address)
}
