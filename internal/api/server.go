package api

import (
	"context"
	"net/http"
	"time"

	"ovation/internal/config"
	"ovation/internal/handlers"
	"ovation/internal/middleware"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Server is the HTTP front of the reservation system.
type Server struct {
	httpServer *http.Server
	router     *gin.Engine
}

func NewServer(cfg *config.Config, handler *handlers.Handler) *Server {
	gin.SetMode(cfg.GinMode)

	router := gin.New()
	router.Use(middleware.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.Logger())
	router.Use(middleware.Metrics())
	router.Use(middleware.CORS())

	router.GET("/health", handler.Health)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	apiGroup := router.Group("/api")
	{
		apiGroup.POST("/holds", handler.AcquireHold)
		apiGroup.PATCH("/holds/release", handler.ReleaseHold)
		apiGroup.GET("/availability", handler.Availability)

		apiGroup.POST("/orders", handler.Checkout)
		apiGroup.GET("/orders/:id", handler.GetOrder)

		apiGroup.POST("/payments/notifications", handler.PaymentNotification)
		apiGroup.GET("/payments/success", handler.PaymentSuccess)
		apiGroup.GET("/payments/fail", handler.PaymentFail)

		apiGroup.POST("/checkin", handler.Checkin)

		apiGroup.POST("/events", handler.CreateEvent)
		apiGroup.GET("/events", handler.ListEvents)
		apiGroup.GET("/events/:id", handler.GetEvent)
		apiGroup.GET("/events/:id/units", handler.ListEventUnits)
	}

	return &Server{
		httpServer: &http.Server{
			Addr:         ":" + cfg.Port,
			Handler:      router,
			ReadTimeout:  cfg.RequestTimeout,
			WriteTimeout: cfg.RequestTimeout,
			IdleTimeout:  60 * time.Second,
		},
		router: router,
	}
}

// Router exposes the engine for tests.
func (s *Server) Router() *gin.Engine {
	return s.router
}

func (s *Server) Start() error {
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
