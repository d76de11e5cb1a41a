package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/JoaoGrandizoli/calculadora-consorcio-contrato-v4/config"
	"github.com/JoaoGrandizoli/calculadora-consorcio-contrato-v4/handler"
	"github.com/JoaoGrandizoli/calculadora-consorcio-contrato-v4/middleware"
	"github.com/JoaoGrandizoli/calculadora-consorcio-contrato-v4/model"
	"github.com/JoaoGrandizoli/calculadora-consorcio-contrato-v4/pkg/logger"
	"github.com/JoaoGrandizoli/calculadora-consorcio-contrato-v4/service"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

func main() {
	// Load configuration
	cfg, err := config.Load("config.yaml")
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// Initialize logger
	logger.Init(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
	})

	slog.Info("configuration loaded successfully")

	// Initialize services
	store := service.NewCredentialStore(&cfg.Store, cfg.Reconcile.GrantTTL())
	defer store.Close()
	if !store.Available() {
		slog.Warn("running without durable credential store, access will not survive restarts")
	}

	denylist := model.Denylist{
		Names:    cfg.Denylist.Names,
		Prefixes: cfg.Denylist.Prefixes,
	}

	leadsSvc := service.NewLeadsService(&cfg.Backend)
	validatorSvc := service.NewValidatorService(&cfg.Backend)
	scorer := service.NewLeadScorer(&cfg.Reconcile, denylist)
	reconciler := service.NewReconciler(&cfg.Reconcile, leadsSvc, scorer, validatorSvc, store, denylist)
	simulatorSvc := service.NewSimulatorService(&cfg.Backend, store)
	gate := service.NewAdminGate(service.NewPasswordChecker(&cfg.Admin), store)

	// Initialize handlers
	accessHandler := handler.NewAccessHandler(reconciler, simulatorSvc, store)
	adminHandler := handler.NewAdminHandler(gate, leadsSvc, &cfg.Admin)

	// Setup Gin router
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()

	router.Use(middleware.RequestID())
	router.Use(middleware.Recovery())
	router.Use(middleware.RequestLogger())
	router.Use(corsMiddleware(&cfg.CORS))
	router.Use(middleware.RateLimit(100, time.Minute))

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "ok",
			"timestamp": time.Now().Format(time.RFC3339),
		})
	})

	// Public routes
	api := router.Group("/api")
	{
		api.POST("/access/submitted", accessHandler.Submitted)
		api.GET("/access/status", accessHandler.Status)
		api.POST("/access/logout", accessHandler.Logout)

		api.POST("/simulate", accessHandler.Simulate)
		api.GET("/simulate/defaults", accessHandler.SimulateDefaults)

		api.POST("/admin/enter", adminHandler.Enter)
		api.POST("/admin/login", adminHandler.Login)
		api.POST("/admin/leave", adminHandler.Leave)
		api.POST("/admin/logout", adminHandler.Logout)
	}

	// Admin-protected routes
	protected := api.Group("/admin")
	protected.Use(middleware.AdminAuth(&cfg.Admin))
	{
		protected.GET("/leads", adminHandler.Leads)
	}

	// Create server
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Start server in goroutine
	go func() {
		slog.Info("server starting", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("failed to start server", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	slog.Info("shutting down server...")

	reconciler.Cancel()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("server exited gracefully")
}

// corsMiddleware configures CORS for the browser UI.
func corsMiddleware(cfg *config.CORSConfig) gin.HandlerFunc {
	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Request-ID"},
		ExposeHeaders:    []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(cfg.Origins) > 0 {
		corsCfg.AllowOrigins = cfg.Origins
	} else {
		corsCfg.AllowAllOrigins = true
		corsCfg.AllowCredentials = false
	}
	return cors.New(corsCfg)
}
