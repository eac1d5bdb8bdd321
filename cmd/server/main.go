package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"

	"github.com/ksred/watchdog/internal/approval"
	"github.com/ksred/watchdog/internal/audit"
	"github.com/ksred/watchdog/internal/auth"
	"github.com/ksred/watchdog/internal/config"
	"github.com/ksred/watchdog/internal/dashboard"
	"github.com/ksred/watchdog/internal/database"
	"github.com/ksred/watchdog/internal/logs"
	"github.com/ksred/watchdog/internal/metrics"
	"github.com/ksred/watchdog/internal/monitor"
	"github.com/ksred/watchdog/internal/queue"
	"github.com/ksred/watchdog/pkg/middleware"
	"github.com/ksred/watchdog/pkg/response"

	"github.com/gin-gonic/gin"
)

// rateLimitBurst lets an operator click P and R on a few rows in a row
const rateLimitBurst = 5

// init configures the application logging based on environment settings
// In development mode, it enables pretty printing with timestamps
// Debug logging can be enabled via DEBUG environment variable
func init() {
	if os.Getenv("ENV") != "production" {
		output := zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: time.RFC3339,
		}
		zlog.Logger = zerolog.New(output).With().Timestamp().Logger()
	}

	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if os.Getenv("DEBUG") == "true" {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
}

type handlers struct {
	approval  *approval.GinHandlers
	dashboard *dashboard.GinHandlers
	auth      *auth.GinHandlers
	logs      *logs.GinHandlers
	audit     *audit.GinHandlers
}

// main wires the queue store, the approval workflow and the read side
// behind the HTTP API and runs until SIGINT or SIGTERM
func main() {
	cfg, err := config.Load()
	if err != nil {
		zlog.Fatal().Err(err).Msg("Invalid configuration")
	}

	db, err := database.NewDatabase(cfg.Database.Path)
	if err != nil {
		zlog.Fatal().Err(err).Msg("Failed to initialize database")
	}

	store := queue.NewFileStore(cfg.Terminal.FilesDir, nil)

	journal := audit.NewJournal(db)
	queueMonitor := monitor.NewProcessor(store, cfg.Dashboard.MonitorInterval)

	authService := auth.NewService(cfg.Terminal.FilesDir)
	approvalService := approval.NewService(store, authService, journal, metrics.NewCollector(), queueMonitor)
	dashboardService := dashboard.NewService(store, dashboard.Options{
		RefreshInterval: cfg.Dashboard.RefreshInterval,
		Location:        cfg.Dashboard.Location,
		Precisions:      cfg.Dashboard.Precisions,
		Symbols:         cfg.Dashboard.Symbols,
		Title:           cfg.Dashboard.Title,
	})
	logService := logs.NewService(cfg.Terminal.MQL4LogsDir, cfg.Terminal.MainLogsDir)

	h := handlers{
		approval:  approval.NewGinHandlers(approvalService),
		dashboard: dashboard.NewGinHandlers(dashboardService),
		auth:      auth.NewGinHandlers(authService),
		logs:      logs.NewGinHandlers(logService),
		audit:     audit.NewGinHandlers(journal),
	}

	monitorCtx, monitorCancel := context.WithCancel(context.Background())
	defer monitorCancel()

	go queueMonitor.Start(monitorCtx)

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(
		gin.Recovery(),
		middleware.RequestID(),
		middleware.RequestLogger(),
		metrics.GinMiddleware(),
		middleware.NewRateLimiter(cfg.Server.RateLimitRPM, rateLimitBurst).Middleware(),
	)

	setupRoutes(router, cfg, h)

	srv := &http.Server{
		Addr:    ":" + strconv.Itoa(cfg.Server.Port),
		Handler: router,
	}

	go func() {
		zlog.Info().
			Int("port", cfg.Server.Port).
			Str("files_dir", cfg.Terminal.FilesDir).
			Msg("Starting watchdog")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zlog.Fatal().Err(err).Msg("listen")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	zlog.Info().Msg("Shutting down server...")

	// Give outstanding operations 5 seconds to complete
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zlog.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	zlog.Info().Msg("Server exiting")
}

// setupRoutes configures all API endpoints and their handlers.
// Reads are polled by the dashboard; writes go through the approval
// workflow and are rate limited per client.
func setupRoutes(router *gin.Engine, cfg *config.Config, h handlers) {
	router.GET("/health", healthHandler(cfg.Terminal.FilesDir))
	router.GET("/metrics", metrics.Handler())

	v1 := router.Group("/api/v1")
	{
		v1.GET("/dashboard", h.dashboard.DashboardHandler())

		orders := v1.Group("/orders")
		{
			orders.GET("", h.dashboard.QueueHandler(queue.Orders))
			orders.POST("", h.approval.SubmitOrderHandler())
			orders.POST("/:row/approve/:approver", h.approval.ApproveHandler(approval.Orders))
			orders.DELETE("/:row", h.approval.CancelOrderHandler())
		}

		approved := v1.Group("/approved")
		{
			approved.GET("", h.dashboard.QueueHandler(queue.Approved))
			approved.DELETE("/:row", h.approval.RemoveApprovedHandler())
		}

		modifications := v1.Group("/modifications")
		{
			modifications.POST("", h.approval.ModifyOrderHandler())
			modifications.GET("/pending", h.dashboard.QueueHandler(queue.ToBeModified))
			modifications.POST("/pending/:row/approve/:approver", h.approval.ApproveHandler(approval.Modifications))
			modifications.DELETE("/pending/:row", h.approval.RemoveToBeModifiedHandler())
			modifications.GET("/applied", h.dashboard.QueueHandler(queue.Modified))
			modifications.DELETE("/applied/:row", h.approval.RemoveModifiedHandler())
		}

		drops := v1.Group("/drops")
		{
			drops.GET("", h.dashboard.QueueHandler(queue.Dropped))
			drops.POST("", h.approval.DropOrderHandler())
		}

		v1.GET("/snapshot", h.dashboard.SnapshotHandler())
		v1.GET("/tickets", h.dashboard.TicketsHandler())

		profit := v1.Group("/profit")
		{
			profit.GET("/account", h.dashboard.AccountProfitHandler())
			profit.GET("/history", h.dashboard.HistoryProfitHandler())
		}

		status := v1.Group("/status")
		{
			status.GET("/account", h.dashboard.AccountStatusHandler())
			status.GET("/history", h.dashboard.HistoryStatusHandler())
		}

		logGroup := v1.Group("/logs")
		{
			logGroup.GET("", h.logs.ListHandler())
			logGroup.GET("/read", h.logs.ReadHandler())
		}

		v1.POST("/auth/verify", h.auth.VerifyHandler())
		v1.GET("/audit", h.audit.RecentHandler())
	}
}

// healthHandler reports whether the terminal's files directory is reachable
func healthHandler(filesDir string) gin.HandlerFunc {
	return func(c *gin.Context) {
		status := "ok"
		if info, err := os.Stat(filesDir); err != nil || !info.IsDir() {
			status = "degraded"
		}
		response.Success(c, gin.H{
			"status":    status,
			"files_dir": filesDir,
			"time":      time.Now().UTC().Format(time.RFC3339),
		})
	}
}
