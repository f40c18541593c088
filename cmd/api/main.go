package main

import (
	"context"
	"crypto/tls"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/havenhealth/member-chat-platform/internal/api/router"
	"github.com/havenhealth/member-chat-platform/internal/chat"
	appconfig "github.com/havenhealth/member-chat-platform/internal/config"
	"github.com/havenhealth/member-chat-platform/internal/http/handlers"
	"github.com/havenhealth/member-chat-platform/internal/members"
	"github.com/havenhealth/member-chat-platform/internal/messaging"
	"github.com/havenhealth/member-chat-platform/internal/observability/metrics"
	"github.com/havenhealth/member-chat-platform/internal/plans"
	"github.com/havenhealth/member-chat-platform/internal/transcript"
	"github.com/havenhealth/member-chat-platform/internal/widget"
	"github.com/havenhealth/member-chat-platform/pkg/logging"
)

func main() {
	// Load .env if present; real deployments use the environment directly.
	_ = godotenv.Load()

	cfg := appconfig.Load()

	logger := logging.New(cfg.LogLevel)
	logger.Info("starting member-chat-platform API server",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	// Redis backs the eligibility cache and session transcripts.
	redisOpts := &redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	}
	if cfg.RedisTLS {
		redisOpts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	redisClient := redis.NewClient(redisOpts)

	httpClient := &http.Client{Timeout: cfg.UpstreamTimeout}

	eligibilityCache := members.NewSnapshotCache(redisClient, cfg.EligibilityCacheTTL)
	membersClient := members.NewClient(cfg.MemberServiceBaseURL,
		members.WithHTTPClient(httpClient),
		members.WithLogger(logger),
		members.WithCache(eligibilityCache),
	)
	plansClient := plans.NewClient(cfg.PlanServiceBaseURL,
		plans.WithHTTPClient(httpClient),
		plans.WithLogger(logger),
	)
	backend, err := messaging.New(messaging.Config{
		BaseURL: cfg.MessagingBaseURL,
		APIKey:  cfg.MessagingAPIKey,
		Timeout: cfg.UpstreamTimeout,
		Logger:  logger,
	})
	if err != nil {
		logger.Error("failed to build messaging client", "error", err)
		os.Exit(1)
	}

	transcriptStore := transcript.NewStore(redisClient, int64(cfg.SessionTranscriptSize))
	scriptProbe := widget.NewProbe(cfg.WidgetScriptURL,
		widget.WithHTTPClient(httpClient),
		widget.WithLogger(logger),
	)
	chatMetrics := metrics.NewChatMetrics(nil)

	manager := chat.NewManager(func(memberID, groupID string) (*chat.Machine, error) {
		return chat.New(chat.Config{
			MemberID:        memberID,
			GroupID:         groupID,
			Members:         membersClient,
			Plans:           plansClient,
			Backend:         backend,
			Transcript:      transcriptStore,
			Script:          scriptProbe,
			DefaultTimezone: cfg.DefaultTimezone,
			RecheckInterval: cfg.HoursRecheckInterval,
			SessionSecret:   []byte(cfg.SessionJWTSecret),
			SessionTTL:      cfg.SessionJWTTTL,
			Logger:          logger,
			Metrics:         chatMetrics,
		})
	}, logger)

	chatHandler := handlers.NewChatHandler(manager, cfg.WidgetScriptURL, logger)

	r := router.New(&router.Config{
		Logger:             logger,
		ChatHandler:        chatHandler,
		MemberAuthSecret:   cfg.MemberJWTSecret,
		MetricsHandler:     promhttp.Handler(),
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		WidgetScriptURL:    cfg.WidgetScriptURL,
		RateLimit:          10,
		RateLimitBurst:     30,
	})

	srv := &http.Server{
		Addr:        ":" + cfg.Port,
		Handler:     r,
		ReadTimeout: 15 * time.Second,
		// No WriteTimeout: /api/chat/stream holds a websocket open and
		// manages its own per-frame deadlines.
		IdleTimeout: 60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	manager.Shutdown()
	if err := redisClient.Close(); err != nil {
		logger.Warn("redis close failed", "error", err)
	}

	logger.Info("server stopped")
}
