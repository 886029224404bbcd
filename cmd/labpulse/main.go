package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/labpulse/labpulse/internal/auth"
	"github.com/labpulse/labpulse/internal/auth/jwt"
	"github.com/labpulse/labpulse/internal/common/cnst"
	"github.com/labpulse/labpulse/internal/common/config"
	"github.com/labpulse/labpulse/internal/platform"
	"github.com/labpulse/labpulse/internal/realtime/broker"
	"github.com/labpulse/labpulse/internal/realtime/channel"
	"github.com/labpulse/labpulse/internal/realtime/event"
	"github.com/labpulse/labpulse/internal/realtime/hub"
	"github.com/labpulse/labpulse/internal/realtime/rooms"
	"github.com/labpulse/labpulse/internal/realtime/session"
	"github.com/labpulse/labpulse/internal/storage"
	"github.com/labpulse/labpulse/pkg/helper"
	"github.com/labpulse/labpulse/pkg/logger"
	"github.com/labpulse/labpulse/pkg/metrics"
	"github.com/labpulse/labpulse/pkg/version"
)

var (
	configPath string

	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the version number of labpulse",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("labpulse version %s\n", version.Get())
		},
	}

	rootCmd = &cobra.Command{
		Use:   cnst.CommandName,
		Short: "LabPulse realtime event distribution server",
		Long:  `LabPulse pushes device telemetry, experiment, task, and notification events to websocket clients across multiple instances`,
		Run: func(cmd *cobra.Command, args []string) {
			run()
		},
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "conf", "", "path to configuration file")
	rootCmd.AddCommand(versionCmd)
}

func run() {
	cfgPath := configPath
	if cfgPath == "" {
		cfgPath = helper.GetCfgPath("labpulse.yaml")
	}
	cfg, resolvedPath, err := config.LoadConfig(cfgPath)
	if err != nil {
		log.Fatalf("Failed to load configuration from %s: %v", cfgPath, err)
	}

	zapLogger, err := logger.NewLogger(&cfg.Logger)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer func() { _ = zapLogger.Sync() }()

	zapLogger.Info("starting labpulse",
		zap.String("version", version.Get()),
		zap.String("config", resolvedPath),
		zap.Int("port", cfg.Server.Port))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	redisClient, err := storage.NewRedisClient(ctx, cfg.Redis)
	if err != nil {
		zapLogger.Fatal("failed to connect to redis", zap.Error(err))
	}
	defer func() { _ = redisClient.Close() }()

	sessionStore, err := session.NewStore(zapLogger, cfg, redisClient)
	if err != nil {
		zapLogger.Fatal("failed to initialize session store", zap.Error(err))
	}
	sessions := session.NewManager(zapLogger, sessionStore, cfg.Session.TTL, cfg.Presence.TTL)
	registry := rooms.NewRegistry(zapLogger, redisClient, cfg.Rooms.SweepInterval)

	jwtService, err := jwt.NewService(cfg.Auth.JWT)
	if err != nil {
		zapLogger.Fatal("failed to initialize jwt service", zap.Error(err))
	}

	// TODO: replace the in-memory directory with the platform API client once
	// its read endpoints are deployed
	directory := platform.NewFake()
	authenticator := auth.NewAuthenticator(zapLogger, cfg.Auth, jwtService, directory)
	checker := auth.NewChecker(zapLogger, directory, directory)

	m := metrics.New(cfg.Metrics)
	eventBroker := broker.New(zapLogger, redisClient, cfg.Broker, m)

	h := hub.New(zapLogger, cfg.WebSocket, authenticator, sessions, registry, eventBroker, m)
	h.SetChannels(channel.NewSet(&channel.Deps{
		Logger:    zapLogger,
		Checker:   checker,
		Registry:  registry,
		Sessions:  sessions,
		Directory: directory,
		Emitter:   event.NewEmitter(zapLogger, h),
		Metrics:   m,
	}))

	go eventBroker.Run(ctx, h)
	go registry.RunSweep(ctx, sessions)
	go h.RunPresenceRefresh(ctx, cfg.Presence.TTL/2)

	router := gin.New()
	router.Use(gin.Recovery())
	router.GET("/ws/:channel", h.ServeWS)
	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"version": version.Get(),
			"clients": h.ClientCount(),
		})
	})
	if cfg.Metrics.Enabled {
		router.GET(cfg.Metrics.Path, m.GinHandler())
	}

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLogger.Fatal("server error", zap.Error(err))
		}
	}()

	<-ctx.Done()
	zapLogger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	h.Shutdown(shutdownCtx)
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zapLogger.Error("forced shutdown", zap.Error(err))
	}
	zapLogger.Info("stopped")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
