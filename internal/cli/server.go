package cli

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"quizdeck/internal/admin"
	"quizdeck/internal/answer"
	"quizdeck/internal/config"
	"quizdeck/internal/infra/memory"
	redisinfra "quizdeck/internal/infra/redis"
	"quizdeck/internal/logging"
	"quizdeck/internal/remote"
	"quizdeck/internal/session"
	transport "quizdeck/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the gateway.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the quiz gateway",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	log, err := logging.New(cfg.Server.LogMode)
	if err != nil {
		return err
	}
	defer log.Sync()

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	apiClient, err := remote.New(log, remote.Config{
		BaseURL: cfg.API.BaseURL,
		Timeout: config.TTLDuration(cfg.API.Timeout, 15*time.Second),
	})
	if err != nil {
		return err
	}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	}

	cacheTTL := config.TTLDuration(cfg.Quiz.CacheTTL, 10*time.Minute)
	var directory session.Directory
	if redisClient != nil {
		directory = redisinfra.NewQuizDirectory(redisClient, apiClient, cacheTTL)
	} else {
		directory = memory.NewQuizDirectory(apiClient, cacheTTL)
	}

	var store transport.SessionStore
	if redisClient != nil {
		store = redisinfra.NewSessionStore(redisClient, config.TTLDuration(cfg.Redis.TTL, 2*time.Hour))
	} else {
		store = memory.NewSessionStore()
	}

	keys := answer.DefaultKeys()
	if len(cfg.Quiz.OptionKeys) > 0 {
		keys = answer.KeySet(cfg.Quiz.OptionKeys)
	}
	reviewDelay := int(config.TTLDuration(cfg.Quiz.ReviewDelay, 8*time.Second).Seconds())

	adminGroup := cfg.Quiz.AdminGroup
	if adminGroup == "" {
		adminGroup = "Admin"
	}

	flows := admin.New(apiClient, keys, log)
	wsHandler := transport.NewWSHandler(store, directory, apiClient, reviewDelay, log)
	adminHandler := transport.NewAdminHandler(flows, adminGroup, log)
	router := transport.NewRouter(wsHandler, adminHandler)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Info("starting quiz gateway", "port", finalPort, "api", cfg.API.BaseURL)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server stopped", "error", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Info("shutting down")
	case <-ctx.Done():
		log.Info("context canceled, shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
