package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/luminous/portal/internal/config"
	"github.com/luminous/portal/internal/domain/inbox"
	"github.com/luminous/portal/internal/domain/portal"
	"github.com/luminous/portal/internal/domain/scheduling"
	"github.com/luminous/portal/internal/platform/aigateway"
	"github.com/luminous/portal/internal/platform/auth"
	"github.com/luminous/portal/internal/platform/blobstore"
	"github.com/luminous/portal/internal/platform/events"
	"github.com/luminous/portal/internal/platform/middleware"
	"github.com/luminous/portal/internal/platform/sandbox"
	"github.com/luminous/portal/internal/platform/websocket"
)

const version = "0.1.0"

// tipTTL keeps a cached tip past midnight in every time zone.
const tipTTL = 48 * time.Hour

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "portal-server",
		Short:        "Luminous Dental patient portal API server",
		SilenceUsage: true,
	}
	root.AddCommand(serveCmd())
	root.AddCommand(slotsCmd())
	root.AddCommand(exportNotificationsCmd())
	root.AddCommand(datasetCmd())
	return root
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the portal API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func slotsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "slots",
		Short: "Print the slot grid of a date against the sandbox appointments",
		RunE: func(cmd *cobra.Command, args []string) error {
			date, _ := cmd.Flags().GetString("date")
			if _, err := scheduling.ParseDate(date); err != nil {
				return err
			}
			sched := scheduling.NewScheduler()
			appts := sandbox.Generate().Appointments
			out := cmd.OutOrStdout()
			for _, s := range sched.Slots(date, appts) {
				status := "available"
				if s.Booked {
					status = "booked"
				}
				fmt.Fprintf(out, "%s\t%s\n", s.Time, status)
			}
			if sched.IsPast(date) {
				fmt.Fprintf(out, "note: %s is in the past and cannot be booked\n", date)
			}
			return nil
		},
	}
	cmd.Flags().String("date", "", "Date as YYYY-MM-DD")
	cmd.MarkFlagRequired("date")
	return cmd
}

func exportNotificationsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export-notifications",
		Short: "Write the sandbox notification history as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := inbox.ExportSnapshot(sandbox.Generate().Notifications)
			if err != nil {
				return err
			}
			path, _ := cmd.Flags().GetString("out")
			return writeOutput(cmd.OutOrStdout(), path, func(w io.Writer) error {
				_, err := w.Write(data)
				return err
			})
		},
	}
	cmd.Flags().String("out", inbox.ExportFilename, `Output file, "-" for stdout`)
	return cmd
}

func datasetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dataset",
		Short: "Write the sandbox seed dataset as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, _ := cmd.Flags().GetString("out")
			return writeOutput(cmd.OutOrStdout(), path, sandbox.ExportBundle)
		},
	}
	cmd.Flags().String("out", "-", `Output file, "-" for stdout`)
	return cmd
}

func writeOutput(stdout io.Writer, path string, write func(w io.Writer) error) error {
	if path == "" || path == "-" {
		return write(stdout)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := write(f); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	fmt.Fprintf(stdout, "wrote %s\n", path)
	return nil
}

func newLogger(cfg *config.Config) zerolog.Logger {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if cfg.IsDev() {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}
	if lvl, err := zerolog.ParseLevel(cfg.LogLevel); err == nil && cfg.LogLevel != "" {
		logger = logger.Level(lvl)
	}
	return logger
}

// server is the assembled HTTP application and the resources it owns.
type server struct {
	e       *echo.Echo
	svc     *portal.Service
	hub     *websocket.Hub
	closers []func()
}

func (s *server) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
}

func newGateway(ctx context.Context, cfg *config.Config) (aigateway.Gateway, error) {
	if !cfg.AIEnabled() {
		return aigateway.Offline{}, nil
	}
	client, err := aigateway.NewGeminiClient(ctx, aigateway.GeminiConfig{
		APIKey:     cfg.GeminiAPIKey,
		BaseURL:    cfg.GeminiBaseURL,
		APIVersion: cfg.GeminiAPIVersion,
		ChatModel:  cfg.GeminiChatModel,
		TTSModel:   cfg.GeminiTTSModel,
		Voice:      cfg.GeminiVoice,
	})
	if err != nil {
		return nil, err
	}
	return client, nil
}

// newTipCache uses Redis when it is configured and reachable, otherwise
// the in-process cache.
func newTipCache(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (aigateway.TipCache, func()) {
	if cfg.RedisURL == "" {
		return aigateway.NewMemoryTipCache(), func() {}
	}
	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		logger.Warn().Err(err).Msg("invalid REDIS_URL, caching tips in memory")
		return aigateway.NewMemoryTipCache(), func() {}
	}
	client := redis.NewClient(opts)
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		logger.Warn().Err(err).Msg("redis unreachable, caching tips in memory")
		client.Close()
		return aigateway.NewMemoryTipCache(), func() {}
	}
	logger.Info().Str("addr", opts.Addr).Msg("connected to redis")
	return aigateway.NewRedisTipCache(client, tipTTL), func() { client.Close() }
}

func newPublisher(cfg *config.Config, logger zerolog.Logger) events.Publisher {
	if len(cfg.KafkaBrokers) == 0 {
		return events.NewLogPublisher(logger)
	}
	logger.Info().Strs("brokers", cfg.KafkaBrokers).Str("topic", cfg.KafkaTopic).Msg("publishing clinic events to kafka")
	return events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic, logger)
}

func sessionOwner(c echo.Context) string {
	sid, _ := c.Get("session_id").(string)
	return sid
}

func buildServer(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*server, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	gateway, err := newGateway(ctx, cfg)
	if err != nil {
		return nil, err
	}
	srv := &server{}

	tips, closeTips := newTipCache(ctx, cfg, logger)
	srv.closers = append(srv.closers, closeTips)

	publisher := newPublisher(cfg, logger)
	srv.closers = append(srv.closers, func() {
		if err := publisher.Close(); err != nil {
			logger.Warn().Err(err).Msg("failed to close event publisher")
		}
	})

	blobs := blobstore.NewInMemoryBlobStore(cfg.MaxUploadBytes)
	srv.hub = websocket.NewHub(logger)
	assistant := aigateway.NewAssistant(gateway, tips, logger)
	assistant.OnNewTip(func(ctx context.Context, day, tip string) {
		payload := map[string]string{"day": day, "tip": tip}
		if err := srv.hub.PublishClinic(ctx, events.DailyTipPublished, payload); err != nil {
			logger.Warn().Err(err).Msg("failed to announce daily tip")
		}
	})
	srv.svc = portal.NewService(assistant,
		portal.WithBlobStore(blobs),
		portal.WithEvents(publisher),
		portal.WithNotifier(srv.hub),
		portal.WithLogger(logger),
	)

	revoked := auth.NewTokenRevocationStore(10 * time.Minute)
	srv.closers = append(srv.closers, revoked.Close)
	issuer := auth.NewIssuer([]byte(cfg.SessionSigningKey), cfg.SessionTTL)

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Global middleware
	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(middleware.SecurityHeaders(middleware.SecurityOptions{
		HSTS:          cfg.TLSEnabled || cfg.IsProduction(),
		MediaPrefixes: []string{portal.BlobPathPrefix, "/api/v1/records/explanation/audio"},
	}))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
		AllowHeaders: []string{"Authorization", "Content-Type", "X-Request-ID"},
	}))
	e.Use(middleware.BodyLimit("1M", strconv.FormatInt(cfg.MaxUploadBytes, 10)))

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]any{
			"status":   "ok",
			"version":  version,
			"sessions": srv.svc.SessionCount(),
			"ai":       cfg.AIEnabled(),
		})
	})

	apiV1 := e.Group("/api/v1")
	rateLimitCfg := middleware.RateLimitConfig{
		RequestsPerSecond: cfg.RateLimitRPS,
		BurstSize:         cfg.RateLimitBurst,
	}
	if rateLimitCfg.RequestsPerSecond <= 0 {
		rateLimitCfg = middleware.DefaultRateLimitConfig()
	}
	apiV1.Use(middleware.RateLimit(rateLimitCfg))
	apiV1.Use(auth.SessionMiddleware(auth.Config{
		Issuer:  issuer,
		Revoked: revoked,
		Skipper: auth.AuthSkipper,
	}))

	portal.NewHandler(srv.svc, issuer, revoked).RegisterRoutes(apiV1)
	blobstore.NewBlobHandler(blobs, sessionOwner).RegisterRoutes(apiV1)
	websocket.NewWebSocketHandler(srv.hub, cfg.CORSOrigins).RegisterRoutes(apiV1)
	if cfg.IsDev() {
		sandbox.NewSeedHandler().RegisterRoutes(apiV1)
	}

	srv.e = e
	return srv, nil
}

func runServer() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger := newLogger(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv, err := buildServer(ctx, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("invalid configuration")
	}
	defer srv.Close()

	go srv.svc.RunJanitor(ctx, time.Minute, cfg.SessionIdle)

	// Graceful shutdown
	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Bool("ai", cfg.AIEnabled()).Msg("starting server")
		var err error
		if cfg.TLSEnabled {
			err = srv.e.StartTLS(addr, cfg.TLSCertFile, cfg.TLSKeyFile)
		} else {
			err = srv.e.Start(addr)
		}
		if err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	<-ctx.Done()

	logger.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.e.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("server shutdown failed")
	}
	logger.Info().Msg("server stopped")
	return nil
}
