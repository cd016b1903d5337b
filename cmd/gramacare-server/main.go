package main

import (
	"context"
	crypto_rand "crypto/rand"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/gramacare/gramacare/internal/config"
	"github.com/gramacare/gramacare/internal/domain/booking"
	"github.com/gramacare/gramacare/internal/domain/media"
	"github.com/gramacare/gramacare/internal/domain/profile"
	"github.com/gramacare/gramacare/internal/domain/request"
	"github.com/gramacare/gramacare/internal/platform/auth"
	"github.com/gramacare/gramacare/internal/platform/blobstore"
	"github.com/gramacare/gramacare/internal/platform/db"
	"github.com/gramacare/gramacare/internal/platform/identity"
	"github.com/gramacare/gramacare/internal/platform/middleware"
	"github.com/gramacare/gramacare/internal/platform/notifier"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "gramacare-server",
		Short: "GramaCare telemedicine API server",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
	}

	upCmd := &cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			migrator := db.NewMigrator(pool, dir)
			count, err := migrator.Up(ctx)
			if err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}

			fmt.Printf("Applied %d migration(s) successfully.\n", count)
			return nil
		},
	}
	upCmd.Flags().String("dir", "./migrations", "Path to migrations directory")
	cmd.AddCommand(upCmd)

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			migrator := db.NewMigrator(pool, dir)
			statuses, err := migrator.Status(ctx)
			if err != nil {
				return fmt.Errorf("failed to get migration status: %w", err)
			}

			fmt.Printf("%-10s %-40s %-10s %s\n", "VERSION", "NAME", "STATUS", "APPLIED AT")
			fmt.Println("---------- ---------------------------------------- ---------- --------------------")
			for _, s := range statuses {
				status := "pending"
				appliedAt := ""
				if s.Applied {
					status = "applied"
					if s.AppliedAt != nil {
						appliedAt = s.AppliedAt.Format("2006-01-02 15:04:05")
					}
				}
				fmt.Printf("%-10d %-40s %-10s %s\n", s.Version, s.Name, status, appliedAt)
			}
			return nil
		},
	}
	statusCmd.Flags().String("dir", "./migrations", "Path to migrations directory")
	cmd.AddCommand(statusCmd)

	return cmd
}

// signingKey returns the configured HMAC key, or a random per-process key
// in development so unsigned deployments still boot. Random keys mean every
// restart invalidates outstanding sessions, which is acceptable locally.
func signingKey(cfg *config.Config) ([]byte, error) {
	if cfg.AuthSigningKey != "" {
		return []byte(cfg.AuthSigningKey), nil
	}
	key := make([]byte, 32)
	if _, err := crypto_rand.Read(key); err != nil {
		return nil, fmt.Errorf("generate signing key: %w", err)
	}
	return key, nil
}

func runServer() error {
	// Logger
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if os.Getenv("ENV") == "development" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}

	// Config
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid configuration")
	}

	// Database
	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()
	logger.Info().Msg("connected to database")

	// Identity and tokens
	key, err := signingKey(cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to prepare signing key")
	}
	idp := identity.NewStandalone()
	if cfg.IsDev() {
		idp.SendSMS = func(phone, code string) {
			logger.Info().Str("phone", phone).Str("code", code).Msg("OTP issued")
		}
	}
	issuer := cfg.AuthIssuer
	if issuer == "" {
		issuer = "gramacare"
	}
	tokens := identity.NewTokenIssuer(key, issuer, 24*time.Hour)

	// Blob storage and change notifications
	blobs := blobstore.NewInMemoryStore(cfg.PublicBaseURL)
	hub := notifier.NewHub()

	// Echo server
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Global middleware
	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(middleware.SecurityHeaders())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
		AllowHeaders: []string{"Authorization", "Content-Type", "X-Request-ID"},
	}))
	e.Use(middleware.BodyLimit("1M", "256M"))

	// Auth middleware. Account endpoints stay public; everything else on
	// the API group requires a session.
	var authMW echo.MiddlewareFunc
	switch cfg.ResolvedAuthMode() {
	case "development":
		authMW = auth.DevAuthMiddleware()
	case "standalone":
		authMW = auth.JWTMiddleware(auth.JWTConfig{
			Issuer:     issuer,
			SigningKey: key,
		})
	default: // external
		authMW = auth.JWTMiddleware(auth.JWTConfig{
			Issuer:   cfg.AuthIssuer,
			Audience: cfg.AuthAudience,
			JWKSURL:  cfg.AuthJWKSURL,
		})
	}

	rateLimitCfg := middleware.RateLimitConfig{
		RequestsPerSecond: cfg.RateLimitRPS,
		BurstSize:         cfg.RateLimitBurst,
	}
	if rateLimitCfg.RequestsPerSecond <= 0 {
		rateLimitCfg = middleware.DefaultRateLimitConfig()
	}

	public := e.Group("/api/v1", middleware.RateLimit(rateLimitCfg))
	api := e.Group("/api/v1", middleware.RateLimit(rateLimitCfg), authMW,
		middleware.RequestTimeout(cfg.RequestTimeout))

	// Transaction seam shared by services that write multiple rows.
	txRunner := db.NewTxRunner(pool)

	// Domain wiring
	profileSvc := profile.NewService(
		profile.NewRepoPG(pool), profile.NewRoleRepoPG(pool),
		idp, tokens, txRunner, hub)
	profile.NewHandler(profileSvc).RegisterRoutes(public, api)

	requestSvc := request.NewService(
		request.NewRepoPG(pool), request.NewHistoryRepoPG(pool),
		blobs, txRunner, hub)
	request.NewHandler(requestSvc).RegisterRoutes(api)

	bookingSvc := booking.NewService(booking.NewRepoPG(pool), hub)
	booking.NewHandler(bookingSvc).RegisterRoutes(api)

	mediaSvc := media.NewService(media.NewRepoPG(pool), blobs, hub)
	media.NewHandler(mediaSvc).RegisterRoutes(api)

	// Public surfaces outside the session boundary: stored files and the
	// change-notification socket.
	blobstore.NewHandler(blobs).RegisterRoutes(e)
	notifier.NewHandler(hub).RegisterRoutes(e.Group(""))

	// Health check
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"version": "0.1.0",
		})
	})

	// Graceful shutdown
	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Str("auth_mode", cfg.ResolvedAuthMode()).Msg("starting server")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Fatal().Err(err).Msg("server shutdown failed")
	}
	logger.Info().Msg("server stopped")
	return nil
}
