package main

import (
	"context"
	crypto_rand "crypto/rand"
	"database/sql"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/sharma-sugurthi/HealthAI/internal/config"
	"github.com/sharma-sugurthi/HealthAI/internal/domain/account"
	"github.com/sharma-sugurthi/HealthAI/internal/domain/chat"
	"github.com/sharma-sugurthi/HealthAI/internal/domain/medical"
	"github.com/sharma-sugurthi/HealthAI/internal/domain/metrics"
	"github.com/sharma-sugurthi/HealthAI/internal/domain/treatment"
	"github.com/sharma-sugurthi/HealthAI/internal/platform/auth"
	"github.com/sharma-sugurthi/HealthAI/internal/platform/completion"
	"github.com/sharma-sugurthi/HealthAI/internal/platform/db"
	"github.com/sharma-sugurthi/HealthAI/internal/platform/middleware"
)

const version = "0.1.0"

func main() {
	rootCmd := &cobra.Command{
		Use:   "healthai-server",
		Short: "HealthAI assistant API server",
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
		Short: "Start the HealthAI API server",
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

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx := context.Background()
			st, err := openStores(ctx, cfg)
			if err != nil {
				return err
			}
			defer st.close()

			fmt.Printf("Running %s migrations\n", st.driver)
			count, err := st.migrator.Up(ctx)
			if err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}
			fmt.Printf("Applied %d migration(s) successfully.\n", count)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx := context.Background()
			st, err := openStores(ctx, cfg)
			if err != nil {
				return err
			}
			defer st.close()

			statuses, err := st.migrator.Status(ctx)
			if err != nil {
				return fmt.Errorf("failed to get migration status: %w", err)
			}

			fmt.Printf("Migration status for %s\n", st.driver)
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
	})

	return cmd
}

func runServer() error {
	// Config
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := newLogger(cfg.Env, cfg.LogLevel)
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid config")
	}

	// Database
	ctx := context.Background()
	st, err := openStores(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to open database")
	}
	defer st.close()
	applied, err := st.migrator.Up(ctx)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to apply migrations")
	}
	logger.Info().Str("driver", string(st.driver)).Int("migrations_applied", applied).Msg("connected to database")

	// Sessions
	sessions, closeSessions, err := newSessionStore(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to session store")
	}
	defer closeSessions()

	secret, generated, err := resolveSessionSecret(cfg.SessionSecret)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to resolve session secret")
	}
	if generated {
		logger.Warn().Msg("SESSION_SECRET not set, using a random key; tokens will not survive a restart")
	}

	hasher, err := auth.NewHasher(cfg.BcryptCost)
	if err != nil {
		logger.Fatal().Err(err).Msg("invalid bcrypt cost")
	}

	// Completion gateway
	transport := completion.NewOpenAITransport(completion.OpenAIConfig{
		BaseURL: cfg.CompletionBaseURL,
		APIKey:  cfg.CompletionAPIKey,
		Referer: cfg.CompletionReferer,
		Title:   cfg.CompletionTitle,
	})
	if cfg.CompletionAPIKey == "" {
		logger.Warn().Msg("COMPLETION_API_KEY not set; completion requests will be rejected upstream")
	}

	e := newServer(serverDeps{
		cfg:      cfg,
		logger:   logger,
		stores:   st,
		sessions: sessions,
		tokens:   auth.NewTokens(secret),
		hasher:   hasher,
		gateway:  completion.New(gatewayConfig(cfg), transport, logger),
	})

	// Graceful shutdown
	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Str("env", cfg.Env).Msg("starting server")
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
		logger.Error().Err(err).Msg("server shutdown failed")
		return err
	}
	logger.Info().Msg("server stopped")
	return nil
}

type serverDeps struct {
	cfg      *config.Config
	logger   zerolog.Logger
	stores   *stores
	sessions auth.SessionStore
	tokens   *auth.Tokens
	hasher   *auth.Hasher
	gateway  chat.Completer
}

// newServer builds the echo instance with every route mounted. It does not
// start listening.
func newServer(d serverDeps) *echo.Echo {
	cfg, logger := d.cfg, d.logger

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Global middleware
	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(middleware.SecurityHeaders(cfg.IsProduction()))
	e.Use(middleware.BodyLimit(cfg.BodyLimit))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins:  cfg.CORSOrigins,
		AllowMethods:  []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete},
		AllowHeaders:  []string{"Authorization", "Content-Type", middleware.RequestIDHeader},
		ExposeHeaders: []string{middleware.RequestIDHeader, "Retry-After", "X-RateLimit-Remaining", echo.HeaderContentDisposition},
	}))
	e.Use(middleware.Audit(logger, d.stores.audit))

	// Health checks
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"version": version,
		})
	})
	e.GET("/health/db", db.HealthHandler(d.stores.checker))

	rateLimitCfg := middleware.RateLimitConfig{
		RequestsPerSecond: cfg.RateLimitRPS,
		BurstSize:         cfg.RateLimitBurst,
	}
	if rateLimitCfg.RequestsPerSecond <= 0 || rateLimitCfg.BurstSize <= 0 {
		rateLimitCfg = middleware.DefaultRateLimitConfig()
	}

	apiV1 := e.Group("/api/v1", middleware.RequestTimeout(cfg.RequestTimeout))
	public := apiV1.Group("", middleware.RateLimit(rateLimitCfg))
	protected := apiV1.Group("",
		auth.SessionMiddleware(d.tokens, d.sessions, logger),
		middleware.RateLimit(rateLimitCfg),
	)

	// Account
	accountSvc := account.NewService(d.stores.users, d.hasher, d.sessions, d.tokens, cfg.SessionIdleTimeout, logger)
	account.NewHandler(accountSvc, logger).RegisterRoutes(public, protected)

	// Medical record; its profile feeds the assistant prompts.
	medicalSvc := medical.NewService(d.stores.entries, accountSvc, logger)
	medical.NewHandler(medicalSvc, logger).RegisterRoutes(protected)

	// Assistant
	chatSvc := chat.NewService(d.stores.messages, d.gateway, medicalSvc, cfg.ChatHistoryTurns, logger)
	chat.NewHandler(chatSvc, logger).RegisterRoutes(protected)

	treatmentSvc := treatment.NewService(d.stores.plans, d.gateway, medicalSvc, logger)
	treatment.NewHandler(treatmentSvc, logger).RegisterRoutes(protected)

	// Health metrics
	metricsSvc := metrics.NewService(d.stores.metrics, logger)
	metrics.NewHandler(metricsSvc, logger).RegisterRoutes(protected)

	return e
}

// stores holds the repositories for whichever backend DATABASE_URL selects.
type stores struct {
	driver   db.Driver
	checker  db.Checker
	migrator *db.Migrator
	users    account.UserRepository
	messages chat.MessageRepository
	plans    treatment.PlanRepository
	metrics  metrics.MetricRepository
	entries  medical.EntryRepository
	audit    middleware.AuditRecorder
	close    func()
}

func openStores(ctx context.Context, cfg *config.Config) (*stores, error) {
	driver, dsn, err := db.ParseURL(cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	files, err := db.Migrations(driver)
	if err != nil {
		return nil, err
	}

	switch driver {
	case db.Postgres:
		pool, err := db.NewPool(ctx, dsn, cfg.DBMaxConns, cfg.DBMinConns)
		if err != nil {
			return nil, err
		}
		return pgStores(pool, files), nil
	default:
		sqlDB, err := db.OpenSQLite(ctx, dsn)
		if err != nil {
			return nil, err
		}
		return sqliteStores(sqlDB, files), nil
	}
}

func pgStores(pool *pgxpool.Pool, files fs.FS) *stores {
	return &stores{
		driver:   db.Postgres,
		checker:  db.PGChecker(pool),
		migrator: db.NewPGMigrator(pool, files),
		users:    account.NewUserRepoPG(pool),
		messages: chat.NewMessageRepoPG(pool),
		plans:    treatment.NewPlanRepoPG(pool),
		metrics:  metrics.NewMetricRepoPG(pool),
		entries:  medical.NewEntryRepoPG(pool),
		audit:    db.NewPGAuditRecorder(pool),
		close:    pool.Close,
	}
}

func sqliteStores(sqlDB *sql.DB, files fs.FS) *stores {
	return &stores{
		driver:   db.SQLite,
		checker:  db.SQLChecker(sqlDB),
		migrator: db.NewSQLiteMigrator(sqlDB, files),
		users:    account.NewUserRepoSQLite(sqlDB),
		messages: chat.NewMessageRepoSQLite(sqlDB),
		plans:    treatment.NewPlanRepoSQLite(sqlDB),
		metrics:  metrics.NewMetricRepoSQLite(sqlDB),
		entries:  medical.NewEntryRepoSQLite(sqlDB),
		audit:    db.NewSQLAuditRecorder(sqlDB),
		close:    func() { sqlDB.Close() },
	}
}

// newSessionStore uses Redis when REDIS_URL is set and an in-process store
// otherwise. The returned func releases the store.
func newSessionStore(ctx context.Context, cfg *config.Config) (auth.SessionStore, func(), error) {
	if cfg.RedisURL == "" {
		mem := auth.NewMemorySessionStore(cfg.SessionIdleTimeout)
		return mem, mem.Close, nil
	}
	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, nil, fmt.Errorf("ping redis: %w", err)
	}
	return auth.NewRedisSessionStore(client, cfg.SessionIdleTimeout), func() { client.Close() }, nil
}

func gatewayConfig(cfg *config.Config) completion.Config {
	return completion.Config{
		Model:          cfg.CompletionModel,
		MaxAttempts:    cfg.CompletionMaxAttempts,
		BaseDelay:      cfg.CompletionBaseDelay,
		MaxDelay:       cfg.CompletionMaxDelay,
		AttemptTimeout: cfg.CompletionAttemptTimeout,
		MaxTokens:      cfg.CompletionMaxTokens,
		Temperature:    cfg.CompletionTemperature,
		Jitter:         cfg.CompletionJitter,
		HistoryTurns:   cfg.ChatHistoryTurns,
	}
}

// newLogger writes JSON to stdout, or a console format in development.
// Unknown levels fall back to info.
func newLogger(env, level string) zerolog.Logger {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if env == "development" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	return logger.Level(lvl)
}

// resolveSessionSecret returns the token signing key from SESSION_SECRET or
// generates a random 32-byte key. The second return value is true when a
// random key was generated.
func resolveSessionSecret(value string) ([]byte, bool, error) {
	if value != "" {
		return []byte(value), false, nil
	}
	key := make([]byte, 32)
	if _, err := crypto_rand.Read(key); err != nil {
		return nil, false, fmt.Errorf("failed to generate random session secret: %w", err)
	}
	return key, true, nil
}
