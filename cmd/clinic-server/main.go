package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/clinic/clinic/internal/config"
	"github.com/clinic/clinic/internal/domain/admin"
	domainauth "github.com/clinic/clinic/internal/domain/auth"
	"github.com/clinic/clinic/internal/domain/tenant"
	"github.com/clinic/clinic/internal/platform/audit"
	"github.com/clinic/clinic/internal/platform/auth"
	"github.com/clinic/clinic/internal/platform/db"
	"github.com/clinic/clinic/internal/platform/logging"
	"github.com/clinic/clinic/internal/platform/notification"
	"github.com/clinic/clinic/internal/platform/retry"
	"github.com/clinic/clinic/internal/platform/telemetry"
)

const version = "0.1.0"

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "clinic-server",
		Short:        "Multi-tenant clinic management API",
		SilenceUsage: true,
	}
	root.AddCommand(serveCmd())
	root.AddCommand(migrateCmd())
	root.AddCommand(tenantCmd())
	return root
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage audit database migrations",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply pending audit migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			pool, err := auditPool(ctx)
			if err != nil {
				return err
			}
			defer pool.Close()

			migrator, err := audit.NewMigrator(pool)
			if err != nil {
				return err
			}
			count, err := migrator.Up(ctx)
			if err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Applied %d migration(s) to schema %s.\n", count, audit.Schema)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show audit migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			pool, err := auditPool(ctx)
			if err != nil {
				return err
			}
			defer pool.Close()

			migrator, err := audit.NewMigrator(pool)
			if err != nil {
				return err
			}
			statuses, err := migrator.Status(ctx)
			if err != nil {
				return fmt.Errorf("failed to get migration status: %w", err)
			}
			printMigrationStatus(cmd, statuses)
			return nil
		},
	})

	return cmd
}

func printMigrationStatus(cmd *cobra.Command, statuses []db.MigrationStatus) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Migration status for schema: %s\n", audit.Schema)
	fmt.Fprintf(out, "%-10s %-40s %-10s %s\n", "VERSION", "NAME", "STATUS", "APPLIED AT")
	for _, s := range statuses {
		status, appliedAt := "pending", ""
		if s.Applied {
			status = "applied"
			if s.AppliedAt != nil {
				appliedAt = s.AppliedAt.Format("2006-01-02 15:04:05")
			}
		}
		fmt.Fprintf(out, "%-10d %-40s %-10s %s\n", s.Version, s.Name, status, appliedAt)
	}
}

func auditPool(ctx context.Context) (*pgxpool.Pool, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if cfg.AuditDatabaseURL == "" {
		return nil, errors.New("AUDIT_DATABASE_URL is not set")
	}
	return db.NewPool(ctx, cfg.AuditDatabaseURL, cfg.AuditDBMaxConns, cfg.AuditDBMinConns)
}

func tenantCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tenant",
		Short: "Manage clinics",
	}

	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Register a clinic and prepare its database",
		RunE: func(cmd *cobra.Command, args []string) error {
			name, _ := cmd.Flags().GetString("name")
			display, _ := cmd.Flags().GetString("display")
			if name == "" {
				return errors.New("--name is required")
			}

			return withTenantService(cmd.Context(), func(ctx context.Context, svc *tenant.Service) error {
				t, err := svc.Create(ctx, name, display)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Tenant %s (%s) created.\n", t.ID, t.Name)
				return nil
			})
		},
	}
	createCmd.Flags().String("name", "", "Tenant identifier, also the database name")
	createCmd.Flags().String("display", "", "Display name of the clinic")
	cmd.AddCommand(createCmd)

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List registered clinics",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withTenantService(cmd.Context(), func(ctx context.Context, svc *tenant.Service) error {
				tenants, err := svc.List(ctx)
				if err != nil {
					return err
				}
				printTenants(cmd, tenants)
				return nil
			})
		},
	})

	return cmd
}

func printTenants(cmd *cobra.Command, tenants []tenant.Tenant) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%-24s %-32s %-8s %s\n", "ID", "NAME", "ACTIVE", "CREATED AT")
	for _, t := range tenants {
		fmt.Fprintf(out, "%-24s %-32s %-8t %s\n", t.ID, t.Name, t.Active, t.CreatedAt.Format("2006-01-02 15:04:05"))
	}
}

func withTenantService(ctx context.Context, fn func(context.Context, *tenant.Service) error) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := logging.New(cfg)
	mgr := newManager(cfg, logger)
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
		defer cancel()
		_ = mgr.Close(closeCtx)
	}()

	svc := tenant.NewService(tenant.NewDirectoryMongo(mgr), mgr, cfg.MongoMainDB, logger)
	return fn(ctx, svc)
}

func newManager(cfg *config.Config, logger zerolog.Logger) *db.Manager {
	retryCfg := retry.DefaultConfig()
	retryCfg.MaxAttempts = cfg.DBConnectRetries

	return db.NewManager(db.MongoDialer{
		BaseURI:        cfg.MongoURI,
		MaxPoolSize:    cfg.MongoMaxPoolSize,
		ConnectTimeout: cfg.MongoConnectTimeout,
		OpTimeout:      cfg.MongoOpTimeout,
		AppName:        "clinic-server",
	}, db.Options{
		MainDatabase:  cfg.MongoMainDB,
		Retry:         retryCfg,
		EnsureIndexes: cfg.DBEnsureIndexes,
		Logger:        logger,
	})
}

func newMailer(cfg *config.Config, logger zerolog.Logger) (notification.EmailSender, error) {
	if !cfg.SMTPEnabled() {
		logger.Warn().Msg("SMTP_HOST not set: login emails are logged, not sent")
		return notification.LogSender{Logger: logger}, nil
	}
	return notification.NewSMTPSender(notification.SMTPConfig{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUser,
		Password: cfg.SMTPPassword,
		From:     cfg.FromEmail,
	})
}

func newRedeemer(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (auth.Redeemer, func(), error) {
	if cfg.RedisURL == "" {
		logger.Info().Msg("REDIS_URL not set: login links are redeemed in memory")
		r := auth.NewMemoryRedeemer(time.Minute)
		return r, r.Stop, nil
	}
	client, err := auth.NewRedisClient(ctx, cfg.RedisURL)
	if err != nil {
		return nil, nil, err
	}
	return auth.NewRedisRedeemer(client), func() { _ = client.Close() }, nil
}

func runServer() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	logger := logging.New(cfg)

	ctx := context.Background()

	tp, err := telemetry.Init(ctx, telemetry.TelemetryConfig{
		ServiceName:    "clinic-server",
		ServiceVersion: version,
		Environment:    cfg.Env,
		OTLPEndpoint:   cfg.OTLPEndpoint,
		Insecure:       !cfg.IsProduction(),
	}, logger)
	if err != nil {
		return err
	}

	mgr := newManager(cfg, logger)
	if err := mgr.PingMain(ctx); err != nil {
		logger.Warn().Err(err).Msg("main database not reachable at startup")
	} else {
		logger.Info().Str("database", cfg.MongoMainDB).Msg("connected to main database")
	}

	deps := serverDeps{Connector: mgr, Health: mgr}

	if cfg.AuditDatabaseURL != "" {
		pool, err := db.NewPool(ctx, cfg.AuditDatabaseURL, cfg.AuditDBMaxConns, cfg.AuditDBMinConns)
		if err != nil {
			return fmt.Errorf("connect audit database: %w", err)
		}
		defer pool.Close()
		store := audit.NewStore(pool)
		deps.AuditPool = pool
		deps.AuditRecorder = store
		deps.AuditSearcher = store
		logger.Info().Msg("audit events persisted to postgres")
	}

	issuer, err := auth.NewIssuer(cfg.EmailSecret, cfg.JWTSecret)
	if err != nil {
		return err
	}
	deps.Issuer = issuer

	redeemer, closeRedeemer, err := newRedeemer(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("connect redis: %w", err)
	}
	defer closeRedeemer()

	mailer, err := newMailer(cfg, logger)
	if err != nil {
		return err
	}

	tenants := tenant.NewService(tenant.NewDirectoryMongo(mgr), mgr, cfg.MongoMainDB, logger)
	users := admin.NewService(admin.NewUserRepoMongo())
	locator, err := domainauth.NewLocator(tenants, mgr, users, logger)
	if err != nil {
		return err
	}
	defer locator.Close()
	deps.Login = domainauth.NewService(issuer, redeemer, locator, mailer, cfg.AppURL, logger)

	e := newServer(cfg, logger, deps)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           telemetry.WrapHandler(e, "clinic-server"),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		logger.Info().Str("addr", srv.Addr).Str("version", version).Msg("starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("server shutdown failed")
	}
	if err := mgr.Close(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("closing database connections failed")
	}
	if err := tp.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("flushing traces failed")
	}
	logger.Info().Msg("server stopped")
	return nil
}
