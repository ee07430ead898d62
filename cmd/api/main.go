package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"
	"go.uber.org/zap"
	"google.golang.org/grpc"

	"shopadmin.app/internal/analytics"
	"shopadmin.app/internal/audit"
	"shopadmin.app/internal/auth"
	"shopadmin.app/internal/catalog"
	"shopadmin.app/internal/config"
	"shopadmin.app/internal/customer"
	"shopadmin.app/internal/httpapi"
	"shopadmin.app/internal/migrate"
	"shopadmin.app/internal/obs"
	"shopadmin.app/internal/store/pg"
	"shopadmin.app/migrations"
)

var (
	version = "0.1.0"
	commit  = "dev"
)

// stores groups the backends the services are built on.
type stores struct {
	accounts  auth.AccountStore
	logs      audit.Store
	directory audit.Directory
	catalog   catalog.Store
	customers customer.Store
	source    analytics.Source
	inventory analytics.Inventory
	ready     httpapi.ReadyCheck
	close     func() error
}

func main() {
	configPath := pflag.StringP("config", "c", os.Getenv("SHOPADMIN_CONFIG"), "path to a YAML config file")
	printConfig := pflag.Bool("print-config", false, "print the effective configuration with secrets redacted and exit")
	pflag.Parse()

	cfg, err := config.Load(*configPath)
	if err == nil && *printConfig {
		out, err := cfg.YAML()
		if err != nil {
			fmt.Fprintf(os.Stderr, "config: %v\n", err)
			os.Exit(2)
		}
		_, _ = os.Stdout.Write(out)
		return
	}
	if err == nil {
		err = cfg.Validate()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(2)
	}

	logger, err := obs.NewLogger(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(2)
	}
	obs.SetLogger(logger)
	defer func() { _ = logger.Sync() }()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("server_failed", zap.Error(err))
	}
}

func run(cfg config.Config, logger *zap.Logger) error {
	obs.Init()
	obs.InitBuildInfo(version, commit)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := openStores(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() { _ = st.close() }()

	tokens, err := auth.NewTokenService(cfg.Auth.TokenSecret, cfg.Auth.AdminTokenTTL, auth.WithIssuer(cfg.Auth.Issuer))
	if err != nil {
		return err
	}
	accounts, err := auth.NewService(st.accounts, tokens,
		auth.WithSessionTTL(cfg.Auth.AdminTokenTTL),
		auth.WithPasswordCost(cfg.Auth.PasswordCost),
	)
	if err != nil {
		return err
	}
	if cfg.Bootstrap.Password != "" {
		acc, created, err := accounts.EnsureSuperadmin(ctx, auth.BootstrapInput{
			Username: cfg.Bootstrap.Username,
			Email:    cfg.Bootstrap.Email,
			Password: cfg.Bootstrap.Password,
		})
		if err != nil {
			return fmt.Errorf("bootstrap superadmin: %w", err)
		}
		logger.Info("superadmin_ready", zap.String("account_id", acc.ID), zap.Bool("created", created))
	}

	feed := audit.NewFeed()
	recOpts := []audit.Option{
		audit.WithLogger(logger.Named("audit")),
		audit.WithFeed(feed),
		audit.WithWriteTimeout(cfg.Audit.WriteTimeout),
	}
	if st.directory != nil {
		recOpts = append(recOpts, audit.WithDirectory(st.directory))
	}
	recorder, err := audit.NewRecorder(st.logs, recOpts...)
	if err != nil {
		return err
	}
	go drainAuditErrors(ctx, recorder)

	cat, err := catalog.NewService(st.catalog, catalog.NewViewDeduper(cfg.Views.Capacity, cfg.Views.Window))
	if err != nil {
		return err
	}
	stats, err := analytics.NewService(st.source, st.inventory)
	if err != nil {
		return err
	}
	customers, err := customer.NewService(st.customers, tokens,
		customer.WithTokenTTL(cfg.Auth.CustomerTokenTTL),
		customer.WithPasswordCost(cfg.Auth.PasswordCost),
	)
	if err != nil {
		return err
	}

	api, err := httpapi.New(httpapi.Deps{
		Accounts:  accounts,
		Tokens:    tokens,
		Audit:     recorder,
		Feed:      feed,
		Catalog:   cat,
		Customers: customers,
		Analytics: stats,
		Ready:     st.ready,
		Version:   version,
		Logger:    logger,
		Limits: httpapi.Limits{
			PerSecond:          cfg.RateLimit.PerSecond,
			Burst:              cfg.RateLimit.Burst,
			AnalyticsPerMinute: cfg.RateLimit.AnalyticsPerMinute,
			MaxBodyBytes:       cfg.MaxBodyBytes,
			CORSOrigins:        cfg.CORSOrigins,
		},
	})
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           api.Handler(),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	grpcServer := grpc.NewServer()
	health := httpapi.NewHealthServer(st.ready)
	health.Register(grpcServer)
	grpcLis, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		return fmt.Errorf("listen grpc: %w", err)
	}

	errs := make(chan error, 2)
	go func() {
		logger.Info("http_listening", zap.String("addr", srv.Addr), zap.String("version", version))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errs <- fmt.Errorf("http: %w", err)
		}
	}()
	go func() {
		logger.Info("grpc_listening", zap.String("addr", grpcLis.Addr().String()))
		if err := grpcServer.Serve(grpcLis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			errs <- fmt.Errorf("grpc: %w", err)
		}
	}()
	go health.Run(ctx, 10*time.Second)

	select {
	case <-ctx.Done():
		logger.Info("shutting_down")
	case err := <-errs:
		stop()
		logger.Error("server_error", zap.Error(err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http_shutdown", zap.Error(err))
	}
	grpcServer.GracefulStop()
	recorder.Wait()
	logger.Info("stopped")
	return nil
}

// openStores connects to PostgreSQL, or falls back to process memory when
// no database is configured.
func openStores(ctx context.Context, cfg config.Config, logger *zap.Logger) (stores, error) {
	if cfg.DatabaseURL == "" {
		logger.Warn("database_not_configured", zap.String("mode", "memory"))
		accounts := auth.NewMemoryStore()
		logs := audit.NewMemoryStore()
		products := catalog.NewMemoryStore()
		return stores{
			accounts:  accounts,
			logs:      logs,
			directory: accounts,
			catalog:   products,
			customers: customer.NewMemoryStore(),
			source:    analytics.CatalogSource{Store: products},
			inventory: analytics.StoreInventory{Accounts: accounts, Catalog: products, Audit: logs},
			close:     func() error { return nil },
		}, nil
	}

	db, err := pg.Open(cfg.DatabaseURL)
	if err != nil {
		return stores{}, fmt.Errorf("open db: %w", err)
	}
	if cfg.AutoMigrate {
		migrateCtx, cancel := context.WithTimeout(ctx, time.Minute)
		defer cancel()
		if err := migrate.NewManager(db.DB(), migrations.SQL(), migrations.Seeds()).Up(migrateCtx); err != nil {
			_ = db.Close()
			return stores{}, fmt.Errorf("migrate: %w", err)
		}
		logger.Info("migrations_applied")
	}
	return stores{
		accounts:  db,
		logs:      db,
		catalog:   db,
		customers: db,
		source:    db,
		inventory: db,
		ready:     httpapi.ReadyCheck{DB: db.DB()},
		close:     db.Close,
	}, nil
}

func drainAuditErrors(ctx context.Context, r *audit.Recorder) {
	errs := r.Errors()
	for {
		select {
		case <-ctx.Done():
			return
		case <-errs:
			// Already logged and counted by the recorder.
		}
	}
}
