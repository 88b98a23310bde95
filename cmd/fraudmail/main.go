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

	"github.com/urfave/cli/v3"
	"github.com/znz-systems/fraudmail/internal/client"
	"github.com/znz-systems/fraudmail/internal/company"
	"github.com/znz-systems/fraudmail/internal/config"
	"github.com/znz-systems/fraudmail/internal/database"
	"github.com/znz-systems/fraudmail/internal/email"
	"github.com/znz-systems/fraudmail/internal/logging"
	"github.com/znz-systems/fraudmail/internal/store/postgres"
	"github.com/znz-systems/fraudmail/internal/web"
	"github.com/znz-systems/fraudmail/internal/web/handlers"
	"github.com/znz-systems/fraudmail/migrations"
)

func main() {
	root := &cli.Command{
		Name:  "fraudmail",
		Usage: "Registry of suspected fraudulent emails per client",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Usage: "path to a YAML config file (defaults to $CONFIG_FILE)"},
		},
		Commands: []*cli.Command{
			serveCommand(),
			migrateCommand(),
			importMboxCommand(),
		},
		Action: runServe,
	}

	if err := root.Run(context.Background(), os.Args); err != nil {
		slog.Error("fraudmail failed", "error", err)
		os.Exit(1)
	}
}

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:   "serve",
		Usage:  "Run migrations and serve the HTTP API",
		Action: runServe,
	}
}

func migrateCommand() *cli.Command {
	return &cli.Command{
		Name:  "migrate",
		Usage: "Apply all pending migrations",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "down", Usage: "revert every migration instead"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if cmd.Bool("down") {
				return database.RevertMigrations(migrations.FS, cfg.DSN())
			}
			return database.RunMigrations(migrations.FS, cfg.DSN())
		},
	}
}

func loadConfig(cmd *cli.Command) (*config.Config, error) {
	cfg, err := config.Load(cmd.String("config"))
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	logging.Setup(os.Stderr, cfg.Logging.Level, cfg.Logging.Format)
	return cfg, nil
}

func runServe(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	// Database
	db, err := postgres.NewDB(cfg.DSN(), postgres.PoolOptions{
		MaxOpenConns: cfg.Database.MaxOpenConns,
		MaxIdleConns: cfg.Database.MaxIdleConns,
	})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	// Migrations
	if err := database.RunMigrations(migrations.FS, cfg.DSN()); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	// Stores
	clientStore := postgres.NewClientStore(db)
	companyStore := postgres.NewCompanyStore(db)
	emailStore := postgres.NewEmailStore(db)

	// Services
	clientService := client.NewService(clientStore)
	companyService := company.NewService(companyStore)
	emailService := email.NewService(emailStore, companyStore, emailOptions(cfg))

	// Router
	router := web.NewRouter(web.RouterDeps{
		ClientHandler:  handlers.NewClientHandler(clientService),
		CompanyHandler: handlers.NewCompanyHandler(companyService),
		EmailHandler:   handlers.NewEmailHandler(emailService),
		HealthHandler:  handlers.NewHealthHandler(db),
		Logger:         slog.Default(),
		MaxBodyBytes:   cfg.API.MaxBodyBytes,
	})

	// Server
	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		slog.Info("fraudmail starting", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-done:
	case <-ctx.Done():
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	}
	slog.Info("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "error", err)
	}
	return nil
}

func emailOptions(cfg *config.Config) email.Options {
	return email.Options{
		MaxBatchSize:    cfg.API.MaxBatchSize,
		DefaultPageSize: cfg.API.DefaultPageSize,
		MaxPageSize:     cfg.API.MaxPageSize,
	}
}
