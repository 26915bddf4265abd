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

	"concorda/agreement"
	"concorda/api"
	"concorda/auth"
	"concorda/config"
	"concorda/dashboard"
	"concorda/db"
	"concorda/logger"
	"concorda/preference"
	"concorda/profile"
	"concorda/suggest"
	"concorda/tip"
)

func main() {
	if err := rootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "concorda",
		Short:         "Concorda social agreements backend",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	var skipMigrate bool
	serve := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), skipMigrate)
		},
	}
	serve.Flags().BoolVar(&skipMigrate, "skip-migrate", false, "do not apply pending migrations on start")

	migrate := &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations and exit",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runMigrate(cmd.Context())
		},
	}

	root.AddCommand(serve, migrate)
	return root
}

func bootstrap(ctx context.Context) (*config.Config, zerolog.Logger, *pgxpool.Pool, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, zerolog.Nop(), nil, fmt.Errorf("load config: %w", err)
	}
	log := logger.New(cfg.Environment)

	pool, err := db.NewPool(ctx, cfg.DB.URL, cfg.DB.MaxConns)
	if err != nil {
		return nil, log, nil, fmt.Errorf("bootstrap database pool: %w", err)
	}
	return cfg, log, pool, nil
}

func runMigrate(ctx context.Context) error {
	_, log, pool, err := bootstrap(ctx)
	if err != nil {
		return err
	}
	defer pool.Close()

	applied, err := db.Migrate(ctx, pool)
	if err != nil {
		return err
	}
	log.Info().Strs("applied", applied).Msg("migrations complete")
	return nil
}

func runServe(ctx context.Context, skipMigrate bool) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, log, pool, err := bootstrap(ctx)
	if err != nil {
		return err
	}
	defer pool.Close()

	if !skipMigrate {
		applied, err := db.Migrate(ctx, pool)
		if err != nil {
			return err
		}
		if len(applied) > 0 {
			log.Info().Strs("applied", applied).Msg("migrations applied")
		}
	}

	suggester, err := suggest.NewGemini(ctx, suggest.Config{
		APIKey:  cfg.Suggest.APIKey,
		Model:   cfg.Suggest.Model,
		Timeout: cfg.Suggest.Timeout,
	}, log.With().Str("component", "suggest").Logger())
	if err != nil {
		return err
	}

	accounts := auth.NewService(auth.NewRepository(pool), cfg.Auth.JWTSecret)
	router := api.NewRouter(
		api.NewHandler(newServices(pool, cfg, suggester, accounts, log), log),
		accounts,
		cfg.Environment,
		cfg.HTTP.AllowedOrigins,
	)

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Msg("starting concorda api")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func newServices(pool *pgxpool.Pool, cfg *config.Config, suggester *suggest.Gemini, accounts *auth.Service, log zerolog.Logger) api.Services {
	agreements := agreement.NewRepository(pool)
	crud := agreement.NewCRUDService(agreements, suggester, log.With().Str("component", "agreement").Logger())
	lifecycle := agreement.NewLifecycleService(agreements, log.With().Str("component", "lifecycle").Logger()).
		WithClosurePolicy(cfg.Agreement.ClosurePolicy)
	tips := tip.NewService(tip.NewRepository(pool), suggester, log.With().Str("component", "tip").Logger())

	return api.Services{
		Accounts:    accounts,
		Profiles:    profile.NewService(profile.NewRepository(pool)),
		Agreements:  crud,
		Lifecycle:   lifecycle,
		Suggester:   suggester,
		Tips:        tips,
		Preferences: preference.NewService(preference.NewRepository(pool)),
		Dashboard:   dashboard.NewService(crud, tips, log.With().Str("component", "dashboard").Logger()),
	}
}
