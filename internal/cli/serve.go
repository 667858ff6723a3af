package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/me/patrimoine/internal/config"
	"github.com/me/patrimoine/internal/i18n"
	"github.com/me/patrimoine/internal/portal"
	"github.com/me/patrimoine/internal/server"
	"github.com/me/patrimoine/internal/store"
	"github.com/me/patrimoine/pkg/catalogue"
)

const shutdownTimeout = 5 * time.Second

func newServeCmd() *cobra.Command {
	var (
		addr          string
		apiURL        string
		dbPath        string
		pollInterval  time.Duration
		secureCookies bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the web front end",
		RunE: func(cmd *cobra.Command, args []string) error {
			flags := cmd.Flags()
			if flags.Changed("addr") {
				cfg.Addr = addr
			}
			if flags.Changed("api-url") {
				cfg.APIURL = apiURL
			}
			if flags.Changed("db") {
				cfg.DBPath = dbPath
			}
			if flags.Changed("poll-interval") {
				cfg.PollInterval = pollInterval
			}
			if flags.Changed("secure-cookies") {
				cfg.SecureCookies = secureCookies
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, cfg)
		},
	}

	def := config.DefaultServerConfig()
	cmd.Flags().StringVar(&addr, "addr", def.Addr, "Listen address")
	cmd.Flags().StringVar(&apiURL, "api-url", def.APIURL, "Root URL of the catalogue API")
	cmd.Flags().StringVar(&dbPath, "db", def.DBPath, "Credential database path")
	cmd.Flags().DurationVar(&pollInterval, "poll-interval", def.PollInterval, "Moderation queue refresh interval for admins")
	cmd.Flags().BoolVar(&secureCookies, "secure-cookies", def.SecureCookies, "Mark cookies Secure (serve behind HTTPS)")
	return cmd
}

// runServe serves until ctx is cancelled, then shuts down gracefully.
func runServe(ctx context.Context, cfg config.ServerConfig) error {
	st, err := openStore(ctx, cfg.DBPath)
	if err != nil {
		return err
	}
	defer st.Close()

	client := catalogue.NewClient(catalogue.DefaultConfig().WithBaseURL(cfg.APIURL).WithTimeout(cfg.APITimeout), logger)

	reg := portal.NewRegistry(func(clientID string) portal.API {
		return client.Bind(st, clientID)
	}, portal.RegistryConfig{
		IdleTTL:       cfg.IdleTTL,
		CredentialTTL: cfg.CredentialTTL,
		MaxClients:    cfg.MaxClients,
	}, st, logger, portal.WithPollInterval(cfg.PollInterval))

	catalog, err := i18n.Load(cfg.DefaultLang)
	if err != nil {
		return fmt.Errorf("load translations: %w", err)
	}

	srv := server.New(cfg, st, reg, client, catalog, logger)
	defer srv.Close()
	srv.StartJanitor(ctx)

	httpServer := &http.Server{
		Addr:              cfg.Addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting", "addr", cfg.Addr, "api_url", cfg.APIURL)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	case <-ctx.Done():
	}
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	logger.Info("server stopped")
	return nil
}

// openStore opens the credential database and brings its schema up to date.
func openStore(ctx context.Context, path string) (*store.SQLiteStore, error) {
	st, err := store.NewSQLiteStore(path, logger)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := st.Migrate(ctx); err != nil {
		st.Close()
		return nil, fmt.Errorf("migrate database: %w", err)
	}
	logger.Info("database ready", "path", path)
	return st, nil
}
