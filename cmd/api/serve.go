package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/markbates/goth"
	"github.com/markbates/goth/gothic"
	"github.com/markbates/goth/providers/azureadv2"
	"github.com/markbates/goth/providers/google"
	"github.com/petermazzocco/project-journal/internal/auth"
	"github.com/petermazzocco/project-journal/internal/config"
	"github.com/petermazzocco/project-journal/internal/handlers"
	"github.com/petermazzocco/project-journal/internal/metrics"
	"github.com/petermazzocco/project-journal/internal/router"
	"github.com/petermazzocco/project-journal/internal/service"
	"github.com/petermazzocco/project-journal/internal/storage"
	"github.com/petermazzocco/project-journal/internal/store/postgres"
	"github.com/spf13/cobra"
)

type loader func() (*config.Config, error)

func serveCmd(load loader) *cobra.Command {
	var migrate bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			return serve(cmd.Context(), cfg, migrate)
		},
	}
	cmd.Flags().BoolVar(&migrate, "migrate", true, "Auto migrate models before serving")
	return cmd
}

func serve(ctx context.Context, cfg *config.Config, migrate bool) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	log := slog.Default()

	db, err := postgres.Open(cfg.Database.DSN)
	if err != nil {
		return err
	}
	defer db.Close()
	if migrate {
		if err := db.Migrate(); err != nil {
			return err
		}
	}

	blobs, err := storage.NewS3(ctx, cfg.Storage, cfg.StorageEndpoint())
	if err != nil {
		return err
	}

	sessions := auth.NewSessionStore(cfg.Auth, cfg.Server.Production)
	gothic.Store = sessions
	useProviders(cfg)

	var email *auth.EmailLogin
	if cfg.SMTP.Host != "" {
		email = auth.NewEmailLogin(cfg.Auth.SessionSecret, cfg.Auth.EmailTokenTTL, auth.NewSMTPMailer(cfg.SMTP), cfg.Server.PublicURL)
	} else {
		log.Warn("SMTP_HOST not set, email sign-in disabled")
	}

	m := metrics.New()
	svc := service.New(db, blobs, log, service.WithMetrics(m))
	h := handlers.New(svc, sessions, email, log, "/")

	srv := &http.Server{
		Addr: cfg.Addr(),
		Handler: router.New(router.Deps{
			Handler:   h,
			Store:     db,
			Sessions:  sessions,
			Metrics:   m,
			Log:       log,
			RateLimit: cfg.Server.RateLimit,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		log.Info("starting API server", "addr", srv.Addr, "public_url", cfg.Server.PublicURL)
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

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func useProviders(cfg *config.Config) {
	base := strings.TrimRight(cfg.Server.PublicURL, "/")
	callback := func(provider string) string {
		return fmt.Sprintf("%s/auth/%s/callback", base, provider)
	}

	var providers []goth.Provider
	if cfg.Auth.GoogleKey != "" {
		providers = append(providers, google.New(cfg.Auth.GoogleKey, cfg.Auth.GoogleSecret, callback("google"), "email", "profile"))
	}
	if cfg.Auth.AzureADKey != "" {
		providers = append(providers, azureadv2.New(cfg.Auth.AzureADKey, cfg.Auth.AzureADSecret, callback("azureadv2"), azureadv2.ProviderOptions{
			Tenant: azureadv2.CommonTenant,
			Scopes: []azureadv2.ScopeType{azureadv2.OpenIDScope, azureadv2.ProfileScope, azureadv2.EmailScope},
		}))
	}
	if len(providers) == 0 {
		slog.Warn("no OAuth provider configured")
		return
	}
	goth.UseProviders(providers...)
}
