package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/zenga/cms/internal/config"
	"github.com/zenga/cms/internal/security"
	"github.com/zenga/cms/internal/server/auth"
	"github.com/zenga/cms/internal/server/handlers"
	"github.com/zenga/cms/internal/server/metrics"
	"github.com/zenga/cms/internal/server/middleware"
	"github.com/zenga/cms/internal/server/session"
	"github.com/zenga/cms/internal/server/storage/boltdb"
	"github.com/zenga/cms/internal/server/storage/sqlite"
)

// App holds the opened stores and the HTTP handler of a running server
type App struct {
	Handler     http.Handler
	Store       *sqlite.Storage
	Revocations *boltdb.Storage
	logger      *slog.Logger
	limiter     *middleware.RateLimiter
}

// New opens the stores and wires the whole HTTP API from cfg
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	collector := metrics.NewCollector(registry)

	store, err := sqlite.New(ctx, cfg.DatabasePath,
		sqlite.WithOwnerOpenID(cfg.OwnerOpenID),
		sqlite.WithUpsertObserver(collector),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	revocations, err := boltdb.New(ctx, cfg.RevocationsPath)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to open session deny-list: %w", err)
	}

	app := &App{
		Store:       store,
		Revocations: revocations,
		logger:      logger,
	}

	sessions, err := session.NewManager(cfg.SessionSecret, cfg.SessionTTL)
	if err != nil {
		_ = app.Close()
		return nil, err
	}

	accounts, err := auth.NewService(store, revocations, logger, cfg.BcryptCost)
	if err != nil {
		_ = app.Close()
		return nil, err
	}

	authenticators := []auth.Authenticator{
		auth.NewSessionAuthenticator(sessions, store, revocations),
	}

	var oauthHandler *handlers.OAuthHandler
	if cfg.OAuth.Enabled() {
		provider := auth.NewOAuthProvider(auth.OAuthConfig{
			Provider:     cfg.OAuth.Provider,
			ClientID:     cfg.OAuth.ClientID,
			ClientSecret: cfg.OAuth.ClientSecret,
			RedirectURL:  cfg.OAuth.RedirectURL,
			AuthURL:      cfg.OAuth.AuthURL,
			TokenURL:     cfg.OAuth.TokenURL,
			UserInfoURL:  cfg.OAuth.UserInfoURL,
			Scopes:       cfg.OAuth.Scopes,
		}, &http.Client{Timeout: cfg.ExternalAuthTimeout})

		authenticators = append(authenticators, auth.NewExternalAuthenticator(provider, store, cfg.ExternalAuthTimeout))
		oauthHandler = handlers.NewOAuthHandler(logger, provider, store, sessions, collector)
	}

	app.limiter = middleware.NewRateLimiter(cfg.LoginRateLimit, cfg.LoginRateWindow, logger,
		middleware.WithTrustedProxy(cfg.TrustProxyHeaders),
	)
	sanitizer := security.NewSanitizer()

	deps := RouterDeps{
		Logger:      logger,
		Resolver:    auth.NewResolver(logger, collector, authenticators...),
		Metrics:     collector,
		LoginLimit:  app.limiter,
		Health:      handlers.NewHealthHandler(logger, store, cfg.Version),
		Auth:        handlers.NewAuthHandler(logger, accounts, sessions, revocations, collector),
		OAuth:       oauthHandler,
		Collections: handlers.NewCollectionHandler(logger, store, sanitizer),
		Content:     handlers.NewContentHandler(logger, store, sanitizer),
	}
	if cfg.MetricsEnabled {
		deps.Gatherer = registry
	}

	app.Handler = NewRouter(deps)

	return app, nil
}

// PurgeRevocations periodically drops expired deny-list entries until ctx is done
func (a *App) PurgeRevocations(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			n, err := a.Revocations.PurgeExpired(ctx, now)
			if err != nil {
				a.logger.WarnContext(ctx, "failed to purge revoked sessions", slog.Any("error", err))
				continue
			}
			if n > 0 {
				a.logger.DebugContext(ctx, "purged revoked sessions", slog.Int("count", n))
			}
		}
	}
}

// Close stops background work and closes the stores
func (a *App) Close() error {
	if a.limiter != nil {
		a.limiter.Stop()
	}

	var errs []error
	if a.Revocations != nil {
		errs = append(errs, a.Revocations.Close())
	}
	if a.Store != nil {
		errs = append(errs, a.Store.Close())
	}
	return errors.Join(errs...)
}
