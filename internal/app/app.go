package app

import (
	"context"
	"errors"
	"fmt"
	stdhttp "net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/docflow-server/internal/auth"
	"github.com/vovakirdan/docflow-server/internal/cache"
	"github.com/vovakirdan/docflow-server/internal/config"
	"github.com/vovakirdan/docflow-server/internal/core"
	"github.com/vovakirdan/docflow-server/internal/log"
	"github.com/vovakirdan/docflow-server/internal/notify"
	"github.com/vovakirdan/docflow-server/internal/objectstore"
	"github.com/vovakirdan/docflow-server/internal/service/categories"
	"github.com/vovakirdan/docflow-server/internal/service/documents"
	"github.com/vovakirdan/docflow-server/internal/store"
	"github.com/vovakirdan/docflow-server/internal/store/sqlite"
	transporthttp "github.com/vovakirdan/docflow-server/internal/transport/http"
)

// App wires together storage, the realtime hub and the transport layer.
type App struct {
	server          *stdhttp.Server
	shutdownTimeout time.Duration
	hub             *core.Hub
	store           store.Store
	cache           cache.Documents
	log             *zerolog.Logger
}

// New constructs the application with provided configuration.
// Object storage must be reachable; the bucket is created when missing.
func New(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) (*App, error) {
	logger = log.OrNop(logger)

	st, err := sqlite.New(cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("init store: %w", err)
	}
	logger.Info().Str("db_path", cfg.DatabasePath).Msg("database initialized")

	objects, err := objectstore.NewMinio(cfg.Storage)
	if err != nil {
		_ = st.Close()
		return nil, fmt.Errorf("init object storage: %w", err)
	}
	if err := objects.EnsureBucket(ctx); err != nil {
		_ = st.Close()
		return nil, fmt.Errorf("ensure bucket: %w", err)
	}
	logger.Info().Str("endpoint", cfg.Storage.Endpoint).Str("bucket", cfg.Storage.Bucket).Msg("object storage ready")

	var docCache cache.Documents = cache.Nop{}
	if cfg.Redis.Enabled {
		r, err := cache.NewRedis(ctx, cfg.Redis)
		if err != nil {
			// The cache only saves lookups; run without it.
			logger.Warn().Err(err).Str("addr", cfg.Redis.Addr).Msg("redis unavailable, document cache disabled")
		} else {
			docCache = r
			logger.Info().Str("addr", cfg.Redis.Addr).Msg("document cache enabled")
		}
	}

	authService := auth.NewService(st, jwtConfig(cfg))

	hubLogger := logger.With().Str("component", "hub").Logger()
	hub := core.NewHub(&hubLogger)
	emitter := notify.NewEmitter(hub, st, logger)

	deps := transporthttp.Deps{
		Hub:   hub,
		Auth:  authService,
		Store: st,
		Documents: documents.New(documents.Options{
			Store:         st,
			Objects:       objects,
			Cache:         docCache,
			Events:        emitter,
			Upload:        cfg.Upload,
			PresignExpiry: cfg.Storage.PresignExpiry,
			Logger:        logger,
		}),
		Categories: categories.New(st, emitter),
		Emitter:    emitter,
	}

	return &App{
		server:          transporthttp.NewServer(deps, cfg, logger),
		shutdownTimeout: cfg.ShutdownTimeout,
		hub:             hub,
		store:           st,
		cache:           docCache,
		log:             logger,
	}, nil
}

// Run starts the hub and the HTTP server and blocks until context cancellation or fatal error.
func (a *App) Run(ctx context.Context) error {
	serverErr := make(chan error, 1)

	hubCtx, stopHub := context.WithCancel(context.Background())
	defer stopHub()
	go a.hub.Run(hubCtx)
	<-a.hub.Ready()

	go func() {
		a.log.Info().Str("addr", a.server.Addr).Msg("http server listening")
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, stdhttp.ErrServerClosed) {
			serverErr <- err
			return
		}
		serverErr <- nil
	}()

	select {
	case err := <-serverErr:
		stopHub()
		<-a.hub.Done()
		a.cleanup()
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.shutdownTimeout)
		defer cancel()

		a.log.Info().Msg("shutting down http server")
		// Stopping the hub releases every socket so Shutdown is not held up by open connections.
		stopHub()
		<-a.hub.Done()
		if err := a.server.Shutdown(shutdownCtx); err != nil {
			a.cleanup()
			return err
		}

		a.cleanup()
		return <-serverErr
	}
}

// cleanup closes database and other resources.
func (a *App) cleanup() {
	if a.cache != nil {
		if err := a.cache.Close(); err != nil {
			a.log.Warn().Err(err).Msg("failed to close cache")
		}
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.log.Warn().Err(err).Msg("failed to close store")
		} else {
			a.log.Info().Msg("store closed")
		}
	}
}

// PromoteUser grants the admin role to the account with the given email.
func PromoteUser(ctx context.Context, cfg *config.Config, email string) (*store.User, error) {
	st, err := sqlite.New(cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("init store: %w", err)
	}
	defer st.Close()

	return auth.NewService(st, jwtConfig(cfg)).Promote(ctx, email)
}

func jwtConfig(cfg *config.Config) *auth.JWTConfig {
	return &auth.JWTConfig{
		Secret:   []byte(cfg.JWT.Secret),
		Issuer:   cfg.JWT.Issuer,
		Audience: cfg.JWT.Audience,
		TTL:      cfg.JWT.TTL,
	}
}
