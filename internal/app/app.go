package app

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/jonboulle/clockwork"
	"github.com/sourcegraph/conc"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/riskibarqy/touchline/internal/config"
	"github.com/riskibarqy/touchline/internal/infrastructure/account"
	"github.com/riskibarqy/touchline/internal/infrastructure/account/anubis"
	"github.com/riskibarqy/touchline/internal/infrastructure/account/guest"
	"github.com/riskibarqy/touchline/internal/infrastructure/pushstream"
	"github.com/riskibarqy/touchline/internal/infrastructure/remote"
	"github.com/riskibarqy/touchline/internal/infrastructure/repository/sqlstore"
	"github.com/riskibarqy/touchline/internal/interfaces/httpapi"
	idgen "github.com/riskibarqy/touchline/internal/platform/id"
	"github.com/riskibarqy/touchline/internal/platform/logging"
	"github.com/riskibarqy/touchline/internal/platform/resilience"
	"github.com/riskibarqy/touchline/internal/usecase"
)

// App is the assembled device agent: local store, sync engine, match clock,
// viewer and the loopback control API.
type App struct {
	Server  *http.Server
	Sync    *usecase.SyncService
	Viewers *usecase.ViewerManager

	cfg    config.Config
	store  *sqlstore.Store
	logger *logging.Logger
	bg     conc.WaitGroup
}

func New(ctx context.Context, cfg config.Config, logger *logging.Logger) (*App, error) {
	if logger == nil {
		logger = logging.Default()
	}

	store, err := sqlstore.Open(ctx, sqlstore.Config{
		Driver:      cfg.DBDriver,
		DSN:         cfg.DBURL,
		AutoMigrate: cfg.DBAutoMigrate,
	})
	if err != nil {
		return nil, fmt.Errorf("open local store: %w", err)
	}

	ids := idgen.NewRandomGenerator()
	identity := newIdentityResolver(cfg, ids, logger)

	var (
		remoteClient *remote.Client
		tiers        usecase.TierSource
	)
	if cfg.RemoteBaseURL != "" {
		remoteClient = remote.NewClient(remote.ClientConfig{
			BaseURL:        cfg.RemoteBaseURL,
			Timeout:        cfg.RemoteTimeout,
			MaxRetries:     cfg.RemoteMaxRetries,
			Identity:       identity,
			Logger:         logger,
			CircuitBreaker: cfg.RemoteCircuit,
		})
		tiers = remoteClient
	}

	limits := usecase.NewLimitService(tiers, cfg.LimitsCacheTTL, logger)
	data := usecase.NewDataService(store, identity, limits, ids, logger)

	var (
		syncSvc *usecase.SyncService
		syncCtl httpapi.SyncController
	)
	if cfg.SyncEnabled && remoteClient != nil {
		syncSvc = usecase.NewSyncService(store, remoteClient, identity, usecase.SyncConfig{
			PushWorkers: cfg.SyncPushWorkers,
			PullWorkers: cfg.SyncPullWorkers,
			Debounce:    cfg.SyncDebounce,
			Interval:    cfg.SyncInterval,
		}, clockwork.NewRealClock(), logger)
		data.SetNotifier(syncSvc)
		syncCtl = syncSvc
	} else {
		logger.Warn("sync disabled, records stay on this device", "remote_base_url", cfg.RemoteBaseURL)
	}

	clock := usecase.NewClockService(data, logger)
	feed := usecase.NewFeedService(data)

	var stream usecase.PushStream
	if cfg.LiveBaseURL != "" {
		stream = pushstream.NewClient(pushstream.ClientConfig{
			BaseURL:          cfg.LiveBaseURL,
			HandshakeTimeout: cfg.LiveHandshakeTimeout,
			ReadTimeout:      cfg.LiveReadTimeout,
			Logger:           logger,
		})
	}
	backoff := resilience.DefaultBackoff()
	if cfg.ViewerMaxBackoff > 0 {
		backoff.Max = cfg.ViewerMaxBackoff
	}
	viewers := usecase.NewViewerManager(stream, usecase.ViewerOptions{
		Backoff: backoff,
		Logger:  logger,
	})

	handler := httpapi.NewHandler(data, syncCtl, identity, clock, feed, viewers, httpapi.HandlerOptions{
		TickInterval: cfg.ClockTickInterval,
		Logger:       logger,
	})
	router := httpapi.NewRouter(handler, logger, cfg.CORSAllowedOrigins)

	if strings.TrimSpace(cfg.HTTPAddr) == "" {
		_ = store.Close()
		return nil, fmt.Errorf("http server addr cannot be empty")
	}

	return &App{
		Server: &http.Server{
			Addr:         cfg.HTTPAddr,
			Handler:      router,
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
		},
		Sync:    syncSvc,
		Viewers: viewers,
		cfg:     cfg,
		store:   store,
		logger:  logger,
	}, nil
}

func newIdentityResolver(cfg config.Config, ids idgen.Generator, logger *logging.Logger) *account.Resolver {
	var verifier account.TokenVerifier
	if cfg.AnubisBaseURL != "" {
		verifier = anubis.NewClient(anubis.ClientConfig{
			HTTPClient: &http.Client{
				Timeout:   cfg.AnubisTimeout,
				Transport: otelhttp.NewTransport(http.DefaultTransport),
			},
			BaseURL:        cfg.AnubisBaseURL,
			IntrospectPath: cfg.AnubisIntrospectURL,
			AdminKey:       cfg.AnubisAdminKey,
			CacheTTL:       cfg.AnubisCacheTTL,
			CircuitBreaker: cfg.AnubisCircuit,
			Logger:         logger,
		})
	}
	return account.NewResolver(verifier, guest.NewStore(cfg.GuestIdentityPath, ids), cfg.AccessToken, logger)
}

// Start launches the background work: the first-launch pull, the sync loop
// and the configured viewer session. The HTTP server is started by the
// caller.
func (a *App) Start(ctx context.Context) error {
	if a.Sync != nil {
		a.bg.Go(func() {
			if err := a.Sync.Bootstrap(ctx); err != nil {
				a.logger.WarnContext(ctx, "initial pull failed, will retry on the sync interval", "error", err)
			}
		})
		a.Sync.Start(ctx)
	}

	if a.cfg.ViewerMatchID != "" {
		if _, err := a.Viewers.Open(ctx, a.cfg.ViewerMatchID, a.cfg.ViewerToken); err != nil {
			return fmt.Errorf("open viewer for match %s: %w", a.cfg.ViewerMatchID, err)
		}
		a.logger.InfoContext(ctx, "viewing live match", "match_id", a.cfg.ViewerMatchID)
	}

	return nil
}

// Shutdown stops the server first so no request writes after the store is
// closed.
func (a *App) Shutdown(ctx context.Context) error {
	var firstErr error
	if err := a.Server.Shutdown(ctx); err != nil {
		firstErr = fmt.Errorf("shutdown http server: %w", err)
	}

	a.Viewers.Close()
	if a.Sync != nil {
		a.Sync.Stop()
	}
	a.bg.Wait()

	if err := a.store.Close(); err != nil && firstErr == nil {
		firstErr = fmt.Errorf("close local store: %w", err)
	}
	return firstErr
}
