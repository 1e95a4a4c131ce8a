package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/MikhailRaia/bookmark-manager/internal/auth"
	"github.com/MikhailRaia/bookmark-manager/internal/config"
	"github.com/MikhailRaia/bookmark-manager/internal/gate"
	"github.com/MikhailRaia/bookmark-manager/internal/generator"
	"github.com/MikhailRaia/bookmark-manager/internal/handler"
	"github.com/MikhailRaia/bookmark-manager/internal/middleware"
	"github.com/MikhailRaia/bookmark-manager/internal/proto"
	"github.com/MikhailRaia/bookmark-manager/internal/service"
	"github.com/MikhailRaia/bookmark-manager/internal/storage"
	"github.com/MikhailRaia/bookmark-manager/internal/storage/file"
	"github.com/MikhailRaia/bookmark-manager/internal/storage/memory"
	"github.com/MikhailRaia/bookmark-manager/internal/storage/postgres"
	redisstore "github.com/MikhailRaia/bookmark-manager/internal/storage/redis"
	"github.com/MikhailRaia/bookmark-manager/internal/supabase"
	"github.com/MikhailRaia/bookmark-manager/internal/worker"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
)

const (
	shutdownTimeout = 10 * time.Second
	secretLength    = 32
)

type store interface {
	storage.BookmarkStore
	storage.Pinger
}

type App struct {
	config     *config.Config
	handler    http.Handler
	grpcServer *grpc.Server
	service    *service.BookmarkService
	workers    *worker.RevokeWorkerPool
	closers    []func()
}

// NewApp wires the store, the identity backend, the session gate and both
// servers. Resources opened before a failure are released.
func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {
	a := &App{config: cfg}

	var (
		bookmarks     store
		authenticator gate.Authenticator
		sessions      middleware.TokenSessions
	)

	switch cfg.Backend {
	case config.BackendSupabase:
		client, err := supabase.NewClient(supabase.Config{URL: cfg.SupabaseURL, AnonKey: cfg.SupabaseAnonKey})
		if err != nil {
			return nil, err
		}
		bookmarks = supabase.NewBookmarks(client)
		backend := supabase.NewAuth(client)
		authenticator, sessions = backend, backend
		log.Info().Str("url", cfg.SupabaseURL).Msg("Using hosted backend")

	default:
		s, err := a.localStore(ctx)
		if err != nil {
			a.Close()
			return nil, err
		}
		bookmarks = s

		local, err := a.localAuth(ctx)
		if err != nil {
			a.Close()
			return nil, err
		}
		authenticator, sessions = local, local
	}

	svc, err := service.NewBookmarkService(bookmarks, cfg.ViewModelCacheSize)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.service = svc

	gateOpts := gate.DefaultOptions(cfg.BaseURL)
	gateOpts.Provider = cfg.OAuthProvider
	gateOpts.OnFailure = gate.ParseFailurePolicy(cfg.SessionFailure)
	sessionGate := gate.New(authenticator, gateOpts, gate.OnSignOut(svc.Discard))

	a.handler = handler.NewHandler(svc, sessionGate, bookmarks, handler.WithProviderName(cfg.OAuthProvider)).RegisterRoutes()

	a.grpcServer = grpc.NewServer(grpc.UnaryInterceptor(middleware.NewGRPCAuthMiddleware(sessions).UnaryInterceptor))
	proto.RegisterBookmarkServiceServer(a.grpcServer, handler.NewBookmarkGRPCServer(svc))

	return a, nil
}

func (a *App) localStore(ctx context.Context) (store, error) {
	switch {
	case a.config.DatabaseDSN != "":
		s, err := postgres.NewStorage(ctx, a.config.DatabaseDSN)
		if err != nil {
			return nil, fmt.Errorf("failed to open database: %w", err)
		}
		a.closers = append(a.closers, s.Close)
		log.Info().Msg("Using PostgreSQL storage")
		return s, nil

	case a.config.FileStoragePath != "":
		s, err := file.NewStorage(a.config.FileStoragePath)
		if err != nil {
			return nil, fmt.Errorf("failed to open file storage: %w", err)
		}
		log.Info().Str("path", a.config.FileStoragePath).Msg("Using file storage")
		return s, nil

	default:
		log.Info().Msg("Using in-memory storage")
		return memory.NewStorage(), nil
	}
}

func (a *App) localAuth(ctx context.Context) (*auth.Local, error) {
	var revocations auth.RevocationStore
	if a.config.RedisAddr != "" {
		opts := redisstore.DefaultConnectOptions(a.config.RedisAddr)
		opts.Password = a.config.RedisPassword
		opts.DB = a.config.RedisDB

		client, err := redisstore.Connect(ctx, opts)
		if err != nil {
			return nil, err
		}
		r := redisstore.NewRevocations(client)
		a.closers = append(a.closers, func() {
			if err := r.Close(); err != nil {
				log.Error().Err(err).Msg("Failed to close redis client")
			}
		})
		revocations = r
	} else {
		log.Warn().Msg("No redis configured, session revocations are kept in memory")
		revocations = auth.NewMemoryRevocations()
	}

	a.workers = worker.NewRevokeWorkerPool(revocations, worker.DefaultConfig())
	a.workers.Start()

	secret := a.config.SessionSecret
	if secret == "" {
		var err error
		secret, err = generator.GenerateID(secretLength)
		if err != nil {
			return nil, fmt.Errorf("failed to generate session secret: %w", err)
		}
		log.Warn().Msg("No session secret configured, sessions will not survive a restart")
	}

	provider := auth.NewProvider(auth.ProviderConfig{
		Name:         a.config.OAuthProvider,
		ClientID:     a.config.OAuthClientID,
		ClientSecret: a.config.OAuthClientSecret,
		AuthURL:      a.config.OAuthAuthURL,
		TokenURL:     a.config.OAuthTokenURL,
		UserInfoURL:  a.config.OAuthUserInfoURL,
	})

	return auth.NewLocal(
		auth.NewJWTService(secret, a.config.SessionTTL),
		provider,
		revocations,
		auth.WithRevoker(a.workers),
	), nil
}

// Handler returns the HTTP routes.
func (a *App) Handler() http.Handler {
	return a.handler
}

// Run serves HTTP and gRPC until ctx is cancelled or a server fails, then
// shuts both down and drains the revocation workers.
func (a *App) Run(ctx context.Context) error {
	defer a.Close()

	httpServer := &http.Server{
		Addr:              a.config.ServerAddress,
		Handler:           a.handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		var err error
		if a.config.EnableHTTPS {
			log.Info().Str("address", a.config.ServerAddress).Str("baseURL", a.config.BaseURL).Msg("Starting HTTPS server")
			err = httpServer.ListenAndServeTLS(a.config.TLSCertFile, a.config.TLSKeyFile)
		} else {
			log.Info().Str("address", a.config.ServerAddress).Str("baseURL", a.config.BaseURL).Msg("Starting HTTP server")
			err = httpServer.ListenAndServe()
		}
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	})

	if a.config.GRPCAddress != "" {
		g.Go(func() error {
			lis, err := net.Listen("tcp", a.config.GRPCAddress)
			if err != nil {
				return fmt.Errorf("failed to listen for gRPC: %w", err)
			}
			log.Info().Str("address", lis.Addr().String()).Msg("Starting gRPC server")
			return a.grpcServer.Serve(lis)
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("Shutting down servers")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		err := httpServer.Shutdown(shutdownCtx)
		a.grpcServer.GracefulStop()
		return err
	})

	return g.Wait()
}

// Close drains the revocation workers and releases storage connections.
func (a *App) Close() {
	if a.workers != nil {
		if err := a.workers.Shutdown(shutdownTimeout); err != nil {
			log.Error().Err(err).Msg("Revocation workers did not drain")
		}
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
