package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"blogapi/config"
	"blogapi/internal/adapter/in/rest"
	"blogapi/internal/adapter/out/hasher"
	inmemorybus "blogapi/internal/adapter/out/pubsub/inmemory"
	memstore "blogapi/internal/adapter/out/storage/inmemory"
	pgstore "blogapi/internal/adapter/out/storage/postgres"
	"blogapi/internal/service"
	"blogapi/pkg/logger"

	trmpgx "github.com/avito-tech/go-transaction-manager/drivers/pgxv5/v2"
	"github.com/avito-tech/go-transaction-manager/trm/v2/manager"
	"github.com/jackc/pgx/v5/pgxpool"
)

type App struct {
	cfg  config.Config
	srv  *http.Server
	pool *pgxpool.Pool
}

type storages struct {
	users    service.UserStorage
	posts    service.PostStorage
	comments service.CommentStorage
	tx       service.TxManager
}

func NewApp(ctx context.Context, cfg config.Config) (*App, error) {
	log := logger.FromContext(ctx)

	var (
		st   storages
		pool *pgxpool.Pool
	)

	switch cfg.StorageType {
	case config.StoragePostgres:
		var err error
		pool, st, err = postgresStorages(ctx, cfg.Postgres)
		if err != nil {
			return nil, err
		}

	default:
		st = storages{
			users:    memstore.NewUserStorage(),
			posts:    memstore.NewPostStorage(),
			comments: memstore.NewCommentStorage(),
			tx:       memstore.NewTxManager(),
		}
	}

	bus := inmemorybus.New(cfg.CommentBus.Buffer)
	streamsDone := make(chan struct{})

	userSvc := service.NewUserService(st.users, hasher.New(cfg.Auth.BcryptCost), st.tx)
	postSvc := service.NewPostService(st.posts, st.comments, bus, st.tx)
	commentSvc := service.NewCommentService(st.comments, st.posts, bus, st.tx)

	router := rest.NewRouter(rest.Services{
		Users:    userSvc,
		Posts:    postSvc,
		Comments: commentSvc,
	}, rest.Options{
		Logger:         log,
		AllowedOrigins: cfg.HTTP.AllowedOrigins,
		StreamsDone:    streamsDone,
	})

	addr := ":" + cfg.HTTP.Port
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	// Open comment streams end as soon as Shutdown starts.
	srv.RegisterOnShutdown(func() { close(streamsDone) })

	log.Info("app initialized", "addr", addr, "storage", cfg.StorageType)
	return &App{cfg: cfg, srv: srv, pool: pool}, nil
}

func postgresStorages(ctx context.Context, cfg config.PostgresConfig) (*pgxpool.Pool, storages, error) {
	dsn := cfg.GetDSN()

	if cfg.Migrate {
		if err := pgstore.Migrate(dsn); err != nil {
			return nil, storages{}, fmt.Errorf("migrate: %w", err)
		}
		logger.FromContext(ctx).Info("migrations applied")
	}

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, storages{}, fmt.Errorf("pgxpool: %w", err)
	}

	trManager, err := manager.New(trmpgx.NewDefaultFactory(pool))
	if err != nil {
		pool.Close()
		return nil, storages{}, fmt.Errorf("transaction manager: %w", err)
	}

	return pool, storages{
		users:    pgstore.NewUserStorage(pool, trmpgx.DefaultCtxGetter),
		posts:    pgstore.NewPostStorage(pool, trmpgx.DefaultCtxGetter),
		comments: pgstore.NewCommentStorage(pool, trmpgx.DefaultCtxGetter),
		tx:       trManager,
	}, nil
}

func (a *App) Run(ctx context.Context) error {
	log := logger.FromContext(ctx)
	defer a.close()

	errCh := make(chan error, 1)
	go func() {
		log.Info("http server listening", "addr", a.srv.Addr)
		errCh <- a.srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown requested")
		shCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := a.srv.Shutdown(shCtx); err != nil {
			log.Warn("graceful shutdown failed", "error", err)
		}
		return nil

	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func (a *App) close() {
	if a.pool != nil {
		a.pool.Close()
	}
}
