package builder

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// drainGrace is added to the write timeout so a streaming answer that started
// just before shutdown can still finish
const drainGrace = 5 * time.Second

// App is the assembled bot backend: the HTTP API and the Postgres pool behind it
type App struct {
	server *http.Server
	db     *pgxpool.Pool
	logger *zap.Logger
}

// Run serves the API until ctx is cancelled or the listener fails,
// then drains in-flight chat requests and closes the pool.
func (a *App) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.logger.Info("bot API listening", zap.String("addr", a.server.Addr))
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		if ctx.Err() != nil {
			a.logger.Info("stop requested, draining chat requests")
		}
		return a.drain()
	})

	err := g.Wait()
	if err != nil {
		a.logger.Error("bot API stopped with error", zap.Error(err))
	}

	if a.db != nil {
		a.db.Close()
	}
	a.logger.Info("bot backend stopped")
	_ = a.logger.Sync()
	return err
}

func (a *App) drain() error {
	ctx, cancel := context.WithTimeout(context.Background(), a.server.WriteTimeout+drainGrace)
	defer cancel()

	if err := a.server.Shutdown(ctx); err != nil {
		return err
	}
	return nil
}
