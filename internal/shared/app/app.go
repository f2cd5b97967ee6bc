package app

import (
	"context"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Component é uma parte de longa duração do processo (servidor HTTP, consumer, batcher).
// Start bloqueia até o contexto ser cancelado ou ocorrer erro fatal.
type Component interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

// App sobe todos os componentes num errgroup e, no shutdown, para cada um
// na ordem em que foram registrados.
type App struct {
	components      []Component
	log             *zap.Logger
	ShutdownTimeout time.Duration
}

func New(log *zap.Logger, components ...Component) *App {
	return &App{components: components, log: log, ShutdownTimeout: 15 * time.Second}
}

func (a *App) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, c := range a.components {
		g.Go(func() error { return c.Start(gctx) })
	}

	<-gctx.Done()

	stopCtx, cancel := context.WithTimeout(context.Background(), a.ShutdownTimeout)
	defer cancel()
	for _, c := range a.components {
		if err := c.Stop(stopCtx); err != nil {
			a.log.Warn("component stop failed", zap.Error(err))
		}
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// HTTPServer adapta *http.Server ao ciclo de vida do App
type HTTPServer struct {
	Name string
	Srv  *http.Server
	Log  *zap.Logger
}

func (h *HTTPServer) Start(context.Context) error {
	h.Log.Info(h.Name+" listening", zap.String("addr", h.Srv.Addr))
	if err := h.Srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (h *HTTPServer) Stop(ctx context.Context) error { return h.Srv.Shutdown(ctx) }

// Worker adapta um loop bloqueante; Close é opcional e roda no shutdown
type Worker struct {
	Run   func(ctx context.Context) error
	Close func(ctx context.Context) error
}

func (w *Worker) Start(ctx context.Context) error {
	if w.Run == nil {
		<-ctx.Done()
		return nil
	}
	if err := w.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func (w *Worker) Stop(ctx context.Context) error {
	if w.Close == nil {
		return nil
	}
	return w.Close(ctx)
}
