// Package gateway exposes an Adapter over HTTP.
//
// Root statements run under the adapter's connection lock like any other
// caller. A transaction opened through the gateway holds that lock across
// requests until it is committed, rolled back or reaped for idleness:
//
//	POST /v1/transactions               -> {"id": "..."}
//	POST /v1/transactions/{id}/execute  -> {"rows_affected": 1}
//	POST /v1/transactions/{id}/commit
package gateway

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/koustreak/sqlbridge/internal/adapter"
	"github.com/koustreak/sqlbridge/internal/export"
	"github.com/koustreak/sqlbridge/internal/filestore"
	"github.com/koustreak/sqlbridge/internal/logger"
)

// Database is the adapter surface the gateway serves.
type Database interface {
	adapter.DriverAdapter
	LockStats() adapter.LockStats
}

// Exporter stores result sets for later download.
type Exporter interface {
	Export(ctx context.Context, name string, provider adapter.Provider, rs *adapter.ResultSet) (*export.Result, error)
	List(ctx context.Context, limit int) ([]filestore.ObjectInfo, error)
	Get(ctx context.Context, key string) (*export.Result, error)
}

var _ Exporter = (*export.Exporter)(nil)

// Server routes HTTP requests to one Database.
type Server struct {
	cfg *Config
	db  Database
	exp Exporter
	txs *registry
	log *logger.Logger
}

// New returns a Server. exp may be nil, in which case export routes
// answer 404.
func New(cfg *Config, db Database, exp Exporter, log *logger.Logger) *Server {
	if log == nil {
		log = logger.Nop()
	}
	return &Server{
		cfg: cfg,
		db:  db,
		exp: exp,
		txs: newRegistry(),
		log: log.Component("gateway"),
	}
}

// Handler returns the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(s.log))
	r.Use(recovery())

	r.Get("/healthz", s.health)

	r.Route("/v1", func(r chi.Router) {
		r.Post("/query", s.query)
		r.Post("/execute", s.execute)
		r.Post("/script", s.script)

		r.Route("/transactions", func(r chi.Router) {
			r.Post("/", s.beginTx)
			r.Route("/{id}", func(r chi.Router) {
				r.Post("/query", s.txQuery)
				r.Post("/execute", s.txExecute)
				r.Post("/commit", s.commitTx)
				r.Post("/rollback", s.rollbackTx)
			})
		})

		r.Get("/schema", s.inspectSchema)
		r.Get("/schema/tables/{table}", s.inspectTable)

		r.Post("/export", s.export)
		r.Get("/exports", s.listExports)
		r.Get("/exports/*", s.getExport)
	})
	return r
}

// Run serves until ctx is done, then shuts down and rolls back every
// transaction still open.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.cfg.Addr,
		Handler:      s.Handler(),
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
		IdleTimeout:  s.cfg.IdleTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		s.log.InfoWith("server starting", map[string]any{"addr": s.cfg.Addr})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		s.reapLoop(gctx)
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		s.log.Info("shutting down server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
		defer cancel()

		err := srv.Shutdown(shutdownCtx)
		s.rollbackAll(shutdownCtx)
		return err
	})

	return g.Wait()
}

func (s *Server) reapLoop(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.reapInterval())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			s.reap(now)
		}
	}
}

// reap rolls back transactions idle for longer than TxIdleTimeout.
func (s *Server) reap(now time.Time) int {
	expired := s.txs.expired(now.Add(-s.cfg.TxIdleTimeout))
	for id, tx := range expired {
		s.log.WarnWith("rolling back idle transaction", nil, map[string]any{
			"tx_id":        id,
			"idle_timeout": s.cfg.TxIdleTimeout.String(),
		})
		s.endTx(context.Background(), id, tx)
	}
	return len(expired)
}

func (s *Server) rollbackAll(ctx context.Context) {
	for id, tx := range s.txs.drain() {
		s.endTx(ctx, id, tx)
	}
}

func (s *Server) endTx(ctx context.Context, id string, tx adapter.Transaction) {
	if err := tx.Rollback(ctx); err != nil {
		s.log.DebugWith("rollback skipped", err, map[string]any{"tx_id": id})
	}
}
