// Package httpapi exposes the tracker to a browser front end as a small JSON API.
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/Makepad-fr/foodchain/internal/model"
)

// Ledger is the part of ledger.Client the API serves. Submissions are
// serialized by the implementation.
type Ledger interface {
	Account() (common.Address, bool)
	ContractAddress() common.Address
	AddItem(ctx context.Context, name, origin string) (*types.Receipt, error)
	Items(ctx context.Context) ([]model.Item, error)
	ItemCount(ctx context.Context) (uint64, error)
	GetItem(ctx context.Context, id uint64) (model.Item, error)
}

type Options struct {
	// AllowedOrigins for CORS; empty allows any origin.
	AllowedOrigins []string
	// RequestTimeout bounds every request including waiting for a transaction to be mined.
	RequestTimeout time.Duration
}

// NewRouter wires the routes and middleware.
func NewRouter(l Ledger, log *zap.Logger, opt Options) http.Handler {
	if log == nil {
		log = zap.NewNop()
	}
	if len(opt.AllowedOrigins) == 0 {
		opt.AllowedOrigins = []string{"*"}
	}
	if opt.RequestTimeout <= 0 {
		opt.RequestTimeout = 2 * time.Minute
	}
	h := &handler{ledger: l, log: log}

	router := chi.NewRouter()
	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.RealIP)
	router.Use(chimiddleware.Recoverer)
	router.Use(requestLogger(log))
	router.Use(chimiddleware.Timeout(opt.RequestTimeout))
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins: opt.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         300,
	}))

	router.Get("/health", h.health)
	router.Route("/api", func(r chi.Router) {
		r.Get("/account", h.account)
		r.Route("/items", func(r chi.Router) {
			r.Get("/", h.listItems)
			r.Post("/", h.addItem)
			r.Get("/{id}/qr.png", h.itemQR)
		})
		r.Post("/scan", h.scan)
	})
	return router
}

func requestLogger(log *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			log.Info("http request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Duration("duration", time.Since(start)),
				zap.String("request_id", chimiddleware.GetReqID(r.Context())))
		})
	}
}
