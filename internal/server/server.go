// Package server exposes the repository over HTTP.
package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"opecours/internal/domain/stock"
	"opecours/internal/repository"
)

// Service is the repository contract served over HTTP.
type Service interface {
	Stocks(ctx context.Context) <-chan repository.State
	Refresh(ctx context.Context) repository.State
	Watch(ctx context.Context) <-chan repository.State
}

type Options struct {
	// RequestTimeout bounds the JSON endpoints; streams are not limited.
	RequestTimeout time.Duration
	// KeepAlive is the SSE comment interval.
	KeepAlive time.Duration
}

// operatorColors are the brand colours shown next to each operator.
var operatorColors = map[string]string{
	"orange":   "#FF7900",
	"bouygues": "#005FAF",
	"sfr":      "#E50000",
	"free":     "#CD1E25",
}

type operatorView struct {
	stock.Operator
	Color string `json:"color"`
}

type handler struct {
	svc  Service
	opts Options
}

// NewRouter wires the API routes.
func NewRouter(svc Service, opts Options) http.Handler {
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 30 * time.Second
	}
	if opts.KeepAlive <= 0 {
		opts.KeepAlive = 30 * time.Second
	}
	h := &handler{svc: svc, opts: opts}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(accessLog)
	r.Use(recoverPanic)
	r.Use(withCORS())

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Route("/api", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(opts.RequestTimeout))
			r.Use(compressJSON)
			r.Get("/operators", h.operators)
			r.Get("/stocks", h.stocks)
			r.Post("/stocks/refresh", h.refresh)
		})
		r.Get("/stocks/stream", h.stream)
	})
	return r
}

// GET /api/operators
func (h *handler) operators(w http.ResponseWriter, _ *http.Request) {
	ops := stock.Operators()
	out := make([]operatorView, len(ops))
	for i, op := range ops {
		out[i] = operatorView{Operator: op, Color: operatorColors[op.Key]}
	}
	writeJSON(w, http.StatusOK, out)
}

// GET /api/stocks drains the read path and answers with its final state.
func (h *handler) stocks(w http.ResponseWriter, r *http.Request) {
	last := repository.Loading()
	for s := range h.svc.Stocks(r.Context()) {
		last = s
	}
	if r.Context().Err() != nil {
		return
	}
	writeJSON(w, statusFor(last), last)
}

// POST /api/stocks/refresh
func (h *handler) refresh(w http.ResponseWriter, r *http.Request) {
	s := h.svc.Refresh(r.Context())
	writeJSON(w, statusFor(s), s)
}

func statusFor(s repository.State) int {
	if s.Status == repository.StatusError {
		return http.StatusBadGateway
	}
	return http.StatusOK
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		log.Debug().Err(err).Msg("server: write response")
	}
}
