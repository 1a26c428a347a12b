// Package api exposes the quote, explain, token and intent operations over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/ggonzalez94/swapsage/internal/chain"
	apperr "github.com/ggonzalez94/swapsage/internal/errors"
	"github.com/ggonzalez94/swapsage/internal/explain"
	"github.com/ggonzalez94/swapsage/internal/intent"
	"github.com/ggonzalez94/swapsage/internal/quote"
	"github.com/ggonzalez94/swapsage/internal/registry"
)

const maxBodyBytes = 1 << 20

// HealthSource is the store as seen by /healthz.
type HealthSource interface {
	Ping(ctx context.Context) error
	CountQuotes(ctx context.Context) (int, error)
}

type Deps struct {
	Quotes         *quote.Service
	Registry       *registry.Service
	Intents        *intent.Service
	Recorder       *explain.Recorder
	Health         HealthSource
	DefaultChainID int64
	MetricsEnabled bool
}

type Server struct {
	deps Deps
}

func NewServer(deps Deps) *Server {
	if deps.DefaultChainID <= 0 {
		deps.DefaultChainID = 1
	}
	return &Server{deps: deps}
}

// Handler returns the routed API with logging and metrics middleware applied.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/quote", s.handleQuote)
	mux.HandleFunc("GET /api/explain", s.handleExplain)

	mux.HandleFunc("GET /api/tokens", s.handleListTokens)
	mux.HandleFunc("PUT /api/tokens", s.handlePutToken)
	mux.HandleFunc("GET /api/tokens/{chain}/{address}", s.handleGetToken)
	mux.HandleFunc("DELETE /api/tokens/{chain}/{address}", s.handleDeleteToken)

	mux.HandleFunc("POST /api/intents", s.handleCreateIntent)
	mux.HandleFunc("GET /api/intents", s.handleListIntents)
	mux.HandleFunc("GET /api/intents/{id}", s.handleGetIntent)
	mux.HandleFunc("DELETE /api/intents/{id}", s.handleDeleteIntent)
	mux.HandleFunc("POST /api/intents/{id}/status", s.handleIntentStatus)
	mux.HandleFunc("GET /api/intents/{id}/explanations", s.handleListExplanations)
	mux.HandleFunc("POST /api/intents/{id}/explanations", s.handleAttachExplanation)

	mux.HandleFunc("GET /healthz", s.handleHealth)
	if s.deps.MetricsEnabled {
		mux.Handle("GET /metrics", promhttp.Handler())
	}
	return withObservability(mux)
}

type envelope map[string]any

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		zap.L().Warn("write response", zap.Error(err))
	}
}

func writeOK(w http.ResponseWriter, status int, fields envelope) {
	body := envelope{"ok": true}
	for k, v := range fields {
		body[k] = v
	}
	writeJSON(w, status, body)
}

// writeError renders {ok:false,error} with the status for err's code. Errors
// without a code are reported generically.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := apperr.HTTPStatus(err)
	message := "internal error"
	if _, ok := apperr.As(err); ok {
		message = err.Error()
	}
	if status >= http.StatusInternalServerError {
		zap.L().Error("request failed",
			zap.String("path", r.URL.Path),
			zap.String("request_id", requestID(r.Context())),
			zap.String("error_type", apperr.TypeName(err)),
			zap.Error(err))
	}
	writeJSON(w, status, envelope{"ok": false, "error": message})
}

func decodeBody(r *http.Request, out any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(out); err != nil {
		if errors.Is(err, io.EOF) {
			return apperr.New(apperr.CodeValidation, "request body is required")
		}
		return apperr.Wrap(apperr.CodeValidation, "invalid JSON body", err)
	}
	return nil
}

// chainParam resolves a chain from a slug, numeric id or CAIP-2 string,
// falling back to the configured default when empty.
func (s *Server) chainParam(raw string) (int64, error) {
	if strings.TrimSpace(raw) == "" {
		return s.deps.DefaultChainID, nil
	}
	c, err := chain.Parse(raw)
	if err != nil {
		return 0, err
	}
	return c.ID, nil
}

func intParam(raw, name string) (*int, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	v, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return nil, apperr.New(apperr.CodeValidation, name+" must be an integer")
	}
	return &v, nil
}
