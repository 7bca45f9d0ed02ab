package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/railyard/rails-server-go/internal/engine"
)

const maxBodyBytes = 1 << 20

// HTTPOptions configures the HTTP router.
type HTTPOptions struct {
	DefaultVariant string
	VariantDir     string
	RequestTimeout time.Duration
	// MetricsPath and Gatherer enable the Prometheus endpoint when both are set.
	MetricsPath string
	Gatherer    prometheus.Gatherer
}

// HTTPServer serves the REST API and the websocket endpoint.
type HTTPServer struct {
	engine *engine.Engine
	hub    *Hub
	logger *zap.Logger
	opts   HTTPOptions
	mux    *chi.Mux
}

// NewHTTPServer builds the router.
func NewHTTPServer(eng *engine.Engine, hub *Hub, logger *zap.Logger, opts HTTPOptions) *HTTPServer {
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 30 * time.Second
	}
	s := &HTTPServer{
		engine: eng,
		hub:    hub,
		logger: logger,
		opts:   opts,
		mux:    chi.NewRouter(),
	}
	s.routes()
	return s
}

// Handler returns the root handler.
func (s *HTTPServer) Handler() http.Handler {
	return s.mux
}

func (s *HTTPServer) routes() {
	r := s.mux
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true, "games": len(s.engine.Games())})
	})
	if s.opts.MetricsPath != "" && s.opts.Gatherer != nil {
		r.Method(http.MethodGet, s.opts.MetricsPath, promhttp.HandlerFor(s.opts.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/v1", func(r chi.Router) {
		r.Use(middleware.Timeout(s.opts.RequestTimeout))
		r.Get("/variants", s.handleVariants)
		r.Post("/games", s.handleCreateGame)
		r.Get("/games/{id}", s.handleGetGame)
		r.Get("/games/{id}/legal_actions", s.handleLegalActions)
		r.Post("/games/{id}/actions", s.handleSubmitAction)
		r.Post("/games/{id}/undo", s.handleUndo)
		r.Get("/games/{id}/log", s.handleLog)
		r.Get("/games/{id}/records", s.handleRecords)
	})

	if s.hub != nil {
		r.Get("/ws/games/{id}", s.handleWebSocket)
	}
}

func (s *HTTPServer) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		if s.logger != nil {
			s.logger.Debug("http request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Duration("duration", time.Since(start)),
				zap.String("request_id", middleware.GetReqID(r.Context())),
			)
		}
	})
}

func (s *HTTPServer) handleVariants(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"variants": engine.Variants(s.opts.VariantDir)})
}

func (s *HTTPServer) handleCreateGame(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := req.validate(s.opts.DefaultVariant); err != nil {
		s.fail(w, err)
		return
	}
	view, err := createGame(r.Context(), s.engine, req)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, view)
}

func (s *HTTPServer) handleGetGame(w http.ResponseWriter, r *http.Request) {
	view, err := s.engine.View(chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *HTTPServer) handleLegalActions(w http.ResponseWriter, r *http.Request) {
	entityID := strings.TrimSpace(r.URL.Query().Get("entity_id"))
	if entityID == "" {
		writeError(w, http.StatusBadRequest, "entity_id is required")
		return
	}
	kinds, err := s.engine.LegalActions(chi.URLParam(r, "id"), entityID)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"entity_id": entityID, "actions": kinds})
}

func (s *HTTPServer) handleSubmitAction(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	view, err := s.engine.Submit(r.Context(), chi.URLParam(r, "id"), data)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *HTTPServer) handleUndo(w http.ResponseWriter, r *http.Request) {
	req := struct {
		Count int `json:"count"`
	}{Count: 1}
	if r.ContentLength != 0 {
		if err := decodeJSON(r, &req); err != nil && !errors.Is(err, io.EOF) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}
	view, err := s.engine.Undo(r.Context(), chi.URLParam(r, "id"), req.Count)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *HTTPServer) handleLog(w http.ResponseWriter, r *http.Request) {
	lines, err := s.engine.Log(chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"log": lines})
}

func (s *HTTPServer) handleRecords(w http.ResponseWriter, r *http.Request) {
	recs, err := s.engine.Records(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"records": recs})
}

func (s *HTTPServer) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	view, err := s.engine.View(chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, err)
		return
	}
	s.hub.ServeWS(w, r, view)
}

func (s *HTTPServer) fail(w http.ResponseWriter, err error) {
	_, httpStatus := classify(err)
	if httpStatus >= http.StatusInternalServerError && s.logger != nil {
		s.logger.Error("request failed", zap.Error(err))
	}
	writeError(w, httpStatus, err.Error())
}

func decodeJSON(r *http.Request, out any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	return dec.Decode(out)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{"error": strings.TrimSpace(message)})
}
