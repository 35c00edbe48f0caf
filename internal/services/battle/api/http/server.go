// Package httpapi exposes battle resolution and the battle archive over HTTP.
//
// Routes:
//
//	POST /api/battles             resolve a scenario and archive the run
//	GET  /api/battles             list recent battles
//	GET  /api/battles/stream      websocket: send a request, receive entries then the outcome
//	GET  /api/battles/{id}        battle header and casualties
//	GET  /api/battles/{id}/report narrative entries (?format=text for plain lines)
//	GET  /api/healthz             liveness
package httpapi

import (
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/louisbranch/autoresolve/internal/platform/id"
	"github.com/louisbranch/autoresolve/internal/platform/requestctx"
	"github.com/louisbranch/autoresolve/internal/services/battle/archive"
	"github.com/louisbranch/autoresolve/internal/services/battle/domain/engine"
	"github.com/louisbranch/autoresolve/internal/services/battle/storage"
	"go.uber.org/zap"
)

const (
	// DefaultMaxBodyBytes bounds request bodies and websocket messages.
	DefaultMaxBodyBytes = 1 << 20
	// DefaultRoundLimit is the largest round cap a request may ask for.
	DefaultRoundLimit = 500
)

// Options configures a Server.
type Options struct {
	Logger       *zap.Logger
	MaxBodyBytes int64
	// RoundLimit bounds the effective max_rounds of a request. Zero uses
	// DefaultRoundLimit.
	RoundLimit int
	// AllowLua accepts Lua scenario source. Off by default.
	AllowLua bool
	// CheckOrigin validates websocket origins. Nil accepts same-origin only.
	CheckOrigin func(r *http.Request) bool
}

// Server serves the battle API.
type Server struct {
	store      storage.BattleStore
	runner     *archive.Runner
	logger     *zap.Logger
	maxBody    int64
	roundLimit int
	allowLua   bool
	upgrader   websocket.Upgrader
}

// NewServer builds a Server backed by store. Runs go through runner.
func NewServer(store storage.BattleStore, runner *archive.Runner, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	maxBody := opts.MaxBodyBytes
	if maxBody <= 0 {
		maxBody = DefaultMaxBodyBytes
	}
	roundLimit := opts.RoundLimit
	if roundLimit <= 0 {
		roundLimit = DefaultRoundLimit
	}
	roundLimit = min(roundLimit, engine.MaxRoundsLimit)
	return &Server{
		store:      store,
		runner:     runner,
		logger:     logger,
		maxBody:    maxBody,
		roundLimit: roundLimit,
		allowLua:   opts.AllowLua,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     opts.CheckOrigin,
		},
	}
}

// Handler returns the routed API.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()
	r.Use(s.withRequestID)
	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	api.HandleFunc("/battles", s.handleResolve).Methods(http.MethodPost)
	api.HandleFunc("/battles", s.handleList).Methods(http.MethodGet)
	api.HandleFunc("/battles/stream", s.handleStream).Methods(http.MethodGet)
	api.HandleFunc("/battles/{id}", s.handleGet).Methods(http.MethodGet)
	api.HandleFunc("/battles/{id}/report", s.handleReport).Methods(http.MethodGet)
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSONError(w, http.StatusNotFound, "NOT_FOUND", "route not found")
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSONError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "method not allowed")
	})
	return r
}

// RequestIDHeader carries the request identifier in requests and responses.
const RequestIDHeader = "X-Request-Id"

// withRequestID keeps a caller-supplied request id or assigns one, and
// echoes it on the response.
func (s *Server) withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := strings.TrimSpace(r.Header.Get(RequestIDHeader))
		if requestID == "" {
			generated, err := id.NewID()
			if err != nil {
				s.logger.Warn("generate request id", zap.Error(err))
			}
			requestID = generated
		}
		if requestID != "" {
			w.Header().Set(RequestIDHeader, requestID)
		}
		next.ServeHTTP(w, r.WithContext(requestctx.WithRequestID(r.Context(), requestID)))
	})
}
