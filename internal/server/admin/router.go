// Package admin serves the operator-facing HTTP endpoints of the sync
// server: health, Prometheus metrics, and a websocket feed of document
// snapshots for browser clients.
package admin

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/dmitrijs2005/foodie/internal/common"
	"github.com/dmitrijs2005/foodie/internal/logging"
	"github.com/dmitrijs2005/foodie/internal/server/auth"
	"github.com/dmitrijs2005/foodie/internal/server/models"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Subscriber streams document snapshots, see services.DocumentService.
type Subscriber interface {
	Subscribe(ctx context.Context, userID, path string, send func(models.Document) error) error
}

// SubscriptionGauge is notified when feeds open and close. Optional.
type SubscriptionGauge interface {
	SubscriptionOpened()
	SubscriptionClosed()
}

type Config struct {
	Health    func(context.Context) error
	Gatherer  prometheus.Gatherer
	Documents Subscriber
	Gauge     SubscriptionGauge
	JWTSecret []byte
	Log       logging.Logger
}

type Router struct {
	mux      chi.Router
	cfg      Config
	log      logging.Logger
	upgrader websocket.Upgrader
}

func NewRouter(cfg Config) *Router {
	r := &Router{
		mux: chi.NewRouter(),
		cfg: cfg,
		log: cfg.Log.With("module", "admin"),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}

	r.mux.Use(middleware.RequestID)
	r.mux.Use(middleware.RealIP)
	r.mux.Use(middleware.Recoverer)

	r.mux.Get("/healthz", r.handleHealthz)
	r.mux.Handle("/metrics", promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{}))
	r.mux.Get("/ws/documents", r.requireAuth(r.handleDocumentsWS))
	return r
}

func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}

func (r *Router) handleHealthz(w http.ResponseWriter, req *http.Request) {
	if r.cfg.Health != nil {
		ctx, cancel := context.WithTimeout(req.Context(), 2*time.Second)
		defer cancel()
		if err := r.cfg.Health(ctx); err != nil {
			r.log.Warn(ctx, "health check failed", "error", err)
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type ctxKey string

const userIDKey ctxKey = "admin-user-id"

func bearerToken(header string) (string, error) {
	if strings.TrimSpace(header) == "" {
		return "", errors.New("missing authorization header")
	}
	parts := strings.Fields(header)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", errors.New("invalid authorization header format")
	}
	return parts[1], nil
}

// requireAuth accepts the access token as a bearer header or, for browsers
// that cannot set headers on websocket upgrades, as the access_token query
// parameter.
func (r *Router) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		token := req.URL.Query().Get(common.AccessTokenHeaderName)
		if token == "" {
			var err error
			if token, err = bearerToken(req.Header.Get("Authorization")); err != nil {
				writeError(w, http.StatusUnauthorized, "authentication required")
				return
			}
		}

		userID, err := auth.GetUserIDFromToken(token, r.cfg.JWTSecret)
		if err != nil {
			r.log.Warn(req.Context(), "token validation failed", "error", err, "path", req.URL.Path)
			writeError(w, http.StatusUnauthorized, "authentication failed")
			return
		}

		next(w, req.WithContext(context.WithValue(req.Context(), userIDKey, userID)))
	}
}

// snapshotMessage is what websocket clients receive.
type snapshotMessage struct {
	Path      string          `json:"path"`
	Document  json.RawMessage `json:"document,omitempty"`
	Version   int64           `json:"version"`
	UpdatedAt time.Time       `json:"updated_at"`
}

func (r *Router) handleDocumentsWS(w http.ResponseWriter, req *http.Request) {
	userID, _ := req.Context().Value(userIDKey).(string)
	path := req.URL.Query().Get("path")
	if path == "" {
		writeError(w, http.StatusBadRequest, "path query parameter required")
		return
	}

	conn, err := r.upgrader.Upgrade(w, req, nil)
	if err != nil {
		r.log.Error(req.Context(), "websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(req.Context())
	defer cancel()

	// The reader notices the browser going away.
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	if r.cfg.Gauge != nil {
		r.cfg.Gauge.SubscriptionOpened()
		defer r.cfg.Gauge.SubscriptionClosed()
	}

	err = r.cfg.Documents.Subscribe(ctx, userID, path, func(d models.Document) error {
		return conn.WriteJSON(snapshotMessage{Path: d.Path, Document: d.Body, Version: d.Version, UpdatedAt: d.UpdatedAt})
	})
	if err != nil && ctx.Err() == nil {
		code := websocket.CloseInternalServerErr
		if errors.Is(err, common.ErrorForbidden) || errors.Is(err, common.ErrValidation) {
			code = websocket.ClosePolicyViolation
		}
		r.log.Warn(ctx, "document feed ended", "path", path, "error", err)
		_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, ""), time.Now().Add(time.Second))
	}
}
