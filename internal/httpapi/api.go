package httpapi

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"golinks.org/internal/authz"
	"golinks.org/internal/events"
	"golinks.org/internal/link"
	"golinks.org/internal/obs"
	"golinks.org/internal/session"
	"golinks.org/internal/transfer"
	"golinks.org/internal/user"
)

// ReadyProbe reports whether the backing store is reachable.
type ReadyProbe struct {
	DB *sql.DB
}

func (rp ReadyProbe) Check(ctx context.Context) error {
	if rp.DB == nil {
		return nil
	}
	return rp.DB.PingContext(ctx)
}

// API is the HTTP layer over the link, authorization, and transfer
// services.
type API struct {
	mux        *http.ServeMux
	readyProbe ReadyProbe
	version    string
	baseURL    string

	links     *link.Service
	users     user.Store
	auth      *authz.Authorizer
	transfers *transfer.Service
	sessions  *session.Manager
	stream    *events.Stream

	rateBurst  int
	ratePerSec int
}

func New(rp ReadyProbe, version, baseURL string, links *link.Service, users user.Store,
	auth *authz.Authorizer, transfers *transfer.Service, sessions *session.Manager,
	stream *events.Stream) *API {

	a := &API{
		mux:        http.NewServeMux(),
		readyProbe: rp,
		version:    version,
		baseURL:    strings.TrimRight(baseURL, "/"),
		links:      links,
		users:      users,
		auth:       auth,
		transfers:  transfers,
		sessions:   sessions,
		stream:     stream,
		rateBurst:  20,
		ratePerSec: 10,
	}

	a.mux.HandleFunc("/healthz", a.Healthz)
	a.mux.HandleFunc("/readyz", a.Ready)
	a.mux.HandleFunc("/v1/info", a.Info)
	a.mux.Handle("/metrics", obs.Handler())

	a.mux.HandleFunc("/api/session", a.handleSession)
	a.mux.HandleFunc("/api/links", a.handleLinksCollection)
	a.mux.HandleFunc("/api/links/", a.handleLinkResource)
	a.mux.HandleFunc("/api/transfer_link/", a.handleRedeemTransfer)
	a.mux.HandleFunc("/api/events", a.Stream)
	a.mux.HandleFunc("/_transfer/", a.handleTransferRedirect)

	// Everything else is treated as a shortpath to follow.
	a.mux.HandleFunc("/", a.handleFollow)

	return a
}

// Handler assembles the middleware chain around the mux.
func (a *API) Handler() http.Handler {
	var h http.Handler = a.mux
	h = a.withAuth(h)
	h = RateLimit(h, a.rateBurst, a.ratePerSec)
	h = MaxBodyBytes(h, 1<<20)
	h = CORS(h)
	h = SecurityHeaders(h)
	h = Logging(h)
	h = RequestID(h)
	return obs.Instrument(h)
}

// --- health/info handlers ---

func (a *API) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"service": "golinks-api",
		"version": a.version,
	})
}

func (a *API) Ready(w http.ResponseWriter, r *http.Request) {
	if err := a.readyProbe.Check(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status": "not_ready",
			"error":  err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ready",
	})
}

func (a *API) Info(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"name":    "golinks-api",
		"time":    time.Now().UTC().Format(time.RFC3339),
		"version": a.version,
	})
}

// --- helpers ---

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, r *http.Request, code int, msg string) {
	payload := map[string]any{
		"error": msg,
	}
	if rid := RequestIDFromContext(r.Context()); rid != "" {
		payload["request_id"] = rid
	}
	writeJSON(w, code, payload)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	reader := http.MaxBytesReader(w, r.Body, 1<<20)
	defer reader.Close()
	dec := json.NewDecoder(reader)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("request body is required")
		}
		return err
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		if err == nil {
			return errors.New("unexpected data after JSON body")
		}
		return err
	}
	return nil
}

func methodNotAllowed(w http.ResponseWriter, r *http.Request, allowed ...string) {
	w.Header().Set("Allow", strings.Join(allowed, ", "))
	writeError(w, r, http.StatusMethodNotAllowed, "method not allowed")
}
