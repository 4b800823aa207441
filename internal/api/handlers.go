package api

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strings"
	"time"

	"conferencia/painel/internal/auth"
	"conferencia/painel/internal/config"
	"conferencia/painel/internal/feed"
	"conferencia/painel/internal/health"
	"conferencia/painel/internal/loop"
	"conferencia/painel/internal/store"
	"conferencia/painel/internal/types"
)

// Controller is the operator surface of the alert dispatcher.
type Controller interface {
	Snapshot() types.Snapshot
	ClearQueue()
	ResetSession()
}

// OrderView exposes the poller's last known pending list.
type OrderView interface {
	Orders() []types.Order
	LastError() string
	LastFetch() time.Time
}

type ReadyFunc func(ctx context.Context) health.HealthStatus

type Handlers struct {
	cfg    config.Config
	ctl    Controller
	orders OrderView
	store  *store.Store
	ready  ReadyFunc
	feed   *feed.Server
}

func NewHandlers(cfg config.Config, ctl Controller, orders OrderView, st *store.Store, ready ReadyFunc, fs *feed.Server) *Handlers {
	return &Handlers{cfg: cfg, ctl: ctl, orders: orders, store: st, ready: ready, feed: fs}
}

func (h *Handlers) HandleReady(w http.ResponseWriter, r *http.Request) {
	if h.ready == nil {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
		return
	}
	st := h.ready(r.Context())
	code := http.StatusOK
	if !st.OK {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, st)
}

func (h *Handlers) HandleState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.ctl.Snapshot())
}

func (h *Handlers) HandleListEvents(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"instance_id": h.ctl.Snapshot().InstanceID,
		"events":      h.store.ListEvents(),
	})
}

func (h *Handlers) HandleClear(w http.ResponseWriter, r *http.Request) {
	op, ok := h.authorize(w, r, "clear")
	if !ok {
		return
	}
	log.Printf("[api] clear queue requested by %s", op)
	h.ctl.ClearQueue()
	writeJSON(w, http.StatusOK, h.ctl.Snapshot())
}

// HandleReset wipes the played set, so it requires ?confirm=true.
func (h *Handlers) HandleReset(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("confirm") != "true" {
		http.Error(w, "reset re-arms every alert of this session; repeat with ?confirm=true", http.StatusBadRequest)
		return
	}
	op, ok := h.authorize(w, r, "reset")
	if !ok {
		return
	}
	log.Printf("[api] session reset requested by %s", op)
	h.ctl.ResetSession()
	writeJSON(w, http.StatusOK, h.ctl.Snapshot())
}

type orderView struct {
	types.Order
	StatusLabel string `json:"statusLabel"`
	HasCut      bool   `json:"hasCut"`
}

func (h *Handlers) HandleOrders(w http.ResponseWriter, r *http.Request) {
	orders := h.orders.Orders()
	out := make([]orderView, 0, len(orders))
	for _, o := range orders {
		out = append(out, orderView{Order: o, StatusLabel: types.StatusLabel(o.Status), HasCut: loop.HasCut(o)})
	}
	resp := map[string]any{
		"orders":     out,
		"last_error": h.orders.LastError(),
	}
	if t := h.orders.LastFetch(); !t.IsZero() {
		resp["last_fetch"] = t.UTC()
	}
	writeJSON(w, http.StatusOK, resp)
}

// authorize checks the operator token when a secret is configured and
// returns the operator name for logging.
func (h *Handlers) authorize(w http.ResponseWriter, r *http.Request, action string) (string, bool) {
	if h.cfg.Control.TokenSecret == "" {
		return "anonymous", true
	}
	authz := r.Header.Get("Authorization")
	if !strings.HasPrefix(authz, "Bearer ") {
		http.Error(w, "missing bearer token", http.StatusUnauthorized)
		return "", false
	}
	op, err := auth.ValidateOperatorToken(h.cfg.Control.TokenSecret, strings.TrimPrefix(authz, "Bearer "), action, time.Now(), h.cfg.Control.TokenSkewSecs)
	if err != nil {
		http.Error(w, "invalid token: "+err.Error(), http.StatusUnauthorized)
		return "", false
	}
	return op, true
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
