package api

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func NewRouter(h *Handlers) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("/readyz", h.HandleReady)
	mux.Handle("/metrics", promhttp.Handler())

	mux.HandleFunc("/audio/state", method(http.MethodGet, h.HandleState))
	mux.HandleFunc("/audio/events", method(http.MethodGet, h.HandleListEvents))
	mux.HandleFunc("/audio/clear", method(http.MethodPost, h.HandleClear))
	mux.HandleFunc("/audio/reset", method(http.MethodPost, h.HandleReset))
	mux.HandleFunc("/orders", method(http.MethodGet, h.HandleOrders))

	if h.feed != nil {
		mux.HandleFunc("/ws/events", h.feed.HandleEvents)
	}
	return mux
}

func method(m string, fn http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != m {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		fn(w, r)
	}
}
