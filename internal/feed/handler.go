// Package feed streams the diagnostics event log to dashboards over
// WebSocket.
package feed

import (
	"context"
	"log"
	"net/http"
	"time"

	ws "nhooyr.io/websocket"

	"conferencia/painel/internal/store"
)

const writeTimeout = 5 * time.Second

type Server struct {
	Store *store.Store
	Reg   *Registry
}

// NewServer subscribes the registry to the store; call the returned
// cancel on shutdown.
func NewServer(st *store.Store, reg *Registry) (*Server, func()) {
	cancel := st.Subscribe(reg.Broadcast)
	return &Server{Store: st, Reg: reg}, cancel
}

// HandleEvents upgrades the request, replays the current log and then
// streams new events until either side closes.
func (s *Server) HandleEvents(w http.ResponseWriter, r *http.Request) {
	c, err := ws.Accept(w, r, &ws.AcceptOptions{InsecureSkipVerify: true})
	if err != nil {
		log.Printf("[feed] ws accept: %v", err)
		return
	}
	id, send := s.Reg.Add()
	defer s.Reg.Remove(id)
	log.Printf("[feed] client %s connected (%d total)", id, s.Reg.Len())

	// Nothing is expected from the dashboard; CloseRead handles pings and
	// cancels ctx when the peer goes away.
	ctx := c.CloseRead(r.Context())

	for i, ev := range s.Store.ListEvents() {
		if err := write(ctx, c, mustJSON(Message{Type: "replay", TsMs: ev.Ts.UnixMilli(), Seq: int64(i + 1), Event: ev})); err != nil {
			return
		}
	}
	for {
		select {
		case <-ctx.Done():
			log.Printf("[feed] client %s disconnected", id)
			return
		case b, ok := <-send:
			if !ok {
				_ = c.Close(ws.StatusGoingAway, "shutdown")
				return
			}
			if err := write(ctx, c, b); err != nil {
				log.Printf("[feed] client %s write: %v", id, err)
				return
			}
		}
	}
}

func write(ctx context.Context, c *ws.Conn, b []byte) error {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return c.Write(ctx, ws.MessageText, b)
}
