package gateway

import (
	"context"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
)

// handleEvents streams relay events over a websocket. Each event is one
// JSON message. The connection closes when the client goes away or the
// server shuts down.
func (g *Gateway) handleEvents(w http.ResponseWriter, r *http.Request) {
	if g.events == nil {
		http.Error(w, "event stream not available", http.StatusNotFound)
		return
	}

	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		g.logger.Warn("websocket accept failed", "error", err)
		return
	}
	defer conn.Close(websocket.StatusNormalClosure, "bye")

	events, cancel := g.events.Subscribe()
	defer cancel()

	ctx := r.Context()

	// Reads are discarded; the stream is one-way. The read loop still runs
	// so pings are answered and client closes are noticed.
	go func() {
		for {
			if _, _, err := conn.Read(ctx); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			writeCtx, cancelWrite := context.WithTimeout(ctx, 5*time.Second)
			err := wsjson.Write(writeCtx, conn, ev)
			cancelWrite()
			if err != nil {
				return
			}
		}
	}
}
