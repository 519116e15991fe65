package httpapi

import (
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/Poutchouli/PingMeDaddy/internal/apierr"
	"github.com/Poutchouli/PingMeDaddy/internal/timeseries"
)

// Streamer is the live-tail surface the HTTP layer subscribes through.
type Streamer interface {
	Subscribe(targetID int64) (<-chan timeseries.PingSample, func())
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

const streamPingInterval = 30 * time.Second

// handleStream upgrades to a WebSocket and pushes every newly inserted
// PingSample for the target as it's written, supplementing the polling-only
// raw/aggregate reads with a live feed.
func (s *Server) handleStream(c *gin.Context) {
	id, ok := targetID(c)
	if !ok {
		return
	}
	if s.streams == nil {
		writeError(c, apierr.ErrStoreUnavailable)
		return
	}
	if _, err := s.targets.GetTarget(c.Request.Context(), id); err != nil {
		writeError(c, err)
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	samples, unsubscribe := s.streams.Subscribe(id)
	defer unsubscribe()

	// Drain client-initiated messages (pings/close) on their own goroutine
	// so a silent client doesn't block the write side below.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(streamPingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-closed:
			return
		case <-c.Request.Context().Done():
			return
		case <-ticker.C:
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case sample, ok := <-samples:
			if !ok {
				return
			}
			if err := conn.WriteJSON(sample); err != nil {
				log.Printf("httpapi: stream write to target %d failed: %v", id, err)
				return
			}
		}
	}
}
