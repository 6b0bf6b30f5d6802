package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"

	"voice-home/internal/domain"
)

const (
	streamBuffer       = 64
	streamWriteTimeout = 5 * time.Second
)

// stream pushes every domain event to the client as a JSON text frame. A
// client that falls streamBuffer events behind is disconnected.
func (s *Server) stream(w http.ResponseWriter, r *http.Request) {
	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: s.opts.AllowedOrigins,
	})
	if err != nil {
		s.logger.Error("accepting websocket", "error", err)
		return
	}
	defer ws.Close(websocket.StatusNormalClosure, "stream ended")

	events := make(chan domain.Event, streamBuffer)
	overflow := make(chan struct{})
	var once sync.Once
	unsubscribe := s.events.Subscribe(func(e domain.Event) {
		select {
		case events <- e:
		default:
			once.Do(func() { close(overflow) })
		}
	})
	defer unsubscribe()

	// Reads are discarded; CloseRead cancels ctx when the client goes away.
	ctx := ws.CloseRead(r.Context())
	s.logger.Info("event stream opened", "remote_addr", r.RemoteAddr)

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("event stream closed", "remote_addr", r.RemoteAddr)
			return
		case <-s.done:
			ws.Close(websocket.StatusGoingAway, "server shutting down")
			return
		case <-overflow:
			s.logger.Warn("event stream client too slow, disconnecting", "remote_addr", r.RemoteAddr)
			ws.Close(websocket.StatusPolicyViolation, "too slow")
			return
		case e := <-events:
			if err := s.writeEvent(ctx, ws, e); err != nil {
				s.logger.Debug("writing event", "error", err)
				return
			}
		}
	}
}

func (s *Server) writeEvent(ctx context.Context, ws *websocket.Conn, e domain.Event) error {
	data, err := json.Marshal(e)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, streamWriteTimeout)
	defer cancel()
	return ws.Write(ctx, websocket.MessageText, data)
}
