package api

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/aurablacklight/docker-dive-web-ui/lib/logger"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4 * 1024,
	WriteBufferSize: 4 * 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Allow all origins for now - can be tightened in production
		return true
	},
}

const progressWriteTimeout = 10 * time.Second

// ProgressHandler streams progress events for an image over a
// WebSocket. Each image has a single subscriber slot; a new connection
// replaces the previous one. The socket closes after the terminal
// event is delivered.
func (s *ApiService) ProgressHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.FromContext(ctx)

	image, err := imageParam(r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid_reference", "malformed image name encoding")
		return
	}

	// Validate before the upgrade so bad references still get an HTTP
	// status instead of a dropped socket.
	events, cancel, err := s.InspectManager.Subscribe(image)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid_reference", err.Error())
		return
	}
	defer cancel()

	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.ErrorContext(ctx, "websocket upgrade failed", "error", err)
		return
	}
	defer ws.Close()

	// Drain reads so client close frames are processed.
	disconnected := make(chan struct{})
	go func() {
		defer close(disconnected)
		for {
			if _, _, err := ws.ReadMessage(); err != nil {
				return
			}
		}
	}()

	log.InfoContext(ctx, "progress stream started", "image", image)

	for {
		select {
		case event, ok := <-events:
			if !ok {
				// Terminal event delivered, or the subscriber was
				// replaced by a newer connection.
				ws.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
					time.Now().Add(progressWriteTimeout))
				return
			}
			ws.SetWriteDeadline(time.Now().Add(progressWriteTimeout))
			if err := ws.WriteJSON(event); err != nil {
				log.DebugContext(ctx, "progress stream write failed", "image", image, "error", err)
				return
			}
		case <-disconnected:
			log.DebugContext(ctx, "progress stream client disconnected", "image", image)
			return
		case <-ctx.Done():
			return
		}
	}
}
