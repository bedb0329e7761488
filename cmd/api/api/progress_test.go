package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aurablacklight/docker-dive-web-ui/lib/inspect"
)

func dialProgress(t *testing.T, srv *httptest.Server, image string) *websocket.Conn {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/inspect/" + image + "/progress"
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	if resp != nil {
		resp.Body.Close()
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestProgressHandler_StreamsEventsUntilClose(t *testing.T) {
	events := make(chan inspect.Event, 4)
	mgr := &fakeManager{
		subscribeFn: func(name string) (<-chan inspect.Event, func(), error) {
			return events, func() {}, nil
		},
	}

	srv := httptest.NewServer(newTestRouter(mgr))
	defer srv.Close()

	conn := dialProgress(t, srv, "nginx:latest")

	events <- inspect.Event{Image: "docker.io/library/nginx:latest", Status: inspect.StatusPulling, Progress: 35, Message: "pulling image", Timestamp: time.Now()}
	events <- inspect.Event{Image: "docker.io/library/nginx:latest", Status: inspect.StatusComplete, Progress: 100, Message: "analysis complete", Timestamp: time.Now()}
	close(events)

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))

	var first inspect.Event
	require.NoError(t, conn.ReadJSON(&first))
	assert.Equal(t, inspect.StatusPulling, first.Status)
	assert.Equal(t, 35, first.Progress)

	var second inspect.Event
	require.NoError(t, conn.ReadJSON(&second))
	assert.Equal(t, inspect.StatusComplete, second.Status)

	// Channel closed after the terminal event; server sends a normal
	// close frame.
	var third inspect.Event
	err := conn.ReadJSON(&third)
	require.Error(t, err)
	assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure))
}

func TestProgressHandler_InvalidReferenceBeforeUpgrade(t *testing.T) {
	mgr := &fakeManager{
		subscribeFn: func(name string) (<-chan inspect.Event, func(), error) {
			return nil, nil, inspect.ErrInvalidReference
		},
	}

	srv := httptest.NewServer(newTestRouter(mgr))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/inspect/bad/progress")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestProgressHandler_CancelCalledOnDisconnect(t *testing.T) {
	cancelled := make(chan struct{})
	mgr := &fakeManager{
		subscribeFn: func(name string) (<-chan inspect.Event, func(), error) {
			return make(chan inspect.Event), func() { close(cancelled) }, nil
		},
	}

	srv := httptest.NewServer(newTestRouter(mgr))
	defer srv.Close()

	conn := dialProgress(t, srv, "alpine")
	conn.Close()

	select {
	case <-cancelled:
	case <-time.After(2 * time.Second):
		t.Fatal("subscription was not cancelled after client disconnect")
	}
}

// Guards against handler signature drift relative to the manager
// interface.
var _ inspect.Manager = (*fakeManager)(nil)

func TestFakeManagerHealthDefault(t *testing.T) {
	f := &fakeManager{}
	h := f.Health(context.Background())
	assert.Equal(t, "ok", h.Status)
}
