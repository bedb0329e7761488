package main

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatResult_PercentagesAreNotRescaled(t *testing.T) {
	out := formatResult(&inspection{
		ID:    "abc",
		Image: "docker.io/library/nginx:latest",
		Analysis: &analysisSummary{
			Efficiency:    90,
			SizeBytes:     1000,
			WastedBytes:   100,
			WastedPercent: 10,
		},
	})

	assert.Contains(t, out, "Efficiency: 90.0%")
	assert.Contains(t, out, "Wasted:     100 B (10.0%)")
	assert.NotContains(t, out, "9000")
}

func TestFormatResult_Cached(t *testing.T) {
	out := formatResult(&inspection{
		Image:  "docker.io/library/alpine:latest",
		Cached: true,
		Analysis: &analysisSummary{
			Efficiency: 98.4,
			SizeBytes:  500,
			Partial:    true,
		},
	})

	assert.Contains(t, out, "Result:     cached")
	assert.Contains(t, out, "Efficiency: 98.4%")
	assert.Contains(t, out, "backfilled from image history")
}

func TestFormatResult_Rules(t *testing.T) {
	out := formatResult(&inspection{
		Image: "docker.io/library/redis:7",
		Analysis: &analysisSummary{
			Rules: []ruleSummary{
				{Name: "lowestEfficiency", Passed: true, Message: "efficiency 0.9800, threshold 0.9500"},
				{Name: "highestWastedBytes", Passed: false, Message: "wasted 999 bytes, threshold 100"},
			},
		},
	})

	assert.Contains(t, out, "PASS  lowestEfficiency")
	assert.Contains(t, out, "FAIL  highestWastedBytes")
}

// testServer answers the inspect POST and holds progress sockets open
// the way the live server does when no pipeline run ever starts.
func testServer(t *testing.T, status int, body string) *url.URL {
	t.Helper()
	upgrader := websocket.Upgrader{}
	release := make(chan struct{})

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/inspect/{image}/progress", func(w http.ResponseWriter, r *http.Request) {
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer ws.Close()
		// No events to send; stay open until the test ends, like the
		// server does for a cache hit.
		<-release
	})
	mux.HandleFunc("POST /api/inspect/{image}", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		w.Write([]byte(body))
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(func() {
		close(release)
		srv.Close()
	})

	base, err := url.Parse(srv.URL)
	require.NoError(t, err)
	return base
}

func TestRunInspect_CachedResultDoesNotBlockOnStream(t *testing.T) {
	base := testServer(t, http.StatusOK,
		`{"id":"abc","image":"docker.io/library/alpine:latest","cached":true,"analysis":{"efficiencyScore":97.5}}`)

	type outcome struct {
		result *inspection
		err    error
	}
	got := make(chan outcome, 1)
	go func() {
		result, err := runInspect(base, "alpine", "", false)
		got <- outcome{result, err}
	}()

	select {
	case o := <-got:
		require.NoError(t, o.err)
		assert.True(t, o.result.Cached)
		assert.InDelta(t, 97.5, o.result.Analysis.Efficiency, 1e-9)
	case <-time.After(5 * time.Second):
		t.Fatal("runInspect did not return after the POST completed")
	}
}

func TestRunInspect_ServerErrorReturnsPromptly(t *testing.T) {
	base := testServer(t, http.StatusUnauthorized,
		`{"code":"unauthorized","message":"authorization required"}`)

	got := make(chan error, 1)
	go func() {
		_, err := runInspect(base, "alpine", "", false)
		got <- err
	}()

	select {
	case err := <-got:
		require.Error(t, err)
		assert.Contains(t, err.Error(), "authorization required")
		assert.Contains(t, err.Error(), "unauthorized")
	case <-time.After(5 * time.Second):
		t.Fatal("runInspect did not return after the POST was rejected")
	}
}

func TestStartInspection_RefreshQuery(t *testing.T) {
	var gotQuery string
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/inspect/{image}", func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"x","image":"docker.io/library/alpine:latest"}`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	base, err := url.Parse(srv.URL)
	require.NoError(t, err)

	_, err = startInspection(base, "alpine", "", true)
	require.NoError(t, err)
	assert.Equal(t, "refresh=1", gotQuery)
}
