// Command inspectctl runs an inspection against a dive UI server and
// streams progress to the terminal while the analysis runs.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/gorilla/websocket"
)

type progressEvent struct {
	Image    string `json:"image"`
	Status   string `json:"status"`
	Progress int    `json:"progress"`
	Message  string `json:"message"`
}

type layerSummary struct {
	Index     int    `json:"index"`
	Command   string `json:"command"`
	SizeBytes uint64 `json:"sizeBytes"`
}

type ruleSummary struct {
	Name    string `json:"name"`
	Passed  bool   `json:"passed"`
	Message string `json:"message"`
}

type analysisSummary struct {
	Efficiency    float64        `json:"efficiencyScore"`
	SizeBytes     uint64         `json:"totalSizeBytes"`
	WastedBytes   uint64         `json:"wastedBytes"`
	WastedPercent float64        `json:"wastedPercent"`
	Layers        []layerSummary `json:"layers"`
	Rules         []ruleSummary  `json:"rules"`
	Partial       bool           `json:"partial"`
}

type inspection struct {
	ID         string           `json:"id"`
	Image      string           `json:"image"`
	Analysis   *analysisSummary `json:"analysis"`
	Cached     bool             `json:"cached"`
	DurationMS int64            `json:"durationMs"`
}

func main() {
	token := flag.String("token", "", "JWT token (or use DIVE_UI_TOKEN env var)")
	apiURL := flag.String("api-url", "http://localhost:3000", "API server URL")
	refresh := flag.Bool("refresh", false, "Bypass the server's result cache")
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintf(os.Stderr, "Usage: %s [-refresh] [-token TOKEN] [-api-url URL] <image>\n", os.Args[0])
		os.Exit(1)
	}
	image := flag.Arg(0)

	jwtToken := *token
	if jwtToken == "" {
		jwtToken = os.Getenv("DIVE_UI_TOKEN")
	}

	base, err := url.Parse(*apiURL)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: Invalid API URL: %v\n", err)
		os.Exit(1)
	}

	result, err := runInspect(base, image, jwtToken, *refresh)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Print(formatResult(result))
}

// runInspect subscribes to the progress stream, starts the inspection,
// and tears the stream down once the POST has answered. The stream
// only ends on its own when a run emits a terminal event; cached
// results and rejected requests never produce one, so the stream must
// not be waited on unconditionally.
func runInspect(base *url.URL, image, token string, refresh bool) (*inspection, error) {
	// Subscribe before starting so no early events are missed.
	stop := make(chan struct{})
	done := make(chan struct{})
	go streamProgress(base, image, stop, done)

	result, err := startInspection(base, image, token, refresh)
	close(stop)
	<-done
	return result, err
}

func streamProgress(base *url.URL, image string, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	wsURL := *base
	if wsURL.Scheme == "https" {
		wsURL.Scheme = "wss"
	} else {
		wsURL.Scheme = "ws"
	}
	wsURL.Path = fmt.Sprintf("/api/inspect/%s/progress", url.PathEscape(image))

	ws, resp, err := websocket.DefaultDialer.Dial(wsURL.String(), nil)
	if err != nil {
		// Progress is best effort; the POST result still arrives.
		fmt.Fprintf(os.Stderr, "warning: progress stream unavailable: %v\n", err)
		return
	}
	if resp != nil {
		resp.Body.Close()
	}
	defer ws.Close()

	// Unblock the read loop once the inspection request has answered.
	go func() {
		<-stop
		ws.Close()
	}()

	for {
		var ev progressEvent
		if err := ws.ReadJSON(&ev); err != nil {
			return
		}
		fmt.Printf("[%3d%%] %-10s %s\n", ev.Progress, ev.Status, ev.Message)
	}
}

func startInspection(base *url.URL, image, token string, refresh bool) (*inspection, error) {
	endpoint := *base
	endpoint.Path = fmt.Sprintf("/api/inspect/%s", url.PathEscape(image))
	if refresh {
		endpoint.RawQuery = "refresh=1"
	}

	req, err := http.NewRequest(http.MethodPost, endpoint.String(), nil)
	if err != nil {
		return nil, err
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	client := &http.Client{Timeout: 15 * time.Minute}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		var apiErr struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		}
		if json.Unmarshal(body, &apiErr) == nil && apiErr.Message != "" {
			return nil, fmt.Errorf("%s (%s)", apiErr.Message, apiErr.Code)
		}
		return nil, fmt.Errorf("server returned %s", resp.Status)
	}

	var result inspection
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &result, nil
}

// formatResult renders the analysis summary. Efficiency and wasted
// percent arrive from the server already on the 0-100 scale.
func formatResult(r *inspection) string {
	var b strings.Builder

	fmt.Fprintf(&b, "\nImage:      %s\n", r.Image)
	if r.Cached {
		fmt.Fprintln(&b, "Result:     cached")
	} else {
		fmt.Fprintf(&b, "Duration:   %s\n", time.Duration(r.DurationMS)*time.Millisecond)
	}
	if r.Analysis == nil {
		return b.String()
	}

	fmt.Fprintf(&b, "Size:       %s\n", humanize.Bytes(r.Analysis.SizeBytes))
	fmt.Fprintf(&b, "Efficiency: %.1f%%\n", r.Analysis.Efficiency)
	fmt.Fprintf(&b, "Wasted:     %s (%.1f%%)\n", humanize.Bytes(r.Analysis.WastedBytes), r.Analysis.WastedPercent)
	if r.Analysis.Partial {
		fmt.Fprintln(&b, "Note:       layer detail backfilled from image history")
	}

	if len(r.Analysis.Layers) > 0 {
		fmt.Fprintf(&b, "\nLayers (%d):\n", len(r.Analysis.Layers))
		for _, l := range r.Analysis.Layers {
			cmd := l.Command
			if len(cmd) > 60 {
				cmd = cmd[:57] + "..."
			}
			fmt.Fprintf(&b, "  %3d  %10s  %s\n", l.Index, humanize.Bytes(l.SizeBytes), cmd)
		}
	}

	for _, rule := range r.Analysis.Rules {
		mark := "PASS"
		if !rule.Passed {
			mark = "FAIL"
		}
		fmt.Fprintf(&b, "\n%s  %s: %s", mark, rule.Name, rule.Message)
	}
	if len(r.Analysis.Rules) > 0 {
		fmt.Fprintln(&b)
	}
	return b.String()
}
