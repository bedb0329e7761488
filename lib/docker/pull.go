package docker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/errdefs"
	"github.com/docker/docker/pkg/jsonmessage"
	"github.com/dustin/go-humanize"
)

// ErrImageNotFound means the registry has no such image.
var ErrImageNotFound = errors.New("image not found")

// PullProgress is one aggregate progress point during a pull.
type PullProgress struct {
	Percent int
	Message string
}

// PullProgressFunc receives pull progress updates.
type PullProgressFunc func(PullProgress)

// Pull pulls the image, decoding the engine's jsonmessage stream into
// aggregate percent progress across all layers. fn may be nil.
func (c *Client) Pull(ctx context.Context, ref string, fn PullProgressFunc) error {
	reader, err := c.cli.ImagePull(ctx, ref, image.PullOptions{})
	if err != nil {
		if errdefs.IsNotFound(err) {
			return fmt.Errorf("%w: %s", ErrImageNotFound, ref)
		}
		return fmt.Errorf("pull image: %w", err)
	}
	defer reader.Close()

	return decodePullStream(reader, fn)
}

// layerCounts tracks per-layer download byte counts so the aggregate
// percentage is stable as layers appear in the stream.
type layerCounts struct {
	current int64
	total   int64
}

func decodePullStream(reader io.Reader, fn PullProgressFunc) error {
	dec := json.NewDecoder(reader)
	layers := make(map[string]*layerCounts)
	lastPercent := -1

	for {
		var msg jsonmessage.JSONMessage
		if err := dec.Decode(&msg); err == io.EOF {
			break
		} else if err != nil {
			return fmt.Errorf("decode pull stream: %w", err)
		}

		if msg.Error != nil {
			return fmt.Errorf("pull failed: %s", msg.Error.Message)
		}

		if msg.ID != "" && msg.Progress != nil && msg.Progress.Total > 0 {
			counts, ok := layers[msg.ID]
			if !ok {
				counts = &layerCounts{}
				layers[msg.ID] = counts
			}
			counts.current = msg.Progress.Current
			counts.total = msg.Progress.Total
		}

		if fn == nil {
			continue
		}

		var current, total int64
		for _, counts := range layers {
			current += counts.current
			total += counts.total
		}

		percent := 0
		if total > 0 {
			percent = int(current * 100 / total)
		}
		if percent == lastPercent {
			continue
		}
		lastPercent = percent

		fn(PullProgress{
			Percent: percent,
			Message: fmt.Sprintf("downloading %s of %s", humanize.Bytes(uint64(current)), humanize.Bytes(uint64(total))),
		})
	}

	if fn != nil {
		fn(PullProgress{Percent: 100, Message: "pull complete"})
	}
	return nil
}
