// Package docker wraps the Docker Engine API calls the inspection
// pipeline needs: existence checks, history, and streamed pulls.
package docker

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/docker/docker/client"
	"github.com/docker/docker/errdefs"
)

// Client wraps a Docker Engine API client.
type Client struct {
	cli *client.Client
}

// NewClient creates a client from the environment (DOCKER_HOST etc.)
// with API version negotiation.
func NewClient() (*Client, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("create docker client: %w", err)
	}
	return &Client{cli: cli}, nil
}

// Close closes the underlying client.
func (c *Client) Close() error {
	return c.cli.Close()
}

// Ping checks the engine is reachable.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.cli.Ping(ctx)
	return err
}

// WaitReady pings the engine with exponential backoff until it answers
// or maxWait elapses. The daemon is often still starting when we are.
func (c *Client) WaitReady(ctx context.Context, maxWait time.Duration) error {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 250 * time.Millisecond
	bo.MaxElapsedTime = maxWait

	return backoff.Retry(func() error {
		return c.Ping(ctx)
	}, backoff.WithContext(bo, ctx))
}

// ImageExists reports whether the image is present in the local engine.
func (c *Client) ImageExists(ctx context.Context, ref string) (bool, error) {
	_, _, err := c.cli.ImageInspectWithRaw(ctx, ref)
	if err != nil {
		if errdefs.IsNotFound(err) {
			return false, nil
		}
		return false, fmt.Errorf("inspect image: %w", err)
	}
	return true, nil
}

// ImageSize returns the local image's size in bytes.
func (c *Client) ImageSize(ctx context.Context, ref string) (int64, error) {
	inspect, _, err := c.cli.ImageInspectWithRaw(ctx, ref)
	if err != nil {
		return 0, fmt.Errorf("inspect image: %w", err)
	}
	return inspect.Size, nil
}

// HistoryEntry is one build step from the engine's image history,
// newest first as the engine reports it.
type HistoryEntry struct {
	ID        string
	CreatedBy string
	Size      int64
	Comment   string
}

// History returns the image's build history.
func (c *Client) History(ctx context.Context, ref string) ([]HistoryEntry, error) {
	items, err := c.cli.ImageHistory(ctx, ref)
	if err != nil {
		return nil, fmt.Errorf("image history: %w", err)
	}

	entries := make([]HistoryEntry, 0, len(items))
	for _, item := range items {
		entries = append(entries, HistoryEntry{
			ID:        item.ID,
			CreatedBy: item.CreatedBy,
			Size:      item.Size,
			Comment:   item.Comment,
		})
	}
	return entries, nil
}
