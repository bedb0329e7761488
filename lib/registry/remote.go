// Package registry answers "does this image exist upstream?" without
// pulling it, via a manifest HEAD against the remote registry.
package registry

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/google/go-containerregistry/pkg/authn"
	"github.com/google/go-containerregistry/pkg/name"
	"github.com/google/go-containerregistry/pkg/v1/remote"
	"github.com/google/go-containerregistry/pkg/v1/remote/transport"
)

// ErrNotFound means the registry has no manifest for the reference.
var ErrNotFound = errors.New("image not found in registry")

// Descriptor summarizes a remote manifest.
type Descriptor struct {
	Digest    string
	SizeBytes int64
	MediaType string
}

// Checker performs remote manifest lookups using the ambient keychain
// (~/.docker/config.json credentials when present).
type Checker struct{}

// NewChecker creates a Checker.
func NewChecker() *Checker {
	return &Checker{}
}

// Head resolves the reference and HEADs its manifest.
func (c *Checker) Head(ctx context.Context, ref string) (*Descriptor, error) {
	parsed, err := name.ParseReference(ref)
	if err != nil {
		return nil, fmt.Errorf("parse reference: %w", err)
	}

	desc, err := remote.Head(parsed,
		remote.WithContext(ctx),
		remote.WithAuthFromKeychain(authn.DefaultKeychain),
	)
	if err != nil {
		var terr *transport.Error
		if errors.As(err, &terr) && terr.StatusCode == http.StatusNotFound {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, ref)
		}
		return nil, fmt.Errorf("registry head %s: %w", ref, err)
	}

	return &Descriptor{
		Digest:    desc.Digest.String(),
		SizeBytes: desc.Size,
		MediaType: string(desc.MediaType),
	}, nil
}
