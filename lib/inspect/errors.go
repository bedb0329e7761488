package inspect

import "errors"

var (
	// ErrInvalidReference means the image name failed reference
	// validation before any subprocess or API call was made.
	ErrInvalidReference = errors.New("invalid image reference")
	// ErrImageNotFound means neither the local engine nor the remote
	// registry has the image.
	ErrImageNotFound = errors.New("image not found")
	// ErrNoProgress means there is no live progress record for the
	// image (never inspected, or the record expired).
	ErrNoProgress = errors.New("no inspection progress for image")
)
