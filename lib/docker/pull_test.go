package docker

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodePullStream(t *testing.T) {
	stream := strings.Join([]string{
		`{"status":"Pulling from library/alpine","id":"latest"}`,
		`{"status":"Downloading","id":"aaa","progressDetail":{"current":50,"total":100}}`,
		`{"status":"Downloading","id":"bbb","progressDetail":{"current":0,"total":100}}`,
		`{"status":"Downloading","id":"aaa","progressDetail":{"current":100,"total":100}}`,
		`{"status":"Downloading","id":"bbb","progressDetail":{"current":100,"total":100}}`,
		`{"status":"Status: Downloaded newer image for alpine:latest"}`,
	}, "\n")

	var updates []PullProgress
	err := decodePullStream(strings.NewReader(stream), func(p PullProgress) {
		updates = append(updates, p)
	})
	require.NoError(t, err)
	require.NotEmpty(t, updates)

	// Aggregate percentage dips when a new layer appears, then climbs.
	percents := make([]int, len(updates))
	for i, u := range updates {
		percents[i] = u.Percent
	}
	assert.Equal(t, []int{50, 25, 75, 100, 100}, percents)
	assert.Contains(t, updates[0].Message, "50 B")
}

func TestDecodePullStream_Error(t *testing.T) {
	stream := `{"errorDetail":{"message":"manifest unknown"},"error":"manifest unknown"}`

	err := decodePullStream(strings.NewReader(stream), nil)
	require.ErrorContains(t, err, "manifest unknown")
}

func TestDecodePullStream_NilCallback(t *testing.T) {
	stream := `{"status":"Downloading","id":"aaa","progressDetail":{"current":1,"total":2}}`
	require.NoError(t, decodePullStream(strings.NewReader(stream), nil))
}
