package dive

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleReport = `{
  "layer": [
    {"index": 0, "id": "abc123", "digestId": "sha256:aaa", "sizeBytes": 5591284, "command": "#(nop) ADD file:xyz in /", "fileList": [{"path": "/bin/sh", "size": 120, "isDir": false}]},
    {"index": 1, "id": "def456", "digestId": "sha256:bbb", "sizeBytes": 1024, "command": "apk add --no-cache curl"}
  ],
  "image": {
    "sizeBytes": 5592308,
    "inefficientBytes": 512,
    "efficiencyScore": 0.9843,
    "fileReference": [{"count": 2, "sizeBytes": 512, "file": "/var/cache/apk/lock"}]
  }
}`

func writeArtifact(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "report.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestReadReport(t *testing.T) {
	report, err := readReport(writeArtifact(t, sampleReport), 0)
	require.NoError(t, err)

	assert.Equal(t, SourceJSON, report.Source)
	require.Len(t, report.Layer, 2)
	assert.Equal(t, "sha256:aaa", report.Layer[0].DigestID)
	assert.Equal(t, uint64(5591284), report.Layer[0].SizeBytes)
	assert.Len(t, report.Layer[0].FileList, 1)
	assert.Equal(t, "apk add --no-cache curl", report.Layer[1].Command)
	assert.InDelta(t, 0.9843, report.Image.EfficiencyScore, 1e-9)
	assert.Equal(t, uint64(512), report.Image.InefficientBytes)
	require.Len(t, report.Image.FileReference, 1)
	assert.Equal(t, "/var/cache/apk/lock", report.Image.FileReference[0].File)
}

func TestReadReport_Missing(t *testing.T) {
	_, err := readReport(filepath.Join(t.TempDir(), "nope.json"), 0)
	require.Error(t, err)
}

func TestReadReport_Malformed(t *testing.T) {
	_, err := readReport(writeArtifact(t, "{not json"), 0)
	require.Error(t, err)
}

func TestReadReport_NoLayers(t *testing.T) {
	_, err := readReport(writeArtifact(t, `{"layer": [], "image": {}}`), 0)
	require.ErrorContains(t, err, "no layers")
}

func TestReadReport_SizeCap(t *testing.T) {
	_, err := readReport(writeArtifact(t, sampleReport), 16)
	require.ErrorContains(t, err, "limit 16")
}

func TestParseTextOutput(t *testing.T) {
	output := []byte("Analyzing image...\n" +
		"  efficiency: 98.4227 %\n" +
		"  wastedBytes: 32025 bytes (32 kB)\n" +
		"  userWastedPercent: 48.3491 %\n")

	report, err := parseTextOutput(output)
	require.NoError(t, err)

	assert.Equal(t, SourceText, report.Source)
	assert.InDelta(t, 0.984227, report.Image.EfficiencyScore, 1e-9)
	assert.Equal(t, uint64(32025), report.Image.InefficientBytes)
	assert.InDelta(t, 48.3491, report.UserWastedPercent, 1e-9)
	assert.Empty(t, report.Layer)
}

func TestParseTextOutput_StripsANSI(t *testing.T) {
	output := []byte("\x1b[2K\x1b[1G  efficiency: \x1b[32m75.5\x1b[0m %\n")

	report, err := parseTextOutput(output)
	require.NoError(t, err)
	assert.InDelta(t, 0.755, report.Image.EfficiencyScore, 1e-9)
}

func TestParseTextOutput_NoEfficiency(t *testing.T) {
	_, err := parseTextOutput([]byte("image not found\n"))
	require.ErrorIs(t, err, ErrParseFailure)
}
