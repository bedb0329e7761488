package inspect

import (
	"fmt"
	"sort"
	"strings"

	"github.com/distribution/reference"
	"github.com/samber/lo"

	"github.com/aurablacklight/docker-dive-web-ui/lib/dive"
	"github.com/aurablacklight/docker-dive-web-ui/lib/docker"
)

// maxInefficientFiles caps how many duplicated paths the API reports.
const maxInefficientFiles = 25

// normalizeReference validates an image name and normalizes it, e.g.
// nginx -> docker.io/library/nginx:latest.
func normalizeReference(name string) (string, error) {
	named, err := reference.ParseNormalizedNamed(name)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidReference, err)
	}
	return reference.TagNameOnly(named).String(), nil
}

// buildAnalysis reshapes a full dive JSON report into the API's shape.
// dive reports wasted bytes only at image level; each layer is charged
// a share proportional to its size so the per-layer efficiency figure
// is meaningful.
func buildAnalysis(report *dive.Report) *Analysis {
	var layerTotal uint64
	for _, entry := range report.Layer {
		layerTotal += entry.SizeBytes
	}

	layers := lo.Map(report.Layer, func(entry dive.LayerEntry, _ int) Layer {
		var wasted uint64
		if layerTotal > 0 {
			wasted = report.Image.InefficientBytes * entry.SizeBytes / layerTotal
		}
		return Layer{
			Index:       entry.Index,
			ID:          entry.ID,
			Digest:      entry.DigestID,
			Command:     strings.TrimSpace(entry.Command),
			SizeBytes:   entry.SizeBytes,
			WastedBytes: wasted,
			Efficiency:  layerEfficiency(entry.SizeBytes, wasted),
			FileCount:   len(entry.FileList),
		}
	})

	analysis := &Analysis{
		Efficiency:  report.Image.EfficiencyScore * 100,
		SizeBytes:   report.Image.SizeBytes,
		WastedBytes: report.Image.InefficientBytes,
		Layers:      layers,
	}
	analysis.WastedPercent = wastedPercent(analysis.SizeBytes, analysis.WastedBytes)
	analysis.InefficientFiles = topInefficientFiles(report.Image.FileReference)
	return analysis
}

// analysisFromHistory builds a partial analysis when only dive's text
// output was usable: aggregates from the text report, layer detail from
// the engine's image history.
func analysisFromHistory(report *dive.Report, history []docker.HistoryEntry, imageSize int64) *Analysis {
	analysis := &Analysis{
		Efficiency:  report.Image.EfficiencyScore * 100,
		SizeBytes:   uint64(imageSize),
		WastedBytes: report.Image.InefficientBytes,
		Partial:     true,
	}
	analysis.WastedPercent = wastedPercent(analysis.SizeBytes, analysis.WastedBytes)
	if analysis.WastedPercent == 0 && report.UserWastedPercent > 0 {
		// Size lookup failed; fall back to dive's own summary figure.
		analysis.WastedPercent = report.UserWastedPercent
	}

	// The engine reports history newest first; the API indexes layers
	// oldest first to match the dive report shape.
	layers := make([]Layer, 0, len(history))
	for i := len(history) - 1; i >= 0; i-- {
		entry := history[i]
		id := entry.ID
		if id == "<missing>" {
			id = ""
		}
		layers = append(layers, Layer{
			Index:      len(layers),
			ID:         id,
			Command:    strings.TrimSpace(strings.TrimPrefix(entry.CreatedBy, "/bin/sh -c ")),
			SizeBytes:  uint64(entry.Size),
			Efficiency: 100,
		})
	}
	analysis.Layers = layers
	return analysis
}

func layerEfficiency(size, wasted uint64) float64 {
	if size == 0 {
		return 100
	}
	return float64(size-min(wasted, size)) / float64(size) * 100
}

func wastedPercent(size, wasted uint64) float64 {
	if size == 0 {
		return 0
	}
	return float64(wasted) / float64(size) * 100
}

func topInefficientFiles(refs []dive.FileReference) []InefficientFile {
	if len(refs) == 0 {
		return nil
	}

	files := lo.Map(refs, func(ref dive.FileReference, _ int) InefficientFile {
		return InefficientFile{File: ref.File, Count: ref.Count, SizeBytes: ref.SizeBytes}
	})
	sort.Slice(files, func(i, j int) bool {
		return files[i].SizeBytes > files[j].SizeBytes
	})
	if len(files) > maxInefficientFiles {
		files = files[:maxInefficientFiles]
	}
	return files
}
