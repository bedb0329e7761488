package dive

import (
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"strconv"
)

// CI-mode output, e.g.:
//
//	efficiency: 98.4227 %
//	wastedBytes: 32025 bytes (32 kB)
//	userWastedPercent: 48.3491 %
var (
	ansiPattern          = regexp.MustCompile("\x1b\\[[0-9;]*[a-zA-Z]")
	efficiencyPattern    = regexp.MustCompile(`(?m)^\s*efficiency:\s*([0-9.]+)\s*%`)
	wastedBytesPattern   = regexp.MustCompile(`(?m)^\s*wastedBytes:\s*([0-9]+)\s*bytes`)
	wastedPercentPattern = regexp.MustCompile(`(?m)^\s*userWastedPercent:\s*([0-9.]+)\s*%`)
)

// readReport decodes the JSON artifact dive wrote. maxSize caps how
// large an artifact we are willing to load; huge images with deep file
// lists can produce reports in the hundreds of megabytes.
func readReport(path string, maxSize int64) (*Report, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat report artifact: %w", err)
	}
	if maxSize > 0 && info.Size() > maxSize {
		return nil, fmt.Errorf("report artifact is %d bytes, limit %d", info.Size(), maxSize)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open report artifact: %w", err)
	}
	defer f.Close()

	var report Report
	if err := json.NewDecoder(f).Decode(&report); err != nil {
		return nil, fmt.Errorf("decode report artifact: %w", err)
	}
	if len(report.Layer) == 0 {
		return nil, fmt.Errorf("report artifact has no layers")
	}
	report.Source = SourceJSON
	return &report, nil
}

// parseTextOutput scrapes aggregate metrics out of dive's CI text
// output. Layer detail is not present in that form; callers backfill it
// from the engine's image history.
func parseTextOutput(output []byte) (*Report, error) {
	clean := ansiPattern.ReplaceAll(output, nil)

	m := efficiencyPattern.FindSubmatch(clean)
	if m == nil {
		return nil, fmt.Errorf("%w: no efficiency figure in text output", ErrParseFailure)
	}
	efficiencyPct, err := strconv.ParseFloat(string(m[1]), 64)
	if err != nil {
		return nil, fmt.Errorf("%w: efficiency %q: %v", ErrParseFailure, m[1], err)
	}

	report := &Report{
		Source: SourceText,
		Image: ImageSummary{
			EfficiencyScore: efficiencyPct / 100,
		},
	}

	if m := wastedBytesPattern.FindSubmatch(clean); m != nil {
		if wasted, err := strconv.ParseUint(string(m[1]), 10, 64); err == nil {
			report.Image.InefficientBytes = wasted
		}
	}
	if m := wastedPercentPattern.FindSubmatch(clean); m != nil {
		if pct, err := strconv.ParseFloat(string(m[1]), 64); err == nil {
			report.UserWastedPercent = pct
		}
	}

	return report, nil
}
