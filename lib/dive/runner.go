// Package dive drives the external dive CLI and parses what it emits.
// The JSON artifact is preferred; the CI text output is the fallback.
package dive

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/aurablacklight/docker-dive-web-ui/lib/logger"
)

// Analyzer runs a layer analysis for one image reference.
type Analyzer interface {
	Analyze(ctx context.Context, ref string) (*Report, error)
}

// Runner shells out to the dive binary.
type Runner struct {
	bin           string
	timeout       time.Duration
	maxReportSize int64
}

// NewRunner creates a Runner. bin may be a bare name resolved on PATH
// or an absolute path. maxReportSize of 0 disables the artifact size cap.
func NewRunner(bin string, timeout time.Duration, maxReportSize int64) *Runner {
	if bin == "" {
		bin = "dive"
	}
	return &Runner{bin: bin, timeout: timeout, maxReportSize: maxReportSize}
}

// Available reports whether the dive binary can be resolved.
func (r *Runner) Available() error {
	if _, err := exec.LookPath(r.bin); err != nil {
		return fmt.Errorf("%w: %v", ErrToolNotFound, err)
	}
	return nil
}

// Analyze runs `dive --json <artifact> <ref>` and returns the parsed
// report. The ref must already be validated; Analyze does not inspect it.
//
// dive exits non-zero when its own CI rules fail even though the
// artifact is complete, so a readable artifact always wins over the
// exit status.
func (r *Runner) Analyze(ctx context.Context, ref string) (*Report, error) {
	log := logger.FromContext(ctx)

	workDir, err := os.MkdirTemp("", "dive-report-*")
	if err != nil {
		return nil, fmt.Errorf("create report dir: %w", err)
	}
	defer os.RemoveAll(workDir)
	artifact := filepath.Join(workDir, "report.json")

	runCtx := ctx
	if r.timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(runCtx, r.bin, "--json", artifact, ref)
	// CI=true keeps dive out of its interactive TUI.
	cmd.Env = append(os.Environ(), "CI=true")

	var output bytes.Buffer
	cmd.Stdout = &output
	cmd.Stderr = &output

	started := time.Now()
	runErr := cmd.Run()
	log.DebugContext(ctx, "dive finished", "ref", ref, "duration", time.Since(started), "error", runErr)

	if runErr != nil {
		if errors.Is(runErr, exec.ErrNotFound) || errors.Is(runErr, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %q", ErrToolNotFound, r.bin)
		}
		if runCtx.Err() != nil && errors.Is(runCtx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w after %s", ErrTimeout, r.timeout)
		}
	}

	report, jsonErr := readReport(artifact, r.maxReportSize)
	if jsonErr == nil {
		return report, nil
	}
	log.DebugContext(ctx, "report artifact unusable, trying text output", "ref", ref, "error", jsonErr)

	report, textErr := parseTextOutput(output.Bytes())
	if textErr == nil {
		return report, nil
	}

	if runErr != nil {
		return nil, fmt.Errorf("%w: %s", ErrAnalysisFailed, firstLine(output.Bytes()))
	}
	return nil, fmt.Errorf("%w: %v", ErrParseFailure, jsonErr)
}

// firstLine extracts the leading non-empty line of dive's output for
// error messages.
func firstLine(output []byte) string {
	for _, line := range strings.Split(string(ansiPattern.ReplaceAll(output, nil)), "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			return trimmed
		}
	}
	return "no output"
}
