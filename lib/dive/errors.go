package dive

import "errors"

var (
	// ErrToolNotFound means the dive binary is not on PATH (or the
	// configured path does not exist).
	ErrToolNotFound = errors.New("dive binary not found")
	// ErrTimeout means the analysis exceeded the configured deadline.
	ErrTimeout = errors.New("dive analysis timed out")
	// ErrParseFailure means neither the JSON artifact nor the text
	// output could be parsed.
	ErrParseFailure = errors.New("unable to parse dive output")
	// ErrAnalysisFailed means dive exited non-zero without producing
	// any usable output.
	ErrAnalysisFailed = errors.New("dive analysis failed")
)
