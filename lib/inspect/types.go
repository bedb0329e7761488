package inspect

import "time"

// Inspection statuses, in pipeline order.
const (
	StatusQueued    = "queued"
	StatusChecking  = "checking"
	StatusPulling   = "pulling"
	StatusAnalyzing = "analyzing"
	StatusComplete  = "complete"
	StatusError     = "error"
)

// Progress is the transient per-image record served by the status
// endpoint. It lives only in process memory and expires a fixed TTL
// after reaching a terminal status.
type Progress struct {
	Image         string    `json:"image"`
	Status        string    `json:"status"`
	Progress      int       `json:"progress"`
	Message       string    `json:"message"`
	QueuePosition *int      `json:"queuePosition,omitempty"`
	Error         *string   `json:"error,omitempty"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// Event is one progress update pushed to the WebSocket subscriber.
type Event struct {
	Image     string    `json:"image"`
	Status    string    `json:"status"`
	Progress  int       `json:"progress"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// Layer is one build step of the analyzed image.
type Layer struct {
	Index       int     `json:"index"`
	ID          string  `json:"id,omitempty"`
	Digest      string  `json:"digest,omitempty"`
	Command     string  `json:"command"`
	SizeBytes   uint64  `json:"sizeBytes"`
	WastedBytes uint64  `json:"wastedBytes"`
	Efficiency  float64 `json:"efficiency"`
	FileCount   int     `json:"fileCount"`
}

// InefficientFile is a path duplicated or rewritten across layers.
type InefficientFile struct {
	File      string `json:"file"`
	Count     int    `json:"count"`
	SizeBytes uint64 `json:"sizeBytes"`
}

// Analysis is the normalized result for one image.
type Analysis struct {
	Efficiency       float64           `json:"efficiencyScore"`
	SizeBytes        uint64            `json:"totalSizeBytes"`
	WastedBytes      uint64            `json:"wastedBytes"`
	WastedPercent    float64           `json:"wastedPercent"`
	Layers           []Layer           `json:"layers"`
	InefficientFiles []InefficientFile `json:"inefficientFiles,omitempty"`
	Rules            []RuleResult      `json:"rules,omitempty"`
	// Partial marks an analysis recovered from dive's text output,
	// with layer detail backfilled from the engine's image history.
	Partial bool `json:"partial,omitempty"`
}

// Inspection is the response for one completed inspection.
type Inspection struct {
	ID          string    `json:"id"`
	Image       string    `json:"image"`
	Analysis    *Analysis `json:"analysis"`
	Cached      bool      `json:"cached"`
	DurationMS  int64     `json:"durationMs"`
	CompletedAt time.Time `json:"completedAt"`
}
