package dive

// Source records which of dive's two output forms a report was
// recovered from.
type Source string

const (
	// SourceJSON means the report came from the --json artifact and
	// carries full per-layer detail.
	SourceJSON Source = "json"
	// SourceText means the artifact was absent or unreadable and the
	// report was scraped from dive's CI text output. Only aggregate
	// fields are populated.
	SourceText Source = "text"
)

// Report is dive's exported analysis, as written by `dive --json`.
type Report struct {
	Source Source       `json:"-"`
	Layer  []LayerEntry `json:"layer"`
	Image  ImageSummary `json:"image"`

	// UserWastedPercent is only set for text-sourced reports, scraped
	// from the CI summary line. The JSON artifact has no such field.
	UserWastedPercent float64 `json:"-"`
}

// LayerEntry is one layer in the analyzed image.
type LayerEntry struct {
	Index     int        `json:"index"`
	ID        string     `json:"id"`
	DigestID  string     `json:"digestId"`
	SizeBytes uint64     `json:"sizeBytes"`
	Command   string     `json:"command"`
	FileList  []FileInfo `json:"fileList"`
}

// FileInfo is one file in a layer's filesystem diff.
type FileInfo struct {
	Path     string `json:"path"`
	TypeFlag byte   `json:"typeFlag"`
	LinkName string `json:"linkName"`
	Size     int64  `json:"size"`
	FileMode uint32 `json:"fileMode"`
	UID      int    `json:"uid"`
	GID      int    `json:"gid"`
	IsDir    bool   `json:"isDir"`
}

// ImageSummary is dive's image-level result.
type ImageSummary struct {
	SizeBytes        uint64          `json:"sizeBytes"`
	InefficientBytes uint64          `json:"inefficientBytes"`
	EfficiencyScore  float64         `json:"efficiencyScore"`
	FileReference    []FileReference `json:"fileReference"`
}

// FileReference is a path that appears in more than one layer, with the
// bytes it costs across all of them.
type FileReference struct {
	Count     int    `json:"count"`
	SizeBytes uint64 `json:"sizeBytes"`
	File      string `json:"file"`
}
