package extractor

import "context"

// Request describes one fetch operation handed to an extractor.
type Request struct {
	TaskID string
	URL    string
	Format string

	// DestDir is the download root; artifacts are named after the task id
	// so retrieval never depends on the media title.
	DestDir string

	// CookiesFile is an opaque credential blob for restricted content,
	// passed through to the tool untouched. Empty means none.
	CookiesFile string
}

// Result is the outcome of a successful fetch.
type Result struct {
	Path  string
	Title string
}

// ProgressFunc receives progress samples at a tool-defined cadence. etaSec
// is -1 when the tool cannot estimate. Implementations forward samples to
// the task store, which owns clamping and monotonicity.
type ProgressFunc func(percent float64, speed string, etaSec int)

// Extractor wraps an external fetch tool. Fetch blocks until the artifact
// is written, the tool fails, or ctx is canceled; on cancellation it must
// terminate the underlying operation within a bounded grace period and
// remove partial output best-effort. Errors are returned already classified
// as *model.TaskError.
type Extractor interface {
	Fetch(ctx context.Context, req Request, onProgress ProgressFunc) (*Result, error)
}
