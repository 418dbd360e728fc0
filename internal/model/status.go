package model

// TaskStatus represents the lifecycle state of a download task.
type TaskStatus string

const (
	// StatusQueued means the task was accepted but no worker picked it up yet
	StatusQueued TaskStatus = "queued"

	// StatusRunning means the extractor is fetching the media
	StatusRunning TaskStatus = "running"

	// StatusFinished means the artifact is ready for retrieval
	StatusFinished TaskStatus = "finished"

	// StatusError means the task failed and will not be retried
	StatusError TaskStatus = "error"

	// StatusCanceled means the task was canceled by the user
	StatusCanceled TaskStatus = "canceled"
)

// String returns the string representation of TaskStatus
func (ts TaskStatus) String() string {
	return string(ts)
}

// IsActive returns true while the task still owns a worker slot
func (ts TaskStatus) IsActive() bool {
	return ts == StatusQueued || ts == StatusRunning
}

// IsTerminal returns true once the task reached a final state. Terminal
// tasks never transition again.
func (ts TaskStatus) IsTerminal() bool {
	return ts == StatusFinished || ts == StatusError || ts == StatusCanceled
}
