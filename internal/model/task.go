package model

import "time"

// Task represents a single media retrieval request and its progress.
// Snapshots handed out by the store are value copies; mutating one has no
// effect on the tracked record.
type Task struct {
	ID           string     `json:"id"`
	URL          string     `json:"url"`
	Platform     string     `json:"platform"`
	Format       string     `json:"format"`
	Status       TaskStatus `json:"status"`
	Percent      float64    `json:"percent"`
	Speed        string     `json:"speed,omitempty"`
	ETASec       int        `json:"eta_seconds"` // -1 if unknown
	Title        string     `json:"title,omitempty"`
	ResultPath   string     `json:"result_path,omitempty"`
	ErrorMessage string     `json:"error,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}
