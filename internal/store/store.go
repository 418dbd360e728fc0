package store

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"medidown/internal/model"
)

// Store is the in-memory task registry. All reads return value snapshots;
// all mutations funnel through the mutex, so callers never reason about
// locking themselves.
//
// Status transitions are one-directional: queued -> running -> one of
// finished/error/canceled. Updates addressed to unknown or terminal tasks
// are silently dropped, except the explicit cancel transition which reports
// whether it applied.
type Store struct {
	mu    sync.Mutex
	tasks map[string]*model.Task
}

func New() *Store {
	return &Store{
		tasks: make(map[string]*model.Task),
	}
}

// Create allocates a new queued task and returns its snapshot.
func (s *Store) Create(url, platform, format string) model.Task {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	task := &model.Task{
		ID:        uuid.NewString(),
		URL:       url,
		Platform:  platform,
		Format:    format,
		Status:    model.StatusQueued,
		ETASec:    -1,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.tasks[task.ID] = task
	return *task
}

// Get returns a snapshot of the task, or false if the id is unknown.
func (s *Store) Get(id string) (model.Task, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	task, exists := s.tasks[id]
	if !exists {
		return model.Task{}, false
	}
	return *task, true
}

// List returns snapshots of all tracked tasks.
func (s *Store) List() []model.Task {
	s.mu.Lock()
	defer s.mu.Unlock()

	tasks := make([]model.Task, 0, len(s.tasks))
	for _, task := range s.tasks {
		tasks = append(tasks, *task)
	}
	return tasks
}

// Progress records a progress sample. Samples for tasks that are not
// running are dropped, as are percent values below the last reported one:
// the externally observable percent is monotonically non-decreasing. Speed
// and ETA are most-recent-wins.
func (s *Store) Progress(id string, percent float64, speed string, etaSec int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	task, exists := s.tasks[id]
	if !exists || task.Status != model.StatusRunning {
		return
	}

	if percent > 100 {
		percent = 100
	}
	if percent >= task.Percent {
		task.Percent = percent
	}
	if speed != "" {
		task.Speed = speed
	}
	if etaSec >= 0 {
		task.ETASec = etaSec
	}
	task.UpdatedAt = time.Now()
}

// SetTitle records media metadata once the tool reports it.
func (s *Store) SetTitle(id, title string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	task, exists := s.tasks[id]
	if !exists || task.Status.IsTerminal() || title == "" {
		return
	}
	task.Title = title
	task.UpdatedAt = time.Now()
}

// MarkRunning moves a queued task to running. Returns false if the task is
// unknown or no longer queued (e.g. canceled before a worker picked it up).
func (s *Store) MarkRunning(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	task, exists := s.tasks[id]
	if !exists || task.Status != model.StatusQueued {
		return false
	}
	task.Status = model.StatusRunning
	task.UpdatedAt = time.Now()
	return true
}

// MarkFinished finalizes a task with its artifact path.
func (s *Store) MarkFinished(id, resultPath string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	task, exists := s.tasks[id]
	if !exists || task.Status.IsTerminal() {
		return false
	}
	task.Status = model.StatusFinished
	task.Percent = 100
	task.ETASec = 0
	task.ResultPath = resultPath
	task.UpdatedAt = time.Now()
	return true
}

// MarkFailed finalizes a task with a normalized error message.
func (s *Store) MarkFailed(id, message string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	task, exists := s.tasks[id]
	if !exists || task.Status.IsTerminal() {
		return false
	}
	task.Status = model.StatusError
	task.ErrorMessage = message
	task.UpdatedAt = time.Now()
	return true
}

// MarkCanceled finalizes a task as canceled. Applies from both queued and
// running; a queued task never reaches running afterwards.
func (s *Store) MarkCanceled(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	task, exists := s.tasks[id]
	if !exists || task.Status.IsTerminal() {
		return false
	}
	task.Status = model.StatusCanceled
	task.UpdatedAt = time.Now()
	return true
}

// Delete removes a task record.
func (s *Store) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tasks, id)
}

// Sweep evicts terminal tasks whose UpdatedAt is older than ttl and returns
// the number removed. Active tasks are never evicted; they belong to their
// worker until it finalizes them.
func (s *Store) Sweep(ttl time.Duration) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := time.Now().Add(-ttl)
	removed := 0
	for id, task := range s.tasks {
		if task.Status.IsTerminal() && task.UpdatedAt.Before(cutoff) {
			delete(s.tasks, id)
			removed++
		}
	}
	return removed
}

// RunSweeper sweeps on a fixed interval until ctx is done.
func (s *Store) RunSweeper(ctx context.Context, ttl, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if removed := s.Sweep(ttl); removed > 0 {
				logrus.WithField("removed", removed).Info("evicted expired tasks")
			}
		}
	}
}
