package store

import (
	"testing"
	"time"

	"medidown/internal/model"
)

func newRunningTask(t *testing.T, s *Store) model.Task {
	t.Helper()
	task := s.Create("https://example.com/video/123", "generic", "best")
	if !s.MarkRunning(task.ID) {
		t.Fatalf("MarkRunning failed for fresh task")
	}
	return task
}

func TestCreateDefaults(t *testing.T) {
	s := New()
	task := s.Create("https://example.com/video/123", "generic", "best")

	if task.ID == "" {
		t.Fatal("expected generated task id")
	}
	if task.Status != model.StatusQueued {
		t.Errorf("expected status queued, got %s", task.Status)
	}
	if task.ETASec != -1 {
		t.Errorf("expected unknown ETA (-1), got %d", task.ETASec)
	}
}

func TestProgressMonotonic(t *testing.T) {
	s := New()
	task := newRunningTask(t, s)

	s.Progress(task.ID, 40, "1.0 MB/s", 60)
	s.Progress(task.ID, 25, "2.0 MB/s", 30) // out-of-order sample, percent dropped
	s.Progress(task.ID, 55, "", -1)

	got, _ := s.Get(task.ID)
	if got.Percent != 55 {
		t.Errorf("expected percent 55, got %v", got.Percent)
	}
	// Speed and ETA are most-recent-wins among the samples that carried them.
	if got.Speed != "2.0 MB/s" {
		t.Errorf("expected speed from last non-empty sample, got %q", got.Speed)
	}
	if got.ETASec != 30 {
		t.Errorf("expected eta 30, got %d", got.ETASec)
	}
}

func TestProgressClamped(t *testing.T) {
	s := New()
	task := newRunningTask(t, s)

	s.Progress(task.ID, 140, "", -1)

	got, _ := s.Get(task.ID)
	if got.Percent != 100 {
		t.Errorf("expected percent clamped to 100, got %v", got.Percent)
	}
}

func TestProgressIgnoredWhenNotRunning(t *testing.T) {
	s := New()
	task := s.Create("https://example.com/video/123", "generic", "best")

	s.Progress(task.ID, 50, "1.0 MB/s", 10)
	got, _ := s.Get(task.ID)
	if got.Percent != 0 {
		t.Errorf("queued task should not accept progress, got %v", got.Percent)
	}

	s.MarkRunning(task.ID)
	s.MarkFinished(task.ID, "/tmp/out.mp4")
	s.Progress(task.ID, 50, "1.0 MB/s", 10)
	got, _ = s.Get(task.ID)
	if got.Percent != 100 {
		t.Errorf("terminal task should keep final percent, got %v", got.Percent)
	}
}

func TestTerminalIsFinal(t *testing.T) {
	s := New()
	task := newRunningTask(t, s)

	if !s.MarkFinished(task.ID, "/tmp/out.mp4") {
		t.Fatal("MarkFinished should apply to a running task")
	}
	if s.MarkCanceled(task.ID) {
		t.Error("MarkCanceled should not resurrect a finished task")
	}
	if s.MarkFailed(task.ID, "boom") {
		t.Error("MarkFailed should not resurrect a finished task")
	}

	got, _ := s.Get(task.ID)
	if got.Status != model.StatusFinished {
		t.Errorf("expected finished, got %s", got.Status)
	}
	if got.ResultPath == "" || got.ErrorMessage != "" {
		t.Errorf("finished task must have result and no error: %+v", got)
	}
}

func TestFailedHasOnlyError(t *testing.T) {
	s := New()
	task := newRunningTask(t, s)

	s.MarkFailed(task.ID, "merge failed")

	got, _ := s.Get(task.ID)
	if got.Status != model.StatusError {
		t.Fatalf("expected error status, got %s", got.Status)
	}
	if got.ErrorMessage == "" || got.ResultPath != "" {
		t.Errorf("failed task must have error and no result: %+v", got)
	}
}

func TestCancelQueuedNeverRuns(t *testing.T) {
	s := New()
	task := s.Create("https://example.com/video/123", "generic", "best")

	if !s.MarkCanceled(task.ID) {
		t.Fatal("MarkCanceled should apply to a queued task")
	}
	if s.MarkRunning(task.ID) {
		t.Error("canceled task must not transition to running")
	}

	got, _ := s.Get(task.ID)
	if got.Status != model.StatusCanceled {
		t.Errorf("expected canceled, got %s", got.Status)
	}
}

func TestGetUnknown(t *testing.T) {
	s := New()
	if _, exists := s.Get("no-such-id"); exists {
		t.Error("unknown id must not return a task")
	}
}

func TestMarkUnknownIsNoop(t *testing.T) {
	s := New()
	if s.MarkRunning("nope") || s.MarkFinished("nope", "x") || s.MarkFailed("nope", "x") || s.MarkCanceled("nope") {
		t.Error("transitions on unknown ids must not apply")
	}
}

func TestSweepEvictsOnlyStaleTerminal(t *testing.T) {
	s := New()

	finished := newRunningTask(t, s)
	s.MarkFinished(finished.ID, "/tmp/a.mp4")
	running := newRunningTask(t, s)

	// Fresh terminal task survives a long TTL.
	if removed := s.Sweep(time.Hour); removed != 0 {
		t.Fatalf("expected nothing evicted, got %d", removed)
	}

	// Zero TTL makes the terminal task stale immediately.
	time.Sleep(2 * time.Millisecond)
	if removed := s.Sweep(time.Millisecond); removed != 1 {
		t.Fatalf("expected 1 evicted, got %d", removed)
	}
	if _, exists := s.Get(finished.ID); exists {
		t.Error("stale terminal task should be evicted")
	}
	if _, exists := s.Get(running.ID); !exists {
		t.Error("running task must never be evicted")
	}
}

func TestConcurrentUpdatesAndReads(t *testing.T) {
	s := New()
	task := newRunningTask(t, s)

	done := make(chan struct{})
	go func() {
		for i := 0; i <= 100; i++ {
			s.Progress(task.ID, float64(i), "1.0 MB/s", 100-i)
		}
		close(done)
	}()

	last := -1.0
	for {
		got, _ := s.Get(task.ID)
		if got.Percent < last {
			t.Fatalf("observed percent regressed: %v -> %v", last, got.Percent)
		}
		last = got.Percent
		select {
		case <-done:
			if got, _ := s.Get(task.ID); got.Percent != 100 {
				t.Fatalf("expected final percent 100, got %v", got.Percent)
			}
			return
		default:
		}
	}
}
