package service

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"medidown/internal/extractor"
	"medidown/internal/history"
	"medidown/internal/model"
	"medidown/internal/store"
)

// SubmitRequest is a validated-on-entry download request. Platform is
// optional; when empty it is inferred from the URL host.
type SubmitRequest struct {
	URL      string
	Platform string
	Format   string
}

// Options tune the orchestrator.
type Options struct {
	DownloadDir   string
	CookiesFile   string
	MaxConcurrent int
}

// Orchestrator creates tasks, dispatches one worker goroutine per accepted
// task, and owns cancellation. It is the only writer of status transitions;
// the extractor's progress callback is the only writer of progress fields.
// Both funnel through the store's synchronized methods.
type Orchestrator struct {
	store     *store.Store
	history   *history.Repository
	extractor extractor.Extractor
	opts      Options

	mu      sync.Mutex
	active  int
	cancels map[string]context.CancelFunc
	wg      sync.WaitGroup
}

func NewOrchestrator(deps Deps) *Orchestrator {
	opts := deps.Options
	if opts.MaxConcurrent <= 0 {
		opts.MaxConcurrent = 4
	}
	return &Orchestrator{
		store:     deps.Store,
		history:   deps.History,
		extractor: deps.Extractor,
		opts:      opts,
		cancels:   make(map[string]context.CancelFunc),
	}
}

// Submit validates the request, applies admission control and returns the
// accepted task immediately. Requests beyond the concurrency bound are
// rejected with a capacity error rather than queued.
func (o *Orchestrator) Submit(ctx context.Context, req SubmitRequest) (model.Task, error) {
	if err := validate(&req); err != nil {
		return model.Task{}, err
	}

	o.mu.Lock()
	if o.active >= o.opts.MaxConcurrent {
		o.mu.Unlock()
		return model.Task{}, model.NewTaskError(model.KindCapacity,
			"server is at capacity, retry later", nil)
	}
	o.active++

	task := o.store.Create(req.URL, req.Platform, req.Format)
	taskCtx, cancel := context.WithCancel(context.Background())
	o.cancels[task.ID] = cancel
	o.wg.Add(1)
	o.mu.Unlock()

	o.record(func(hctx context.Context) error {
		return o.history.Insert(hctx, task)
	})

	logrus.WithFields(logrus.Fields{
		"task":     task.ID,
		"platform": task.Platform,
		"format":   task.Format,
	}).Info("task accepted")

	go o.run(taskCtx, task.ID, req)

	return task, nil
}

// Get returns a task snapshot.
func (o *Orchestrator) Get(id string) (model.Task, bool) {
	return o.store.Get(id)
}

// List returns snapshots of all tracked tasks.
func (o *Orchestrator) List() []model.Task {
	return o.store.List()
}

// Cancel requests cancellation. Queued tasks transition to canceled
// directly; running tasks get their context canceled and the worker
// finalizes within the grace period.
func (o *Orchestrator) Cancel(id string) error {
	task, exists := o.store.Get(id)
	if !exists {
		return model.ErrTaskNotFound
	}
	if task.Status.IsTerminal() {
		return model.ErrAlreadyTerminal
	}

	if task.Status == model.StatusQueued {
		// The worker sees the terminal state before starting the tool.
		if !o.store.MarkCanceled(id) {
			return model.ErrAlreadyTerminal
		}
	}

	o.mu.Lock()
	cancel, ok := o.cancels[id]
	o.mu.Unlock()
	if ok {
		cancel()
	}

	logrus.WithField("task", id).Info("cancellation requested")
	return nil
}

// Shutdown cancels all in-flight work and waits for workers to finalize,
// bounded by ctx.
func (o *Orchestrator) Shutdown(ctx context.Context) error {
	o.mu.Lock()
	for _, cancel := range o.cancels {
		cancel()
	}
	o.mu.Unlock()

	done := make(chan struct{})
	go func() {
		o.wg.Wait()
		close(done)
	}()

	select {
	case <-ctx.Done():
		logrus.Info("shutdown wait exceeded, abandoning workers")
		return ctx.Err()
	case <-done:
		return nil
	}
}

// run is the per-task worker.
func (o *Orchestrator) run(ctx context.Context, id string, req SubmitRequest) {
	defer func() {
		o.mu.Lock()
		if cancel, ok := o.cancels[id]; ok {
			cancel()
			delete(o.cancels, id)
		}
		o.active--
		o.mu.Unlock()
		o.wg.Done()
	}()

	if !o.store.MarkRunning(id) {
		// Canceled while still queued; never reached running.
		o.record(func(hctx context.Context) error {
			return o.history.MarkTerminal(hctx, id, model.StatusCanceled, "", "")
		})
		logrus.WithField("task", id).Info("task canceled before start")
		return
	}

	o.record(func(hctx context.Context) error {
		return o.history.MarkRunning(hctx, id)
	})

	result, err := o.extractor.Fetch(ctx, extractor.Request{
		TaskID:      id,
		URL:         req.URL,
		Format:      req.Format,
		DestDir:     o.opts.DownloadDir,
		CookiesFile: o.opts.CookiesFile,
	}, func(percent float64, speed string, etaSec int) {
		o.store.Progress(id, percent, speed, etaSec)
	})

	if err != nil {
		terr := extractor.Classify(err)
		o.removePartials(id)

		if terr.Kind == model.KindCanceled {
			o.store.MarkCanceled(id)
			o.record(func(hctx context.Context) error {
				return o.history.MarkTerminal(hctx, id, model.StatusCanceled, "", "")
			})
			logrus.WithField("task", id).Info("task canceled")
			return
		}

		o.store.MarkFailed(id, terr.Message)
		o.record(func(hctx context.Context) error {
			return o.history.MarkTerminal(hctx, id, model.StatusError, "", terr.Message)
		})
		logrus.WithFields(logrus.Fields{
			"task": id,
			"kind": terr.Kind,
		}).WithError(terr.Err).Error("task failed")
		return
	}

	o.store.SetTitle(id, result.Title)
	o.store.MarkFinished(id, result.Path)
	o.record(func(hctx context.Context) error {
		return o.history.MarkTerminal(hctx, id, model.StatusFinished, result.Path, "")
	})
	logrus.WithFields(logrus.Fields{
		"task": id,
		"path": result.Path,
	}).Info("task finished")
}

// removePartials deletes leftover output for a task that did not finish.
// Best-effort: a stray .part file is only disk noise.
func (o *Orchestrator) removePartials(id string) {
	matches, err := filepath.Glob(filepath.Join(o.opts.DownloadDir, id+"*"))
	if err != nil {
		return
	}
	for _, path := range matches {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			logrus.WithField("path", path).Debugf("partial cleanup: %v", err)
		}
	}
}

// record runs a history write with its own timeout, tolerating a nil
// repository. History failures never affect the task lifecycle.
func (o *Orchestrator) record(write func(context.Context) error) {
	if o.history == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := write(ctx); err != nil {
		logrus.WithError(err).Warn("history write failed")
	}
}

func validate(req *SubmitRequest) error {
	if req.URL == "" {
		return model.NewTaskError(model.KindInvalidRequest, "url is required", nil)
	}
	u, err := url.Parse(req.URL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return model.NewTaskError(model.KindInvalidRequest,
			"url must be a valid http(s) URL", err)
	}

	if req.Format == "" {
		req.Format = model.FormatBest
	}
	if !model.ValidFormat(req.Format) {
		return model.NewTaskError(model.KindInvalidRequest,
			fmt.Sprintf("unknown format %q", req.Format), nil)
	}

	if req.Platform == "" {
		req.Platform = model.DetectPlatform(req.URL)
	} else if !model.KnownPlatform(req.Platform) {
		return model.NewTaskError(model.KindInvalidRequest,
			fmt.Sprintf("unknown platform %q", req.Platform), nil)
	}
	return nil
}
