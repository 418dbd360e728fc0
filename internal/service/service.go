package service

import (
	"context"

	"medidown/internal/extractor"
	"medidown/internal/history"
	"medidown/internal/model"
	"medidown/internal/store"
)

// Downloads is the task lifecycle contract the HTTP layer depends on.
type Downloads interface {
	Submit(ctx context.Context, req SubmitRequest) (model.Task, error)
	Get(id string) (model.Task, bool)
	List() []model.Task
	Cancel(id string) error
	Shutdown(ctx context.Context) error
}

type Service struct {
	Downloads Downloads
}

// Deps carries the collaborators the orchestrator is built from. History
// may be nil; lifecycle records are then kept in memory only.
type Deps struct {
	Store     *store.Store
	History   *history.Repository
	Extractor extractor.Extractor
	Options   Options
}

func NewService(deps Deps) *Service {
	return &Service{
		Downloads: NewOrchestrator(deps),
	}
}
