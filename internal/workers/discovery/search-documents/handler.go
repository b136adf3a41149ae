package searchdocuments

import (
	"context"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	"discovery-workers/internal/common/camunda"
	"discovery-workers/internal/common/config"
	"discovery-workers/internal/common/logger"
	"discovery-workers/internal/common/observability"
	"discovery-workers/internal/models"
	"discovery-workers/pkg/registry"
)

const TaskType = config.TaskSearchDocuments

type Searcher interface {
	Search(ctx context.Context, req models.SearchRequest) (*models.SearchResult, error)
}

type Handler struct {
	config  *Config
	service Searcher
	runner  *camunda.Runner
	logger  logger.Logger
}

func NewHandler(config *Config, service Searcher, schema *registry.InputValidator, obs *observability.Observability, log logger.Logger) *Handler {
	return &Handler{
		config:  config,
		service: service,
		runner:  camunda.NewRunner(TaskType, config.Timeout, schema, obs, log),
		logger:  log.WithFields(map[string]interface{}{"taskType": TaskType}),
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	camunda.Run(h.runner, client, job, h.Execute)
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	res, err := h.service.Search(ctx, input.toRequest())
	if err != nil {
		return nil, err
	}

	h.logger.Debug("search completed", map[string]interface{}{
		"query":    input.Query,
		"total":    res.Total,
		"returned": len(res.Documents),
		"tookMs":   res.Took,
	})
	return &Output{SearchResult: res}, nil
}
