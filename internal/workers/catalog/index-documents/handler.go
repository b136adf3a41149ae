package indexdocuments

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

const TaskType = config.TaskIndexDocuments

type Indexer interface {
	IndexDocuments(ctx context.Context, req models.IndexRequest) (*models.IndexingResult, error)
}

type Handler struct {
	config  *Config
	service Indexer
	runner  *camunda.Runner
	logger  logger.Logger
}

func NewHandler(config *Config, service Indexer, schema *registry.InputValidator, obs *observability.Observability, log logger.Logger) *Handler {
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

// Execute completes the job even when individual documents were rejected;
// they are listed in the result's errors.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	res, err := h.service.IndexDocuments(ctx, models.IndexRequest{
		Index:     input.Index,
		Operation: input.Operation,
		Documents: input.Documents,
		Refresh:   input.Refresh,
	})
	if err != nil {
		return nil, err
	}

	if len(res.Errors) > 0 {
		h.logger.Warn("documents rejected", map[string]interface{}{
			"submitted": len(input.Documents),
			"indexed":   res.Indexed,
			"rejected":  len(res.Errors),
			"first":     res.Errors[0].Reason,
		})
	}
	return &Output{IndexingResult: res}, nil
}
