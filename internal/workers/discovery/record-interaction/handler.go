package recordinteraction

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

const TaskType = config.TaskRecordInteraction

type Recorder interface {
	RecordInteraction(ctx context.Context, ev models.Interaction) (*models.Interaction, error)
}

type Handler struct {
	config  *Config
	service Recorder
	runner  *camunda.Runner
	logger  logger.Logger
}

func NewHandler(config *Config, service Recorder, schema *registry.InputValidator, obs *observability.Observability, log logger.Logger) *Handler {
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
	stored, err := h.service.RecordInteraction(ctx, input.toInteraction())
	if err != nil {
		return nil, err
	}

	h.logger.Debug("interaction recorded", map[string]interface{}{
		"interactionId":   stored.ID,
		"userId":          stored.UserID,
		"itemId":          stored.ItemID,
		"interactionType": stored.InteractionType,
	})
	return &Output{InteractionID: stored.ID, RecordedAt: stored.Timestamp}, nil
}
