package autocompletequery

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

const TaskType = config.TaskAutocompleteQuery

type Suggester interface {
	Autocomplete(ctx context.Context, req models.AutocompleteRequest) (*models.SuggestionResult, error)
}

type Handler struct {
	config  *Config
	service Suggester
	runner  *camunda.Runner
}

func NewHandler(config *Config, service Suggester, schema *registry.InputValidator, obs *observability.Observability, log logger.Logger) *Handler {
	return &Handler{
		config:  config,
		service: service,
		runner:  camunda.NewRunner(TaskType, config.Timeout, schema, obs, log),
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	camunda.Run(h.runner, client, job, h.Execute)
}

// Execute never fails because of a single suggestion strategy; an empty
// list is a valid answer.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	res, err := h.service.Autocomplete(ctx, models.AutocompleteRequest{
		Prefix: input.Prefix,
		Type:   input.Type,
		Limit:  input.Limit,
	})
	if err != nil {
		return nil, err
	}
	suggestions := res.Suggestions
	if suggestions == nil {
		suggestions = []models.Suggestion{}
	}
	return &Output{Suggestions: suggestions, Took: res.Took}, nil
}
