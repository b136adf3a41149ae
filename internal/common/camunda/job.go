package camunda

import (
	"context"
	stderrors "errors"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	json "github.com/goccy/go-json"

	"discovery-workers/internal/common/errors"
	"discovery-workers/internal/common/logger"
	"discovery-workers/internal/common/metrics"
	"discovery-workers/internal/common/observability"
	"discovery-workers/pkg/registry"
)

const commandTimeout = 10 * time.Second

// Sized is implemented by job outputs that report how many items they carry.
type Sized interface {
	ResultSize() int
}

// Runner holds what every job handler of one task type shares: the input
// schema, the execution timeout and the failure routing.
type Runner struct {
	TaskType string
	Timeout  time.Duration

	schema *registry.InputValidator
	errors *errors.ErrorHandler
	obs    *observability.Observability
	logger logger.Logger
}

func NewRunner(taskType string, timeout time.Duration, schema *registry.InputValidator, obs *observability.Observability, log logger.Logger) *Runner {
	if obs == nil {
		obs = observability.Noop()
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	log = log.WithFields(map[string]interface{}{"taskType": taskType})
	return &Runner{
		TaskType: taskType,
		Timeout:  timeout,
		schema:   schema,
		errors:   errors.NewErrorHandler(log),
		obs:      obs,
		logger:   log,
	}
}

// Decode validates variables against the task's input schema and decodes
// them into out. Failures are VALIDATION_FAILED.
func (r *Runner) Decode(variables []byte, out interface{}) error {
	if err := r.schema.Validate(variables); err != nil {
		var se *registry.SchemaError
		if stderrors.As(err, &se) {
			return errors.NewFieldValidationError(se.Issues)
		}
		return errors.NewValidationError("invalid job variables", err.Error())
	}
	if err := json.Unmarshal(variables, out); err != nil {
		return errors.NewValidationError("invalid job variables", err.Error())
	}
	return nil
}

// Run decodes the job into an I, calls execute under the task timeout and
// completes the job with its output. Failures go through the error handler:
// retryable ones fail the job with retries, the rest throw a BPMN error.
func Run[I any, O any](r *Runner, client worker.JobClient, job entities.Job, execute func(context.Context, *I) (*O, error)) {
	start := time.Now()
	r.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})

	output, err := r.execute(job, func(ctx context.Context, raw []byte) (interface{}, error) {
		var input I
		if err := r.Decode(raw, &input); err != nil {
			return nil, err
		}
		out, err := execute(ctx, &input)
		if err != nil {
			return nil, err
		}
		return out, nil
	})

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	if err == nil {
		err = r.complete(ctx, client, job, output)
	}
	r.observe(ctx, start, output, err)
	if err != nil {
		r.errors.HandleJobError(ctx, client, job, err)
	}
}

func (r *Runner) execute(job entities.Job, fn func(context.Context, []byte) (interface{}, error)) (interface{}, error) {
	ctx, cancel := context.WithTimeout(context.Background(), r.Timeout)
	defer cancel()
	ctx = logger.WithContext(ctx, r.logger.WithFields(map[string]interface{}{"jobKey": job.Key}))
	return fn(ctx, []byte(job.Variables))
}

func (r *Runner) complete(ctx context.Context, client worker.JobClient, job entities.Job, output interface{}) error {
	cmd, err := client.NewCompleteJobCommand().
		JobKey(job.Key).
		VariablesFromObject(output)
	if err != nil {
		return errors.NewExternalServiceError("zeebe", err)
	}
	if _, err := cmd.Send(ctx); err != nil {
		r.logger.Error("failed to send complete job command", map[string]interface{}{
			"jobKey": job.Key,
			"error":  err.Error(),
		})
	}
	return nil
}

func (r *Runner) observe(ctx context.Context, start time.Time, output interface{}, err error) {
	elapsed := time.Since(start)
	status := "completed"
	if err != nil {
		status = "failed"
		metrics.WorkerJobsFailed.WithLabelValues(r.TaskType, string(errors.CodeOf(err))).Inc()
	} else {
		metrics.WorkerJobsCompleted.WithLabelValues(r.TaskType).Inc()
		if s, ok := output.(Sized); ok {
			r.obs.RecordResultSize(ctx, r.TaskType, s.ResultSize())
		}
	}
	metrics.WorkerJobDuration.WithLabelValues(r.TaskType).Observe(elapsed.Seconds())
	r.obs.RecordJobProcessed(ctx, r.TaskType, status)
	r.obs.RecordJobDuration(ctx, r.TaskType, elapsed, status)
}
