package lookuptransmission

import (
	"context"
	"fmt"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	"transmission-api/internal/common/camunda"
	"transmission-api/internal/common/config"
	"transmission-api/internal/common/errors"
	"transmission-api/internal/common/logger"
	"transmission-api/internal/common/metrics"
	"transmission-api/internal/lookup"
)

const TaskType = "lookup-transmission"

// Looker answers a raw vehicle query.
type Looker interface {
	Lookup(ctx context.Context, raw string) (*lookup.Result, error)
}

type Handler struct {
	config       *Config
	logger       logger.Logger
	camunda      *camunda.Client
	lookup       Looker
	errorHandler *errors.ErrorHandler
	worker       *camunda.Worker
}

type HandlerOptions struct {
	AppConfig    *config.Config
	Camunda      *camunda.Client
	CustomConfig *Config
	Lookup       Looker
	Logger       logger.Logger
}

func NewHandler(opts HandlerOptions) (*Handler, error) {
	workerConfig := createConfigFromAppConfig(opts.AppConfig, opts.CustomConfig)
	if err := workerConfig.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration for lookup-transmission: %w", err)
	}
	if opts.Lookup == nil {
		return nil, fmt.Errorf("lookup-transmission requires a lookup service")
	}

	log := opts.Logger
	if log == nil {
		log = logger.NewStructured("info", "json")
	}
	log = log.WithFields(map[string]interface{}{"worker": TaskType})

	return &Handler{
		config:       workerConfig,
		logger:       log,
		camunda:      opts.Camunda,
		lookup:       opts.Lookup,
		errorHandler: errors.NewErrorHandler(log),
	}, nil
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	started := time.Now()
	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	h.logger.Info("processing transmission lookup", map[string]interface{}{
		"jobKey":             job.GetKey(),
		"processInstanceKey": job.GetProcessInstanceKey(),
	})

	input, err := h.parseInput(job)
	if err != nil {
		h.fail(ctx, client, job, err)
		return
	}

	output, err := h.Execute(ctx, input)
	if err != nil {
		h.fail(ctx, client, job, err)
		return
	}

	h.completeJob(ctx, client, job, output)
	metrics.WorkerJobsCompleted.WithLabelValues(TaskType).Inc()
	h.logger.Debug("job handled", map[string]interface{}{
		"jobKey":   job.GetKey(),
		"duration": time.Since(started).String(),
	})
}

// Execute runs one lookup. Degraded replies complete normally; only an
// invalid query or an unavailable catalog fail the job.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	res, err := h.lookup.Lookup(ctx, input.Query)
	if err != nil {
		return nil, lookup.ToStandardError(err)
	}
	return &Output{
		Reply:          res.Reply,
		Suggestion:     res.Suggestion,
		Tier:           string(res.Tier),
		CandidateCount: res.CandidateCount,
		Degraded:       res.Degraded,
	}, nil
}

func (h *Handler) parseInput(job entities.Job) (*Input, error) {
	variables, err := job.GetVariablesAsMap()
	if err != nil {
		return nil, errors.NewInvalidQueryError(fmt.Sprintf("parse job variables: %v", err))
	}

	if result := inputSchema.ValidateDocument(variables); !result.Valid {
		return nil, errors.NewInvalidQueryError(result.Error())
	}
	query, _ := variables["query"].(string)
	return &Input{Query: query}, nil
}

func (h *Handler) completeJob(ctx context.Context, client worker.JobClient, job entities.Job, output *Output) {
	request, err := client.NewCompleteJobCommand().JobKey(job.GetKey()).VariablesFromMap(output.ToVariables())
	if err != nil {
		h.logger.Error("failed to create complete job command", map[string]interface{}{
			"jobKey": job.GetKey(),
			"error":  err.Error(),
		})
		return
	}

	if _, err := request.Send(ctx); err != nil {
		h.logger.Error("failed to complete job", map[string]interface{}{
			"jobKey": job.GetKey(),
			"error":  err.Error(),
		})
		return
	}
	h.logger.Info("transmission lookup completed", map[string]interface{}{
		"jobKey":   job.GetKey(),
		"tier":     output.Tier,
		"degraded": output.Degraded,
	})
}

func (h *Handler) fail(ctx context.Context, client worker.JobClient, job entities.Job, err error) {
	metrics.WorkerJobsFailed.WithLabelValues(TaskType, string(errors.Normalize(err).Code)).Inc()
	h.errorHandler.HandleJobError(ctx, client, job, err)
}

// Register opens the job subscription when the worker is enabled.
func (h *Handler) Register() error {
	if !h.config.Enabled {
		h.logger.Info("worker is disabled, skipping registration", nil)
		return nil
	}
	if h.camunda == nil {
		return fmt.Errorf("lookup-transmission: camunda client is required")
	}

	h.worker = camunda.OpenWorker(h.camunda.GetClient(), camunda.WorkerOptions{
		TaskType:       TaskType,
		MaxJobsActive:  h.config.MaxJobsActive,
		Timeout:        h.config.Timeout,
		RequestTimeout: h.config.RequestTimeout,
	}, h.Handle, h.logger)
	return nil
}

func (h *Handler) Close() {
	if h.worker != nil {
		h.worker.Close()
		h.worker = nil
	}
}

func (h *Handler) HealthCheck(ctx context.Context) error {
	if h.camunda == nil {
		return nil
	}
	if err := h.camunda.HealthCheck(ctx); err != nil {
		return fmt.Errorf("camunda health check failed: %w", err)
	}
	return nil
}

func (h *Handler) GetTaskType() string {
	return TaskType
}

func (h *Handler) IsEnabled() bool {
	return h.config.Enabled
}

func (h *Handler) GetConfig() *Config {
	return h.config
}
