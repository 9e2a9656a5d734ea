// internal/workers/recommendation/get-recommendations/handler.go
package getrecommendations

import (
	"context"
	"fmt"
	"time"

	"mindfork-recommender/internal/common/camunda"
	"mindfork-recommender/internal/common/errors"
	"mindfork-recommender/internal/common/logger"
	"mindfork-recommender/internal/common/metrics"
	"mindfork-recommender/internal/models"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const TaskType = "get-food-recommendations"

// Recommender is implemented by *recommendation.Service.
type Recommender interface {
	GetRecommendations(ctx context.Context, req models.RecommendationRequest) *models.RecommendationResult
}

type Handler struct {
	config  *Config
	service Recommender
	logger  logger.Logger
	errors  *errors.ErrorHandler
}

func NewHandler(cfg *Config, service Recommender, log logger.Logger) (*Handler, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration for %s: %w", TaskType, err)
	}
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})

	return &Handler{
		config:  cfg,
		service: service,
		logger:  log,
		errors:  errors.NewErrorHandler(log),
	}, nil
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	startTime := time.Now()
	metrics.WorkerJobsActive.WithLabelValues(TaskType).Inc()
	defer metrics.WorkerJobsActive.WithLabelValues(TaskType).Dec()

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	h.logger.Info("processing recommendation request", map[string]interface{}{
		"jobKey":             job.GetKey(),
		"processInstanceKey": job.GetProcessInstanceKey(),
	})

	input, err := h.parseInput(job)
	if err != nil {
		metrics.WorkerJobsFailed.WithLabelValues(TaskType, camunda.ErrorCode(err)).Inc()
		h.errors.HandleJobError(ctx, client, job, err)
		return
	}

	output, err := h.Execute(ctx, input)
	if err != nil {
		metrics.WorkerJobsFailed.WithLabelValues(TaskType, camunda.ErrorCode(err)).Inc()
		h.errors.HandleJobError(ctx, client, job, err)
		return
	}

	if err := camunda.CompleteJob(ctx, client, job, output.Variables()); err != nil {
		h.logger.Error("failed to complete job", map[string]interface{}{
			"jobKey": job.GetKey(),
			"error":  err.Error(),
		})
		return
	}

	metrics.WorkerJobsCompleted.WithLabelValues(TaskType).Inc()
	metrics.WorkerJobDuration.WithLabelValues(TaskType).Observe(time.Since(startTime).Seconds())
	h.logger.Info("recommendations delivered", map[string]interface{}{
		"jobKey": job.GetKey(),
		"userId": input.UserID,
		"source": string(output.Source),
		"count":  len(output.Recommendations),
	})
}

func (h *Handler) parseInput(job entities.Job) (*Input, error) {
	var input Input
	if err := camunda.DecodeVariables(job, inputSchema, &input); err != nil {
		return nil, err
	}
	return &input, nil
}

// Execute never fails on the engine side: the service degrades to the
// fallback list instead.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	result := h.service.GetRecommendations(ctx, input.Request())
	if result == nil {
		return nil, errors.NewRecommendationFailedError("worker", fmt.Errorf("no result for user %s", input.UserID))
	}
	return &Output{
		Recommendations: result.Recommendations,
		Source:          result.Source,
		ContextHash:     result.ContextHash,
		GeneratedAt:     result.GeneratedAt,
	}, nil
}
