// internal/workers/recommendation/food-logged/handler.go
package foodlogged

import (
	"context"
	"fmt"
	"time"

	"mindfork-recommender/internal/common/camunda"
	"mindfork-recommender/internal/common/errors"
	"mindfork-recommender/internal/common/logger"
	"mindfork-recommender/internal/common/metrics"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const TaskType = "food-logged"

type Refresher interface {
	UpdateRecommendationsAfterFoodLog(ctx context.Context, userID, date string) error
}

type Handler struct {
	config  *Config
	service Refresher
	logger  logger.Logger
	errors  *errors.ErrorHandler
}

func NewHandler(cfg *Config, service Refresher, log logger.Logger) (*Handler, error) {
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

	var input Input
	if err := camunda.DecodeVariables(job, inputSchema, &input); err != nil {
		metrics.WorkerJobsFailed.WithLabelValues(TaskType, camunda.ErrorCode(err)).Inc()
		h.errors.HandleJobError(ctx, client, job, err)
		return
	}

	output, err := h.Execute(ctx, &input)
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
}

// Execute drops the user's cached batches and recomputes the day's gaps.
// An empty date means today in the engine's time zone. A failed refresh is
// retryable: stale cache entries would otherwise be served until they
// expire.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	date := input.Date
	if err := h.service.UpdateRecommendationsAfterFoodLog(ctx, input.UserID, date); err != nil {
		return nil, errors.NewCacheWriteFailedError("recommendations", err)
	}

	h.logger.Info("recommendations refreshed after food log", map[string]interface{}{
		"userId": input.UserID,
		"date":   date,
	})
	return &Output{UserID: input.UserID, Date: date, Refreshed: true}, nil
}
