// internal/workers/recommendation/record-interaction/handler.go
package recordinteraction

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

const TaskType = "record-food-interaction"

type Recorder interface {
	RecordFoodSelection(ctx context.Context, userID, foodID, recommendationID string) string
	RecordFeedback(ctx context.Context, userID, foodID string, rating int, comment string) string
	RecordInteraction(ctx context.Context, userID, foodID string, kind models.InteractionType, payload map[string]interface{}) string
}

type Handler struct {
	config  *Config
	service Recorder
	logger  logger.Logger
	errors  *errors.ErrorHandler
}

func NewHandler(cfg *Config, service Recorder, log logger.Logger) (*Handler, error) {
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

// Execute records the interaction. Only a feedback without rating is an
// error; a failed write completes the job with interactionRecorded=false.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	var id string
	switch input.InteractionType {
	case models.InteractionSelected:
		id = h.service.RecordFoodSelection(ctx, input.UserID, input.FoodID, input.RecommendationID)
	case models.InteractionFeedback:
		if input.Rating == 0 {
			return nil, errors.NewInvalidInputError("rating is required for feedback")
		}
		id = h.service.RecordFeedback(ctx, input.UserID, input.FoodID, input.Rating, input.Comment)
	default:
		var payload map[string]interface{}
		if input.RecommendationID != "" {
			payload = map[string]interface{}{"recommendationId": input.RecommendationID}
		}
		id = h.service.RecordInteraction(ctx, input.UserID, input.FoodID, input.InteractionType, payload)
	}

	if id == "" {
		h.logger.Warn("interaction not recorded", map[string]interface{}{
			"userId":          input.UserID,
			"foodId":          input.FoodID,
			"interactionType": string(input.InteractionType),
		})
	}
	return &Output{InteractionID: id}, nil
}
