package recommendation

import (
	"context"
	"errors"
	"time"

	"mindfork-recommender/internal/models"
)

// UpdateRecommendationsAfterFoodLog drops every cached batch of the user and
// recomputes the day's nutrient gaps. Both steps run even if one fails.
func (s *Service) UpdateRecommendationsAfterFoodLog(ctx context.Context, userID, date string) error {
	started := time.Now()
	var errs []error

	if s.cache != nil {
		if err := s.cache.InvalidateOwner(ctx, userID); err != nil {
			s.logger.Warn("cache invalidation failed", map[string]interface{}{"userId": userID, "error": err.Error()})
			errs = append(errs, err)
		}
	}

	s.nutrients.InvalidateUser(userID)
	if _, err := s.nutrients.RefreshNutrientGaps(ctx, userID, date); err != nil {
		s.logger.Warn("nutrient gap refresh failed", map[string]interface{}{"userId": userID, "date": date, "error": err.Error()})
		errs = append(errs, err)
	}

	status := statusSuccess
	if len(errs) > 0 {
		status = statusError
	}
	s.record(ctx, "food_logged", status, started, 0)
	return errors.Join(errs...)
}

// RecordFoodSelection notes that the user picked a recommended food.
func (s *Service) RecordFoodSelection(ctx context.Context, userID, foodID, recommendationID string) string {
	return s.RecordInteraction(ctx, userID, foodID, models.InteractionSelected, map[string]interface{}{
		"recommendationId": recommendationID,
	})
}

// RecordFeedback stores a 1-5 rating with an optional comment.
func (s *Service) RecordFeedback(ctx context.Context, userID, foodID string, rating int, comment string) string {
	payload := map[string]interface{}{"rating": rating}
	if comment != "" {
		payload["comment"] = comment
	}
	return s.RecordInteraction(ctx, userID, foodID, models.InteractionFeedback, payload)
}

// RecordInteraction writes an audit row and returns its id, or "" when the
// write failed. Failures are logged and never returned.
func (s *Service) RecordInteraction(ctx context.Context, userID, foodID string, kind models.InteractionType, payload map[string]interface{}) string {
	id, err := s.store.RecordInteraction(ctx, models.FoodInteraction{
		UserID:          userID,
		FoodID:          foodID,
		InteractionType: kind,
		Payload:         payload,
		CreatedAt:       s.opts.Now(),
	})
	if err != nil {
		s.logger.Warn("interaction not recorded", map[string]interface{}{
			"userId":          userID,
			"foodId":          foodID,
			"interactionType": string(kind),
			"error":           err.Error(),
		})
		return ""
	}
	return id
}
