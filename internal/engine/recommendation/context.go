package recommendation

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"mindfork-recommender/internal/models"
)

// userContext is what one request knows about the user.
type userContext struct {
	profile   *models.UserProfile
	logs      []models.FoodLogEntry
	history   *models.FoodHistory
	remaining *models.RemainingTargets
}

// loadContext fetches the profile, the day's logs and the interaction
// history concurrently, then derives the remaining targets. A missing
// history only lowers scoring confidence.
func (s *Service) loadContext(ctx context.Context, userID string, day time.Time) (*userContext, error) {
	uc := &userContext{}
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		profile, err := s.store.GetUserProfile(gctx, userID)
		if err != nil {
			return err
		}
		uc.profile = profile
		return nil
	})
	g.Go(func() error {
		logs, err := s.store.GetFoodLogs(gctx, userID, day, day.AddDate(0, 0, 1))
		if err != nil {
			return err
		}
		uc.logs = logs
		return nil
	})
	g.Go(func() error {
		history, err := s.store.GetFoodHistory(gctx, userID, s.opts.Now().Add(-s.opts.HistoryWindow))
		if err != nil {
			s.logger.Warn("food history unavailable", map[string]interface{}{
				"userId": userID,
				"error":  err.Error(),
			})
			return nil
		}
		uc.history = history
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	remaining, err := s.macro.Remaining(uc.profile, uc.logs, day)
	if err != nil {
		return nil, err
	}
	uc.remaining = remaining
	return uc, nil
}

func (uc *userContext) preferences() models.UserDietaryPreferences {
	if uc == nil || uc.profile == nil {
		return models.UserDietaryPreferences{DietType: models.DietMindFork}
	}
	return uc.profile.Preferences
}
