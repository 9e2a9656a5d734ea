// Package recommendation orchestrates the engine: it loads the user's
// context, filters and scores candidate foods, ranks and personalizes them
// and caches the batch.
package recommendation

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"mindfork-recommender/internal/cache"
	"mindfork-recommender/internal/catalog"
	apperrors "mindfork-recommender/internal/common/errors"
	"mindfork-recommender/internal/common/logger"
	"mindfork-recommender/internal/common/metrics"
	"mindfork-recommender/internal/common/observability"
	"mindfork-recommender/internal/engine"
	"mindfork-recommender/internal/engine/macro"
	"mindfork-recommender/internal/engine/nutrient"
	"mindfork-recommender/internal/engine/preference"
	"mindfork-recommender/internal/engine/scoring"
	"mindfork-recommender/internal/models"
	"mindfork-recommender/internal/store"
)

const (
	defaultMaxResults     = 10
	defaultCandidateLimit = 200
	defaultCacheTTL       = 5 * time.Minute
	defaultHistoryWindow  = 30 * 24 * time.Hour
)

// Request statuses reported to metrics.
const (
	statusSuccess = "success"
	statusCached  = "cached"
	statusError   = "error"
)

// Store is the persistence the service needs beyond the food catalog.
type Store interface {
	GetUserProfile(ctx context.Context, userID string) (*models.UserProfile, error)
	GetFoodLogs(ctx context.Context, userID string, start, end time.Time) ([]models.FoodLogEntry, error)
	GetFoodHistory(ctx context.Context, userID string, since time.Time) (*models.FoodHistory, error)
	RecordInteraction(ctx context.Context, in models.FoodInteraction) (string, error)
	SaveCompatibilityScore(ctx context.Context, foodID string, dietType models.DietType, score float64, details []byte, at time.Time) error
}

// Cache is the batch cache; *cache.TwoTier implements it.
type Cache interface {
	Get(ctx context.Context, key cache.Key) (*cache.Entry, string, error)
	Set(ctx context.Context, key cache.Key, payload []byte, ttl time.Duration) error
	InvalidateOwner(ctx context.Context, owner string) error
}

type Dependencies struct {
	Store         Store
	Foods         store.FoodSource
	Cache         Cache
	Catalog       *catalog.Catalog
	Classifier    catalog.IngredientClassifier
	Macro         *macro.Calculator
	Filter        *preference.Filter
	Nutrients     *nutrient.Analyzer
	Scorer        *scoring.Scorer
	Observability *observability.Observability
	Logger        logger.Logger
}

type Options struct {
	MaxResults     int
	CandidateLimit int
	CacheTTL       time.Duration
	HistoryWindow  time.Duration
	Now            engine.Clock
}

type Service struct {
	store      Store
	foods      store.FoodSource
	cache      Cache
	catalog    *catalog.Catalog
	classifier catalog.IngredientClassifier
	macro      *macro.Calculator
	filter     *preference.Filter
	nutrients  *nutrient.Analyzer
	scorer     *scoring.Scorer
	obs        *observability.Observability
	logger     logger.Logger
	opts       Options
}

func New(deps Dependencies, opts Options) *Service {
	if opts.MaxResults <= 0 {
		opts.MaxResults = defaultMaxResults
	}
	if opts.CandidateLimit <= 0 {
		opts.CandidateLimit = defaultCandidateLimit
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = defaultCacheTTL
	}
	if opts.HistoryWindow <= 0 {
		opts.HistoryWindow = defaultHistoryWindow
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Service{
		store:      deps.Store,
		foods:      deps.Foods,
		cache:      deps.Cache,
		catalog:    deps.Catalog,
		classifier: deps.Classifier,
		macro:      deps.Macro,
		filter:     deps.Filter,
		nutrients:  deps.Nutrients,
		scorer:     deps.Scorer,
		obs:        deps.Observability,
		logger:     logger.ForComponent(deps.Logger, "recommendation_service"),
		opts:       opts,
	}
}

// GetRecommendations never fails: any error along the pipeline yields the
// static fallback list.
func (s *Service) GetRecommendations(ctx context.Context, req models.RecommendationRequest) *models.RecommendationResult {
	started := time.Now()
	ctx, span := s.obs.StartSpan(ctx, "recommendation.get",
		attribute.String("user.id", req.UserID),
		attribute.String("meal.type", string(req.MealType)),
	)
	defer span.End()

	result, status, err := s.recommend(ctx, req)
	if err != nil {
		s.logger.Error("recommendation pipeline failed, serving fallback", map[string]interface{}{
			"userId": req.UserID,
			"date":   req.Date,
			"error":  err.Error(),
		})
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		result, status = s.fallback(), statusError
	}
	span.SetAttributes(
		attribute.String("recommendation.source", string(result.Source)),
		attribute.Int("recommendation.count", len(result.Recommendations)),
	)

	s.record(ctx, "get_recommendations", status, started, len(result.Recommendations))
	return result
}

func (s *Service) recommend(ctx context.Context, req models.RecommendationRequest) (*models.RecommendationResult, string, error) {
	if req.UserID == "" {
		return nil, "", apperrors.NewInvalidInputError("userId is required")
	}
	now := s.opts.Now()
	day, err := engine.ParseDay(req.Date, now, s.macro.Location())
	if err != nil {
		return nil, "", apperrors.NewInvalidInputError("date must be YYYY-MM-DD")
	}
	date := day.Format(engine.DateLayout)

	uc, err := s.loadContext(ctx, req.UserID, day)
	if err != nil {
		return nil, "", err
	}

	timeOfDay := req.TimeOfDay
	if timeOfDay == "" {
		timeOfDay = models.TimeOfDayAt(now.In(s.macro.Location()))
	}
	hash := ContextHash(req.UserID, date, timeOfDay, uc.remaining.Calories, uc.profile.Preferences.DietType)
	key := cache.Key{Owner: req.UserID, Hash: hash}

	if recs, ok := s.cached(ctx, key); ok {
		return &models.RecommendationResult{
			Recommendations: truncate(recs, s.maxResults(req)),
			Source:          models.SourceCache,
			ContextHash:     hash,
			GeneratedAt:     now,
		}, statusCached, nil
	}

	candidates, err := s.foods.ListCandidateFoods(ctx, s.opts.CandidateLimit)
	if err != nil {
		return nil, "", apperrors.NewRecommendationFailedError("candidates", err)
	}
	compatible := s.filter.FilterFoodsByPreferences(candidates, uc.profile.Preferences)

	gaps, err := s.nutrients.AnalyzeNutrientGaps(ctx, req.UserID, date)
	if err != nil {
		s.logger.Warn("nutrient gaps unavailable", map[string]interface{}{"userId": req.UserID, "error": err.Error()})
		gaps = nil
	}

	sc := scoringInputs{user: uc, gaps: gaps, meal: req.MealType, now: now}
	recs := make([]models.FoodRecommendation, 0, len(compatible))
	foods := make(map[string]models.FoodItem, len(compatible))
	for _, c := range compatible {
		scored := s.score(ctx, c.Food, c.Check, sc)
		recs = append(recs, scored.rec)
		foods[scored.rec.ID] = c.Food
	}

	ranked := s.scorer.RankRecommendations(recs)
	ranked = s.personalize(ranked, foods, uc, now)

	// The whole ranking is cached so a later request with a larger
	// maxResults can be served from the same entry.
	s.remember(ctx, key, ranked)

	return &models.RecommendationResult{
		Recommendations: truncate(ranked, s.maxResults(req)),
		Source:          models.SourceComputed,
		ContextHash:     hash,
		GeneratedAt:     now,
	}, statusSuccess, nil
}

func (s *Service) maxResults(req models.RecommendationRequest) int {
	if req.MaxResults > 0 {
		return req.MaxResults
	}
	return s.opts.MaxResults
}

func truncate(recs []models.FoodRecommendation, n int) []models.FoodRecommendation {
	if len(recs) > n {
		return recs[:n]
	}
	return recs
}

// cached returns a batch from either cache tier. Read and decode failures
// count as misses.
func (s *Service) cached(ctx context.Context, key cache.Key) ([]models.FoodRecommendation, bool) {
	if s.cache == nil {
		return nil, false
	}
	entry, tier, err := s.cache.Get(ctx, key)
	if err != nil {
		s.logger.Warn("recommendation cache read failed", map[string]interface{}{"userId": key.Owner, "error": err.Error()})
		return nil, false
	}
	if entry == nil {
		return nil, false
	}
	var recs []models.FoodRecommendation
	if err := json.Unmarshal(entry.Payload, &recs); err != nil {
		s.logger.Warn("discarding undecodable cache entry", map[string]interface{}{"userId": key.Owner, "tier": tier, "error": err.Error()})
		return nil, false
	}
	s.logger.Debug("recommendations served from cache", map[string]interface{}{"userId": key.Owner, "tier": tier})
	return recs, true
}

// remember writes the batch to both tiers. Failures are logged only.
func (s *Service) remember(ctx context.Context, key cache.Key, recs []models.FoodRecommendation) {
	if s.cache == nil {
		return
	}
	payload, err := json.Marshal(recs)
	if err != nil {
		s.logger.Warn("recommendations not cacheable", map[string]interface{}{"userId": key.Owner, "error": err.Error()})
		return
	}
	if err := s.cache.Set(ctx, key, payload, s.opts.CacheTTL); err != nil {
		s.logger.Warn("recommendation cache write failed", map[string]interface{}{"userId": key.Owner, "error": err.Error()})
	}
}

// ContextHash keys a recommendation batch: the first 16 hex characters of
// the SHA-256 of the request context.
func ContextHash(userID, date string, timeOfDay models.TimeOfDay, remainingCalories float64, dietType models.DietType) string {
	payload, _ := json.Marshal(struct {
		UserID            string           `json:"userId"`
		Date              string           `json:"date"`
		TimeOfDay         models.TimeOfDay `json:"timeOfDay"`
		RemainingCalories float64          `json:"remainingCalories"`
		DietType          models.DietType  `json:"dietType"`
	}{userID, date, timeOfDay, remainingCalories, dietType})
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:])[:16]
}

func (s *Service) fallback() *models.RecommendationResult {
	recs := make([]models.FoodRecommendation, 0, len(s.catalog.Fallback))
	for _, f := range s.catalog.Fallback {
		recs = append(recs, models.FoodRecommendation{
			ID:                    uuid.NewString(),
			FoodID:                f.ID,
			Name:                  f.Name,
			Category:              f.Category,
			CompatibilityScore:    50,
			RecommendedPortion:    models.RecommendedPortion{Amount: 250, Unit: "ml"},
			Reasons:               []string{f.Reason},
			NutritionalHighlights: []string{},
			AlternativePortions:   []models.AlternativePortion{},
			MindForkTier:          models.TierGood,
		})
	}
	return &models.RecommendationResult{
		Recommendations: recs,
		Source:          models.SourceFallback,
		GeneratedAt:     s.opts.Now(),
	}
}

func (s *Service) record(ctx context.Context, operation, status string, started time.Time, returned int) {
	elapsed := time.Since(started)
	metrics.RecommendationDuration.WithLabelValues(operation, status).Observe(elapsed.Seconds())
	metrics.RecommendationsReturned.WithLabelValues(operation).Observe(float64(returned))
	s.obs.RecordRequest(ctx, operation, status, elapsed)
}
