// Package store reads user profiles, food logs and the food catalog from
// Postgres and Elasticsearch, and records interaction audit rows.
package store

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	apperrors "mindfork-recommender/internal/common/errors"
	"mindfork-recommender/internal/common/logger"
	"mindfork-recommender/internal/models"
)

//go:embed schema.sql
var schemaSQL string

// FoodSource supplies catalog foods. Both the Postgres store and the
// Elasticsearch index implement it.
type FoodSource interface {
	ListCandidateFoods(ctx context.Context, limit int) ([]models.FoodItem, error)
	GetFood(ctx context.Context, foodID string) (*models.FoodItem, error)
	FindSimilarFoods(ctx context.Context, food models.FoodItem, limit int) ([]models.FoodItem, error)
}

const (
	profileQuery = `SELECT user_id, daily_calories, daily_protein, daily_carbs, daily_fat, daily_fiber,
		diet_type, allergens, food_exclusions, primary_goal, dietary_preferences
		FROM user_profiles WHERE user_id = $1`

	foodLogsQuery = `SELECT food_id, food_name, amount, unit, calories, protein, carbs, fat, fiber, meal_type, logged_at
		FROM food_logs WHERE user_id = $1 AND logged_at >= $2 AND logged_at < $3
		ORDER BY logged_at`

	historyQuery = `SELECT i.food_id, i.interaction_type, COALESCE(f.category, ''), COUNT(*), MAX(i.created_at)
		FROM user_food_interactions i LEFT JOIN foods f ON f.id = i.food_id
		WHERE i.user_id = $1 AND i.created_at >= $2
		GROUP BY i.food_id, i.interaction_type, f.category`

	foodColumns = `id, name, COALESCE(category, ''), calories, protein, carbs, fat, fiber, sugar, sodium,
		serving_size, COALESCE(serving_unit, 'g')`

	listFoodsQuery   = `SELECT ` + foodColumns + ` FROM foods ORDER BY name LIMIT $1`
	getFoodQuery     = `SELECT ` + foodColumns + ` FROM foods WHERE id = $1`
	similarFoodQuery = `SELECT ` + foodColumns + ` FROM foods WHERE category = $1 AND id <> $2 ORDER BY name LIMIT $3`

	insertInteractionQuery = `INSERT INTO user_food_interactions (id, user_id, food_id, interaction_type, payload, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`

	upsertCompatibilityQuery = `INSERT INTO food_compatibility_scores (food_id, diet_type, score, details, calculated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (food_id, diet_type)
		DO UPDATE SET score = EXCLUDED.score, details = EXCLUDED.details, calculated_at = EXCLUDED.calculated_at`
)

// recentCategoryLimit bounds FoodHistory.RecentCategories.
const recentCategoryLimit = 5

type Store struct {
	db     *sql.DB
	logger logger.Logger
}

func New(db *sql.DB, log logger.Logger) *Store {
	return &Store{db: db, logger: logger.ForComponent(log, "store")}
}

// EnsureSchema creates the tables the service reads and writes.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schemaSQL); err != nil {
		return apperrors.NewDatabaseQueryFailedError("ensure_schema", err)
	}
	return nil
}

// GetUserProfile loads goals and dietary preferences. Typed columns win over
// the same fields inside the dietary_preferences document.
func (s *Store) GetUserProfile(ctx context.Context, userID string) (*models.UserProfile, error) {
	var (
		id                                 string
		calories, protein, carbs, fat, fib sql.NullFloat64
		dietType, primaryGoal              sql.NullString
		allergens, exclusions              []string
		prefsJSON                          []byte
	)
	err := s.db.QueryRowContext(ctx, profileQuery, userID).Scan(
		&id, &calories, &protein, &carbs, &fat, &fib,
		&dietType, pq.Array(&allergens), pq.Array(&exclusions), &primaryGoal, &prefsJSON,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewProfileNotFoundError(userID)
	}
	if err != nil {
		return nil, apperrors.NewDatabaseQueryFailedError("get_user_profile", err)
	}

	var prefs models.UserDietaryPreferences
	if len(prefsJSON) > 0 {
		if err := json.Unmarshal(prefsJSON, &prefs); err != nil {
			s.logger.Warn("ignoring malformed dietary preferences", map[string]interface{}{
				"userId": userID,
				"error":  err.Error(),
			})
			prefs = models.UserDietaryPreferences{}
		}
	}
	if dietType.Valid && dietType.String != "" {
		prefs.DietType = models.DietType(dietType.String)
	}
	if prefs.DietType == "" {
		prefs.DietType = models.DietMindFork
	}
	if len(allergens) > 0 {
		prefs.Allergens = allergens
	}
	if len(exclusions) > 0 {
		prefs.FoodExclusions = exclusions
	}

	return &models.UserProfile{
		UserID: id,
		Goals: models.DailyGoals{
			Calories: calories.Float64,
			Protein:  protein.Float64,
			Carbs:    carbs.Float64,
			Fat:      fat.Float64,
			Fiber:    fib.Float64,
		},
		PrimaryGoal: models.PrimaryGoal(primaryGoal.String),
		Preferences: prefs,
	}, nil
}

// GetFoodLogs returns the entries logged in [start, end).
func (s *Store) GetFoodLogs(ctx context.Context, userID string, start, end time.Time) ([]models.FoodLogEntry, error) {
	rows, err := s.db.QueryContext(ctx, foodLogsQuery, userID, start, end)
	if err != nil {
		return nil, apperrors.NewDatabaseQueryFailedError("get_food_logs", err)
	}
	defer rows.Close()

	var logs []models.FoodLogEntry
	for rows.Next() {
		var (
			entry    models.FoodLogEntry
			fiber    sql.NullFloat64
			mealType sql.NullString
		)
		if err := rows.Scan(&entry.FoodID, &entry.FoodName, &entry.Amount, &entry.Unit,
			&entry.Calories, &entry.Protein, &entry.Carbs, &entry.Fat, &fiber, &mealType, &entry.LoggedAt); err != nil {
			return nil, apperrors.NewDatabaseQueryFailedError("get_food_logs", err)
		}
		entry.Fiber = fiber.Float64
		entry.MealType = models.MealType(mealType.String)
		logs = append(logs, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewDatabaseQueryFailedError("get_food_logs", err)
	}
	return logs, nil
}

// GetFoodHistory aggregates interactions since the given time. Category
// preference is (selected - ignored) / (selected + ignored), in [-1, 1].
func (s *Store) GetFoodHistory(ctx context.Context, userID string, since time.Time) (*models.FoodHistory, error) {
	rows, err := s.db.QueryContext(ctx, historyQuery, userID, since)
	if err != nil {
		return nil, apperrors.NewDatabaseQueryFailedError("get_food_history", err)
	}
	defer rows.Close()

	history := &models.FoodHistory{
		Chosen:              map[string]int{},
		Ignored:             map[string]int{},
		CategoryPreferences: map[string]float64{},
	}
	type categoryUse struct {
		category string
		last     time.Time
	}
	var (
		selected = map[string]int{}
		ignored  = map[string]int{}
		recent   []categoryUse
	)

	for rows.Next() {
		var (
			foodID, kind, category string
			count                  int
			last                   time.Time
		)
		if err := rows.Scan(&foodID, &kind, &category, &count, &last); err != nil {
			return nil, apperrors.NewDatabaseQueryFailedError("get_food_history", err)
		}
		history.TotalInteractions += count

		switch models.InteractionType(kind) {
		case models.InteractionSelected:
			history.Chosen[foodID] += count
			if category != "" {
				selected[category] += count
				recent = append(recent, categoryUse{category: category, last: last})
			}
		case models.InteractionIgnored:
			history.Ignored[foodID] += count
			if category != "" {
				ignored[category] += count
			}
		}
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewDatabaseQueryFailedError("get_food_history", err)
	}

	for category, n := range selected {
		history.CategoryPreferences[category] = float64(n-ignored[category]) / float64(n+ignored[category])
	}
	for category := range ignored {
		if _, seen := selected[category]; !seen {
			history.CategoryPreferences[category] = -1
		}
	}

	sort.SliceStable(recent, func(i, j int) bool { return recent[i].last.After(recent[j].last) })
	seen := map[string]bool{}
	for _, use := range recent {
		if seen[use.category] {
			continue
		}
		seen[use.category] = true
		history.RecentCategories = append(history.RecentCategories, use.category)
		if len(history.RecentCategories) == recentCategoryLimit {
			break
		}
	}
	return history, nil
}

func (s *Store) ListCandidateFoods(ctx context.Context, limit int) ([]models.FoodItem, error) {
	return s.queryFoods(ctx, "list_candidate_foods", listFoodsQuery, limit)
}

// GetFood returns nil without error when the food does not exist.
func (s *Store) GetFood(ctx context.Context, foodID string) (*models.FoodItem, error) {
	row := s.db.QueryRowContext(ctx, getFoodQuery, foodID)
	food, err := scanFood(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, apperrors.NewDatabaseQueryFailedError("get_food", err)
	}
	return food, nil
}

func (s *Store) FindSimilarFoods(ctx context.Context, food models.FoodItem, limit int) ([]models.FoodItem, error) {
	if food.Category == "" {
		return nil, nil
	}
	return s.queryFoods(ctx, "find_similar_foods", similarFoodQuery, food.Category, food.ID, limit)
}

func (s *Store) queryFoods(ctx context.Context, name, query string, args ...interface{}) ([]models.FoodItem, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewDatabaseQueryFailedError(name, err)
	}
	defer rows.Close()

	var foods []models.FoodItem
	for rows.Next() {
		food, err := scanFood(rows)
		if err != nil {
			return nil, apperrors.NewDatabaseQueryFailedError(name, err)
		}
		foods = append(foods, *food)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewDatabaseQueryFailedError(name, err)
	}
	return foods, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanFood(row rowScanner) (*models.FoodItem, error) {
	var (
		food                 models.FoodItem
		sugar, sodium, serve sql.NullFloat64
	)
	n := &food.NutritionPer100g
	if err := row.Scan(&food.ID, &food.Name, &food.Category, &n.Calories, &n.Protein, &n.Carbs, &n.Fat, &n.Fiber,
		&sugar, &sodium, &serve, &food.ServingUnit); err != nil {
		return nil, err
	}
	if sugar.Valid {
		n.Sugar = models.Float64(sugar.Float64)
	}
	if sodium.Valid {
		n.Sodium = models.Float64(sodium.Float64)
	}
	if serve.Valid {
		food.TypicalServingSize = models.Float64(serve.Float64)
	}
	return &food, nil
}

// RecordInteraction appends an audit row and returns its id.
func (s *Store) RecordInteraction(ctx context.Context, in models.FoodInteraction) (string, error) {
	if in.ID == "" {
		in.ID = uuid.NewString()
	}
	if in.CreatedAt.IsZero() {
		in.CreatedAt = time.Now().UTC()
	}

	var payload []byte
	if len(in.Payload) > 0 {
		data, err := json.Marshal(in.Payload)
		if err != nil {
			return "", apperrors.NewInvalidInputError("interaction payload is not serializable")
		}
		payload = data
	}

	_, err := s.db.ExecContext(ctx, insertInteractionQuery,
		in.ID, in.UserID, in.FoodID, string(in.InteractionType), payload, in.CreatedAt)
	if err != nil {
		return "", apperrors.NewDatabaseInsertFailedError("user_food_interactions", err)
	}
	return in.ID, nil
}

// SaveCompatibilityScore upserts the score of a food for a diet type.
func (s *Store) SaveCompatibilityScore(ctx context.Context, foodID string, dietType models.DietType, score float64, details []byte, at time.Time) error {
	_, err := s.db.ExecContext(ctx, upsertCompatibilityQuery, foodID, string(dietType), score, details, at)
	if err != nil {
		return apperrors.NewDatabaseInsertFailedError("food_compatibility_scores", err)
	}
	return nil
}
