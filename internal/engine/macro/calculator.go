// Package macro computes a user's remaining daily budget and how well a food
// portion fits it.
package macro

import (
	"context"
	"math"
	"sort"
	"time"

	apperrors "mindfork-recommender/internal/common/errors"
	"mindfork-recommender/internal/common/logger"
	"mindfork-recommender/internal/engine"
	"mindfork-recommender/internal/models"
)

const (
	eatingWindowStart = 7.0
	eatingWindowEnd   = 21.0

	minPortionGrams = 10.0
	exceedPenalty   = 0.7
	fitSteepness    = 5.0
)

// Tolerances applied before a portion counts as exceeding what remains.
const (
	calorieTolerance = 1.10
	proteinTolerance = 1.20
	carbTolerance    = 1.10
	fatTolerance     = 1.10
)

var weights = struct {
	calories, protein, carbs, fat, fiber, balance float64
}{0.35, 0.25, 0.15, 0.15, 0.05, 0.05}

type mealSlot struct {
	meal   models.MealType
	endsAt float64
	weight float64
}

var mealSlots = []mealSlot{
	{models.MealBreakfast, 9, 1},
	{models.MealSnack, 11, 0.5},
	{models.MealLunch, 14, 1},
	{models.MealSnack, 16, 0.5},
	{models.MealDinner, 20, 1},
	{models.MealSnack, 21, 0.5},
}

// Store is the read side the calculator needs.
type Store interface {
	GetUserProfile(ctx context.Context, userID string) (*models.UserProfile, error)
	GetFoodLogs(ctx context.Context, userID string, start, end time.Time) ([]models.FoodLogEntry, error)
}

type Options struct {
	BedtimeHour int
	Location    *time.Location
	Now         engine.Clock
}

type Calculator struct {
	store       Store
	bedtimeHour float64
	loc         *time.Location
	now         engine.Clock
	logger      logger.Logger
}

func New(store Store, log logger.Logger, opts Options) *Calculator {
	c := &Calculator{
		store:       store,
		bedtimeHour: float64(opts.BedtimeHour),
		loc:         opts.Location,
		now:         opts.Now,
		logger:      logger.ForComponent(log, "macro_calculator"),
	}
	if c.bedtimeHour <= 0 {
		c.bedtimeHour = 22
	}
	if c.loc == nil {
		c.loc = time.UTC
	}
	if c.now == nil {
		c.now = time.Now
	}
	return c
}

// Location is the zone days are resolved in.
func (c *Calculator) Location() *time.Location { return c.loc }

// CalculateRemainingTargets loads the user's goals and the day's logs and
// derives what is left. date is YYYY-MM-DD; empty means today.
func (c *Calculator) CalculateRemainingTargets(ctx context.Context, userID, date string) (*models.RemainingTargets, error) {
	day, err := engine.ParseDay(date, c.now(), c.loc)
	if err != nil {
		return nil, apperrors.NewInvalidInputError("date must be YYYY-MM-DD")
	}

	profile, err := c.store.GetUserProfile(ctx, userID)
	if err != nil {
		return nil, err
	}
	logs, err := c.store.GetFoodLogs(ctx, userID, day, day.AddDate(0, 0, 1))
	if err != nil {
		return nil, err
	}
	remaining, err := c.Remaining(profile, logs, day)
	if err != nil {
		return nil, err
	}
	c.logger.Debug("remaining targets calculated", map[string]interface{}{
		"userId":         userID,
		"date":           day.Format(engine.DateLayout),
		"logEntries":     len(logs),
		"caloriesLeft":   remaining.Calories,
		"mealsRemaining": remaining.MealsRemaining,
	})
	return remaining, nil
}

// Remaining is the pure part of CalculateRemainingTargets. Past days are
// evaluated at their end and future days at their start.
func (c *Calculator) Remaining(profile *models.UserProfile, logs []models.FoodLogEntry, day time.Time) (*models.RemainingTargets, error) {
	if profile == nil || profile.Goals.Calories <= 0 {
		userID := ""
		if profile != nil {
			userID = profile.UserID
		}
		return nil, apperrors.NewGoalsNotSetError(userID)
	}

	var consumed models.DailyGoals
	for _, entry := range logs {
		consumed.Calories += entry.Calories
		consumed.Protein += entry.Protein
		consumed.Carbs += entry.Carbs
		consumed.Fat += entry.Fat
		consumed.Fiber += entry.Fiber
	}

	goals := profile.Goals
	hour := c.hourOfDay(day)

	return &models.RemainingTargets{
		Calories:                 math.Max(0, goals.Calories-consumed.Calories),
		Protein:                  math.Max(0, goals.Protein-consumed.Protein),
		Carbs:                    math.Max(0, goals.Carbs-consumed.Carbs),
		Fat:                      math.Max(0, goals.Fat-consumed.Fat),
		Fiber:                    math.Max(0, goals.Fiber-consumed.Fiber),
		PercentageOfDayRemaining: PercentageOfDayRemaining(hour),
		MealsRemaining:           MealsRemaining(hour, logs, c.loc),
		HoursUntilBedtime:        math.Max(0, c.bedtimeHour-hour),
	}, nil
}

// hourOfDay returns the fractional hour the day is evaluated at.
func (c *Calculator) hourOfDay(day time.Time) float64 {
	now := c.now().In(c.loc)
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, c.loc)
	switch {
	case day.Before(today):
		return 24
	case day.After(today):
		return 0
	default:
		return float64(now.Hour()) + float64(now.Minute())/60 + float64(now.Second())/3600
	}
}

// PercentageOfDayRemaining decays linearly over the 07:00-21:00 window.
func PercentageOfDayRemaining(hour float64) float64 {
	switch {
	case hour < eatingWindowStart:
		return 100
	case hour >= eatingWindowEnd:
		return 0
	default:
		return (eatingWindowEnd - hour) / (eatingWindowEnd - eatingWindowStart) * 100
	}
}

// MealsRemaining counts meal slots not yet passed whose meal was not logged.
// Snack slots weigh 0.5. A logged snack uses up the first free snack slot
// ending after the time it was logged, so a mid-morning snack uses the
// morning slot even once that slot has passed. Snacks without a log time
// count as logged at hour.
func MealsRemaining(hour float64, logs []models.FoodLogEntry, loc *time.Location) float64 {
	if loc == nil {
		loc = time.UTC
	}

	logged := map[models.MealType]int{}
	var snackHours []float64
	for _, entry := range logs {
		logged[entry.MealType]++
		if entry.MealType != models.MealSnack {
			continue
		}
		at := hour
		if !entry.LoggedAt.IsZero() {
			t := entry.LoggedAt.In(loc)
			at = float64(t.Hour()) + float64(t.Minute())/60
		}
		snackHours = append(snackHours, at)
	}
	sort.Float64s(snackHours)

	used := make([]bool, len(mealSlots))
	for _, at := range snackHours {
		for i, slot := range mealSlots {
			if slot.meal == models.MealSnack && !used[i] && at < slot.endsAt {
				used[i] = true
				break
			}
		}
	}

	remaining := 0.0
	for i, slot := range mealSlots {
		if hour >= slot.endsAt {
			continue
		}
		if slot.meal == models.MealSnack {
			if !used[i] {
				remaining += slot.weight
			}
			continue
		}
		if logged[slot.meal] == 0 {
			remaining += slot.weight
		}
	}
	return remaining
}

// FitScore is a logistic curve: about 100 well under what remains, exactly
// 50 at amount == remaining, decaying past it.
func FitScore(amount, remaining float64) float64 {
	if remaining <= 0 {
		if amount <= 0 {
			return 100
		}
		return 0
	}
	return engine.Clamp100(100 / (1 + math.Exp(fitSteepness*(amount/remaining-1))))
}

// BalanceScore compares the portion's macro calorie split with the split of
// what remains. A zero-calorie portion has no split; the ratio is undefined
// and the score comes out as 0.
func BalanceScore(portion models.PortionNutrition, remaining models.RemainingTargets) float64 {
	if remaining.Calories <= 0 {
		return 50
	}

	food := [3]float64{
		portion.Protein * 4 / portion.Calories,
		portion.Carbs * 4 / portion.Calories,
		portion.Fat * 9 / portion.Calories,
	}
	target := [3]float64{
		remaining.Protein * 4 / remaining.Calories,
		remaining.Carbs * 4 / remaining.Calories,
		remaining.Fat * 9 / remaining.Calories,
	}

	diff := 0.0
	for i := range food {
		diff += math.Abs(food[i] - target[i])
	}
	score := 100 - diff*100
	if math.IsNaN(score) || math.IsInf(score, 0) {
		return 0
	}
	return engine.Clamp100(score)
}

// CalculateMacroCompatibility scores a portion of food against remaining.
func (c *Calculator) CalculateMacroCompatibility(food models.FoodItem, portionGrams float64, remaining models.RemainingTargets) models.MacroCompatibility {
	return Compatibility(food, portionGrams, remaining)
}

// Compatibility is CalculateMacroCompatibility without a receiver.
func Compatibility(food models.FoodItem, portionGrams float64, remaining models.RemainingTargets) models.MacroCompatibility {
	portion := food.NutritionPer100g.Scale(portionGrams)

	fit := models.MacroFitScores{
		Calories: FitScore(portion.Calories, remaining.Calories),
		Protein:  FitScore(portion.Protein, remaining.Protein),
		Carbs:    FitScore(portion.Carbs, remaining.Carbs),
		Fat:      FitScore(portion.Fat, remaining.Fat),
		Fiber:    FitScore(portion.Fiber, remaining.Fiber),
	}
	balance := BalanceScore(portion, remaining)

	overall := fit.Calories*weights.calories +
		fit.Protein*weights.protein +
		fit.Carbs*weights.carbs +
		fit.Fat*weights.fat +
		fit.Fiber*weights.fiber +
		balance*weights.balance

	excess := excessOver(portion, remaining)
	if excess != nil {
		overall *= exceedPenalty
	}

	return models.MacroCompatibility{
		OverallScore:       engine.Clamp100(overall),
		FitScores:          fit,
		WouldExceedTargets: excess != nil,
		ExcessBreakdown:    excess,
		BalanceScore:       balance,
		Portion:            portion,
	}
}

// excessOver returns nil unless some nutrient passes its tolerance band.
func excessOver(p models.PortionNutrition, r models.RemainingTargets) *models.ExcessBreakdown {
	var (
		breakdown models.ExcessBreakdown
		exceeded  bool
	)
	if p.Calories > r.Calories*calorieTolerance {
		breakdown.Calories = p.Calories - r.Calories
		exceeded = true
	}
	if p.Protein > r.Protein*proteinTolerance {
		breakdown.Protein = p.Protein - r.Protein
		exceeded = true
	}
	if p.Carbs > r.Carbs*carbTolerance {
		breakdown.Carbs = p.Carbs - r.Carbs
		exceeded = true
	}
	if p.Fat > r.Fat*fatTolerance {
		breakdown.Fat = p.Fat - r.Fat
		exceeded = true
	}
	if !exceeded {
		return nil
	}
	return &breakdown
}

// OptimizePortionForTargets starts from the typical serving, cuts it so its
// calories fit what remains and floors it at 10 g. The floor wins when the
// two conflict.
func (c *Calculator) OptimizePortionForTargets(food models.FoodItem, remaining models.RemainingTargets) models.PortionPlan {
	grams := food.ServingGrams()
	if calPerGram := food.NutritionPer100g.Calories / 100; calPerGram > 0 && grams*calPerGram > remaining.Calories {
		grams = math.Floor(remaining.Calories / calPerGram)
		for grams > minPortionGrams && food.NutritionPer100g.Scale(grams).Calories > remaining.Calories {
			grams--
		}
	}
	grams = math.Max(minPortionGrams, grams)

	unit := "g"
	compat := Compatibility(food, grams, remaining)
	optimal := models.PortionOption{
		Label:     "Recommended",
		Amount:    grams,
		Unit:      unit,
		Nutrition: compat.Portion,
		FitScore:  compat.OverallScore,
	}

	variants := []struct {
		label  string
		factor float64
	}{
		{"Light", 0.5},
		{"Moderate", 0.75},
		{"Generous", 1.5},
	}
	alternatives := make([]models.PortionOption, 0, len(variants))
	for _, v := range variants {
		amount := math.Max(minPortionGrams, math.Round(grams*v.factor))
		alt := Compatibility(food, amount, remaining)
		alternatives = append(alternatives, models.PortionOption{
			Label:     v.label,
			Amount:    amount,
			Unit:      unit,
			Nutrition: alt.Portion,
			FitScore:  alt.OverallScore,
		})
	}
	sort.SliceStable(alternatives, func(i, j int) bool {
		return alternatives[i].FitScore > alternatives[j].FitScore
	})

	return models.PortionPlan{
		Optimal:       optimal,
		Compatibility: compat,
		Alternatives:  alternatives,
	}
}
