// Package preference checks foods against a user's diet type, allergens,
// exclusions and cultural or custom restrictions.
package preference

import (
	"fmt"
	"strings"

	"mindfork-recommender/internal/catalog"
	"mindfork-recommender/internal/common/logger"
	"mindfork-recommender/internal/engine"
	"mindfork-recommender/internal/models"
)

// Score adjustments. Hard violations make a food incompatible on their own.
const (
	strictDietPenalty    = 50
	avoidDietPenalty     = 20
	exclusionPenalty     = 30
	allergenPenalty      = 40
	culturalPenalty      = 50
	strictCustomPenalty  = 35
	softCustomPenalty    = 15
	dislikedPenalty      = 10
	cuisineMatchBonus    = 15
	compatibleScoreFloor = 60

	maxSubstitutions = 5
)

// Candidate is a food that passed the filter, with its check.
type Candidate struct {
	Food  models.FoodItem
	Check models.PreferenceCheck
}

type Filter struct {
	catalog    *catalog.Catalog
	classifier catalog.IngredientClassifier
	logger     logger.Logger
}

func New(c *catalog.Catalog, classifier catalog.IngredientClassifier, log logger.Logger) *Filter {
	return &Filter{
		catalog:    c,
		classifier: classifier,
		logger:     logger.ForComponent(log, "preference_filter"),
	}
}

// check accumulates one food's evaluation.
type check struct {
	score         float64
	hard          int
	violations    []string
	warnings      []string
	substitutions []string
	seenSubs      map[string]bool
}

func (c *check) violate(penalty float64, msg, keyword string, subs map[string][]string) {
	c.score -= penalty
	c.hard++
	c.violations = append(c.violations, msg)
	c.suggest(keyword, subs)
}

func (c *check) warn(penalty float64, msg, keyword string, subs map[string][]string) {
	c.score -= penalty
	c.warnings = append(c.warnings, msg)
	c.suggest(keyword, subs)
}

func (c *check) suggest(keyword string, subs map[string][]string) {
	for _, s := range subs[catalog.Normalize(keyword)] {
		if len(c.substitutions) == maxSubstitutions {
			return
		}
		if !c.seenSubs[s] {
			c.seenSubs[s] = true
			c.substitutions = append(c.substitutions, s)
		}
	}
}

// CheckFoodCompatibility applies, in order: diet rules, exclusions,
// allergens, cultural rules, custom restrictions, dislikes and the cuisine
// bonus. The result depends only on its arguments.
func (f *Filter) CheckFoodCompatibility(food models.FoodItem, prefs models.UserDietaryPreferences) models.PreferenceCheck {
	c := &check{score: 100, seenSubs: map[string]bool{}}
	subs := f.catalog.Substitutions

	dietType := prefs.DietType
	if dietType == "" {
		dietType = models.DietMindFork
	}
	if rule, ok := f.catalog.Diets[string(dietType)]; ok {
		for _, group := range rule.Strict {
			if kw, hit := f.classifier.Match(food, f.catalog.Group(group)); hit {
				c.violate(strictDietPenalty, fmt.Sprintf("Contains %s, which is not allowed on a %s diet", kw, dietType), kw, subs)
			}
		}
		for _, group := range rule.Avoid {
			if kw, hit := f.classifier.Match(food, f.catalog.Group(group)); hit {
				c.warn(avoidDietPenalty, fmt.Sprintf("Contains %s, which is limited on a %s diet", kw, dietType), kw, subs)
			}
		}
	}

	for _, excluded := range prefs.FoodExclusions {
		if kw, hit := f.classifier.Match(food, []string{excluded}); hit {
			c.violate(exclusionPenalty, fmt.Sprintf("Contains excluded food: %s", kw), kw, subs)
		}
	}

	for _, allergen := range prefs.Allergens {
		keywords, known := f.catalog.Allergens[catalog.Normalize(allergen)]
		if !known {
			keywords = []string{allergen}
		}
		if kw, hit := f.classifier.Match(food, keywords); hit {
			c.violate(allergenPenalty, fmt.Sprintf("Contains %s (%s allergen)", kw, allergen), kw, subs)
		}
	}

	for _, rule := range prefs.CulturalRestrictions {
		groups, known := f.catalog.Cultural[catalog.Normalize(rule)]
		if !known {
			f.logger.Debug("unknown cultural restriction", map[string]interface{}{"restriction": rule})
			continue
		}
		for _, group := range groups {
			if kw, hit := f.classifier.Match(food, f.catalog.Group(group)); hit {
				c.violate(culturalPenalty, fmt.Sprintf("Contains %s, which conflicts with %s dietary rules", kw, rule), kw, subs)
				break
			}
		}
	}

	for _, custom := range prefs.CustomRestrictions {
		keywords := custom.Keywords
		if len(keywords) == 0 {
			keywords = []string{custom.Name}
		}
		kw, hit := f.classifier.Match(food, keywords)
		if !hit {
			continue
		}
		msg := fmt.Sprintf("Contains %s (%s restriction)", kw, custom.Name)
		if custom.Severity == models.SeverityStrict {
			c.violate(strictCustomPenalty, msg, kw, subs)
		} else {
			c.warn(softCustomPenalty, msg, kw, subs)
		}
	}

	for _, disliked := range prefs.DislikedIngredients {
		if kw, hit := f.classifier.Match(food, []string{disliked}); hit {
			c.warn(dislikedPenalty, fmt.Sprintf("Contains disliked ingredient: %s", kw), kw, subs)
		}
	}

	cuisine := ""
	for _, preferred := range prefs.PreferredCuisines {
		if _, hit := f.classifier.Match(food, f.catalog.Cuisines[catalog.Normalize(preferred)]); hit {
			cuisine = preferred
			c.score += cuisineMatchBonus
			break
		}
	}

	score := engine.Clamp100(c.score)
	violations := c.violations
	if violations == nil {
		violations = []string{}
	}
	return models.PreferenceCheck{
		FoodID:        food.ID,
		IsCompatible:  score >= compatibleScoreFloor && c.hard == 0,
		Score:         score,
		Violations:    violations,
		Warnings:      c.warnings,
		Substitutions: c.substitutions,
		CuisineMatch:  cuisine,
	}
}

// FilterFoodsByPreferences drops incompatible foods and keeps the check of
// every food it returns.
func (f *Filter) FilterFoodsByPreferences(foods []models.FoodItem, prefs models.UserDietaryPreferences) []Candidate {
	kept := make([]Candidate, 0, len(foods))
	dropped := 0
	for _, food := range foods {
		result := f.CheckFoodCompatibility(food, prefs)
		if !result.IsCompatible {
			dropped++
			continue
		}
		kept = append(kept, Candidate{Food: food, Check: result})
	}

	f.logger.Debug("candidates filtered", map[string]interface{}{
		"dietType": string(prefs.DietType),
		"kept":     len(kept),
		"dropped":  dropped,
	})
	return kept
}

// Describe summarizes a check in one sentence for reasons lists.
func Describe(c models.PreferenceCheck) string {
	switch {
	case !c.IsCompatible && len(c.Violations) > 0:
		return c.Violations[0]
	case c.CuisineMatch != "":
		return fmt.Sprintf("Matches your love of %s food", strings.ToLower(c.CuisineMatch))
	case len(c.Warnings) == 0:
		return "Fits your dietary preferences"
	default:
		return c.Warnings[0]
	}
}
