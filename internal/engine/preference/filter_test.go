package preference

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mindfork-recommender/internal/catalog"
	"mindfork-recommender/internal/common/logger"
	"mindfork-recommender/internal/models"
)

func newTestFilter(t *testing.T) *Filter {
	c := catalog.Default()
	return New(c, catalog.NewKeywordClassifier(c), logger.NewTestLogger(t))
}

func food(id, name string) models.FoodItem {
	return models.FoodItem{ID: id, Name: name}
}

func TestCheckFoodCompatibility_VeganChicken(t *testing.T) {
	f := newTestFilter(t)

	got := f.CheckFoodCompatibility(food("f1", "Grilled Chicken Breast"), models.UserDietaryPreferences{DietType: models.DietVegan})

	assert.False(t, got.IsCompatible)
	require.NotEmpty(t, got.Violations)
	assert.Contains(t, got.Violations[0], "vegan")
	assert.Equal(t, "Contains chicken, which is not allowed on a vegan diet", got.Violations[0])
	assert.Equal(t, 50.0, got.Score)
	assert.Equal(t, []string{"tofu", "tempeh", "seitan"}, got.Substitutions)
}

func TestCheckFoodCompatibility_AllergenIsAlwaysHard(t *testing.T) {
	f := newTestFilter(t)
	prefs := models.UserDietaryPreferences{
		DietType:          models.DietMindFork,
		Allergens:         []string{"peanuts"},
		PreferredCuisines: []string{"chinese"},
	}

	got := f.CheckFoodCompatibility(food("f2", "Kung Pao Peanut Stir Fry"), prefs)

	assert.False(t, got.IsCompatible)
	assert.Equal(t, 75.0, got.Score, "score alone would pass")
	assert.Equal(t, []string{"Contains peanut (peanuts allergen)"}, got.Violations)
	assert.Equal(t, "chinese", got.CuisineMatch)
}

func TestCheckFoodCompatibility_UnknownAllergenMatchesItsName(t *testing.T) {
	got := newTestFilter(t).CheckFoodCompatibility(food("f3", "Sesame Bagel"),
		models.UserDietaryPreferences{Allergens: []string{"sesame"}})

	assert.False(t, got.IsCompatible)
	assert.Contains(t, got.Violations[0], "sesame")
}

func TestCheckFoodCompatibility_Table(t *testing.T) {
	f := newTestFilter(t)

	tests := []struct {
		name           string
		food           models.FoodItem
		prefs          models.UserDietaryPreferences
		wantCompatible bool
		wantScore      float64
		wantWarnings   int
	}{
		{
			name:           "default diet has no restrictions",
			food:           food("f", "Grilled Chicken Breast"),
			prefs:          models.UserDietaryPreferences{},
			wantCompatible: true,
			wantScore:      100,
		},
		{
			name:           "keto avoid group is a soft penalty",
			food:           food("f", "White Rice"),
			prefs:          models.UserDietaryPreferences{DietType: models.DietKeto},
			wantCompatible: true,
			wantScore:      80,
			wantWarnings:   1,
		},
		{
			name:           "cuisine bonus on top of a warning",
			food:           food("f", "Spaghetti Pasta"),
			prefs:          models.UserDietaryPreferences{DietType: models.DietKeto, PreferredCuisines: []string{"italian"}},
			wantCompatible: true,
			wantScore:      95,
			wantWarnings:   1,
		},
		{
			name:           "halal excludes pork",
			food:           food("f", "Pork Dumplings"),
			prefs:          models.UserDietaryPreferences{CulturalRestrictions: []string{"halal"}},
			wantCompatible: false,
			wantScore:      50,
		},
		{
			name:           "kosher excludes shellfish",
			food:           food("f", "Garlic Shrimp"),
			prefs:          models.UserDietaryPreferences{CulturalRestrictions: []string{"kosher"}},
			wantCompatible: false,
			wantScore:      50,
		},
		{
			name:           "explicit exclusion",
			food:           food("f", "Mushroom Risotto"),
			prefs:          models.UserDietaryPreferences{FoodExclusions: []string{"mushroom"}},
			wantCompatible: false,
			wantScore:      70,
		},
		{
			name: "strict custom restriction is hard",
			food: food("f", "Baked Potato"),
			prefs: models.UserDietaryPreferences{CustomRestrictions: []models.CustomRestriction{
				{Name: "nightshade", Keywords: []string{"tomato", "potato"}, Severity: models.SeverityStrict},
			}},
			wantCompatible: false,
			wantScore:      65,
		},
		{
			name: "mild custom restriction is soft",
			food: food("f", "Baked Potato"),
			prefs: models.UserDietaryPreferences{CustomRestrictions: []models.CustomRestriction{
				{Name: "potato", Severity: models.SeverityMild},
			}},
			wantCompatible: true,
			wantScore:      85,
			wantWarnings:   1,
		},
		{
			name: "enough dislikes sink the score",
			food: food("f", "Mushroom Onion Olive Tomato Basil Pizza"),
			prefs: models.UserDietaryPreferences{
				DislikedIngredients: []string{"mushroom", "onion", "olive", "tomato", "basil"},
			},
			wantCompatible: false,
			wantScore:      50,
			wantWarnings:   5,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := f.CheckFoodCompatibility(tt.food, tt.prefs)
			assert.Equal(t, tt.wantCompatible, got.IsCompatible)
			assert.Equal(t, tt.wantScore, got.Score)
			assert.Len(t, got.Warnings, tt.wantWarnings)
		})
	}
}

func TestCheckFoodCompatibility_Deterministic(t *testing.T) {
	f := newTestFilter(t)
	prefs := models.UserDietaryPreferences{
		DietType:             models.DietPaleo,
		Allergens:            []string{"dairy", "gluten"},
		CulturalRestrictions: []string{"halal"},
		DislikedIngredients:  []string{"olive"},
	}
	item := food("f", "Ham and Cheese Sandwich Bread")

	first := f.CheckFoodCompatibility(item, prefs)
	for i := 0; i < 20; i++ {
		assert.Equal(t, first, f.CheckFoodCompatibility(item, prefs))
	}
	assert.False(t, first.IsCompatible)
	assert.Equal(t, 0.0, first.Score)
}

func TestFilterFoodsByPreferences(t *testing.T) {
	f := newTestFilter(t)
	foods := []models.FoodItem{
		food("tofu", "Firm Tofu"),
		food("chicken", "Chicken Thigh"),
		food("broccoli", "Steamed Broccoli"),
		food("yogurt", "Greek Yogurt"),
	}

	kept := f.FilterFoodsByPreferences(foods, models.UserDietaryPreferences{DietType: models.DietVegan})

	require.Len(t, kept, 2)
	assert.Equal(t, "tofu", kept[0].Food.ID)
	assert.Equal(t, "broccoli", kept[1].Food.ID)
	assert.True(t, kept[0].Check.IsCompatible)
}

func TestDescribe(t *testing.T) {
	assert.Equal(t, "Fits your dietary preferences", Describe(models.PreferenceCheck{IsCompatible: true}))
	assert.Equal(t, "Matches your love of italian food", Describe(models.PreferenceCheck{IsCompatible: true, CuisineMatch: "Italian"}))
}
