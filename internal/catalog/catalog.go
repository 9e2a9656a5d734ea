// Package catalog holds the static reference tables the recommendation engine
// scores against: diet rules, allergens, nutrient targets and per-food lookups.
package catalog

import (
	"embed"
	"fmt"
	"sort"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed data/*.yaml
var dataFS embed.FS

// DietRule lists ingredient groups a diet forbids (Strict) or discourages (Avoid).
type DietRule struct {
	Description string   `yaml:"description"`
	Strict      []string `yaml:"strict"`
	Avoid       []string `yaml:"avoid"`
}

type NutrientTarget struct {
	Name          string  `yaml:"name"`
	Unit          string  `yaml:"unit"`
	Target        float64 `yaml:"target"`
	UpperMultiple float64 `yaml:"upper_multiple"`
	Category      string  `yaml:"category"`
}

// UpperLimit is the intake above which a nutrient counts as overconsumed.
func (t NutrientTarget) UpperLimit() float64 {
	return t.Target * t.UpperMultiple
}

type Synergy struct {
	Nutrients   []string `yaml:"nutrients"`
	Synergy     string   `yaml:"synergy"`
	Preparation string   `yaml:"preparation"`
}

type FallbackFood struct {
	ID       string `yaml:"id"`
	Name     string `yaml:"name"`
	Category string `yaml:"category"`
	Reason   string `yaml:"reason"`
}

// DietTables is the content of diets.yaml.
type DietTables struct {
	IngredientGroups map[string][]string `yaml:"ingredient_groups"`
	Diets            map[string]DietRule `yaml:"diets"`
	Cultural         map[string][]string `yaml:"cultural"`
	Allergens        map[string][]string `yaml:"allergens"`
	Cuisines         map[string][]string `yaml:"cuisines"`
	Substitutions    map[string][]string `yaml:"substitutions"`
}

// NutrientTables is the content of nutrients.yaml.
type NutrientTables struct {
	Targets           map[string]NutrientTarget     `yaml:"targets"`
	CriticalNutrients []string                      `yaml:"critical_nutrients"`
	FoodNutrients     map[string]map[string]float64 `yaml:"foods"`
	Synergies         []Synergy                     `yaml:"synergies"`
}

// FoodTables is the content of foods.yaml.
type FoodTables struct {
	ProcessingOverrides  map[string]int      `yaml:"processing_overrides"`
	ProcessingKeywords   map[int][]string    `yaml:"processing_keywords"`
	AdditiveKeywords     []string            `yaml:"additive_keywords"`
	PreservativeKeywords []string            `yaml:"preservative_keywords"`
	Polyphenols          map[string]float64  `yaml:"polyphenols"`
	Omega3               map[string]float64  `yaml:"omega3"`
	Categories           map[string][]string `yaml:"categories"`
	BreakfastKeywords    []string            `yaml:"breakfast_keywords"`
	Seasonal             map[int][]string    `yaml:"seasonal"`
	Fallback             []FallbackFood      `yaml:"fallback"`
}

type Catalog struct {
	DietTables
	NutrientTables
	FoodTables
}

// categoryOrder decides between categories when a food matches several.
var categoryOrder = []string{
	"seafood", "protein", "dairy", "legumes", "nuts_seeds",
	"grains", "vegetables", "fruits", "beverages", "snacks",
}

var (
	defaultOnce    sync.Once
	defaultCatalog *Catalog
	defaultErr     error
)

// Default returns the embedded catalog, parsed once per process.
func Default() *Catalog {
	defaultOnce.Do(func() {
		defaultCatalog, defaultErr = loadEmbedded()
	})
	if defaultErr != nil {
		panic(fmt.Sprintf("catalog: embedded tables are invalid: %v", defaultErr))
	}
	return defaultCatalog
}

func loadEmbedded() (*Catalog, error) {
	read := func(name string) ([]byte, error) {
		return dataFS.ReadFile("data/" + name)
	}
	diets, err := read("diets.yaml")
	if err != nil {
		return nil, err
	}
	nutrients, err := read("nutrients.yaml")
	if err != nil {
		return nil, err
	}
	foods, err := read("foods.yaml")
	if err != nil {
		return nil, err
	}
	return Parse(diets, nutrients, foods)
}

// Parse builds a catalog from the three YAML documents.
func Parse(diets, nutrients, foods []byte) (*Catalog, error) {
	c := &Catalog{}
	if err := yaml.Unmarshal(diets, &c.DietTables); err != nil {
		return nil, fmt.Errorf("parse diets: %w", err)
	}
	if err := yaml.Unmarshal(nutrients, &c.NutrientTables); err != nil {
		return nil, fmt.Errorf("parse nutrients: %w", err)
	}
	if err := yaml.Unmarshal(foods, &c.FoodTables); err != nil {
		return nil, fmt.Errorf("parse foods: %w", err)
	}
	if err := c.validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Catalog) validate() error {
	for diet, rule := range c.Diets {
		for _, group := range append(append([]string{}, rule.Strict...), rule.Avoid...) {
			if _, ok := c.IngredientGroups[group]; !ok {
				return fmt.Errorf("diet %s references unknown group %s", diet, group)
			}
		}
	}
	for name, groups := range c.Cultural {
		for _, group := range groups {
			if _, ok := c.IngredientGroups[group]; !ok {
				return fmt.Errorf("cultural rule %s references unknown group %s", name, group)
			}
		}
	}
	for name, t := range c.Targets {
		if t.Target <= 0 || t.UpperMultiple <= 1 {
			return fmt.Errorf("nutrient %s has an invalid target", name)
		}
	}
	for _, s := range c.Synergies {
		if len(s.Nutrients) != 2 {
			return fmt.Errorf("synergy %q must pair exactly two nutrients", s.Synergy)
		}
	}
	if len(c.Fallback) == 0 {
		return fmt.Errorf("fallback list is empty")
	}
	return nil
}

// Group returns the keywords of an ingredient group.
func (c *Catalog) Group(name string) []string {
	return c.IngredientGroups[name]
}

// Target returns the daily target for a nutrient.
func (c *Catalog) Target(nutrient string) (NutrientTarget, bool) {
	t, ok := c.Targets[nutrient]
	return t, ok
}

// NutrientNames lists the tracked nutrients in a stable order.
func (c *Catalog) NutrientNames() []string {
	return sortedKeys(c.Targets)
}

// IsCritical reports whether a deficit in nutrient can be flagged critical.
func (c *Catalog) IsCritical(nutrient string) bool {
	for _, n := range c.CriticalNutrients {
		if n == nutrient {
			return true
		}
	}
	return false
}

// SeasonalProduce returns the in-season keywords for a month (1-12).
func (c *Catalog) SeasonalProduce(month int) []string {
	return c.Seasonal[month]
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
