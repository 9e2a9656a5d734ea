package catalog

import (
	"sort"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"mindfork-recommender/internal/models"
)

// IngredientClassifier answers keyword questions about a food. The default
// implementation matches on the food's name and id; a richer one can use an
// ingredient list without touching the callers.
type IngredientClassifier interface {
	// Match returns the first keyword found in the food, in keyword order.
	Match(food models.FoodItem, keywords []string) (string, bool)
	// MatchAll returns every keyword found in the food.
	MatchAll(food models.FoodItem, keywords []string) []string
	// Category returns the food's category, inferring one when it is unset.
	Category(food models.FoodItem) string
}

// KeywordClassifier matches normalized keywords at word starts, so "oat"
// hits "oatmeal" but not "goat".
type KeywordClassifier struct {
	catalog *Catalog
}

func NewKeywordClassifier(c *Catalog) *KeywordClassifier {
	return &KeywordClassifier{catalog: c}
}

// Normalize lowercases s, strips accents and turns punctuation into spaces.
func Normalize(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}
	folded = strings.ToLower(folded)

	fields := strings.FieldsFunc(folded, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	return strings.Join(fields, " ")
}

// FoodText is the normalized text a food is matched against.
func FoodText(food models.FoodItem) string {
	text := Normalize(food.Name)
	if id := Normalize(food.ID); id != "" && id != text {
		text += " " + id
	}
	return text
}

// ContainsWord reports whether keyword occurs in text starting at a word
// boundary. Both arguments must already be normalized.
func ContainsWord(text, keyword string) bool {
	if keyword == "" {
		return false
	}
	for offset := 0; offset < len(text); {
		idx := strings.Index(text[offset:], keyword)
		if idx < 0 {
			return false
		}
		pos := offset + idx
		if pos == 0 || text[pos-1] == ' ' {
			return true
		}
		offset = pos + 1
	}
	return false
}

func (k *KeywordClassifier) Match(food models.FoodItem, keywords []string) (string, bool) {
	text := FoodText(food)
	for _, kw := range keywords {
		if ContainsWord(text, Normalize(kw)) {
			return kw, true
		}
	}
	return "", false
}

func (k *KeywordClassifier) MatchAll(food models.FoodItem, keywords []string) []string {
	text := FoodText(food)
	var found []string
	for _, kw := range keywords {
		if ContainsWord(text, Normalize(kw)) {
			found = append(found, kw)
		}
	}
	return found
}

func (k *KeywordClassifier) Category(food models.FoodItem) string {
	if food.Category != "" {
		return Normalize(food.Category)
	}
	for _, category := range categoryOrder {
		if _, ok := k.Match(food, k.catalog.Categories[category]); ok {
			return category
		}
	}
	return "other"
}

// Lookup returns the value of the longest table key found in the food.
func (c *Catalog) Lookup(food models.FoodItem, table map[string]float64) (float64, bool) {
	key, ok := longestMatch(FoodText(food), sortedKeys(table))
	if !ok {
		return 0, false
	}
	return table[key], true
}

// FoodNutrientsFor returns the per-100 g micronutrient profile of the food,
// or nil when the catalog has no entry for it.
func (c *Catalog) FoodNutrientsFor(food models.FoodItem) map[string]float64 {
	key, ok := longestMatch(FoodText(food), sortedKeys(c.FoodNutrients))
	if !ok {
		return nil
	}
	return c.FoodNutrients[key]
}

// ProcessingLevel returns a 1-4 processing level, 4 being ultra-processed.
func (c *Catalog) ProcessingLevel(food models.FoodItem) int {
	text := FoodText(food)
	if key, ok := longestMatch(text, sortedKeys(c.ProcessingOverrides)); ok {
		return c.ProcessingOverrides[key]
	}
	for _, level := range []int{4, 3, 2} {
		for _, kw := range c.ProcessingKeywords[level] {
			if ContainsWord(text, Normalize(kw)) {
				return level
			}
		}
	}
	return 1
}

// CountKeywords counts how many keywords occur in the food.
func (c *Catalog) CountKeywords(food models.FoodItem, keywords []string) int {
	text := FoodText(food)
	n := 0
	for _, kw := range keywords {
		if ContainsWord(text, Normalize(kw)) {
			n++
		}
	}
	return n
}

// longestMatch picks the longest key present in text; ties go to the
// alphabetically first key since keys arrive sorted.
func longestMatch(text string, keys []string) (string, bool) {
	matches := make([]string, 0, 2)
	for _, key := range keys {
		if ContainsWord(text, Normalize(key)) {
			matches = append(matches, key)
		}
	}
	if len(matches) == 0 {
		return "", false
	}
	sort.SliceStable(matches, func(i, j int) bool {
		return len(matches[i]) > len(matches[j])
	})
	return matches[0], true
}
