package nutrition

import (
	"strconv"
	"strings"
)

// Category groups reference foods for similar-food suggestions.
type Category string

const (
	CategoryProtein      Category = "protein"
	CategoryCarbohydrate Category = "carbohydrate"
	CategoryVegetable    Category = "vegetable"
	CategoryLegume       Category = "legume"
)

// DefaultModifier applies when a preparation method has no entry in the modifier map.
const DefaultModifier = 1.0

// MaxModifier is the upper bound accepted for a preparation modifier.
const MaxModifier = 1.2

// Portion is one row of an entry's portion table.
type Portion struct {
	Label       string  `json:"label"`
	Grams       float64 `json:"grams"`
	Description string  `json:"description"`
}

// Entry is a single reference food. Portions keep their declared order; the first
// one is the fallback when a requested label is missing.
type Entry struct {
	ID                   string             `json:"food_id"`
	DisplayName          string             `json:"display_name"`
	Category             Category           `json:"category"`
	ProteinPer100g       float64            `json:"protein_per_100g"`
	Portions             []Portion          `json:"portions"`
	PreparationModifiers map[string]float64 `json:"preparation_modifiers"`
	VisualCues           []string           `json:"visual_cues"`
	Keywords             []string           `json:"confidence_keywords"`
}

// Portion returns the portion with the given label.
func (e *Entry) Portion(label string) (Portion, bool) {
	for _, p := range e.Portions {
		if p.Label == label {
			return p, true
		}
	}
	return Portion{}, false
}

// FirstPortion returns the first declared portion.
func (e *Entry) FirstPortion() Portion {
	if len(e.Portions) == 0 {
		return Portion{}
	}
	return e.Portions[0]
}

// PortionLabels lists labels in declared order.
func (e *Entry) PortionLabels() []string {
	labels := make([]string, 0, len(e.Portions))
	for _, p := range e.Portions {
		labels = append(labels, p.Label)
	}
	return labels
}

// Modifier looks up the yield factor for a preparation method. Lookups ignore case
// and treat spaces and hyphens as underscores, so "Pan seared" finds "pan_seared".
func (e *Entry) Modifier(preparation string) float64 {
	key := NormalizePreparation(preparation)
	if key == "" {
		return DefaultModifier
	}
	if m, ok := e.PreparationModifiers[key]; ok {
		return m
	}
	return DefaultModifier
}

// IsEggLike reports whether the entry is counted in eggs rather than sized servings.
func (e *Entry) IsEggLike() bool {
	return strings.Contains(e.ID, "egg")
}

// ProteinGrams computes protein for a weight and modifier, rounded to one decimal.
func (e *Entry) ProteinGrams(grams, modifier float64) float64 {
	return Round1(e.ProteinPer100g * grams / 100 * modifier)
}

// NormalizePreparation maps free-text preparation methods onto modifier keys.
func NormalizePreparation(preparation string) string {
	p := strings.ToLower(strings.TrimSpace(preparation))
	p = strings.NewReplacer(" ", "_", "-", "_").Replace(p)
	return p
}

// Round1 rounds the exact binary value to one decimal place, ties to even, so
// 4.05 (stored as 4.0499...) gives 4.0 and 41.25 gives 41.2.
func Round1(x float64) float64 {
	v, _ := strconv.ParseFloat(strconv.FormatFloat(x, 'f', 1, 64), 64)
	return v
}
