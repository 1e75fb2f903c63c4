package portion

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"proteinagent/matcher"
	"proteinagent/nutrition"
	"proteinagent/vision"
)

// Suggestion is the proposed portion for one matched food. Confidence is the model's
// raw 1-10 score, kept separate from the matcher's combined 0-1 confidence.
type Suggestion struct {
	FoodName            string              `json:"food_name"`
	FoodID              string              `json:"food_id"`
	PortionLabel        string              `json:"suggested_portion"`
	PortionDescription  string              `json:"portion_description"`
	Grams               float64             `json:"grams"`
	Preparation         string              `json:"preparation"`
	PreparationModifier float64             `json:"preparation_modifier"`
	ProteinGrams        float64             `json:"protein_grams"`
	Confidence          int                 `json:"confidence"`
	CombinedConfidence  float64             `json:"combined_confidence"`
	Explanation         string              `json:"explanation"`
	VisualReasoning     string              `json:"visual_reasoning"`
	AlternativePortions []nutrition.Portion `json:"alternative_portions"`
}

// Estimate is the portion stage output.
type Estimate struct {
	Suggestions       []Suggestion `json:"portion_suggestions"`
	TotalProtein      float64      `json:"total_estimated_protein"`
	ConfidenceSummary string       `json:"confidence_summary"`
}

// LabelMapping maps a size estimate to a portion label.
type LabelMapping struct {
	Labels  map[vision.Size]string
	Default string
}

var (
	// StandardLabels serves entries sized small/medium/large.
	StandardLabels = LabelMapping{
		Labels: map[vision.Size]string{
			vision.SizeSmall:      "small",
			vision.SizeMedium:     "medium",
			vision.SizeLarge:      "large",
			vision.SizeExtraLarge: "large",
		},
		Default: "medium",
	}

	// EggLabels serves entries counted in eggs.
	EggLabels = LabelMapping{
		Labels: map[vision.Size]string{
			vision.SizeSmall:      "one_egg",
			vision.SizeMedium:     "one_egg",
			vision.SizeLarge:      "two_eggs",
			vision.SizeExtraLarge: "three_eggs",
		},
		Default: "one_egg",
	}
)

// MappingFor returns the label mapping used for an entry.
func MappingFor(e *nutrition.Entry) LabelMapping {
	if e.IsEggLike() {
		return EggLabels
	}
	return StandardLabels
}

// ResolvePortion picks the portion for a size estimate, falling back to the entry's
// first portion when the mapped label does not exist.
func ResolvePortion(e *nutrition.Entry, size vision.Size) nutrition.Portion {
	m := MappingFor(e)
	label, ok := m.Labels[size]
	if !ok {
		label = m.Default
	}
	if p, ok := e.Portion(label); ok {
		return p
	}
	return e.FirstPortion()
}

// Estimator suggests portions for matched foods. It is pure computation.
type Estimator struct{}

func NewEstimator() *Estimator { return &Estimator{} }

// Estimate builds one suggestion per matched food. The total is the sum of the
// already-rounded per-item protein values.
func (est *Estimator) Estimate(matched []matcher.MatchedFood) Estimate {
	out := Estimate{Suggestions: make([]Suggestion, 0, len(matched))}

	var total float64
	for _, mf := range matched {
		if mf.Entry == nil {
			slog.Warn("PORTION: Skipping match without reference entry", "food_id", mf.FoodID)
			continue
		}
		s := suggest(mf)
		total += s.ProteinGrams
		out.Suggestions = append(out.Suggestions, s)
	}

	out.TotalProtein = nutrition.Round1(total)
	out.ConfidenceSummary = Summary(out.Suggestions)

	slog.Info("PORTION: Estimated portions", "suggestions", len(out.Suggestions), "total_protein", out.TotalProtein)
	return out
}

func suggest(mf matcher.MatchedFood) Suggestion {
	e := mf.Entry
	obs := mf.Observation

	p := ResolvePortion(e, obs.EstimatedSize)
	mod := e.Modifier(obs.Preparation)

	preparation := obs.Preparation
	if preparation == "" {
		preparation = "default"
	}

	alternatives := make([]nutrition.Portion, 0, max(len(e.Portions)-1, 0))
	for _, alt := range e.Portions {
		if alt.Label != p.Label {
			alternatives = append(alternatives, alt)
		}
	}

	return Suggestion{
		FoodName:            e.DisplayName,
		FoodID:              e.ID,
		PortionLabel:        p.Label,
		PortionDescription:  p.Description,
		Grams:               p.Grams,
		Preparation:         preparation,
		PreparationModifier: mod,
		ProteinGrams:        e.ProteinGrams(p.Grams, mod),
		Confidence:          obs.Confidence,
		CombinedConfidence:  mf.CombinedConfidence,
		Explanation:         Explain(p, obs),
		VisualReasoning:     obs.VisualCues,
		AlternativePortions: alternatives,
	}
}

// Explain renders the per-food explanation.
func Explain(p nutrition.Portion, obs vision.FoodObservation) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Based on the visual size, this looks like %s (%sg). ", p.Description, formatGrams(p.Grams))
	if obs.VisualCues != "" {
		fmt.Fprintf(&b, "I can see: %s. ", obs.VisualCues)
	}
	fmt.Fprintf(&b, "I'm %s about this identification.", confidencePhrase(obs.Confidence))
	return b.String()
}

func confidencePhrase(confidence int) string {
	switch {
	case confidence >= 8:
		return "very confident"
	case confidence >= 6:
		return "fairly confident"
	default:
		return "somewhat uncertain"
	}
}

const NoFoodsSummary = "No foods identified"

// Summary buckets the mean raw confidence of all suggestions.
func Summary(suggestions []Suggestion) string {
	if len(suggestions) == 0 {
		return NoFoodsSummary
	}
	var sum int
	for _, s := range suggestions {
		sum += s.Confidence
	}
	avg := float64(sum) / float64(len(suggestions))
	switch {
	case avg >= 8:
		return "I'm very confident about these identifications"
	case avg >= 6:
		return "I'm fairly confident about most of these foods"
	case avg >= 4:
		return "I can identify some foods but am uncertain about others"
	default:
		return "This image is challenging - I'd recommend manual entry"
	}
}

func formatGrams(g float64) string {
	return strconv.FormatFloat(g, 'f', -1, 64)
}
