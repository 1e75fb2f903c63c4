package portion

import (
	"testing"

	"proteinagent/matcher"
	"proteinagent/nutrition"
	"proteinagent/vision"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func matched(t *testing.T, foodID string, obs vision.FoodObservation) matcher.MatchedFood {
	t.Helper()
	e, ok := nutrition.Default().Lookup(foodID)
	require.True(t, ok, "missing entry %s", foodID)
	return matcher.MatchedFood{
		Observation:        obs,
		Entry:              e,
		FoodID:             e.ID,
		FoodName:           e.DisplayName,
		MatchConfidence:    0.8,
		CombinedConfidence: matcher.CombinedConfidence(obs.Confidence, 0.8),
	}
}

func TestEstimator_Estimate(t *testing.T) {
	est := NewEstimator()

	t.Run("grilled chicken medium", func(t *testing.T) {
		got := est.Estimate([]matcher.MatchedFood{matched(t, "chicken_breast", vision.FoodObservation{
			Name:          "grilled chicken breast",
			Confidence:    8,
			VisualCues:    "grill marks, white meat",
			EstimatedSize: vision.SizeMedium,
			Preparation:   "grilled",
		})})

		require.Len(t, got.Suggestions, 1)
		s := got.Suggestions[0]
		assert.Equal(t, "Chicken Breast", s.FoodName)
		assert.Equal(t, "medium", s.PortionLabel)
		assert.Equal(t, 150.0, s.Grams)
		assert.Equal(t, "grilled", s.Preparation)
		assert.Equal(t, 1.0, s.PreparationModifier)
		assert.InDelta(t, 46.5, s.ProteinGrams, 1e-9)
		assert.Equal(t, 8, s.Confidence)
		assert.InDelta(t, 0.64, s.CombinedConfidence, 1e-9)
		assert.Equal(t, "grill marks, white meat", s.VisualReasoning)
		assert.Equal(t,
			"Based on the visual size, this looks like 5oz serving (150g). I can see: grill marks, white meat. I'm very confident about this identification.",
			s.Explanation)
		assert.Len(t, s.AlternativePortions, 3)
		for _, alt := range s.AlternativePortions {
			assert.NotEqual(t, "medium", alt.Label)
		}

		assert.InDelta(t, 46.5, got.TotalProtein, 1e-9)
		assert.Equal(t, "I'm very confident about these identifications", got.ConfidenceSummary)
	})

	t.Run("large eggs", func(t *testing.T) {
		got := est.Estimate([]matcher.MatchedFood{matched(t, "eggs", vision.FoodObservation{
			Name:          "scrambled eggs",
			Confidence:    9,
			EstimatedSize: vision.SizeLarge,
			Preparation:   "scrambled",
		})})

		require.Len(t, got.Suggestions, 1)
		assert.Equal(t, "two_eggs", got.Suggestions[0].PortionLabel)
		assert.InDelta(t, 13.0, got.Suggestions[0].ProteinGrams, 1e-9)
	})

	t.Run("empty", func(t *testing.T) {
		got := est.Estimate(nil)
		assert.Empty(t, got.Suggestions)
		assert.NotNil(t, got.Suggestions)
		assert.Zero(t, got.TotalProtein)
		assert.Equal(t, NoFoodsSummary, got.ConfidenceSummary)
	})

	t.Run("total sums rounded items", func(t *testing.T) {
		got := est.Estimate([]matcher.MatchedFood{
			matched(t, "chicken_breast", vision.FoodObservation{Name: "chicken", Confidence: 7, EstimatedSize: vision.SizeLarge, Preparation: "fried"}),
			matched(t, "white_rice", vision.FoodObservation{Name: "rice", Confidence: 6, EstimatedSize: vision.SizeSmall}),
			matched(t, "broccoli", vision.FoodObservation{Name: "broccoli", Confidence: 5, EstimatedSize: vision.SizeMedium}),
		})

		require.Len(t, got.Suggestions, 3)
		var sum float64
		for _, s := range got.Suggestions {
			sum += s.ProteinGrams
		}
		assert.InDelta(t, nutrition.Round1(sum), got.TotalProtein, 1e-9)
		assert.InDelta(t, 50.2, got.Suggestions[0].ProteinGrams, 1e-9)
		assert.Equal(t, "default", got.Suggestions[1].Preparation)
		assert.Equal(t, "I'm fairly confident about most of these foods", got.ConfidenceSummary)
	})

	t.Run("items round half to even before summing", func(t *testing.T) {
		got := est.Estimate([]matcher.MatchedFood{
			matched(t, "white_rice", vision.FoodObservation{Name: "white rice", Confidence: 7, EstimatedSize: vision.SizeMedium, Preparation: "steamed"}),
			matched(t, "salmon", vision.FoodObservation{Name: "salmon", Confidence: 8, EstimatedSize: vision.SizeMedium, Preparation: "smoked"}),
		})

		require.Len(t, got.Suggestions, 2)
		assert.Equal(t, 4.0, got.Suggestions[0].ProteinGrams)
		assert.Equal(t, 41.2, got.Suggestions[1].ProteinGrams)
		assert.Equal(t, 45.2, got.TotalProtein)
	})

	t.Run("match without entry is skipped", func(t *testing.T) {
		got := est.Estimate([]matcher.MatchedFood{{FoodID: "ghost"}})
		assert.Empty(t, got.Suggestions)
	})
}

func TestResolvePortion(t *testing.T) {
	table := nutrition.Default()
	chicken, _ := table.Lookup("chicken_breast")
	salmon, _ := table.Lookup("salmon")
	eggs, _ := table.Lookup("eggs")

	tests := []struct {
		name     string
		entry    *nutrition.Entry
		size     vision.Size
		expected string
	}{
		{"standard small", salmon, vision.SizeSmall, "small"},
		{"standard medium", salmon, vision.SizeMedium, "medium"},
		{"standard large", salmon, vision.SizeLarge, "large"},
		{"extra large maps to large", chicken, vision.SizeExtraLarge, "large"},
		{"unknown maps to medium", salmon, vision.SizeUnknown, "medium"},
		{"egg small", eggs, vision.SizeSmall, "one_egg"},
		{"egg medium", eggs, vision.SizeMedium, "one_egg"},
		{"egg large", eggs, vision.SizeLarge, "two_eggs"},
		{"egg extra large", eggs, vision.SizeExtraLarge, "three_eggs"},
		{"egg unknown", eggs, vision.SizeUnknown, "one_egg"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ResolvePortion(tt.entry, tt.size).Label)
		})
	}
}

func TestResolvePortion_FallsBackToFirstPortion(t *testing.T) {
	e := &nutrition.Entry{
		ID:             "protein_bar",
		DisplayName:    "Protein Bar",
		ProteinPer100g: 33,
		Portions:       []nutrition.Portion{{Label: "bar", Grams: 60, Description: "1 bar"}},
	}
	p := ResolvePortion(e, vision.SizeLarge)
	assert.Equal(t, "bar", p.Label)
}

func TestExplain(t *testing.T) {
	p := nutrition.Portion{Label: "small", Grams: 80, Description: "1/2 cup"}

	tests := []struct {
		name     string
		obs      vision.FoodObservation
		expected string
	}{
		{
			name:     "fairly confident without cues",
			obs:      vision.FoodObservation{Confidence: 6},
			expected: "Based on the visual size, this looks like 1/2 cup (80g). I'm fairly confident about this identification.",
		},
		{
			name:     "uncertain with cues",
			obs:      vision.FoodObservation{Confidence: 5, VisualCues: "green florets"},
			expected: "Based on the visual size, this looks like 1/2 cup (80g). I can see: green florets. I'm somewhat uncertain about this identification.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Explain(p, tt.obs))
		})
	}
}

func TestSummary(t *testing.T) {
	tests := []struct {
		confidences []int
		expected    string
	}{
		{nil, NoFoodsSummary},
		{[]int{8, 8}, "I'm very confident about these identifications"},
		{[]int{9, 6}, "I'm fairly confident about most of these foods"},
		{[]int{4}, "I can identify some foods but am uncertain about others"},
		{[]int{3, 2}, "This image is challenging - I'd recommend manual entry"},
	}

	for _, tt := range tests {
		var in []Suggestion
		for _, c := range tt.confidences {
			in = append(in, Suggestion{Confidence: c})
		}
		assert.Equal(t, tt.expected, Summary(in))
	}
}
