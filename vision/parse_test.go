package vision

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		expected []FoodObservation
	}{
		{
			name: "plain array",
			raw:  `[{"name":"grilled chicken breast","confidence":8,"visual_cues":"grill marks","estimated_size":"medium","preparation":"grilled","notes":"5oz"}]`,
			expected: []FoodObservation{
				{Name: "grilled chicken breast", Confidence: 8, VisualCues: "grill marks", EstimatedSize: SizeMedium, Preparation: "grilled", Notes: "5oz"},
			},
		},
		{
			name: "json code fence",
			raw:  "```json\n[{\"name\":\"white rice\",\"confidence\":7,\"visual_cues\":\"grains\",\"estimated_size\":\"large\"}]\n```",
			expected: []FoodObservation{
				{Name: "white rice", Confidence: 7, VisualCues: "grains", EstimatedSize: SizeLarge},
			},
		},
		{
			name: "bare code fence",
			raw:  "```\n[{\"name\":\"tofu\",\"confidence\":6,\"visual_cues\":\"cubes\",\"estimated_size\":\"small\"}]\n```",
			expected: []FoodObservation{
				{Name: "tofu", Confidence: 6, VisualCues: "cubes", EstimatedSize: SizeSmall},
			},
		},
		{
			name: "single object wrapped into a list",
			raw:  `{"name":"salmon","confidence":9,"visual_cues":"pink flesh","estimated_size":"medium","preparation":"baked"}`,
			expected: []FoodObservation{
				{Name: "salmon", Confidence: 9, VisualCues: "pink flesh", EstimatedSize: SizeMedium, Preparation: "baked"},
			},
		},
		{
			name:     "empty array",
			raw:      `[]`,
			expected: []FoodObservation{},
		},
		{
			name: "lenient field types",
			raw:  `[{"name":"broccoli","confidence":"7.6","visual_cues":["green florets","stems"],"estimated_size":"Extra Large"}]`,
			expected: []FoodObservation{
				{Name: "broccoli", Confidence: 8, VisualCues: "green florets, stems", EstimatedSize: SizeExtraLarge},
			},
		},
		{
			name: "confidence clamped and defaulted",
			raw:  `[{"name":"a","confidence":42,"estimated_size":"medium"},{"name":"b","confidence":0},{"name":"c"}]`,
			expected: []FoodObservation{
				{Name: "a", Confidence: 10, EstimatedSize: SizeMedium},
				{Name: "b", Confidence: 1, EstimatedSize: SizeMedium},
				{Name: "c", Confidence: 5, EstimatedSize: SizeMedium},
			},
		},
		{
			name: "out of range confidence clamped before conversion",
			raw:  `[{"name":"salmon","confidence":1e19},{"name":"rice","confidence":-1e19},{"name":"tofu","confidence":"NaN"},{"name":"egg","confidence":"+Inf"}]`,
			expected: []FoodObservation{
				{Name: "salmon", Confidence: 10, EstimatedSize: SizeMedium},
				{Name: "rice", Confidence: 1, EstimatedSize: SizeMedium},
				{Name: "tofu", Confidence: 5, EstimatedSize: SizeMedium},
				{Name: "egg", Confidence: 10, EstimatedSize: SizeMedium},
			},
		},
		{
			name: "missing name",
			raw:  `[{"confidence":3,"estimated_size":"unknown"}]`,
			expected: []FoodObservation{
				{Name: "unidentified food", Confidence: 3, EstimatedSize: SizeUnknown},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			foods, err := Parse(tt.raw)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, foods)
		})
	}
}

func TestParse_PreservesArrayLength(t *testing.T) {
	for n := 0; n < 6; n++ {
		items := make([]map[string]any, n)
		for i := range items {
			items[i] = map[string]any{
				"name":           "food",
				"confidence":     i + 1,
				"visual_cues":    "cue",
				"estimated_size": "small",
			}
		}
		raw, err := json.Marshal(items)
		require.NoError(t, err)

		foods, err := Parse(string(raw))
		require.NoError(t, err)
		assert.Len(t, foods, n)
	}
}

func TestParse_Malformed(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{name: "empty", raw: "   "},
		{name: "prose", raw: "I can see a boiled egg next to some toast."},
		{name: "truncated array", raw: `[{"name":"egg","confidence":8`},
		{name: "trailing garbage", raw: `[{"name":"egg"}] and that's all`},
		{name: "fenced prose", raw: "```\nno food here\n```"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.raw)
			require.Error(t, err)
			assert.True(t, eris.Is(err, ErrMalformedOutput))
		})
	}
}

func TestParseSize(t *testing.T) {
	tests := map[string]Size{
		"small":       SizeSmall,
		" Medium ":    SizeMedium,
		"LARGE":       SizeLarge,
		"extra_large": SizeExtraLarge,
		"extra-large": SizeExtraLarge,
		"XL":          SizeExtraLarge,
		"unknown":     SizeUnknown,
		"":            SizeMedium,
		"huge-ish":    SizeMedium,
	}
	for in, want := range tests {
		assert.Equal(t, want, ParseSize(in), in)
	}
}

func TestInstructionPrompt(t *testing.T) {
	prompt := InstructionPrompt()
	assert.Contains(t, prompt, `"estimated_size"`)
	assert.Contains(t, prompt, `"extra_large"`)
	assert.Contains(t, prompt, "grilled chicken breast")
	assert.False(t, strings.Contains(prompt, "%!"), "template must be fully formatted")

	var schema map[string]any
	start := strings.Index(prompt, "{\n")
	require.GreaterOrEqual(t, start, 0)
	dec := json.NewDecoder(strings.NewReader(prompt[start:]))
	require.NoError(t, dec.Decode(&schema))
	assert.Equal(t, "array", schema["type"])
}
