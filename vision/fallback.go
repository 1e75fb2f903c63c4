package vision

import (
	"strings"
)

const rawExcerptLen = 200

// fallbackRule synthesises an observation when its predicate matches the lowercased
// response text. Rules are tried in order; the last one always matches.
type fallbackRule struct {
	name  string
	match func(text string) bool
	build func(raw string) FoodObservation
}

var fallbackRules = []fallbackRule{
	{
		name:  "egg",
		match: containsAny("egg"),
		build: func(raw string) FoodObservation {
			return FoodObservation{
				Name:          "hard-boiled egg",
				Confidence:    8,
				VisualCues:    "oval white object with egg appearance",
				EstimatedSize: SizeMedium,
				Preparation:   "boiled",
				Notes:         "Extracted from AI response: " + strings.TrimSpace(raw),
			}
		},
	},
	{
		name:  "meat",
		match: containsAny("chicken", "breast", "meat"),
		build: func(raw string) FoodObservation {
			return FoodObservation{
				Name:          "chicken",
				Confidence:    7,
				VisualCues:    "meat-like appearance",
				EstimatedSize: SizeMedium,
				Preparation:   "cooked",
				Notes:         "Extracted from AI response: " + strings.TrimSpace(raw),
			}
		},
	},
	{
		name: "no_food",
		match: func(text string) bool {
			return strings.Contains(text, "no") && containsAny("food", "clear")(text)
		},
		build: func(raw string) FoodObservation {
			return FoodObservation{
				Name:          UnclearImageName,
				Confidence:    2,
				VisualCues:    "image quality issues",
				EstimatedSize: SizeUnknown,
				Preparation:   "unknown",
				Notes:         "AI couldn't identify clear foods. Response: " + strings.TrimSpace(raw),
			}
		},
	},
	{
		name:  "generic",
		match: func(string) bool { return true },
		build: func(raw string) FoodObservation {
			return FoodObservation{
				Name:          "unidentified food",
				Confidence:    4,
				VisualCues:    "AI provided response but unclear format",
				EstimatedSize: SizeMedium,
				Preparation:   "unknown",
				Notes:         "Response: " + excerpt(raw),
			}
		},
	},
}

// UnclearImageName marks an image the model could not read, as opposed to a plate
// with nothing on it.
const UnclearImageName = "unclear image"

// Fallback extracts a best-guess observation from a non-JSON response. It always
// returns exactly one observation along with the name of the rule that produced it.
func Fallback(raw string) (FoodObservation, string) {
	text := strings.ToLower(strings.TrimSpace(raw))
	for _, r := range fallbackRules {
		if r.match(text) {
			return r.build(raw), r.name
		}
	}
	// unreachable: the generic rule matches everything
	last := fallbackRules[len(fallbackRules)-1]
	return last.build(raw), last.name
}

func containsAny(terms ...string) func(string) bool {
	return func(text string) bool {
		for _, t := range terms {
			if strings.Contains(text, t) {
				return true
			}
		}
		return false
	}
}

// excerpt shortens the generic rule's notes; the specific rules keep the full text.
func excerpt(raw string) string {
	raw = strings.TrimSpace(raw)
	r := []rune(raw)
	if len(r) <= rawExcerptLen {
		return raw
	}
	return string(r[:rawExcerptLen]) + "..."
}
