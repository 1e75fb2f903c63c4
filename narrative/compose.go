package narrative

import (
	"fmt"
	"strings"

	"proteinagent/matcher"
	"proteinagent/portion"
)

const (
	Opening = "Here's what I can see in your meal:\n\n"
	Closing = "Does this look accurate? You can adjust any portions that seem off!"

	// NothingFound is returned when there is neither a suggestion nor an unmatched food.
	NothingFound = "I'm having trouble identifying foods in this image. Could you help me out by telling me what you're eating?"
)

// Compose renders the conversational reply for one analysis. The output depends only
// on its inputs.
func Compose(suggestions []portion.Suggestion, unmatched []matcher.UnmatchedFood) string {
	if len(suggestions) == 0 && len(unmatched) == 0 {
		return NothingFound
	}

	var b strings.Builder
	b.WriteString(Opening)

	var total float64
	for i, s := range suggestions {
		total += s.ProteinGrams
		fmt.Fprintf(&b, "%d. **%s** - %s\n", i+1, s.FoodName, s.PortionDescription)
		fmt.Fprintf(&b, "   🥩 Estimated protein: %.1fg\n", s.ProteinGrams)
		b.WriteString(confidenceLine(s.Confidence))
		fmt.Fprintf(&b, "   💭 %s\n\n", s.Explanation)
	}

	if len(unmatched) > 0 {
		b.WriteString("I also see some foods I'm not sure about:\n")
		for _, u := range unmatched {
			fmt.Fprintf(&b, "• %s - Could you help me identify this?\n", u.Observation.Name)
		}
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "**Total estimated protein: %.1fg**\n\n", total)
	b.WriteString(Closing)
	return b.String()
}

func confidenceLine(confidence int) string {
	switch {
	case confidence >= 8:
		return "   ✅ Very confident about this one\n"
	case confidence >= 6:
		return "   👍 Pretty sure about this\n"
	default:
		return "   🤔 Less certain - please double-check\n"
	}
}
