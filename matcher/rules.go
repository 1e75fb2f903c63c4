package matcher

import (
	"strings"

	"proteinagent/nutrition"
)

// Rule scores a lowercased query against one entry. Zero means the rule does not apply.
type Rule struct {
	Name  string
	Score func(query string, e *nutrition.Entry) float64
}

// Tier is a group of rules whose best score stands for the entry. Tiers are tried in
// order and the first tier with a positive score wins, so a name hit is never
// overridden by a keyword hit.
type Tier []Rule

// Tiers is the scoring order: display name rules first, then keyword rules.
var Tiers = []Tier{
	{exactName, nameContains},
	{exactKeyword, wholeWordKeyword, keywordInQuery, queryInKeyword},
}

var (
	exactName = Rule{
		Name: "exact_name",
		Score: func(q string, e *nutrition.Entry) float64 {
			if q == strings.ToLower(e.DisplayName) {
				return 1.0
			}
			return 0
		},
	}
	nameContains = Rule{
		Name: "name_contains",
		Score: func(q string, e *nutrition.Entry) float64 {
			name := strings.ToLower(e.DisplayName)
			if strings.Contains(q, name) || strings.Contains(name, q) {
				return 0.8
			}
			return 0
		},
	}
	exactKeyword = Rule{
		Name: "exact_keyword",
		Score: func(q string, e *nutrition.Entry) float64 {
			return bestKeyword(e, func(kw string) bool { return kw == q }, 0.9)
		},
	}
	wholeWordKeyword = Rule{
		Name: "whole_word_keyword",
		Score: func(q string, e *nutrition.Entry) float64 {
			padded := " " + q + " "
			return bestKeyword(e, func(kw string) bool { return strings.Contains(padded, " "+kw+" ") }, 0.8)
		},
	}
	keywordInQuery = Rule{
		Name: "keyword_in_query",
		Score: func(q string, e *nutrition.Entry) float64 {
			return bestKeyword(e, func(kw string) bool { return strings.Contains(q, kw) }, 0.6)
		},
	}
	queryInKeyword = Rule{
		Name: "query_in_keyword",
		Score: func(q string, e *nutrition.Entry) float64 {
			return bestKeyword(e, func(kw string) bool { return strings.Contains(kw, q) }, 0.7)
		},
	}
)

func bestKeyword(e *nutrition.Entry, hit func(kw string) bool, score float64) float64 {
	for _, kw := range e.Keywords {
		if hit(strings.ToLower(kw)) {
			return score
		}
	}
	return 0
}

// Boost raises one entry's score for queries that would otherwise be ambiguous.
// Boosted entries also win ties against other entries.
type Boost struct {
	Name    string
	FoodID  string
	Score   float64
	Applies func(query string) bool
}

// Boosts are applied after tier scoring.
var Boosts = []Boost{
	{
		Name:   "egg",
		FoodID: "eggs",
		Score:  0.95,
		Applies: func(q string) bool {
			if !strings.Contains(q, "egg") {
				return false
			}
			for _, meat := range []string{"chicken breast", "beef", "pork"} {
				if strings.Contains(q, meat) {
					return false
				}
			}
			return true
		},
	},
}

// scoreEntry returns the tier score for one entry.
func scoreEntry(q string, e *nutrition.Entry) float64 {
	for _, tier := range Tiers {
		var best float64
		for _, r := range tier {
			best = max(best, r.Score(q, e))
		}
		if best > 0 {
			return best
		}
	}
	return 0
}
