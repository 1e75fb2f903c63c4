package matcher

import (
	"log/slog"
	"sort"
	"strings"

	"proteinagent/nutrition"
	"proteinagent/vision"
)

// AcceptThreshold is exclusive: a best score of exactly 0.5 is unmatched.
const AcceptThreshold = 0.5

const (
	ReasonNoMatch       = "No database match found"
	ReasonLowConfidence = "Low match confidence"
	SuggestionManual    = "Manual entry required"
)

// Candidate is a reference entry and its score for a query.
type Candidate struct {
	Entry *nutrition.Entry
	Score float64
}

// MatchedFood pairs an observation with its reference entry. MatchConfidence is the
// text-match score in [0,1]; CombinedConfidence folds in the model's own 1-10 score.
type MatchedFood struct {
	Observation        vision.FoodObservation `json:"ai_identification"`
	Entry              *nutrition.Entry       `json:"-"`
	FoodID             string                 `json:"food_id"`
	FoodName           string                 `json:"food_name"`
	MatchConfidence    float64                `json:"match_confidence"`
	CombinedConfidence float64                `json:"combined_confidence"`
}

// UnmatchedFood is an observation that needs manual entry.
type UnmatchedFood struct {
	Observation vision.FoodObservation `json:"ai_identification"`
	Reason      string                 `json:"reason"`
	Suggestion  string                 `json:"suggestions"`
	BestScore   float64                `json:"best_score"`
}

// Result partitions observations. Both slices keep input order.
type Result struct {
	Matched     []MatchedFood   `json:"matched_foods"`
	Unmatched   []UnmatchedFood `json:"unmatched_foods"`
	SuccessRate float64         `json:"match_success_rate"`
}

// Matcher scores observations against a reference table. It holds no mutable state.
type Matcher struct {
	table *nutrition.Table
}

func New(table *nutrition.Table) *Matcher {
	if table == nil {
		table = nutrition.Default()
	}
	return &Matcher{table: table}
}

// Search returns every entry with a positive score, best first. Ties keep table
// order, except that boosted entries come first.
func (m *Matcher) Search(query string) []Candidate {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return nil
	}

	boosted := make(map[string]float64)
	for _, b := range Boosts {
		if b.Applies(q) {
			boosted[b.FoodID] = max(boosted[b.FoodID], b.Score)
		}
	}

	var out []Candidate
	for i := 0; i < m.table.Len(); i++ {
		e := m.table.At(i)
		s := scoreEntry(q, e)
		if b, ok := boosted[e.ID]; ok {
			s = max(s, b)
		}
		if s > 0 {
			out = append(out, Candidate{Entry: e, Score: s})
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		_, bi := boosted[out[i].Entry.ID]
		_, bj := boosted[out[j].Entry.ID]
		return bi && !bj
	})
	return out
}

// Best returns the top candidate for a query.
func (m *Matcher) Best(query string) (Candidate, bool) {
	c := m.Search(query)
	if len(c) == 0 {
		return Candidate{}, false
	}
	return c[0], true
}

// Match partitions observations into matched and unmatched foods.
func (m *Matcher) Match(observations []vision.FoodObservation) Result {
	res := Result{
		Matched:   []MatchedFood{},
		Unmatched: []UnmatchedFood{},
	}

	for _, obs := range observations {
		best, ok := m.Best(obs.Name)
		switch {
		case !ok:
			res.Unmatched = append(res.Unmatched, UnmatchedFood{
				Observation: obs,
				Reason:      ReasonNoMatch,
				Suggestion:  SuggestionManual,
			})
		case best.Score <= AcceptThreshold:
			res.Unmatched = append(res.Unmatched, UnmatchedFood{
				Observation: obs,
				Reason:      ReasonLowConfidence,
				Suggestion:  SuggestionManual,
				BestScore:   best.Score,
			})
		default:
			res.Matched = append(res.Matched, MatchedFood{
				Observation:        obs,
				Entry:              best.Entry,
				FoodID:             best.Entry.ID,
				FoodName:           best.Entry.DisplayName,
				MatchConfidence:    best.Score,
				CombinedConfidence: CombinedConfidence(obs.Confidence, best.Score),
			})
		}
	}

	if len(observations) > 0 {
		res.SuccessRate = float64(len(res.Matched)) / float64(len(observations))
	}

	slog.Info("MATCHER: Matched observations",
		"observations", len(observations),
		"matched", len(res.Matched),
		"unmatched", len(res.Unmatched))

	return res
}

// CombinedConfidence scales a 1-10 model confidence by a 0-1 match score.
func CombinedConfidence(modelConfidence int, matchScore float64) float64 {
	return float64(modelConfidence) / 10 * matchScore
}
