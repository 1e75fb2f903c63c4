package feedback

import (
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"slices"
	"strings"

	"proteinagent/storage"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
)

// Kind names a feedback category. It doubles as the URL path segment.
type Kind string

const (
	KindFoodDetection   Kind = "food-detection"
	KindProteinEstimate Kind = "protein-estimate"
	KindResponseQuality Kind = "response-quality"
	KindPortionSize     Kind = "portion-size"
)

var Kinds = []Kind{KindFoodDetection, KindProteinEstimate, KindResponseQuality, KindPortionSize}

var (
	ErrUnknownKind = eris.New("unknown feedback kind")
	ErrInvalid     = eris.New("invalid feedback")
)

const (
	MinRating = 1
	MaxRating = 5

	// ReviewRating is the rating at or below which feedback is sent for review.
	ReviewRating = 2
	// ReviewAccuracy is the food detection accuracy below which feedback is sent for review.
	ReviewAccuracy = 0.5
)

var prefixes = map[Kind]string{
	KindFoodDetection:   "fd",
	KindProteinEstimate: "pe",
	KindResponseQuality: "rq",
	KindPortionSize:     "ps",
}

var messages = map[Kind]string{
	KindFoodDetection:   "Food detection feedback recorded successfully",
	KindProteinEstimate: "Protein estimate feedback recorded successfully",
	KindResponseQuality: "Response quality feedback recorded successfully",
	KindPortionSize:     "Portion size feedback recorded successfully",
}

// Submission is one human feedback payload.
type Submission interface {
	Kind() Kind
	Span() string
	Validate() error
	// Score is the headline number: accuracy 0-1 for food detection, a 1-5 rating
	// or mean rating otherwise.
	Score() float64
	NeedsReview() bool
}

type FoodDetection struct {
	SpanID         string   `json:"span_id"`
	DetectedFoods  []string `json:"detected_foods"`
	ActualFoods    []string `json:"actual_foods"`
	MissingFoods   []string `json:"missing_foods"`
	IncorrectFoods []string `json:"incorrect_foods"`
	AccuracyScore  float64  `json:"accuracy_score"`
	Notes          string   `json:"notes,omitempty"`
}

func (f *FoodDetection) Kind() Kind     { return KindFoodDetection }
func (f *FoodDetection) Span() string   { return f.SpanID }
func (f *FoodDetection) Score() float64 { return f.AccuracyScore }

func (f *FoodDetection) Validate() error {
	if err := validSpan(f.SpanID); err != nil {
		return err
	}
	if f.AccuracyScore < 0 || f.AccuracyScore > 1 {
		return eris.Wrapf(ErrInvalid, "accuracy_score %v must be between 0 and 1", f.AccuracyScore)
	}
	return nil
}

func (f *FoodDetection) NeedsReview() bool {
	return f.AccuracyScore < ReviewAccuracy || len(f.MissingFoods) > 0 || len(f.IncorrectFoods) > 0
}

type ProteinEstimate struct {
	SpanID           string   `json:"span_id"`
	EstimatedProtein float64  `json:"estimated_protein"`
	ActualProtein    *float64 `json:"actual_protein,omitempty"`
	AccuracyRating   int      `json:"accuracy_rating"`
	IsOverestimate   *bool    `json:"is_overestimate,omitempty"`
	IsUnderestimate  *bool    `json:"is_underestimate,omitempty"`
	Notes            string   `json:"notes,omitempty"`
}

func (p *ProteinEstimate) Kind() Kind     { return KindProteinEstimate }
func (p *ProteinEstimate) Span() string   { return p.SpanID }
func (p *ProteinEstimate) Score() float64 { return float64(p.AccuracyRating) }

func (p *ProteinEstimate) Validate() error {
	if err := validSpan(p.SpanID); err != nil {
		return err
	}
	return validRating("accuracy_rating", p.AccuracyRating)
}

func (p *ProteinEstimate) NeedsReview() bool { return p.AccuracyRating <= ReviewRating }

type ResponseQuality struct {
	SpanID         string `json:"span_id"`
	Helpfulness    int    `json:"helpfulness"`
	Accuracy       int    `json:"accuracy"`
	Clarity        int    `json:"clarity"`
	Tone           int    `json:"tone"`
	OverallQuality int    `json:"overall_quality"`
	Suggestions    string `json:"suggestions,omitempty"`
}

func (r *ResponseQuality) Kind() Kind   { return KindResponseQuality }
func (r *ResponseQuality) Span() string { return r.SpanID }

// Score is the mean of the five ratings.
func (r *ResponseQuality) Score() float64 {
	return float64(r.Helpfulness+r.Accuracy+r.Clarity+r.Tone+r.OverallQuality) / 5
}

func (r *ResponseQuality) Validate() error {
	if err := validSpan(r.SpanID); err != nil {
		return err
	}
	for _, f := range []struct {
		name  string
		value int
	}{
		{"helpfulness", r.Helpfulness},
		{"accuracy", r.Accuracy},
		{"clarity", r.Clarity},
		{"tone", r.Tone},
		{"overall_quality", r.OverallQuality},
	} {
		if err := validRating(f.name, f.value); err != nil {
			return err
		}
	}
	return nil
}

func (r *ResponseQuality) NeedsReview() bool { return r.Score() <= ReviewRating }

type PortionSize struct {
	SpanID                string            `json:"span_id"`
	PortionSuggestions    map[string]string `json:"portion_suggestions"`
	AccuracyRatings       map[string]int    `json:"accuracy_ratings"`
	WerePortionsRealistic bool              `json:"were_portions_realistic"`
	Notes                 string            `json:"notes,omitempty"`
}

func (p *PortionSize) Kind() Kind   { return KindPortionSize }
func (p *PortionSize) Span() string { return p.SpanID }

// Score is the mean accuracy rating.
func (p *PortionSize) Score() float64 {
	if len(p.AccuracyRatings) == 0 {
		return 0
	}
	var sum int
	for _, v := range p.AccuracyRatings {
		sum += v
	}
	return float64(sum) / float64(len(p.AccuracyRatings))
}

func (p *PortionSize) Validate() error {
	if err := validSpan(p.SpanID); err != nil {
		return err
	}
	if len(p.AccuracyRatings) == 0 {
		return eris.Wrap(ErrInvalid, "accuracy_ratings must not be empty")
	}
	for _, food := range slices.Sorted(maps.Keys(p.AccuracyRatings)) {
		if err := validRating("accuracy_ratings["+food+"]", p.AccuracyRatings[food]); err != nil {
			return err
		}
	}
	return nil
}

func (p *PortionSize) NeedsReview() bool {
	return !p.WerePortionsRealistic || p.Score() <= ReviewRating
}

func validSpan(spanID string) error {
	if strings.TrimSpace(spanID) == "" {
		return eris.Wrap(ErrInvalid, "span_id is required")
	}
	return nil
}

func validRating(field string, v int) error {
	if v < MinRating || v > MaxRating {
		return eris.Wrapf(ErrInvalid, "%s %d must be between %d and %d", field, v, MinRating, MaxRating)
	}
	return nil
}

// ParseKind validates a kind from a URL segment.
func ParseKind(s string) (Kind, error) {
	k := Kind(s)
	if _, ok := prefixes[k]; !ok {
		return "", eris.Wrap(ErrUnknownKind, s)
	}
	return k, nil
}

// Decode reads a submission of the given kind and validates it.
func Decode(kind Kind, r io.Reader) (Submission, error) {
	var sub Submission
	switch kind {
	case KindFoodDetection:
		sub = &FoodDetection{}
	case KindProteinEstimate:
		sub = &ProteinEstimate{}
	case KindResponseQuality:
		sub = &ResponseQuality{}
	case KindPortionSize:
		sub = &PortionSize{}
	default:
		return nil, eris.Wrap(ErrUnknownKind, string(kind))
	}

	if err := json.NewDecoder(r).Decode(sub); err != nil {
		return nil, eris.Wrapf(ErrInvalid, "malformed %s feedback: %v", kind, err)
	}
	if err := sub.Validate(); err != nil {
		return nil, err
	}
	return sub, nil
}

// NewID returns "{prefix}_{span}_{uuid}".
func NewID(kind Kind, spanID string) string {
	return fmt.Sprintf("%s_%s_%s", prefixes[kind], spanID, uuid.NewString())
}

// Message is the acknowledgement returned to the submitter.
func Message(kind Kind) string {
	return messages[kind]
}

// Record turns a validated submission into a storable record with a fresh ID.
func Record(sub Submission) (storage.FeedbackRecord, error) {
	payload, err := json.Marshal(sub)
	if err != nil {
		return storage.FeedbackRecord{}, eris.Wrap(err, "failed to marshal feedback")
	}
	return storage.FeedbackRecord{
		ID:      NewID(sub.Kind(), sub.Span()),
		Kind:    string(sub.Kind()),
		SpanID:  sub.Span(),
		Score:   sub.Score(),
		Payload: payload,
	}, nil
}

// ReviewMessage is posted to the review channel for poorly rated analyses.
func ReviewMessage(sub Submission, feedbackID string) string {
	return fmt.Sprintf("Feedback needs review: %s on span %s scored %.2f (feedback %s)",
		sub.Kind(), sub.Span(), sub.Score(), feedbackID)
}
