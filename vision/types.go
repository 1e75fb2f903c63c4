package vision

import (
	"bytes"
	"context"
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Size is the model's estimate of a food's amount relative to a typical serving.
type Size string

const (
	SizeSmall      Size = "small"
	SizeMedium     Size = "medium"
	SizeLarge      Size = "large"
	SizeExtraLarge Size = "extra_large"
	SizeUnknown    Size = "unknown"
)

// ParseSize normalises a size string. Empty or unrecognised values become medium;
// an explicit "unknown" is kept so callers can tell it apart.
func ParseSize(s string) Size {
	v := strings.ToLower(strings.TrimSpace(s))
	v = strings.NewReplacer(" ", "_", "-", "_").Replace(v)
	switch Size(v) {
	case SizeSmall, SizeMedium, SizeLarge, SizeExtraLarge, SizeUnknown:
		return Size(v)
	case "xl", "x_large", "very_large":
		return SizeExtraLarge
	}
	return SizeMedium
}

const (
	MinConfidence     = 1
	MaxConfidence     = 10
	DefaultConfidence = 5
)

// FoodObservation is one food the vision model claims to see.
type FoodObservation struct {
	Name          string `json:"name"`
	Confidence    int    `json:"confidence"`
	VisualCues    string `json:"visual_cues"`
	EstimatedSize Size   `json:"estimated_size"`
	Preparation   string `json:"preparation"`
	Notes         string `json:"notes,omitempty"`
}

// Image is an uploaded meal photo.
type Image struct {
	Data      []byte
	MediaType string
}

// Request is a single vision call.
type Request struct {
	Image        Image
	SystemPrompt string
	Prompt       string
}

// Model is a vision-capable language model that returns raw completion text.
type Model interface {
	Describe(ctx context.Context, req Request) (string, error)
}

// Result is the outcome of identifying foods in one image. A failed call has
// Success=false, no foods and an Error message.
type Result struct {
	Success     bool              `json:"success"`
	Foods       []FoodObservation `json:"identified_foods"`
	TotalFound  int               `json:"total_foods_found"`
	RawResponse string            `json:"raw_response"`
	Fallback    bool              `json:"fallback,omitempty"`
	Error       string            `json:"error,omitempty"`
}

// flexInt accepts 8, 8.5 and "8" as a confidence. Values are clamped to the
// confidence range before conversion; NaN is left unset.
type flexInt struct {
	value int
	set   bool
}

func (f *flexInt) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		return nil
	}
	s := strings.Trim(string(b), `"`)
	if s == "" {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return err
	}
	if math.IsNaN(v) {
		return nil
	}
	v = min(max(v, MinConfidence), MaxConfidence)
	f.value = int(math.Round(v))
	f.set = true
	return nil
}

// flexText accepts either a string or a list of strings.
type flexText string

func (f *flexText) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		return nil
	}
	if len(b) > 0 && b[0] == '[' {
		var parts []string
		if err := json.Unmarshal(b, &parts); err != nil {
			return err
		}
		*f = flexText(strings.Join(parts, ", "))
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	*f = flexText(s)
	return nil
}

type wireObservation struct {
	Name          string   `json:"name"`
	Confidence    flexInt  `json:"confidence"`
	VisualCues    flexText `json:"visual_cues"`
	EstimatedSize string   `json:"estimated_size"`
	Preparation   string   `json:"preparation"`
	Notes         flexText `json:"notes"`
}

func (w wireObservation) observation() FoodObservation {
	conf := DefaultConfidence
	if w.Confidence.set {
		conf = min(max(w.Confidence.value, MinConfidence), MaxConfidence)
	}
	name := strings.TrimSpace(w.Name)
	if name == "" {
		name = "unidentified food"
	}
	return FoodObservation{
		Name:          name,
		Confidence:    conf,
		VisualCues:    strings.TrimSpace(string(w.VisualCues)),
		EstimatedSize: ParseSize(w.EstimatedSize),
		Preparation:   strings.TrimSpace(w.Preparation),
		Notes:         strings.TrimSpace(string(w.Notes)),
	}
}
