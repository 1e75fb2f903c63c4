package mock

import (
	"context"
	"crypto/sha256"
	"log/slog"

	"proteinagent/vision"
)

// Scenarios are canned replies covering the shapes real models produce: clean JSON,
// fenced JSON, prose and unknown dishes.
var Scenarios = []string{
	`[
  {"name": "grilled chicken breast", "confidence": 8, "visual_cues": "white meat, grill marks visible, lean appearance", "estimated_size": "medium", "preparation": "grilled", "notes": "appears to be about 5-6oz based on plate proportion"},
  {"name": "white rice", "confidence": 7, "visual_cues": "small white grains, fluffy texture", "estimated_size": "medium", "preparation": "steamed"},
  {"name": "broccoli", "confidence": 9, "visual_cues": "green florets", "estimated_size": "small", "preparation": "steamed"}
]`,
	"```json\n" + `[
  {"name": "scrambled eggs", "confidence": 9, "visual_cues": "yellow fluffy curds", "estimated_size": "large", "preparation": "scrambled"},
  {"name": "spinach", "confidence": 6, "visual_cues": "wilted dark green leaves", "estimated_size": "small", "preparation": "sauteed"}
]` + "\n```",
	`[
  {"name": "salmon fillet", "confidence": 8, "visual_cues": "pink/orange flesh, flaky", "estimated_size": "large", "preparation": "baked"},
  {"name": "mystery casserole", "confidence": 3, "visual_cues": "brown baked layers", "estimated_size": "medium", "preparation": "baked"}
]`,
	"I can see what looks like a plate with a boiled egg and some toast, but the lighting is poor.",
}

// Model returns a canned reply chosen deterministically from the image bytes, so the same
// photo always yields the same reply. It is a stand-in for local development and demos.
type Model struct {
	responses []string
}

// NewModel cycles through the given replies, or Scenarios if none are given.
func NewModel(responses ...string) *Model {
	if len(responses) == 0 {
		responses = Scenarios
	}
	return &Model{responses: responses}
}

func (m *Model) Describe(ctx context.Context, req vision.Request) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	sum := sha256.Sum256(req.Image.Data)
	i := int(sum[0]) % len(m.responses)
	slog.Info("MOCK_VISION: Returning canned reply", "scenario", i)
	return m.responses[i], nil
}
