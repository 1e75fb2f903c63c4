package vision

import (
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/jsonschema"
)

// PromptVersion identifies the prompt text. It is part of the response cache key.
const PromptVersion = "smart-food-id-v1.0"

const systemPrompt = `You are a food identification expert. Analyze images to identify foods with confidence levels.

IMPORTANT: Focus on IDENTIFICATION, not precise nutrition calculations. Be honest about what you can and cannot see clearly.

For each food you identify, provide:
1. Food name (be specific: "grilled chicken breast" not just "chicken")
2. Confidence level (1-10, where 10 = absolutely certain)
3. Visual reasoning (what visual cues led to identification)
4. Estimated relative size (small/medium/large compared to typical portions)
5. Preparation method if visible (grilled, fried, steamed, etc.)

If you're unsure about something, say so! It's better to be honest than guess.`

const instructionTemplate = `Analyze this meal image and identify the foods present.

For each food item, provide a JSON structure with:
- "name": specific food name
- "confidence": 1-10 confidence score
- "visual_cues": what you see that led to this identification
- "estimated_size": "small", "medium", "large" or "extra_large" relative to typical portions
- "preparation": cooking method if visible
- "notes": any uncertainty or additional observations

Format your response as a JSON array of food items that validates against this JSON schema:
%s

Be thorough but honest about limitations. Respond with the JSON array only.

Example format:
[
  {
    "name": "grilled chicken breast",
    "confidence": 8,
    "visual_cues": "white meat, grill marks visible, lean appearance",
    "estimated_size": "medium",
    "preparation": "grilled",
    "notes": "appears to be about 5-6oz based on plate proportion"
  }
]`

// ObservationListSchema describes the array the model must return.
func ObservationListSchema() *jsonschema.Schema {
	minConf := float64(MinConfidence)
	maxConf := float64(MaxConfidence)
	return &jsonschema.Schema{
		Type: "array",
		Items: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"name":        {Type: "string", Description: "specific food name"},
				"confidence":  {Type: "integer", Minimum: &minConf, Maximum: &maxConf},
				"visual_cues": {Type: "string"},
				"estimated_size": {
					Type: "string",
					Enum: []any{string(SizeSmall), string(SizeMedium), string(SizeLarge), string(SizeExtraLarge)},
				},
				"preparation": {Type: "string"},
				"notes":       {Type: "string"},
			},
			Required: []string{"name", "confidence", "visual_cues", "estimated_size"},
		},
	}
}

// SystemPrompt returns the system instructions sent with every image.
func SystemPrompt() string { return systemPrompt }

// InstructionPrompt returns the user instruction with the output schema embedded.
func InstructionPrompt() string {
	schema, err := json.MarshalIndent(ObservationListSchema(), "", "  ")
	if err != nil {
		// Static schema; marshalling cannot fail.
		panic(err)
	}
	return fmt.Sprintf(instructionTemplate, schema)
}

// NewRequest builds the vision request for an image.
func NewRequest(img Image) Request {
	return Request{
		Image:        img,
		SystemPrompt: systemPrompt,
		Prompt:       InstructionPrompt(),
	}
}
