package vision

import (
	"encoding/json"
	"strings"

	"github.com/rotisserie/eris"
)

// ErrMalformedOutput is returned by Parse when the text is not a JSON observation list.
var ErrMalformedOutput = eris.New("malformed model output")

// Parse decodes a model response into observations. Code fences around the JSON are
// ignored and a single object is treated as a one-element list.
func Parse(raw string) ([]FoodObservation, error) {
	body := stripFences(raw)
	if body == "" {
		return nil, eris.Wrap(ErrMalformedOutput, "empty response")
	}

	var wire []wireObservation
	switch body[0] {
	case '[':
		if err := json.Unmarshal([]byte(body), &wire); err != nil {
			return nil, eris.Wrapf(ErrMalformedOutput, "decode array: %v", err)
		}
	case '{':
		var one wireObservation
		if err := json.Unmarshal([]byte(body), &one); err != nil {
			return nil, eris.Wrapf(ErrMalformedOutput, "decode object: %v", err)
		}
		wire = []wireObservation{one}
	default:
		return nil, eris.Wrap(ErrMalformedOutput, "response is not JSON")
	}

	foods := make([]FoodObservation, 0, len(wire))
	for _, w := range wire {
		foods = append(foods, w.observation())
	}
	return foods, nil
}

// stripFences removes a leading ``` or ```json line and a trailing ``` line.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		if i := strings.IndexByte(s, '\n'); i >= 0 {
			s = s[i+1:]
		} else {
			s = strings.TrimPrefix(strings.TrimPrefix(s, "```json"), "```")
		}
	}
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
