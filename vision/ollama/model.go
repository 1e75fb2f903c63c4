package ollama

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"proteinagent"
	"proteinagent/vision"

	"github.com/rotisserie/eris"
)

const defaultModelID = "llama3.2-vision"

type options struct {
	Temperature   float64 `json:"temperature,omitempty"`
	TopP          float64 `json:"top_p,omitempty"`
	RepeatPenalty float64 `json:"repeat_penalty,omitempty"`
	NumCtx        int     `json:"num_ctx,omitempty"`
	NumPredict    int     `json:"num_predict,omitempty"`
}

// Model describes meal photos with a local Ollama vision model.
type Model struct {
	endpoint   string
	model      string
	httpClient proteinagent.HTTPClient
	options    options
}

type ModelOpts struct {
	BaseEndpoint string
	ModelID      string
	MaxTokens    int
	HTTPClient   proteinagent.HTTPClient
}

func NewModel(opts ModelOpts) (*Model, error) {
	if opts.BaseEndpoint == "" {
		return nil, eris.New("ollama: base endpoint is required")
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}
	if opts.ModelID == "" {
		opts.ModelID = defaultModelID
	}

	return &Model{
		model:      opts.ModelID,
		httpClient: opts.HTTPClient,
		endpoint:   strings.TrimRight(opts.BaseEndpoint, "/") + "/api/chat",
		options: options{
			Temperature:   0.1,
			TopP:          0.9,
			RepeatPenalty: 1.05,
			NumCtx:        8192,
			NumPredict:    opts.MaxTokens,
		},
	}, nil
}

type wireMessage struct {
	Role    string   `json:"role"`
	Content string   `json:"content"`
	Images  []string `json:"images,omitempty"`
}

type wireRequest struct {
	Model    string        `json:"model"`
	Messages []wireMessage `json:"messages"`
	Stream   bool          `json:"stream"`
	Options  options       `json:"options,omitempty"`
}

type wireResponse struct {
	Message wireMessage `json:"message"`
	Done    bool        `json:"done"`
}

// Describe posts the image as a base64 attachment on the user message and returns the
// assistant's content verbatim.
func (m *Model) Describe(ctx context.Context, req vision.Request) (string, error) {
	slog.Info("OLLAMA: Invoked", "model", m.model, "image_bytes", len(req.Image.Data))

	messages := make([]wireMessage, 0, 2)
	if req.SystemPrompt != "" {
		messages = append(messages, wireMessage{Role: "system", Content: req.SystemPrompt})
	}
	messages = append(messages, wireMessage{
		Role:    "user",
		Content: req.Prompt,
		Images:  []string{base64.StdEncoding.EncodeToString(req.Image.Data)},
	})

	reqBytes, err := json.Marshal(wireRequest{
		Model:    m.model,
		Messages: messages,
		Stream:   false,
		Options:  m.options,
	})
	if err != nil {
		return "", eris.Wrap(err, "ollama: marshal request")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, m.endpoint, bytes.NewBuffer(reqBytes))
	if err != nil {
		return "", eris.Wrap(err, "ollama: build request")
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := m.httpClient.Do(httpReq)
	if err != nil {
		return "", eris.Wrap(err, "ollama: chat")
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return "", eris.Errorf("ollama: %s: %s", resp.Status, string(body))
	}

	var wr wireResponse
	if err := json.Unmarshal(body, &wr); err != nil {
		slog.Warn("OLLAMA: decode failed, returning raw body", "err", err)
		return string(body), nil
	}

	return wr.Message.Content, nil
}
