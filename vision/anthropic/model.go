package anthropic

import (
	"context"
	"encoding/base64"
	"log/slog"
	"strings"

	"proteinagent/vision"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/rotisserie/eris"
)

const (
	defaultModelID     = "claude-sonnet-4-5-20250929"
	defaultMaxTokens   = 1500
	defaultTemperature = 0.1
)

type Options struct {
	ModelID     string
	MaxTokens   int64
	Temperature float64
}

// Model describes meal photos with the Anthropic Messages API.
type Model struct {
	client sdk.Client
	opts   Options
}

// NewModel creates a model client. Extra request options are passed to the SDK client,
// e.g. option.WithBaseURL in tests.
func NewModel(apiKey string, opts Options, reqOpts ...option.RequestOption) *Model {
	if opts.ModelID == "" {
		opts.ModelID = defaultModelID
	}
	if opts.MaxTokens == 0 {
		opts.MaxTokens = defaultMaxTokens
	}
	if opts.Temperature == 0 {
		opts.Temperature = defaultTemperature
	}
	return &Model{
		client: sdk.NewClient(append([]option.RequestOption{option.WithAPIKey(apiKey)}, reqOpts...)...),
		opts:   opts,
	}
}

func (m *Model) Describe(ctx context.Context, req vision.Request) (string, error) {
	mediaType := req.Image.MediaType
	if mediaType == "" {
		mediaType = "image/jpeg"
	}

	params := sdk.MessageNewParams{
		Model:       sdk.Model(m.opts.ModelID),
		MaxTokens:   m.opts.MaxTokens,
		Temperature: sdk.Float(m.opts.Temperature),
		Messages: []sdk.MessageParam{
			sdk.NewUserMessage(
				sdk.NewImageBlockBase64(mediaType, base64.StdEncoding.EncodeToString(req.Image.Data)),
				sdk.NewTextBlock(req.Prompt),
			),
		},
	}
	if req.SystemPrompt != "" {
		params.System = []sdk.TextBlockParam{{Text: req.SystemPrompt}}
	}

	msg, err := m.client.Messages.New(ctx, params)
	if err != nil {
		slog.Error("ANTHROPIC: Create message failed", "error", err)
		return "", eris.Wrap(err, "anthropic: create message")
	}

	slog.Info("ANTHROPIC: Create message succeeded",
		"model", string(msg.Model),
		"stop_reason", string(msg.StopReason),
		"input_tokens", msg.Usage.InputTokens,
		"output_tokens", msg.Usage.OutputTokens,
	)

	if msg.StopReason == sdk.StopReasonMaxTokens {
		return "", eris.New("anthropic: model hit max_tokens limit")
	}

	texts := make([]string, 0, len(msg.Content))
	for _, b := range msg.Content {
		if b.Type == "text" && b.Text != "" {
			texts = append(texts, b.Text)
		}
	}
	return strings.Join(texts, "\n"), nil
}
