package bedrock

import (
	"context"
	"log/slog"
	"strings"

	"proteinagent/vision"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
	"github.com/rotisserie/eris"
)

const (
	// defaultModelID is an inference profile ID, not the foundation model's ID.
	// See https://docs.aws.amazon.com/bedrock/latest/userguide/inference-profiles.html.
	defaultModelID = "us.anthropic.claude-3-7-sonnet-20250219-v1:0"

	// A full plate rarely needs more than a dozen observations.
	defaultMaxTokens = 1500

	// Low temperature keeps the JSON output stable across uploads of similar photos.
	defaultTemperature = 0.1

	defaultTopP = 0.9
)

type bedrockRuntimeClient interface {
	Converse(context.Context, *bedrockruntime.ConverseInput, ...func(*bedrockruntime.Options)) (*bedrockruntime.ConverseOutput, error)
}

type Options struct {
	ModelID     string
	MaxTokens   int32
	Temperature float32
	TopP        float32
}

// Model describes meal photos with a Bedrock-hosted multimodal model via the Converse API.
type Model struct {
	brc  bedrockRuntimeClient
	opts Options
}

func NewModel(brc bedrockRuntimeClient, opts Options) *Model {
	if opts.ModelID == "" {
		opts.ModelID = defaultModelID
	}
	if opts.MaxTokens == 0 {
		opts.MaxTokens = defaultMaxTokens
	}
	if opts.Temperature == 0 {
		opts.Temperature = defaultTemperature
	}
	if opts.TopP == 0 {
		opts.TopP = defaultTopP
	}
	return &Model{
		brc:  brc,
		opts: opts,
	}
}

func (m *Model) Describe(ctx context.Context, req vision.Request) (string, error) {
	format, err := imageFormat(req.Image.MediaType)
	if err != nil {
		return "", err
	}

	slog.Info("BEDROCK: Invoked", "model_id", m.opts.ModelID, "image_bytes", len(req.Image.Data), "format", format)

	in := &bedrockruntime.ConverseInput{
		ModelId: aws.String(m.opts.ModelID),
		System: []types.SystemContentBlock{
			&types.SystemContentBlockMemberText{Value: req.SystemPrompt},
		},
		Messages: []types.Message{
			{
				Role: types.ConversationRoleUser,
				Content: []types.ContentBlock{
					&types.ContentBlockMemberImage{Value: types.ImageBlock{
						Format: format,
						Source: &types.ImageSourceMemberBytes{Value: req.Image.Data},
					}},
					&types.ContentBlockMemberText{Value: req.Prompt},
				},
			},
		},
		InferenceConfig: &types.InferenceConfiguration{
			MaxTokens:   aws.Int32(m.opts.MaxTokens),
			Temperature: aws.Float32(m.opts.Temperature),
			TopP:        aws.Float32(m.opts.TopP),
		},
	}

	out, err := m.brc.Converse(ctx, in)
	if err != nil {
		slog.Error("BEDROCK: Converse failed", "error", err)
		return "", eris.Wrap(err, "bedrock: converse")
	}

	attrs := []any{"stop_reason", out.StopReason}
	if out.Metrics != nil {
		attrs = append(attrs, "latency_ms", aws.ToInt64(out.Metrics.LatencyMs))
	}
	if out.Usage != nil {
		attrs = append(attrs,
			"input_tokens", aws.ToInt32(out.Usage.InputTokens),
			"output_tokens", aws.ToInt32(out.Usage.OutputTokens))
	}
	slog.Info("BEDROCK: Converse succeeded", attrs...)

	switch out.StopReason {
	case types.StopReasonMaxTokens:
		slog.Warn("BEDROCK: Model hit MaxTokens limit; consider increasing MAX_TOKENS")
		return "", eris.New("bedrock: model hit MaxTokens limit")
	case types.StopReasonGuardrailIntervened, types.StopReasonContentFiltered:
		slog.Warn("BEDROCK: Model response blocked by safety filters")
		return "", eris.New("bedrock: response blocked by safety filters")
	}

	return textFromOutput(out), nil
}

func imageFormat(mediaType string) (types.ImageFormat, error) {
	switch strings.ToLower(mediaType) {
	case "image/jpeg", "image/jpg", "":
		return types.ImageFormatJpeg, nil
	case "image/png":
		return types.ImageFormatPng, nil
	case "image/gif":
		return types.ImageFormatGif, nil
	case "image/webp":
		return types.ImageFormatWebp, nil
	}
	return "", eris.Errorf("bedrock: unsupported image type %q", mediaType)
}

// textFromOutput joins the assistant's text blocks with newlines.
func textFromOutput(out *bedrockruntime.ConverseOutput) string {
	if out == nil || out.Output == nil {
		return ""
	}
	msg, ok := out.Output.(*types.ConverseOutputMemberMessage)
	if !ok || msg == nil {
		return ""
	}
	texts := make([]string, 0, len(msg.Value.Content))
	for _, cb := range msg.Value.Content {
		if t, ok := cb.(*types.ContentBlockMemberText); ok && t != nil && t.Value != "" {
			texts = append(texts, t.Value)
		}
	}
	return strings.Join(texts, "\n")
}
