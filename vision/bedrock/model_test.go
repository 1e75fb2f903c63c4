package bedrock

import (
	"context"
	"errors"
	"testing"

	"proteinagent/vision"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockBedrockClient implements bedrockRuntimeClient for testing
type mockBedrockClient struct {
	response *bedrockruntime.ConverseOutput
	err      error
	input    *bedrockruntime.ConverseInput
}

func (m *mockBedrockClient) Converse(ctx context.Context, input *bedrockruntime.ConverseInput, opts ...func(*bedrockruntime.Options)) (*bedrockruntime.ConverseOutput, error) {
	m.input = input
	return m.response, m.err
}

func textOutput(stop types.StopReason, texts ...string) *bedrockruntime.ConverseOutput {
	content := make([]types.ContentBlock, 0, len(texts))
	for _, t := range texts {
		content = append(content, &types.ContentBlockMemberText{Value: t})
	}
	return &bedrockruntime.ConverseOutput{
		StopReason: stop,
		Output: &types.ConverseOutputMemberMessage{
			Value: types.Message{Role: types.ConversationRoleAssistant, Content: content},
		},
		Usage: &types.TokenUsage{
			InputTokens:  aws.Int32(1200),
			OutputTokens: aws.Int32(80),
		},
		Metrics: &types.ConverseMetrics{LatencyMs: aws.Int64(900)},
	}
}

func TestNewModel(t *testing.T) {
	tests := []struct {
		name     string
		input    Options
		expected Options
	}{
		{
			name:  "empty options uses defaults",
			input: Options{},
			expected: Options{
				ModelID:     defaultModelID,
				MaxTokens:   defaultMaxTokens,
				Temperature: defaultTemperature,
				TopP:        defaultTopP,
			},
		},
		{
			name:     "custom options preserved",
			input:    Options{ModelID: "custom-model", MaxTokens: 2048, Temperature: 0.5, TopP: 0.8},
			expected: Options{ModelID: "custom-model", MaxTokens: 2048, Temperature: 0.5, TopP: 0.8},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := &mockBedrockClient{}
			m := NewModel(client, tt.input)
			assert.Equal(t, tt.expected, m.opts)
		})
	}
}

func TestModel_Describe(t *testing.T) {
	req := vision.Request{
		Image:        vision.Image{Data: []byte{0x89, 'P', 'N', 'G'}, MediaType: "image/png"},
		SystemPrompt: "system",
		Prompt:       "identify",
	}

	tests := []struct {
		name          string
		req           vision.Request
		response      *bedrockruntime.ConverseOutput
		err           error
		expected      string
		expectedError string
	}{
		{
			name:     "end turn returns text",
			req:      req,
			response: textOutput(types.StopReasonEndTurn, `[{"name":"egg"}]`),
			expected: `[{"name":"egg"}]`,
		},
		{
			name:     "multiple text blocks joined",
			req:      req,
			response: textOutput(types.StopReasonEndTurn, "first", "second"),
			expected: "first\nsecond",
		},
		{
			name:          "max tokens",
			req:           req,
			response:      textOutput(types.StopReasonMaxTokens, `[{"name":`),
			expectedError: "MaxTokens",
		},
		{
			name:          "content filtered",
			req:           req,
			response:      textOutput(types.StopReasonContentFiltered),
			expectedError: "safety filters",
		},
		{
			name:          "converse error",
			req:           req,
			err:           errors.New("throttled"),
			expectedError: "throttled",
		},
		{
			name: "unsupported media type",
			req: vision.Request{
				Image: vision.Image{Data: []byte("x"), MediaType: "image/heic"},
			},
			expectedError: "unsupported image type",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := &mockBedrockClient{response: tt.response, err: tt.err}
			out, err := NewModel(client, Options{}).Describe(context.Background(), tt.req)
			if tt.expectedError != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.expectedError)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, out)
		})
	}
}

func TestModel_Describe_BuildsImageMessage(t *testing.T) {
	client := &mockBedrockClient{response: textOutput(types.StopReasonEndTurn, "[]")}
	data := []byte{0xff, 0xd8, 0xff}

	_, err := NewModel(client, Options{ModelID: "m"}).Describe(context.Background(), vision.Request{
		Image:        vision.Image{Data: data, MediaType: "image/jpeg"},
		SystemPrompt: "be honest",
		Prompt:       "list foods",
	})
	require.NoError(t, err)
	require.NotNil(t, client.input)

	assert.Equal(t, "m", aws.ToString(client.input.ModelId))
	require.Len(t, client.input.System, 1)
	assert.Equal(t, "be honest", client.input.System[0].(*types.SystemContentBlockMemberText).Value)

	require.Len(t, client.input.Messages, 1)
	content := client.input.Messages[0].Content
	require.Len(t, content, 2)

	img, ok := content[0].(*types.ContentBlockMemberImage)
	require.True(t, ok)
	assert.Equal(t, types.ImageFormatJpeg, img.Value.Format)
	assert.Equal(t, data, img.Value.Source.(*types.ImageSourceMemberBytes).Value)

	text, ok := content[1].(*types.ContentBlockMemberText)
	require.True(t, ok)
	assert.Equal(t, "list foods", text.Value)
	assert.Equal(t, float32(defaultTemperature), aws.ToFloat32(client.input.InferenceConfig.Temperature))
}
