package main

import (
	"context"
	"encoding/base64"
	"io"
	"log/slog"
	"path"

	"proteinagent"
	"proteinagent/matcher"
	"proteinagent/pipeline"
	"proteinagent/server"
	"proteinagent/vision"
	"proteinagent/vision/bedrock"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/joeshaw/envdecode"
	"github.com/rotisserie/eris"
)

// Params names the photo either as an S3 object or inline as base64.
type Params struct {
	Bucket      string `json:"bucket,omitempty"`
	Key         string `json:"key,omitempty"`
	ImageBase64 string `json:"image_base64,omitempty"`
	Filename    string `json:"filename,omitempty"`
}

type s3Getter interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// loadImage returns the photo bytes and a filename hint for media type detection.
func loadImage(ctx context.Context, s3c s3Getter, p Params) ([]byte, string, error) {
	if p.ImageBase64 != "" {
		data, err := base64.StdEncoding.DecodeString(p.ImageBase64)
		if err != nil {
			return nil, "", eris.Wrap(err, "invalid image_base64")
		}
		return data, p.Filename, nil
	}
	if p.Bucket == "" || p.Key == "" {
		return nil, "", eris.New("either image_base64 or bucket and key must be set")
	}

	obj, err := s3c.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(p.Bucket),
		Key:    aws.String(p.Key),
	})
	if err != nil {
		return nil, "", eris.Wrapf(err, "failed to get s3://%s/%s", p.Bucket, p.Key)
	}
	defer obj.Body.Close()

	data, err := io.ReadAll(obj.Body)
	if err != nil {
		return nil, "", eris.Wrapf(err, "failed to read s3://%s/%s", p.Bucket, p.Key)
	}
	return data, path.Base(p.Key), nil
}

func main() {
	fn := func(ctx context.Context, params Params) (pipeline.Analysis, error) {
		var modelConfig proteinagent.ModelConfig
		if err := envdecode.Decode(&modelConfig); err != nil {
			return pipeline.Analysis{}, eris.Wrap(err, "failed to decode model config")
		}

		var agentConfig proteinagent.AgentConfig
		if err := envdecode.Decode(&agentConfig); err != nil {
			return pipeline.Analysis{}, eris.Wrap(err, "failed to decode agent config")
		}

		awsCfg, err := config.LoadDefaultConfig(ctx, config.WithRetryMaxAttempts(5))
		if err != nil {
			return pipeline.Analysis{}, eris.Wrap(err, "failed to load AWS config")
		}

		data, filename, err := loadImage(ctx, s3.NewFromConfig(awsCfg), params)
		if err != nil {
			slog.Error("SETUP: Failed to load image", "error", err)
			return pipeline.Analysis{}, err
		}
		mediaType, err := server.DetectImageType(data, filename)
		if err != nil {
			return pipeline.Analysis{}, eris.Wrap(err, server.HEICMessage)
		}

		tracerProvider, meterProvider, otelShutdown, err := proteinagent.InitOtel(ctx,
			proteinagent.AttrEntrypoint.String("lambda"),
			proteinagent.AttrVisionBackend.String(proteinagent.BackendBedrock),
			proteinagent.AttrVisionModel.String(modelConfig.ModelID))
		if err != nil {
			slog.Error("SETUP: Failed to initialize OpenTelemetry", "error", err)
			return pipeline.Analysis{}, err
		}
		defer func() {
			if err := otelShutdown(ctx); err != nil {
				slog.Error("SETUP: Failed to shutdown OpenTelemetry", "error", err)
			}
		}()

		model := bedrock.NewModel(bedrockruntime.NewFromConfig(awsCfg), bedrock.Options{
			ModelID:     modelConfig.ModelID,
			MaxTokens:   modelConfig.MaxTokens,
			Temperature: modelConfig.Temperature,
			TopP:        modelConfig.TopP,
		})

		analyzer := pipeline.NewInstrumentedAnalyzer(
			vision.NewIdentifier(model, agentConfig.VisionTimeout),
			matcher.New(nil),
			proteinagent.NewStdoutAnalysisLogger(),
			tracerProvider.Tracer(proteinagent.TracerNameLambda),
			meterProvider.Meter(proteinagent.TracerNameLambda))

		a := analyzer.Analyze(ctx, vision.Image{Data: data, MediaType: mediaType})
		slog.Info("RESULT: Analysis complete",
			"analysis_id", a.ID,
			"success", a.Success,
			"total_protein", a.TotalProteinEstimate,
			"unmatched", len(a.UnmatchedFoods))
		return a, nil
	}

	lambda.Start(fn)
}
