package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"

	"proteinagent"
	"proteinagent/matcher"
	"proteinagent/nutrition"
	"proteinagent/pipeline"
	"proteinagent/storage"
	"proteinagent/vision"
	"proteinagent/vision/anthropic"
	"proteinagent/vision/bedrock"
	"proteinagent/vision/mock"
	"proteinagent/vision/ollama"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rotisserie/eris"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

func loadAWSConfig(ctx context.Context) (aws.Config, error) {
	awsCfg, err := config.LoadDefaultConfig(ctx, config.WithRetryMaxAttempts(5))
	if err != nil {
		return aws.Config{}, eris.Wrap(err, "failed to load AWS config")
	}
	return awsCfg, nil
}

// newVisionModel builds the configured backend, wrapped with caching and rate
// limiting when those are enabled.
func newVisionModel(ctx context.Context, mc proteinagent.ModelConfig, ac proteinagent.AgentConfig) (vision.Model, error) {
	var model vision.Model

	switch ac.VisionBackend {
	case proteinagent.BackendBedrock:
		awsCfg, err := loadAWSConfig(ctx)
		if err != nil {
			return nil, err
		}
		model = bedrock.NewModel(bedrockruntime.NewFromConfig(awsCfg), bedrock.Options{
			ModelID:     mc.ModelID,
			MaxTokens:   mc.MaxTokens,
			Temperature: mc.Temperature,
			TopP:        mc.TopP,
		})
	case proteinagent.BackendAnthropic:
		model = anthropic.NewModel(ac.AnthropicAPIKey, anthropic.Options{
			ModelID:     mc.ModelID,
			MaxTokens:   int64(mc.MaxTokens),
			Temperature: float64(mc.Temperature),
		})
	case proteinagent.BackendOllama:
		m, err := ollama.NewModel(ollama.ModelOpts{
			BaseEndpoint: ac.BaseOllamaEndpoint,
			ModelID:      mc.ModelID,
			MaxTokens:    int(mc.MaxTokens),
		})
		if err != nil {
			return nil, err
		}
		model = m
	case proteinagent.BackendMock:
		model = mock.NewModel()
	default:
		return nil, eris.Errorf("unknown vision backend %q", ac.VisionBackend)
	}

	if ac.VisionRateLimit > 0 {
		model = vision.NewRateLimitedModel(model, ac.VisionRateLimit, 1)
	}
	if ac.VisionCacheTTL > 0 {
		model = vision.NewCachedModel(model, ac.VisionCacheTTL)
	}

	slog.Info("SETUP: Vision model ready",
		"backend", ac.VisionBackend,
		"model_id", mc.ModelID,
		"rate_limit", ac.VisionRateLimit,
		"cache_ttl", ac.VisionCacheTTL)
	return model, nil
}

// newAnalysisLogger returns a file-backed logger when a log directory is
// configured. The cleanup function flushes and closes it.
func newAnalysisLogger(ac proteinagent.AgentConfig, modelID string) (proteinagent.AnalysisLogger, func() error, error) {
	if ac.AnalysisLogDir == "" {
		return proteinagent.NewNoOpAnalysisLogger(), func() error { return nil }, nil
	}
	if modelID == "" {
		modelID = ac.VisionBackend
	}

	logFilePath := proteinagent.NewAnalysisLogFilePath(ac.AnalysisLogDir, modelID)
	if err := os.MkdirAll(filepath.Dir(logFilePath), 0o755); err != nil {
		return nil, nil, eris.Wrap(err, "failed to create analysis log dir")
	}
	logFile, err := os.OpenFile(logFilePath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, nil, eris.Wrap(err, "failed to open analysis log file")
	}

	logger := proteinagent.NewFileAnalysisLogger(logFile)
	cleanup := func() error {
		return errors.Join(logger.Flush(), logFile.Close())
	}
	slog.Info("SETUP: Writing analysis log", "path", logFilePath)
	return logger, cleanup, nil
}

func newImageStore(ctx context.Context, sc proteinagent.StorageConfig) (storage.ImageStore, error) {
	switch sc.ImageStore {
	case proteinagent.ImageStoreFile:
		return storage.NewFileImageStore(sc.ImageDir), nil
	case proteinagent.ImageStoreS3:
		awsCfg, err := loadAWSConfig(ctx)
		if err != nil {
			return nil, err
		}
		return storage.NewS3ImageStore(s3.NewFromConfig(awsCfg), sc.ImageS3Bucket, sc.ImageS3Prefix), nil
	default:
		return nil, nil
	}
}

func newAnalyzer(model vision.Model, ac proteinagent.AgentConfig, logger proteinagent.AnalysisLogger, tracer trace.Tracer, meter metric.Meter) *pipeline.InstrumentedAnalyzer {
	return pipeline.NewInstrumentedAnalyzer(
		vision.NewIdentifier(model, ac.VisionTimeout),
		matcher.New(nutrition.Default()),
		logger,
		tracer,
		meter)
}
