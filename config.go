package proteinagent

import (
	"slices"
	"strings"
	"time"

	"github.com/rotisserie/eris"
)

// Vision backends selectable through VISION_BACKEND.
const (
	BackendBedrock   = "bedrock"
	BackendAnthropic = "anthropic"
	BackendOllama    = "ollama"
	BackendMock      = "mock"
)

// Image stores selectable through IMAGE_STORE.
const (
	ImageStoreNone = "none"
	ImageStoreFile = "file"
	ImageStoreS3   = "s3"
)

// ModelConfig configures the vision model call. An empty ModelID lets each backend
// pick its own default.
type ModelConfig struct {
	ModelID     string  `env:"MODEL_ID"`
	MaxTokens   int32   `env:"MAX_TOKENS,default=1500"`
	Temperature float32 `env:"TEMPERATURE,default=0.1"`
	TopP        float32 `env:"TOP_P,default=0.9"`
}

type AgentConfig struct {
	VisionBackend      string        `env:"VISION_BACKEND,default=bedrock"`
	VisionTimeout      time.Duration `env:"VISION_TIMEOUT,default=30s"`
	VisionRateLimit    float64       `env:"VISION_RATE_LIMIT,default=0"`
	VisionCacheTTL     time.Duration `env:"VISION_CACHE_TTL,default=0s"`
	BatchConcurrency   int           `env:"BATCH_CONCURRENCY,default=4"`
	BaseOllamaEndpoint string        `env:"BASE_OLLAMA_ENDPOINT,default=http://localhost:11434"`
	AnthropicAPIKey    string        `env:"ANTHROPIC_API_KEY"`
	AnalysisLogDir     string        `env:"ANALYSIS_LOG_DIR"`
}

// Validate checks the backend selection and the numeric limits.
func (c AgentConfig) Validate() error {
	backends := []string{BackendBedrock, BackendAnthropic, BackendOllama, BackendMock}
	if !slices.Contains(backends, c.VisionBackend) {
		return eris.Errorf("unknown vision backend %q, want one of %s", c.VisionBackend, strings.Join(backends, ", "))
	}
	if c.VisionBackend == BackendAnthropic && c.AnthropicAPIKey == "" {
		return eris.New("ANTHROPIC_API_KEY is required for the anthropic backend")
	}
	if c.VisionTimeout <= 0 {
		return eris.New("vision timeout must be positive")
	}
	if c.VisionRateLimit < 0 {
		return eris.New("vision rate limit must not be negative")
	}
	if c.BatchConcurrency < 1 {
		return eris.New("batch concurrency must be at least 1")
	}
	return nil
}

type StorageConfig struct {
	DatabasePath  string `env:"DATABASE_PATH,default=protein.db"`
	ImageStore    string `env:"IMAGE_STORE,default=none"`
	ImageDir      string `env:"IMAGE_DIR,default=artifacts/images"`
	ImageS3Bucket string `env:"IMAGE_S3_BUCKET"`
	ImageS3Prefix string `env:"IMAGE_S3_PREFIX,default=meal-images/"`
}

func (c StorageConfig) Validate() error {
	switch c.ImageStore {
	case ImageStoreNone, ImageStoreFile:
	case ImageStoreS3:
		if c.ImageS3Bucket == "" {
			return eris.New("IMAGE_S3_BUCKET is required for the s3 image store")
		}
	default:
		return eris.Errorf("unknown image store %q", c.ImageStore)
	}
	if c.DatabasePath == "" {
		return eris.New("database path must not be empty")
	}
	return nil
}

type ServerConfig struct {
	ListenAddr       string        `env:"LISTEN_ADDR,default=:8000"`
	CORSOrigins      []string      `env:"CORS_ORIGINS,default=*"`
	MaxUploadBytes   int64         `env:"MAX_UPLOAD_BYTES,default=10485760"`
	ReadTimeout      time.Duration `env:"READ_TIMEOUT,default=60s"`
	WriteTimeout     time.Duration `env:"WRITE_TIMEOUT,default=120s"`
	ReviewWebhookURL string        `env:"REVIEW_WEBHOOK_URL"`
	ReviewChannel    string        `env:"REVIEW_CHANNEL,default=#protein-review"`
}

func (c ServerConfig) Validate() error {
	if c.ListenAddr == "" {
		return eris.New("listen address must not be empty")
	}
	if c.MaxUploadBytes <= 0 {
		return eris.New("max upload bytes must be positive")
	}
	return nil
}
