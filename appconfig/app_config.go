package appconfig

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

const (
	EmbeddingProviderGemini = "gemini"
	EmbeddingProviderJina   = "jina"
)

// AppConfig is read from the process environment once at startup.
type AppConfig struct {
	MongoURI        string `koanf:"mongo_uri" validate:"required"`
	MongoDB         string `koanf:"mongo_db" validate:"required"`
	MongoCollection string `koanf:"mongo_collection" validate:"required"`
	GeminiAPIKey    string `koanf:"gemini_api_key" validate:"required"`
	VectorIndexName string `koanf:"vector_index_name" validate:"required"`
	AllowedOrigin   string `koanf:"allowed_origin" validate:"required"`
	Port            string `koanf:"port" validate:"required,numeric"`
	GRPCPort        string `koanf:"grpc_port" validate:"required,numeric"`

	VectorPath    string `koanf:"vector_path" validate:"required"`
	TopK          int    `koanf:"top_k" validate:"min=1,max=50"`
	NumCandidates int    `koanf:"num_candidates" validate:"gtefield=TopK,max=10000"`

	// StrictRetrieval answers 404 when the vector search returns nothing instead of
	// letting the model answer from an empty context.
	StrictRetrieval bool          `koanf:"strict_retrieval"`
	RequestTimeout  time.Duration `koanf:"request_timeout" validate:"gt=0"`

	EmbeddingProvider string  `koanf:"embedding_provider" validate:"oneof=gemini jina"`
	EmbeddingModel    string  `koanf:"embedding_model" validate:"required"`
	GenerationModel   string  `koanf:"generation_model" validate:"required"`
	Temperature       float32 `koanf:"temperature" validate:"gte=0,lte=2"`
	SamplingTopK      float32 `koanf:"sampling_top_k" validate:"gte=1"`
	SamplingTopP      float32 `koanf:"sampling_top_p" validate:"gt=0,lte=1"`
	MaxOutputTokens   int32   `koanf:"max_output_tokens" validate:"gt=0"`

	ServiceAPIKey string `koanf:"service_api_key"`
	EnableMCP     bool   `koanf:"enable_mcp"`
}

// Default returns the values used for every optional setting.
func Default() AppConfig {
	return AppConfig{
		GRPCPort:          "50051",
		VectorPath:        "embedding",
		TopK:              5,
		NumCandidates:     200,
		RequestTimeout:    30 * time.Second,
		EmbeddingProvider: EmbeddingProviderGemini,
		EmbeddingModel:    "text-embedding-004",
		GenerationModel:   "gemini-2.0-flash",
		Temperature:       0.2,
		SamplingTopK:      20,
		SamplingTopP:      0.8,
		MaxOutputTokens:   1024,
		EnableMCP:         true,
	}
}

// Load reads the configuration from os.Environ.
func Load() (*AppConfig, error) {
	return LoadFrom(os.Environ)
}

// LoadFrom reads the configuration from the given environment source, applying
// defaults first and validating the result.
func LoadFrom(environ func() []string) (*AppConfig, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(Default(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load config defaults: %w", err)
	}

	if err := k.Load(env.Provider(".", env.Opt{
		EnvironFunc: environ,
		TransformFunc: func(key, value string) (string, any) {
			value = strings.TrimSpace(value)
			if value == "" {
				// unset-but-exported variables must not wipe defaults
				return "", nil
			}
			return strings.ToLower(key), value
		},
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	cfg := &AppConfig{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func (c *AppConfig) HTTPAddr() string { return ":" + c.Port }

func (c *AppConfig) GRPCAddr() string { return ":" + c.GRPCPort }
