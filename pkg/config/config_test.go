package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	// Create temporary config file
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configData := `
server:
  host: "127.0.0.1"
  port: 9000
  rate_limit: 1.5
  shutdown_timeout: 5s

vision:
  model_path: "/opt/models/yolov8s.onnx"
  confidence: 0.4

vector:
  backend: "pgvector"
  database_url: "postgres://localhost:5432/vision"
  n_results: 3

llm:
  provider: "ollama"
  models:
    - "llama3"

log:
  level: "debug"
  format: "json"
`
	err := os.WriteFile(configPath, []byte(configData), 0644)
	require.NoError(t, err)

	config, err := LoadConfig(configPath)
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:9000", config.Addr())
	assert.Equal(t, 1.5, config.Server.RateLimit)
	assert.Equal(t, 5*time.Second, config.Server.ShutdownTimeout)
	assert.Equal(t, "/opt/models/yolov8s.onnx", config.Vision.ModelPath)
	assert.Equal(t, 0.4, config.Vision.Confidence)
	assert.Equal(t, 0.7, config.Vision.IoU)
	assert.Equal(t, "pgvector", config.Vector.Backend)
	assert.Equal(t, 3, config.Vector.NResults)
	assert.Equal(t, []string{"llama3"}, config.LLM.Models)
	assert.Equal(t, "json", config.Log.Format)
	assert.Empty(t, config.Validate())
}

func TestDefaultConfig(t *testing.T) {
	config, err := getDefaultConfig()
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:8000", config.Addr())
	assert.Equal(t, "chromem", config.Vector.Backend)
	assert.Equal(t, "./chroma_store", config.Vector.Path)
	assert.Equal(t, "furniture_products", config.Vector.Collection)
	assert.Equal(t, 5, config.Vector.NResults)
	assert.Equal(t, 10*1024*1024, config.Vision.MaxImageBytes)
	assert.Equal(t, "gemini-2.0-flash", config.LLM.Models[0])
	assert.Len(t, config.LLM.Models, 4)
	assert.Equal(t, 10, config.History.Limit)
	assert.Contains(t, config.Server.AllowedOrigins, "http://localhost:5173")
	assert.Empty(t, config.Validate())
}

func TestConfigValidation(t *testing.T) {
	tests := []struct {
		name          string
		mutate        func(c *Config)
		errorMessages []string
	}{
		{
			name:   "valid config",
			mutate: func(c *Config) {},
		},
		{
			name: "invalid server and vision",
			mutate: func(c *Config) {
				c.Server.Port = 70000
				c.Vision.Confidence = 1.5
				c.Vision.InputSize = 100
			},
			errorMessages: []string{
				"server.port: port must be between 1 and 65535",
				"vision.confidence: confidence must be between 0 and 1",
				"vision.input_size: input_size must be a positive multiple of 32",
			},
		},
		{
			name: "unknown providers",
			mutate: func(c *Config) {
				c.Vector.Backend = "faiss"
				c.Embedder.Provider = "openai"
				c.LLM.Provider = "anthropic"
			},
			errorMessages: []string{
				"vector.backend: unknown backend: faiss",
				"embedder.provider: unknown provider: openai",
				"llm.provider: unknown provider: anthropic",
			},
		},
		{
			name: "pgvector without database",
			mutate: func(c *Config) {
				c.Vector.Backend = "pgvector"
				c.Vector.DatabaseURL = ""
			},
			errorMessages: []string{
				"vector.database_url: invalid database URL",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config, err := getDefaultConfig()
			require.NoError(t, err)
			tt.mutate(config)

			errors := config.Validate()
			assert.Len(t, errors, len(tt.errorMessages))
			for i, msg := range tt.errorMessages {
				assert.Contains(t, errors[i].Error(), msg)
			}
		})
	}
}

func TestEnvironmentOverrides(t *testing.T) {
	t.Setenv("PORT", "8081")
	t.Setenv("MODEL_PATH", "/models/custom.onnx")
	t.Setenv("MODEL_SHA256", "f3ab")
	t.Setenv("CHROMA_DB_PATH", "/data/chroma")
	t.Setenv("GEMINI_API_KEY", "test-key")
	t.Setenv("DATABASE_URL", "postgres://env-db:5432/test")
	t.Setenv("GCS_BUCKET", "room-bucket")

	config := &Config{}
	mergeWithEnv(config)

	assert.Equal(t, 8081, config.Server.Port)
	assert.Equal(t, "/models/custom.onnx", config.Vision.ModelPath)
	assert.Equal(t, "f3ab", config.Vision.ModelSHA256)
	assert.Equal(t, "/data/chroma", config.Vector.Path)
	assert.Equal(t, "test-key", config.LLM.APIKey)
	assert.Equal(t, "postgres://env-db:5432/test", config.History.DatabaseURL)
	assert.Equal(t, "postgres://env-db:5432/test", config.Vector.DatabaseURL)
	assert.Equal(t, "room-bucket", config.Storage.Bucket)
	assert.True(t, config.HistoryEnabled())
}

func TestEnvironmentOverrides_InvalidPortIgnored(t *testing.T) {
	t.Setenv("PORT", "not-a-port")

	config := &Config{}
	mergeWithEnv(config)
	applyDefaults(config)

	assert.Equal(t, 8000, config.Server.Port)
}
