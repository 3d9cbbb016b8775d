package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Host              string        `yaml:"host"`
		Port              int           `yaml:"port"`
		AllowedOrigins    []string      `yaml:"allowed_origins"`
		AllowOriginSuffix string        `yaml:"allow_origin_suffix"`
		RateLimit         float64       `yaml:"rate_limit"`
		RateBurst         int           `yaml:"rate_burst"`
		ShutdownTimeout   time.Duration `yaml:"shutdown_timeout"`
	} `yaml:"server"`

	Vision struct {
		ModelPath     string  `yaml:"model_path"`
		ModelURL      string  `yaml:"model_url"`
		ModelSHA256   string  `yaml:"model_sha256"`
		InputSize     int     `yaml:"input_size"`
		Confidence    float64 `yaml:"confidence"`
		IoU           float64 `yaml:"iou"`
		MaxImageBytes int     `yaml:"max_image_bytes"`
	} `yaml:"vision"`

	Vector struct {
		Backend     string `yaml:"backend"`
		Path        string `yaml:"path"`
		Collection  string `yaml:"collection"`
		DatabaseURL string `yaml:"database_url"`
		TableName   string `yaml:"table_name"`
		BatchSize   int    `yaml:"batch_size"`
		NResults    int    `yaml:"n_results"`
	} `yaml:"vector"`

	Embedder struct {
		Provider   string `yaml:"provider"`
		Model      string `yaml:"model"`
		BaseURL    string `yaml:"base_url"`
		Dimensions int    `yaml:"dimensions"`
	} `yaml:"embedder"`

	LLM struct {
		Provider    string   `yaml:"provider"`
		APIKey      string   `yaml:"api_key"`
		Models      []string `yaml:"models"`
		BaseURL     string   `yaml:"base_url"`
		MaxTokens   int      `yaml:"max_tokens"`
		Temperature float64  `yaml:"temperature"`
	} `yaml:"llm"`

	History struct {
		DatabaseURL string `yaml:"database_url"`
		Limit       int    `yaml:"limit"`
	} `yaml:"history"`

	Storage struct {
		Bucket          string `yaml:"bucket"`
		CredentialsFile string `yaml:"credentials_file"`
		Prefix          string `yaml:"prefix"`
	} `yaml:"storage"`

	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`
}

// Addr returns the listen address of the HTTP server.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// HistoryEnabled reports whether analyses are persisted.
func (c *Config) HistoryEnabled() bool {
	return c.History.DatabaseURL != ""
}

func LoadConfig(path string) (*Config, error) {
	// A missing .env is fine; real deployments pass the environment directly.
	_ = godotenv.Load()

	// If no path provided, try default locations
	if path == "" {
		locations := []string{
			"config.yaml",
			"config.yml",
			filepath.Join(os.Getenv("HOME"), ".config/visionsync/config.yaml"),
			"/etc/visionsync/config.yaml",
		}

		for _, loc := range locations {
			if _, err := os.Stat(loc); err == nil {
				path = loc
				break
			}
		}
	}

	if path == "" {
		return getDefaultConfig()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	mergeWithEnv(&config)
	applyDefaults(&config)

	return &config, nil
}

func getDefaultConfig() (*Config, error) {
	config := &Config{}
	mergeWithEnv(config)
	applyDefaults(config)
	return config, nil
}

func applyDefaults(config *Config) {
	if config.Server.Host == "" {
		config.Server.Host = "0.0.0.0"
	}
	if config.Server.Port == 0 {
		config.Server.Port = 8000
	}
	if len(config.Server.AllowedOrigins) == 0 {
		config.Server.AllowedOrigins = []string{
			"http://localhost:5173",
			"http://127.0.0.1:5173",
			"http://localhost:3000",
		}
	}
	if config.Server.AllowOriginSuffix == "" {
		config.Server.AllowOriginSuffix = ".vercel.app"
	}
	if config.Server.RateBurst == 0 {
		config.Server.RateBurst = 4
	}
	if config.Server.ShutdownTimeout == 0 {
		config.Server.ShutdownTimeout = 10 * time.Second
	}

	if config.Vision.ModelPath == "" {
		config.Vision.ModelPath = "models/yolov8n.onnx"
	}
	if config.Vision.ModelURL == "" {
		config.Vision.ModelURL = "https://github.com/ultralytics/assets/releases/download/v8.2.0/yolov8n.onnx"
	}
	if config.Vision.InputSize == 0 {
		config.Vision.InputSize = 640
	}
	if config.Vision.Confidence == 0 {
		config.Vision.Confidence = 0.25
	}
	if config.Vision.IoU == 0 {
		config.Vision.IoU = 0.7
	}
	if config.Vision.MaxImageBytes == 0 {
		config.Vision.MaxImageBytes = 10 * 1024 * 1024
	}

	if config.Vector.Backend == "" {
		config.Vector.Backend = "chromem"
	}
	if config.Vector.Path == "" {
		config.Vector.Path = "./chroma_store"
	}
	if config.Vector.Collection == "" {
		config.Vector.Collection = "furniture_products"
	}
	if config.Vector.TableName == "" {
		config.Vector.TableName = "furniture_products"
	}
	if config.Vector.BatchSize == 0 {
		config.Vector.BatchSize = 100
	}
	if config.Vector.NResults == 0 {
		config.Vector.NResults = 5
	}

	if config.Embedder.Provider == "" {
		config.Embedder.Provider = "local"
	}
	if config.Embedder.Dimensions == 0 {
		config.Embedder.Dimensions = 384
	}
	if config.Embedder.Model == "" {
		config.Embedder.Model = "nomic-embed-text:latest"
	}
	if config.Embedder.BaseURL == "" {
		config.Embedder.BaseURL = "http://localhost:11434"
	}

	if config.LLM.Provider == "" {
		config.LLM.Provider = "googleai"
	}
	if len(config.LLM.Models) == 0 {
		config.LLM.Models = []string{
			"gemini-2.0-flash",
			"gemini-2.0-flash-lite",
			"gemini-2.5-flash",
			"gemini-1.5-flash",
		}
	}
	if config.LLM.BaseURL == "" {
		config.LLM.BaseURL = "http://localhost:11434"
	}
	if config.LLM.MaxTokens == 0 {
		config.LLM.MaxTokens = 2048
	}
	if config.LLM.Temperature == 0 {
		config.LLM.Temperature = 0.7
	}

	if config.History.Limit == 0 {
		config.History.Limit = 10
	}

	if config.Storage.Prefix == "" {
		config.Storage.Prefix = "room-images"
	}

	if config.Log.Level == "" {
		config.Log.Level = "info"
	}
	if config.Log.Format == "" {
		config.Log.Format = "console"
	}
}

func mergeWithEnv(config *Config) {
	if host := os.Getenv("HOST"); host != "" {
		config.Server.Host = host
	}
	if port := os.Getenv("PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}
	if modelPath := os.Getenv("MODEL_PATH"); modelPath != "" {
		config.Vision.ModelPath = modelPath
	}
	if modelURL := os.Getenv("MODEL_URL"); modelURL != "" {
		config.Vision.ModelURL = modelURL
	}
	if digest := os.Getenv("MODEL_SHA256"); digest != "" {
		config.Vision.ModelSHA256 = digest
	}
	if chromaPath := os.Getenv("CHROMA_DB_PATH"); chromaPath != "" {
		config.Vector.Path = chromaPath
	}
	if backend := os.Getenv("VECTOR_BACKEND"); backend != "" {
		config.Vector.Backend = backend
	}
	if apiKey := os.Getenv("GEMINI_API_KEY"); apiKey != "" {
		config.LLM.APIKey = apiKey
	}
	if baseURL := os.Getenv("OLLAMA_BASE_URL"); baseURL != "" {
		config.LLM.BaseURL = baseURL
		config.Embedder.BaseURL = baseURL
	}
	if dbURL := os.Getenv("SUPABASE_DB_URL"); dbURL != "" {
		config.History.DatabaseURL = dbURL
	}
	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		config.History.DatabaseURL = dbURL
		config.Vector.DatabaseURL = dbURL
	}
	if bucket := os.Getenv("GCS_BUCKET"); bucket != "" {
		config.Storage.Bucket = bucket
	}
	if creds := os.Getenv("GCS_CREDENTIALS_FILE"); creds != "" {
		config.Storage.CredentialsFile = creds
	}
	if level := os.Getenv("LOG_LEVEL"); level != "" {
		config.Log.Level = level
	}
}
