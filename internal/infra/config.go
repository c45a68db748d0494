package infra

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config represents application configuration loaded from environment variables.
type Config struct {
	AppEnv      string
	Port        string
	DatabaseURL string

	// Local storage for generated videos and the JSON/CSV side stores.
	OutputDir  string
	HistoryDir string

	// Job store REST fallback.
	JobStoreCredFile string
	JobStoreRESTURL  string

	// Remote inference endpoint (hosted text-to-video).
	InferenceURL   string
	InferenceToken string

	// Hosted LLM used for translation, analysis and subtitles.
	LLMBaseURL       string
	LLMAPIKey        string
	LLMModel         string
	LLMFallbackModel string

	// Local generation.
	LocalModelID string
	RunnerBin    string
	FFmpegBin    string

	GeoIPDBPath string

	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration
	HTTPIdleTimeout  time.Duration
}

// LoadConfig loads configuration from environment variables and applies defaults where needed.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		AppEnv:           getEnv("APP_ENV", "development"),
		Port:             getEnv("PORT", "8080"),
		DatabaseURL:      os.Getenv("DATABASE_URL"),
		OutputDir:        getEnv("OUTPUT_DIR", "outputs"),
		HistoryDir:       getEnv("HISTORY_DIR", "outputs"),
		JobStoreCredFile: getEnv("JOBSTORE_CREDENTIALS_FILE", "serviceAccountKey.json"),
		JobStoreRESTURL:  os.Getenv("JOBSTORE_REST_URL"),
		InferenceURL:     os.Getenv("INFERENCE_API_URL"),
		InferenceToken:   os.Getenv("INFERENCE_API_TOKEN"),
		LLMBaseURL:       getEnv("LLM_BASE_URL", "https://router.huggingface.co/v1"),
		LLMAPIKey:        os.Getenv("LLM_API_KEY"),
		LLMModel:         getEnv("LLM_MODEL", "Qwen/Qwen2.5-72B-Instruct"),
		LLMFallbackModel: getEnv("LLM_FALLBACK_MODEL", "mistralai/Mistral-7B-Instruct-v0.3"),
		LocalModelID:     getEnv("LOCAL_MODEL_ID", "damo-vilab/text-to-video-ms-1.7b"),
		RunnerBin:        os.Getenv("PIPELINE_RUNNER_BIN"),
		FFmpegBin:        getEnv("FFMPEG_BIN", "ffmpeg"),
		GeoIPDBPath:      os.Getenv("GEOIP_DB_PATH"),
		// Generation responses block for minutes (the remote path alone
		// allows 300s per attempt), so the write timeout defaults to off.
		// Operators who set one get a per-route override on the generation
		// endpoints instead of truncated responses.
		HTTPReadTimeout:  time.Second * time.Duration(getEnvInt("HTTP_READ_TIMEOUT_SECONDS", 15)),
		HTTPWriteTimeout: time.Second * time.Duration(getEnvInt("HTTP_WRITE_TIMEOUT_SECONDS", 0)),
		HTTPIdleTimeout:  time.Second * time.Duration(getEnvInt("HTTP_IDLE_TIMEOUT_SECONDS", 60)),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}
