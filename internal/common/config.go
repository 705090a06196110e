package common

import (
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	OCR      OCRConfig
	Vision   VisionConfig
	Pipeline PipelineConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Addr         string
	UploadDir    string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// DatabaseConfig holds the job-store configuration
type DatabaseConfig struct {
	Path         string
	JobRetention time.Duration
}

// OCRConfig holds OCR-related configuration
type OCRConfig struct {
	Pdftotext        string
	Pdftoppm         string
	Tesseract        string
	TesseractLang    string
	DPI              int
	MaxPages         int
	PSM              int
	ArtifactCacheDir string
}

// VisionConfig holds external extraction configuration
type VisionConfig struct {
	APIKey      string
	Model       string
	BaseURL     string
	Temperature float32
	Timeout     time.Duration
}

// PipelineConfig holds fan-out and retry behavior
type PipelineConfig struct {
	Engine        string // "heuristic" | "vision"
	Concurrency   int
	DispatchDelay time.Duration
	MaxAttempts   int
	RetryDelay    time.Duration
	QueueWorkers  int
	WatchDir      string // optional inbox directory; empty disables watching
}

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:         getEnv("ADDR", ":8080"),
			UploadDir:    getEnv("UPLOAD_DIR", "./tmp/uploads"),
			ReadTimeout:  getEnvAsDuration("READ_TIMEOUT", 15*time.Second),
			WriteTimeout: getEnvAsDuration("WRITE_TIMEOUT", 5*time.Minute),
			IdleTimeout:  getEnvAsDuration("IDLE_TIMEOUT", 60*time.Second),
		},
		Database: DatabaseConfig{
			Path:         getEnv("DB_PATH", "./billextract.db"),
			JobRetention: getEnvAsDuration("JOB_RETENTION", 7*24*time.Hour),
		},
		OCR: OCRConfig{
			Pdftotext:        getEnv("PDFTOTEXT_BIN", "pdftotext"),
			Pdftoppm:         getEnv("PDFTOPPM_BIN", "pdftoppm"),
			Tesseract:        getEnv("TESSERACT_BIN", "tesseract"),
			TesseractLang:    getEnv("TESSERACT_LANG", "eng"),
			DPI:              getEnvAsInt("OCR_DPI", 300),
			MaxPages:         getEnvAsInt("OCR_MAX_PAGES", 0),
			PSM:              getEnvAsInt("OCR_PSM", 6),
			ArtifactCacheDir: getEnv("ARTIFACT_CACHE_DIR", "./tmp"),
		},
		Vision: VisionConfig{
			APIKey:      getEnv("GEMINI_API_KEY", ""),
			Model:       getEnv("GEMINI_MODEL", "gemini-flash-latest"),
			BaseURL:     getEnv("GEMINI_BASE_URL", ""),
			Temperature: getEnvAsFloat32("GEMINI_TEMPERATURE", 0.0),
			Timeout:     getEnvAsDuration("GEMINI_TIMEOUT", 45*time.Second),
		},
		Pipeline: PipelineConfig{
			Engine:        getEnv("EXTRACTION_ENGINE", "heuristic"),
			Concurrency:   getEnvAsInt("PIPELINE_CONCURRENCY", 3),
			DispatchDelay: getEnvAsDuration("PIPELINE_DISPATCH_DELAY", 2*time.Second),
			MaxAttempts:   getEnvAsInt("PIPELINE_MAX_ATTEMPTS", 2),
			RetryDelay:    getEnvAsDuration("PIPELINE_RETRY_DELAY", 2*time.Second),
			QueueWorkers:  getEnvAsInt("QUEUE_WORKERS", 2),
			WatchDir:      getEnv("WATCH_DIR", ""),
		},
	}
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsFloat32(key string, defaultValue float32) float32 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 32); err == nil {
			return float32(floatVal)
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// Validate validates the loaded configuration
func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return NewAppError("CONFIG_ERROR", "ADDR is required", ErrInvalidInput)
	}
	if c.Pipeline.Engine != "heuristic" && c.Pipeline.Engine != "vision" {
		return NewAppError("CONFIG_ERROR", "EXTRACTION_ENGINE must be heuristic or vision", ErrInvalidInput)
	}
	if c.Pipeline.Engine == "vision" && c.Vision.APIKey == "" {
		return NewAppError("CONFIG_ERROR", "GEMINI_API_KEY is required for the vision engine", ErrInvalidInput)
	}
	if c.Pipeline.Concurrency <= 0 {
		return NewAppError("CONFIG_ERROR", "PIPELINE_CONCURRENCY must be positive", ErrInvalidInput)
	}
	return nil
}
