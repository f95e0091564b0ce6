package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	JWT        JWTConfig
	GigaChat   GigaChatConfig
	Extraction ExtractionConfig
	Upload     UploadConfig
	Qdrant     QdrantConfig
	Embeddings EmbeddingsConfig
	Logger     LoggerConfig
}

type LoggerConfig struct {
	Level string
}

type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

type JWTConfig struct {
	SecretKey  string
	Expiration time.Duration
	RefreshExp time.Duration
}

type GigaChatConfig struct {
	APIKey             string
	Model              string
	Scope              string
	InsecureSkipVerify bool
}

// ExtractionConfig tunes the text-acquisition and chunking stages.
// MinTextChars is the usable-character floor below which a digital PDF text
// layer is considered untrustworthy and the OCR fallback kicks in.
type ExtractionConfig struct {
	MinTextChars  int
	ChunkSize     int
	ChunkOverlap  int
	TesseractLang string
}

type UploadConfig struct {
	Dir       string
	MaxSizeMB int64
}

type QdrantConfig struct {
	URL        string
	APIKey     string
	Collection string
	TopK       int
}

type EmbeddingsConfig struct {
	BaseURL string
	APIKey  string
	Model   string
}

func Load() (*Config, error) {
	// The .env file is optional; real environment variables win either way.
	envFiles := []string{".env", "../.env", "../../.env"}
	for _, envFile := range envFiles {
		if err := godotenv.Load(envFile); err == nil {
			break
		}
	}

	readTimeout, _ := strconv.Atoi(getEnv("SERVER_READ_TIMEOUT", "30"))
	writeTimeout, _ := strconv.Atoi(getEnv("SERVER_WRITE_TIMEOUT", "30"))
	jwtExp, _ := strconv.Atoi(getEnv("JWT_EXPIRATION_HOURS", "24"))
	refreshExp, _ := strconv.Atoi(getEnv("JWT_REFRESH_EXPIRATION_HOURS", "168"))
	minTextChars, _ := strconv.Atoi(getEnv("EXTRACT_MIN_TEXT_CHARS", "20"))
	chunkSize, _ := strconv.Atoi(getEnv("CHUNK_SIZE", "800"))
	chunkOverlap, _ := strconv.Atoi(getEnv("CHUNK_OVERLAP", "120"))
	maxUploadMB, _ := strconv.ParseInt(getEnv("MAX_UPLOAD_MB", "10"), 10, 64)
	topK, _ := strconv.Atoi(getEnv("RAG_TOP_K", "5"))
	insecureSkipVerify := getEnv("GIGACHAT_INSECURE_SKIP_VERIFY", "true") == "true"

	return &Config{
		Server: ServerConfig{
			Port:         getEnv("SERVER_PORT", "8080"),
			ReadTimeout:  time.Duration(readTimeout) * time.Second,
			WriteTimeout: time.Duration(writeTimeout) * time.Second,
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			DBName:   getEnv("DB_NAME", "invoice_analyzer"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		JWT: JWTConfig{
			SecretKey:  getEnv("JWT_SECRET_KEY", "your-secret-key-change-in-production"),
			Expiration: time.Duration(jwtExp) * time.Hour,
			RefreshExp: time.Duration(refreshExp) * time.Hour,
		},
		GigaChat: GigaChatConfig{
			APIKey:             getEnv("GIGACHAT_API_KEY", ""),
			Model:              getEnv("GIGACHAT_MODEL", "GigaChat"),
			Scope:              getEnv("GIGACHAT_SCOPE", "GIGACHAT_API_PERS"),
			InsecureSkipVerify: insecureSkipVerify,
		},
		Extraction: ExtractionConfig{
			MinTextChars:  minTextChars,
			ChunkSize:     chunkSize,
			ChunkOverlap:  chunkOverlap,
			TesseractLang: getEnv("OCR_TESSERACT_LANG", "eng"),
		},
		Upload: UploadConfig{
			Dir:       getEnv("UPLOAD_DIR", "uploads"),
			MaxSizeMB: maxUploadMB,
		},
		Qdrant: QdrantConfig{
			URL:        getEnv("QDRANT_URL", "http://localhost:6333"),
			APIKey:     getEnv("QDRANT_API_KEY", ""),
			Collection: getEnv("QDRANT_COLLECTION", "invoices"),
			TopK:       topK,
		},
		Embeddings: EmbeddingsConfig{
			BaseURL: getEnv("EMBEDDINGS_BASE_URL", "https://api.openai.com/v1"),
			APIKey:  getEnv("EMBEDDINGS_API_KEY", ""),
			Model:   getEnv("EMBEDDINGS_MODEL", "text-embedding-3-small"),
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
	}, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
