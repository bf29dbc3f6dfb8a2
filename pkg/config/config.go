package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port      string
	JWTSecret string

	JWTAccessExpiry  time.Duration
	JWTRefreshExpiry time.Duration

	// Postgres
	DatabaseURL string

	// Google / Gmail provider
	GoogleClientID     string
	GoogleClientSecret string
	GoogleProjectID    string
	GooglePubSubTopic  string
	GoogleCredentials  string

	// AI provider for deep classification: "gemini", "ollama" or "auto"
	AIProvider    string
	GeminiApiKey  string
	OllamaBaseURL string
	OllamaModel   string

	// Chroma vector store (related-email lookup)
	ChromaAPIKey   string
	ChromaTenant   string
	ChromaDatabase string

	// Firebase push notifications
	FirebaseCredentials string

	// IMAP password encryption key
	EncryptionKey string

	// Domains owned by the business; generic info@/hello@ senders on these
	// domains are not treated as marketing senders by the heuristic classifier
	OwnedDomains []string

	// Worker pool size for classification during account sync
	SyncWorkerCount int
}

func Load() *Config {
	// Load .env file if it exists
	_ = godotenv.Load()

	accessExpiry := 15 * time.Minute
	if exp := os.Getenv("JWT_ACCESS_EXPIRY"); exp != "" {
		if parsed, err := time.ParseDuration(exp); err == nil {
			accessExpiry = parsed
		}
	}

	refreshExpiry := 168 * time.Hour // 7 days
	if exp := os.Getenv("JWT_REFRESH_EXPIRY"); exp != "" {
		if parsed, err := time.ParseDuration(exp); err == nil {
			refreshExpiry = parsed
		}
	}

	workers := 5
	if w := os.Getenv("SYNC_WORKER_COUNT"); w != "" {
		if parsed, err := strconv.Atoi(w); err == nil && parsed > 0 {
			workers = parsed
		}
	}

	var ownedDomains []string
	for _, d := range strings.Split(os.Getenv("OWNED_DOMAINS"), ",") {
		if d = strings.TrimSpace(d); d != "" {
			ownedDomains = append(ownedDomains, strings.ToLower(d))
		}
	}

	return &Config{
		Port:                getEnv("PORT", "8080"),
		JWTSecret:           getEnv("JWT_SECRET", "your-secret-key-change-in-production"),
		JWTAccessExpiry:     accessExpiry,
		JWTRefreshExpiry:    refreshExpiry,
		DatabaseURL:         getEnv("DATABASE_URL", "host=localhost user=postgres password=postgres dbname=triagedesk port=5432 sslmode=disable"),
		GoogleClientID:      getEnv("GOOGLE_CLIENT_ID", ""),
		GoogleClientSecret:  getEnv("GOOGLE_CLIENT_SECRET", ""),
		GoogleProjectID:     getEnv("GOOGLE_PROJECT_ID", ""),
		GooglePubSubTopic:   getEnv("GOOGLE_PUBSUB_TOPIC", "gmail-updates"),
		GoogleCredentials:   getEnv("GOOGLE_APPLICATION_CREDENTIALS", ""),
		AIProvider:          getEnv("AI_PROVIDER", "auto"),
		GeminiApiKey:        getEnv("GEMINI_API_KEY", ""),
		OllamaBaseURL:       getEnv("OLLAMA_BASE_URL", "http://localhost:11434"),
		OllamaModel:         getEnv("OLLAMA_MODEL", "llama3"),
		ChromaAPIKey:        getEnv("CHROMA_API_KEY", ""),
		ChromaTenant:        getEnv("CHROMA_TENANT", ""),
		ChromaDatabase:      getEnv("CHROMA_DATABASE", ""),
		FirebaseCredentials: getEnv("FIREBASE_CREDENTIALS", ""),
		EncryptionKey:       getEnv("ENCRYPTION_KEY", ""),
		OwnedDomains:        ownedDomains,
		SyncWorkerCount:     workers,
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
