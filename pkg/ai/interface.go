package ai

import (
	"context"

	emaildomain "triagedesk-backend/internal/email/domain"
)

// ClassifierService is the interface for deep AI email classification.
// Implement this interface to add new AI providers (Gemini, Ollama, OpenAI, etc.)
type ClassifierService interface {
	ClassifyEmail(ctx context.Context, email *emaildomain.EmailMessage) (*emaildomain.Classification, error)
}

// ProviderType represents the AI provider type
type ProviderType string

const (
	ProviderGemini ProviderType = "gemini"
	ProviderOllama ProviderType = "ollama"
	ProviderAuto   ProviderType = "auto"
)
