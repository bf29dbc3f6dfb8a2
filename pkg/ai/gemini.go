package ai

import (
	"context"
	"time"

	emaildomain "triagedesk-backend/internal/email/domain"
	"triagedesk-backend/pkg/gemini"
)

// GeminiClassifier implements ClassifierService on top of the Gemini REST
// client.
type GeminiClassifier struct {
	svc *gemini.GeminiService
}

func NewGeminiClassifier(apiKey string) *GeminiClassifier {
	return &GeminiClassifier{svc: gemini.NewGeminiService(apiKey)}
}

// ClassifyEmail implements ClassifierService
func (g *GeminiClassifier) ClassifyEmail(ctx context.Context, email *emaildomain.EmailMessage) (*emaildomain.Classification, error) {
	start := time.Now()

	text, err := g.svc.GenerateContent(ctx, BuildPrompt(email))
	if err != nil {
		return nil, err
	}

	return ParseClassification(text, g.svc.ModelName(), time.Since(start))
}
