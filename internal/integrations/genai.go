package integrations

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

// DescriptionWriter drafts service descriptions with Gemini
type DescriptionWriter struct {
	client *genai.Client
	model  string
}

// NewDescriptionWriter creates a Gemini-backed writer
func NewDescriptionWriter(ctx context.Context, apiKey, model string) (*DescriptionWriter, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("GenAI API key is required")
	}
	if model == "" {
		model = "gemini-2.5-flash"
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}
	return &DescriptionWriter{client: client, model: model}, nil
}

// DescriptionPrompt renders the instruction sent to the model
func DescriptionPrompt(title string, keywords []string) string {
	var b strings.Builder
	b.WriteString("Write a clear, friendly marketplace service description of at most 120 words.\n")
	b.WriteString("Do not invent prices, guarantees or delivery times.\n")
	b.WriteString("Service title: ")
	b.WriteString(title)
	if len(keywords) > 0 {
		b.WriteString("\nKeywords: ")
		b.WriteString(strings.Join(keywords, ", "))
	}
	return b.String()
}

// Describe returns a generated description for a service
func (w *DescriptionWriter) Describe(ctx context.Context, title string, keywords []string) (string, error) {
	result, err := w.client.Models.GenerateContent(ctx, w.model, genai.Text(DescriptionPrompt(title, keywords)), &genai.GenerateContentConfig{
		Temperature:     genai.Ptr[float32](0.7),
		MaxOutputTokens: 400,
	})
	if err != nil {
		return "", fmt.Errorf("GenAI generate failed: %w", err)
	}
	text := strings.TrimSpace(result.Text())
	if text == "" {
		return "", fmt.Errorf("no text returned")
	}
	return text, nil
}
