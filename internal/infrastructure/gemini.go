package infrastructure

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"google.golang.org/genai"
)

const defaultGeminiModel = "gemini-2.0-flash"

// GeminiClient is the optional generative fallback behind the answer
// engine. A missing key or failed init leaves it disabled; callers must
// treat every failure as "no reply available".
type GeminiClient struct {
	client *genai.Client
	model  string
}

func NewGeminiClient(apiKey string) *GeminiClient {
	if apiKey == "" {
		return &GeminiClient{}
	}
	client, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey: apiKey,
	})
	if err != nil {
		log.Warn().Err(err).Msg("failed to create Gemini client, generative fallback disabled")
		return &GeminiClient{}
	}
	return &GeminiClient{client: client, model: defaultGeminiModel}
}

func (g *GeminiClient) Configured() bool {
	return g.client != nil
}

func (g *GeminiClient) GenerateResponse(prompt string) (string, error) {
	if g.client == nil {
		return "", errors.New("gemini not configured")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	result, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), nil)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(result.Text()), nil
}
