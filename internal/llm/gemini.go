package llm

import (
	"context"
	"fmt"
	"strings"

	"ai-fitness-coach/internal/config"
	"ai-fitness-coach/internal/shared"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// GeminiClient owns the Gemini connection and hands out per-stage generators.
type GeminiClient struct {
	client         *genai.Client
	defaultModel   string
	embeddingModel string
}

// NewGeminiClient creates a new Gemini API client.
func NewGeminiClient(ctx context.Context, cfg *config.Config) (*GeminiClient, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.GeminiAPIKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	return &GeminiClient{
		client:         client,
		defaultModel:   cfg.GenerationModel,
		embeddingModel: cfg.EmbeddingModel,
	}, nil
}

// Generator returns a TextGenerator bound to one stage configuration.
func (c *GeminiClient) Generator(mc ModelConfig) TextGenerator {
	name := mc.Name
	if name == "" {
		name = c.defaultModel
	}

	model := c.client.GenerativeModel(name)
	model.SetTemperature(mc.Temperature)
	if mc.JSON {
		model.ResponseMIMEType = "application/json"
	}
	if mc.Instruction != "" {
		model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(mc.Instruction)}}
	}
	return &geminiGenerator{model: model, name: name}
}

type geminiGenerator struct {
	model *genai.GenerativeModel
	name  string
}

// GenerateContent sends a single stateless request and concatenates every
// text part of the first candidate. An empty string is a valid result.
func (g *geminiGenerator) GenerateContent(ctx context.Context, prompt string) (ContentResponse, error) {
	resp, err := g.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		if IsRateLimited(err) {
			return ContentResponse{}, fmt.Errorf("%w: %w", ErrRateLimited, err)
		}
		return ContentResponse{}, fmt.Errorf("failed to generate content: %w", err)
	}

	var sb strings.Builder
	if len(resp.Candidates) > 0 && resp.Candidates[0].Content != nil {
		for _, part := range resp.Candidates[0].Content.Parts {
			if text, ok := part.(genai.Text); ok {
				sb.WriteString(string(text))
			}
		}
	}

	usage := shared.TokenUsage{Model: g.name}
	if md := resp.UsageMetadata; md != nil {
		usage.PromptTokens = int(md.PromptTokenCount)
		usage.CompletionTokens = int(md.CandidatesTokenCount)
		usage.TotalTokens = int(md.TotalTokenCount)
	}

	return ContentResponse{Content: sb.String(), Usage: usage}, nil
}

// GenerateEmbedding embeds text with the configured embedding model.
func (c *GeminiClient) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	em := c.client.EmbeddingModel(c.embeddingModel)
	res, err := em.EmbedContent(ctx, genai.Text(text))
	if err != nil {
		return nil, fmt.Errorf("failed to embed content: %w", err)
	}
	if res == nil || res.Embedding == nil || len(res.Embedding.Values) == 0 {
		return nil, ErrEmptyResponse
	}
	return res.Embedding.Values, nil
}

// Ping checks that the API key is accepted and the generation model exists.
func (c *GeminiClient) Ping(ctx context.Context) error {
	if _, err := c.client.GenerativeModel(c.defaultModel).Info(ctx); err != nil {
		return fmt.Errorf("gemini connectivity check failed: %w", err)
	}
	return nil
}

// Close closes the underlying Gemini client.
func (c *GeminiClient) Close() error {
	return c.client.Close()
}
