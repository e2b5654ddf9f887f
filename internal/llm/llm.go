package llm

import (
	"context"

	"ai-fitness-coach/internal/shared"
)

// ContentResponse contains the generated text and metadata like token usage.
type ContentResponse struct {
	Content string
	Usage   shared.TokenUsage
}

// TextGenerator is an interface for generating text from a prompt.
// Implementations are stateless: every call is an isolated request with no
// conversation history.
type TextGenerator interface {
	GenerateContent(ctx context.Context, prompt string) (ContentResponse, error)
}

// EmbeddingGenerator is an interface for generating vector embeddings from text.
type EmbeddingGenerator interface {
	GenerateEmbedding(ctx context.Context, text string) ([]float32, error)
}

// Closer is an interface for closing resources.
type Closer interface {
	Close() error
}

// ModelConfig fixes how one pipeline stage talks to the model. A generator is
// built once per stage type and reused across requests.
type ModelConfig struct {
	Name        string
	JSON        bool
	Temperature float32
	Instruction string
}

// Stage model configs.
var (
	SkeletonModel = ModelConfig{
		JSON:        true,
		Temperature: 0.4,
		Instruction: "You are an expert strength and conditioning coach who designs balanced weekly training splits.",
	}
	AssemblyModel = ModelConfig{
		JSON:        true,
		Temperature: 0.2,
		Instruction: "You format workout schedules into strict JSON. Never invent workout identifiers.",
	}
	QueryModel = ModelConfig{
		Temperature: 0.3,
		Instruction: "You write single-line search queries for a workout video library.",
	}
	IntentModel = ModelConfig{
		JSON:        true,
		Temperature: 0,
		Instruction: "You are an intent classifier for a fitness coach assistant.",
	}
	ExtractorModel = ModelConfig{
		JSON:        true,
		Temperature: 0.1,
		Instruction: "You extract structured workout metadata from web content.",
	}
)
