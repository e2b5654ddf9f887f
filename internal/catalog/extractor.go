package catalog

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"text/template"
	"time"
	"unicode"

	"ai-fitness-coach/internal/llm"
	"ai-fitness-coach/internal/shared"
)

//go:embed extractor_prompt.md
var extractorPrompt string

var extractorTmpl = template.Must(template.New("extractor").Parse(extractorPrompt))

const maxContentChars = 12000

// PostData is the raw content a workout is extracted from.
type PostData struct {
	ID        string
	Title     string
	UpdatedAt string
	HTML      string
}

type ExtractorResult struct {
	Item Item
	Meta shared.AgentMeta
}

// Extractor turns raw posts into catalog items and indexes their embeddings.
type Extractor struct {
	textGen  llm.TextGenerator
	embedGen llm.EmbeddingGenerator
	vectors  *VectorRepository
}

func NewExtractor(textGen llm.TextGenerator, embedGen llm.EmbeddingGenerator, vectors *VectorRepository) *Extractor {
	return &Extractor{textGen: textGen, embedGen: embedGen, vectors: vectors}
}

// extractedItem mirrors Item but tolerates loosely typed numbers.
type extractedItem struct {
	Title             string          `json:"title"`
	DisplayTitle      string          `json:"display_title"`
	Focus             []string        `json:"focus"`
	DurationMins      json.RawMessage `json:"duration_mins"`
	Difficulty        string          `json:"difficulty"`
	DifficultyScore   json.RawMessage `json:"difficulty_score"`
	DifficultyReasons []string        `json:"difficulty_reasons"`
	Equipment         []string        `json:"equipment"`
	Description       string          `json:"description"`
	URL               string          `json:"url"`
	Thumbnail         string          `json:"thumbnail"`
	Trainer           string          `json:"trainer"`
	SourceProgram     string          `json:"source_program"`
}

func validateExtracted(e extractedItem) error {
	if strings.TrimSpace(e.Title) == "" {
		return errors.New("title is required")
	}
	return nil
}

// ExtractWorkout runs the extraction prompt over a post.
func (e *Extractor) ExtractWorkout(ctx context.Context, data PostData) (ExtractorResult, error) {
	start := time.Now()

	if len(data.HTML) > maxContentChars {
		data.HTML = data.HTML[:maxContentChars]
	}
	var buf bytes.Buffer
	if err := extractorTmpl.Execute(&buf, data); err != nil {
		return ExtractorResult{}, err
	}

	resp, err := e.textGen.GenerateContent(ctx, buf.String())
	if err != nil {
		return ExtractorResult{}, fmt.Errorf("failed to get LLM response: %w", err)
	}
	meta := shared.AgentMeta{AgentName: "Extractor", Usage: resp.Usage, Latency: time.Since(start)}

	raw, err := llm.ExtractJSON[extractedItem](resp.Content, validateExtracted)
	if err != nil {
		return ExtractorResult{Meta: meta}, err
	}

	item := Item{
		ID:                data.ID,
		Title:             strings.TrimSpace(raw.Title),
		DisplayTitle:      strings.TrimSpace(raw.DisplayTitle),
		Focus:             raw.Focus,
		DurationMins:      parseLooseInt(raw.DurationMins),
		Difficulty:        raw.Difficulty,
		DifficultyScore:   parseLooseInt(raw.DifficultyScore),
		DifficultyReasons: raw.DifficultyReasons,
		Equipment:         raw.Equipment,
		Description:       raw.Description,
		URL:               NormalizeURL(raw.URL),
		Thumbnail:         NormalizeURL(raw.Thumbnail),
		Trainer:           raw.Trainer,
		SourceProgram:     raw.SourceProgram,
		UpdatedAt:         data.UpdatedAt,
	}
	if len(item.Focus) == 0 {
		item.Focus = InferFocus(item.Title)
	}

	return ExtractorResult{Item: item, Meta: meta}, nil
}

// ProcessAndSaveEmbedding embeds the item and stores the vector.
func (e *Extractor) ProcessAndSaveEmbedding(ctx context.Context, item Item) ([]float32, shared.AgentMeta, error) {
	start := time.Now()
	text := item.ToEmbeddingText()

	embedding, err := e.embedGen.GenerateEmbedding(ctx, text)
	if err != nil {
		return nil, shared.AgentMeta{}, fmt.Errorf("failed to generate embedding: %w", err)
	}
	if err := e.vectors.Save(ctx, item.ID, embedding); err != nil {
		return nil, shared.AgentMeta{}, err
	}

	// The embedding API reports no usage; approximate by words.
	meta := shared.AgentMeta{
		AgentName: "Embedder",
		Usage:     shared.TokenUsage{PromptTokens: len(strings.Fields(text))},
		Latency:   time.Since(start),
	}
	return embedding, meta, nil
}

// NormalizeURL trims whitespace and stray backticks that models wrap links in.
func NormalizeURL(u string) string {
	return strings.Trim(strings.TrimSpace(u), "` \t\r\n")
}

// parseLooseInt accepts 30, 30.0, "30" or "30 mins".
func parseLooseInt(raw json.RawMessage) *int {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return Minutes(int(math.Round(f)))
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil
	}
	s = strings.TrimSpace(s)
	end := strings.IndexFunc(s, func(r rune) bool { return !unicode.IsDigit(r) })
	if end == -1 {
		end = len(s)
	}
	n, err := strconv.Atoi(s[:end])
	if err != nil {
		return nil
	}
	return Minutes(n)
}
