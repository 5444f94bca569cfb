// Package langchain implements the remote reasoning fallback on top of an
// OpenAI-compatible chat API. It is only consulted when local extraction
// confidence is low or the local model is unavailable.
package langchain

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
	"github.com/tmc/langchaingo/schema"
	"go.uber.org/zap"

	"github.com/kailas-cloud/queryfuse/internal/domain"
	"github.com/kailas-cloud/queryfuse/internal/domain/intent"
)

const maxAttempts = 3

// Reasoner classifies query text via a chat model in JSON mode.
type Reasoner struct {
	client llms.Model
	logger *zap.Logger
}

// Config holds the reasoner connection settings.
type Config struct {
	BaseURL string
	APIKey  string
	Model   string
	Logger  *zap.Logger
}

// NewReasoner creates a remote reasoner client.
func NewReasoner(cfg *Config) (*Reasoner, error) {
	token := cfg.APIKey
	if token == "" {
		// Local OpenAI-compatible services often require no authentication.
		token = "none"
	}

	opts := []openai.Option{
		openai.WithToken(token),
		openai.WithModel(cfg.Model),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
	}

	client, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("create reasoner client: %w", err)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Reasoner{client: client, logger: logger}, nil
}

// classifiedEntity matches the JSON shape expected from the model.
type classifiedEntity struct {
	Text       string  `json:"text"`
	Type       string  `json:"type"`
	Confidence float64 `json:"confidence"`
}

// classification is the wrapper structure for the model's JSON response.
type classification struct {
	Entities []classifiedEntity `json:"entities"`
	Intent   string             `json:"intent"`
	// IntentConfidence is the model's self-reported confidence in [0,1].
	IntentConfidence float64 `json:"intent_confidence"`
}

// Classify extracts entities and an intent label from query text.
// Retries on malformed JSON; transport errors surface immediately.
func (r *Reasoner) Classify(ctx context.Context, text string) (domain.Extraction, error) {
	content := []llms.MessageContent{
		{
			Role:  schema.ChatMessageTypeSystem,
			Parts: []llms.ContentPart{llms.TextPart(systemPrompt)},
		},
		{
			Role:  schema.ChatMessageTypeHuman,
			Parts: []llms.ContentPart{llms.TextPart(text)},
		},
	}

	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		response, err := r.client.GenerateContent(ctx, content,
			llms.WithTemperature(0.0), llms.WithJSONMode())
		if err != nil {
			return domain.Extraction{}, fmt.Errorf("generate content: %w: %w",
				err, domain.ErrReasonerUnavailable)
		}

		if len(response.Choices) < 1 {
			return domain.Extraction{}, fmt.Errorf("no choices returned: %w",
				domain.ErrReasonerUnavailable)
		}

		var parsed classification
		raw := response.Choices[0].Content
		if err := json.Unmarshal([]byte(stripFences(raw)), &parsed); err != nil {
			lastErr = fmt.Errorf("parse classification JSON: %w", err)
			r.logger.Warn("Malformed reasoner response",
				zap.Int("attempt", attempt+1), zap.Error(err))
			continue
		}

		return toExtraction(parsed), nil
	}

	return domain.Extraction{}, fmt.Errorf("%w: %w", lastErr, domain.ErrReasonerUnavailable)
}

func toExtraction(c classification) domain.Extraction {
	entities := make([]domain.ExtractedEntity, 0, len(c.Entities))
	for _, e := range c.Entities {
		if e.Text == "" {
			continue
		}
		entities = append(entities, domain.ExtractedEntity{
			Text:       domain.NormalizeText(e.Text),
			Type:       entityType(e.Type),
			Confidence: clamp01(e.Confidence),
		})
	}

	label := intent.Intent(c.Intent)
	if !label.IsValid() {
		label = intent.Exploration
	}

	return domain.Extraction{
		Entities: entities,
		Intent: domain.IntentClassification{
			Label:      label,
			Confidence: clamp01(c.IntentConfidence),
		},
		Strategy: domain.StrategyRemote,
	}
}

func entityType(s string) domain.EntityType {
	switch domain.EntityType(s) {
	case domain.EntityCategory, domain.EntityFeature, domain.EntityAttribute, domain.EntityProduct:
		return domain.EntityType(s)
	default:
		return domain.EntityFeature
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// stripFences removes markdown code fences some models wrap around JSON.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

const systemPrompt = `You classify catalog search queries. Given a user query, extract the entities it mentions and classify the overall intent.

Respond with JSON only, in this exact shape:
{
  "entities": [{"text": "...", "type": "category|feature|attribute|product", "confidence": 0.0}],
  "intent": "filter-search|comparison|discovery|exploration",
  "intent_confidence": 0.0
}

Rules:
- "category" names a kind of product (e.g. "ui builder", "database").
- "feature" names a capability (e.g. "hosting", "offline mode").
- "attribute" names a constraint (e.g. "free", "open source").
- "product" names a specific catalog item.
- "filter-search": the user wants items matching explicit constraints.
- "comparison": the user weighs named items against each other.
- "discovery": the user wants items similar to a named one.
- "exploration": open-ended browsing.
- Confidences are your own estimate in [0,1]. Do not invent entities.`
