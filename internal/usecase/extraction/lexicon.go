package extraction

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/kailas-cloud/queryfuse/internal/domain"
	"github.com/kailas-cloud/queryfuse/internal/domain/intent"
)

// maxPhraseLen is the longest gazetteer phrase, in words.
const maxPhraseLen = 3

type lexEntry struct {
	entityType domain.EntityType
	confidence float64
}

// LexiconModel is the fast local extraction model: a curated gazetteer of
// catalog vocabulary for entity recognition plus keyword rules for
// zero-shot intent classification. Inference is pure CPU work with no
// network dependency; queries outside the gazetteer come out with low
// confidence, which routes them to the remote fallback.
type LexiconModel struct {
	loaded  atomic.Bool
	phrases map[string]lexEntry
}

// NewLexiconModel creates an unloaded lexicon model.
func NewLexiconModel() *LexiconModel {
	return &LexiconModel{}
}

// Load builds the phrase tables.
func (m *LexiconModel) Load(_ context.Context) error {
	m.phrases = buildGazetteer()
	m.loaded.Store(true)
	return nil
}

// ExtractEntities finds gazetteer phrases in text by greedy longest-match
// over word n-grams.
func (m *LexiconModel) ExtractEntities(text string) ([]domain.ExtractedEntity, error) {
	if !m.loaded.Load() {
		return nil, fmt.Errorf("lexicon model not loaded")
	}

	words := strings.Fields(domain.NormalizeText(text))
	seen := make(map[string]bool)
	var entities []domain.ExtractedEntity

	for i := 0; i < len(words); {
		matched := false
		for n := min(maxPhraseLen, len(words)-i); n >= 1; n-- {
			phrase := strings.Join(words[i:i+n], " ")
			entry, ok := m.phrases[phrase]
			if !ok {
				continue
			}
			if !seen[phrase] {
				seen[phrase] = true
				entities = append(entities, domain.ExtractedEntity{
					Text:       phrase,
					Type:       entry.entityType,
					Confidence: entry.confidence,
				})
			}
			i += n
			matched = true
			break
		}
		if !matched {
			// Unknown non-stopword tokens are weak product-name guesses;
			// their low confidence is what drives escalation.
			w := words[i]
			if !isStopword(w) && !seen[w] {
				seen[w] = true
				entities = append(entities, domain.ExtractedEntity{
					Text:       w,
					Type:       domain.EntityProduct,
					Confidence: 0.4,
				})
			}
			i++
		}
	}

	return entities, nil
}

// ClassifyIntent scores intent labels from keyword evidence.
func (m *LexiconModel) ClassifyIntent(text string) (domain.IntentClassification, error) {
	if !m.loaded.Load() {
		return domain.IntentClassification{}, fmt.Errorf("lexicon model not loaded")
	}

	normalized := " " + domain.NormalizeText(text) + " "

	for _, kw := range []string{" vs ", " versus ", " compare ", " compared ", " alternative ", " alternatives "} {
		if strings.Contains(normalized, kw) {
			return domain.IntentClassification{Label: intent.Comparison, Confidence: 0.9}, nil
		}
	}
	for _, kw := range []string{" like ", " similar "} {
		if strings.Contains(normalized, kw) {
			return domain.IntentClassification{Label: intent.Discovery, Confidence: 0.85}, nil
		}
	}

	// Attribute or feature constraints alongside a category read as
	// filter-search; confidence grows with the amount of evidence.
	entities, err := m.ExtractEntities(text)
	if err != nil {
		return domain.IntentClassification{}, err
	}
	var constraints, categories int
	for _, e := range entities {
		switch e.Type {
		case domain.EntityAttribute, domain.EntityFeature:
			constraints++
		case domain.EntityCategory:
			categories++
		}
	}
	if constraints > 0 && categories > 0 {
		conf := 0.75 + 0.05*float64(min(constraints, 4))
		return domain.IntentClassification{Label: intent.FilterSearch, Confidence: conf}, nil
	}
	if categories > 0 {
		return domain.IntentClassification{Label: intent.FilterSearch, Confidence: 0.7}, nil
	}

	return domain.IntentClassification{Label: intent.Exploration, Confidence: 0.4}, nil
}

func buildGazetteer() map[string]lexEntry {
	g := make(map[string]lexEntry, 128)

	categories := []string{
		"ui builder", "app builder", "site builder", "page builder", "form builder",
		"database", "spreadsheet", "cms", "crm", "erp",
		"api gateway", "api client", "reverse proxy", "load balancer",
		"analytics", "dashboard", "monitoring", "logging",
		"automation", "workflow engine", "scheduler", "task runner",
		"code editor", "ide", "terminal", "note taking", "wiki",
		"password manager", "vpn", "file sync", "backup",
		"email client", "newsletter", "chat", "video conferencing",
		"project management", "issue tracker", "kanban board", "time tracking",
		"image editor", "screen recorder", "pdf editor", "design tool",
	}
	for _, c := range categories {
		g[c] = lexEntry{domain.EntityCategory, phraseConfidence(c)}
	}

	features := []string{
		"hosting", "self-hosted", "self hosted", "cloud hosted",
		"offline mode", "offline", "realtime", "collaboration",
		"version control", "api access", "api", "webhooks", "plugins",
		"drag and drop", "templates", "dark mode", "encryption",
		"sso", "two factor", "audit log", "import", "export",
		"mobile app", "desktop app", "browser extension", "cli",
	}
	for _, f := range features {
		g[f] = lexEntry{domain.EntityFeature, phraseConfidence(f)}
	}

	attributes := []string{
		"free", "paid", "freemium", "open source", "open-source",
		"cheap", "lightweight", "fast", "minimal", "enterprise",
		"no code", "no-code", "low code", "low-code", "privacy friendly",
	}
	for _, a := range attributes {
		g[a] = lexEntry{domain.EntityAttribute, phraseConfidence(a)}
	}

	return g
}

// phraseConfidence: multi-word phrases are less ambiguous than single words.
func phraseConfidence(phrase string) float64 {
	if strings.ContainsAny(phrase, " -") {
		return 0.9
	}
	return 0.8
}
