package extraction

import (
	"context"

	"github.com/kailas-cloud/queryfuse/internal/domain"
)

// LocalModel is the fast in-process extraction model.
type LocalModel interface {
	// Load prepares the model. Called lazily before first inference.
	Load(ctx context.Context) error
	ExtractEntities(text string) ([]domain.ExtractedEntity, error)
	ClassifyIntent(text string) (domain.IntentClassification, error)
}

// RemoteClassifier is the remote reasoning fallback, same output contract
// as local extraction.
type RemoteClassifier interface {
	Classify(ctx context.Context, text string) (domain.Extraction, error)
}
