package domain

import "github.com/kailas-cloud/queryfuse/internal/domain/intent"

// EntityType labels what kind of catalog concept an extracted entity names.
type EntityType string

// Entity type constants.
const (
	EntityCategory  EntityType = "category"
	EntityFeature   EntityType = "feature"
	EntityAttribute EntityType = "attribute"
	EntityProduct   EntityType = "product"
)

// ExtractedEntity is a single entity found in the query text.
// Confidence is in [0,1].
type ExtractedEntity struct {
	Text       string
	Type       EntityType
	Confidence float64
}

// IntentClassification is the single intent label assigned to a query.
type IntentClassification struct {
	Label      intent.Intent
	Confidence float64
}

// ProcessingStrategy records which extraction path produced the result.
type ProcessingStrategy string

// Processing strategy constants.
const (
	// StrategyLocal means the local model alone produced the extraction.
	StrategyLocal ProcessingStrategy = "local"
	// StrategyRemote means the remote reasoner produced the extraction.
	StrategyRemote ProcessingStrategy = "remote"
	// StrategyHybrid means a low-confidence local pass was merged with a remote pass.
	StrategyHybrid ProcessingStrategy = "hybrid"
)

// Extraction is the full output of the extraction stage.
type Extraction struct {
	Entities []ExtractedEntity
	Intent   IntentClassification
	Strategy ProcessingStrategy
}

// MaxEntityConfidence returns the highest entity confidence, 0 when empty.
func (e Extraction) MaxEntityConfidence() float64 {
	var maxConf float64
	for _, ent := range e.Entities {
		if ent.Confidence > maxConf {
			maxConf = ent.Confidence
		}
	}
	return maxConf
}
