package pipeline

import (
	"github.com/kailas-cloud/queryfuse/internal/domain"
	"github.com/kailas-cloud/queryfuse/internal/domain/intent"
	"github.com/kailas-cloud/queryfuse/internal/domain/stage"
)

// simpleIntentConfidence is the intent confidence above which a plain
// filter search skips enrichment entirely.
const simpleIntentConfidence = 0.85

// planFor decides which stages this request runs. Searching and fusing
// always run; enrichment is left out when there is nothing to profile
// or when the intent is confidently a plain filter search. When
// present it is optional: its degradation never fails the request.
func planFor(extraction domain.Extraction) domain.ExecutionPlan {
	stages := []domain.StageDescriptor{
		{Stage: stage.Extracting},
	}

	enrich := len(extraction.Entities) > 0 &&
		!(extraction.Intent.Label == intent.FilterSearch &&
			extraction.Intent.Confidence >= simpleIntentConfidence)
	if enrich {
		stages = append(stages, domain.StageDescriptor{
			Stage:    stage.Enriching,
			Optional: true,
			Reason:   "entities present and intent benefits from context",
		})
	}

	stages = append(stages,
		domain.StageDescriptor{Stage: stage.Searching},
		domain.StageDescriptor{Stage: stage.Fusing},
	)
	return domain.ExecutionPlan{Stages: stages}
}
