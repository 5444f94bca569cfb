package domain

// AttributeShare is one value of an attribute with its share of the sample.
type AttributeShare struct {
	Value      string `json:"value"`
	Percentage int    `json:"percentage"`
}

// EntityStatistic is the statistical profile of one extracted entity,
// built from catalog items similar to the entity text. Generated fresh
// per query; persisted only through the cache, bounded by TTL.
type EntityStatistic struct {
	Entity              string                      `json:"entity"`
	Distributions       map[string][]AttributeShare `json:"distributions"`
	SampleSize          int                         `json:"sample_size"`
	Confidence          float64                     `json:"confidence"`
	ContributingSources []string                    `json:"contributing_sources"`
}

// MinimalStatistic is the zero-sample profile returned when similarity
// search found nothing for an entity or the backend was unavailable.
func MinimalStatistic(entity string) EntityStatistic {
	return EntityStatistic{
		Entity:        entity,
		Distributions: map[string][]AttributeShare{},
	}
}
