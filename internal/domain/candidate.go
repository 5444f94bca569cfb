package domain

// FusedCandidate is one surviving unique item after rank fusion.
// Produced only by the fusion engine; ContributingSources is never empty.
type FusedCandidate struct {
	ItemID              string
	FusedScore          float64
	PerSourceScores     map[string]float64
	ContributingSources []string
	Explanation         string
	// Item carries hydrated catalog metadata; nil when hydration was
	// skipped or degraded.
	Item *Item
}

// Item is a catalog record as exposed by the item store.
type Item struct {
	ID         string            `json:"id"`
	Name       string            `json:"name"`
	Category   string            `json:"category"`
	Attributes map[string]string `json:"attributes"`
}
