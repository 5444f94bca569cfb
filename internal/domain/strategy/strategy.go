package strategy

// Strategy is the rank fusion strategy.
type Strategy string

// Fusion strategy constants.
const (
	// RRF is Reciprocal Rank Fusion: sum of 1/(k+rank) across sources.
	RRF Strategy = "rrf"
	// WeightedAverage averages normalized per-space scores weighted by space weight.
	WeightedAverage Strategy = "weighted-average"
	// SourcePriority ranks candidates by the highest-priority space that
	// found them, with raw score as the in-tier tiebreaker.
	SourcePriority Strategy = "source-priority"
)

// IsValid checks if the strategy is one of the supported values.
func (s Strategy) IsValid() bool {
	return s == RRF || s == WeightedAverage || s == SourcePriority
}
