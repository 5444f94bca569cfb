package domain

// VectorSearchResult is a single hit from a named vector space.
// Rank is 1-based and assigned by the issuing space; it is never
// re-sorted before fusion.
type VectorSearchResult struct {
	itemID string
	score  float64
	space  string
	rank   int
}

// NewVectorSearchResult creates a space hit.
func NewVectorSearchResult(itemID string, score float64, space string, rank int) VectorSearchResult {
	return VectorSearchResult{itemID: itemID, score: score, space: space, rank: rank}
}

// ItemID returns the canonical item identifier.
func (r *VectorSearchResult) ItemID() string { return r.itemID }

// Score returns the similarity score assigned by the space.
func (r *VectorSearchResult) Score() float64 { return r.score }

// Space returns the name of the issuing vector space.
func (r *VectorSearchResult) Space() string { return r.space }

// Rank returns the 1-based rank within the space's result list.
func (r *VectorSearchResult) Rank() int { return r.rank }

// VectorSpace is a named semantic projection of catalog items,
// independently searchable.
type VectorSpace struct {
	// Name identifies the space ("semantic", "category", "functional", ...).
	Name string
	// Instruction is prepended to query text before embedding; spaces that
	// share an instruction share one embedding computation per request.
	Instruction string
	// Weight is used by the weighted-average fusion strategy.
	Weight float64
}

// SemanticSpaceName is the general-description space used as the
// single-space degrade path when all requested spaces fail.
const SemanticSpaceName = "semantic"
