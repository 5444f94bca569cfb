package intent

// Intent is the query intent label.
type Intent string

// Intent label constants.
const (
	// FilterSearch looks for items matching explicit attribute constraints.
	FilterSearch Intent = "filter-search"
	// Comparison weighs two or more named items against each other.
	Comparison Intent = "comparison"
	// Discovery looks for items similar to a named one.
	Discovery Intent = "discovery"
	// Exploration is open-ended browsing with no concrete target.
	Exploration Intent = "exploration"
)

// IsValid checks if the intent is one of the supported labels.
func (i Intent) IsValid() bool {
	return i == FilterSearch || i == Comparison || i == Discovery || i == Exploration
}
