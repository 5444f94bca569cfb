package stage

// Stage is a pipeline execution stage.
type Stage string

// Pipeline stage constants, in execution order.
const (
	Received   Stage = "received"
	Extracting Stage = "extracting"
	Enriching  Stage = "enriching"
	Searching  Stage = "searching"
	Fusing     Stage = "fusing"
	Completed  Stage = "completed"
	Errored    Stage = "errored"
)

// DegradedLabel returns the degraded sub-state label for this stage,
// recorded in the execution path when a stage advanced on fallback data.
func (s Stage) DegradedLabel() string {
	return "degraded-" + string(s)
}
