package domain

import "github.com/kailas-cloud/queryfuse/internal/domain/stage"

// StageDescriptor is one planned pipeline stage.
type StageDescriptor struct {
	Stage    stage.Stage
	Optional bool
	// Reason documents why the stage was included or marked optional.
	Reason string
}

// ExecutionPlan is the ordered list of stages selected for a query,
// chosen from the classified intent before the pipeline advances past
// extraction.
type ExecutionPlan struct {
	Stages []StageDescriptor
}

// Includes reports whether the plan contains the given stage.
func (p ExecutionPlan) Includes(s stage.Stage) bool {
	for _, d := range p.Stages {
		if d.Stage == s {
			return true
		}
	}
	return false
}
