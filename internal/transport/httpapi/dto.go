package httpapi

import (
	"time"

	"github.com/kailas-cloud/queryfuse/internal/domain"
	healthuc "github.com/kailas-cloud/queryfuse/internal/usecase/health"
)

// SearchRequest is the POST /v1/search body.
type SearchRequest struct {
	Query     string `json:"query"`
	Strategy  string `json:"strategy,omitempty"`
	TopK      int    `json:"top_k,omitempty"`
	Diversity bool   `json:"diversity,omitempty"`
}

// SearchResponse is the POST /v1/search success body.
type SearchResponse struct {
	Candidates []Candidate      `json:"candidates"`
	Metadata   ResponseMetadata `json:"metadata"`
}

type Candidate struct {
	ItemID              string             `json:"item_id"`
	FusedScore          float64            `json:"fused_score"`
	PerSourceScores     map[string]float64 `json:"per_source_scores"`
	ContributingSources []string           `json:"contributing_sources"`
	Explanation         string             `json:"explanation,omitempty"`
	Item                *domain.Item       `json:"item,omitempty"`
}

type ResponseMetadata struct {
	RequestID        string                   `json:"request_id"`
	ExecutionPath    []string                 `json:"execution_path"`
	TimingsMs        map[string]float64       `json:"timings_ms"`
	DegradedStages   []string                 `json:"degraded_stages,omitempty"`
	EntityStatistics []domain.EntityStatistic `json:"entity_statistics,omitempty"`
	Intent           IntentDTO                `json:"intent"`
	Strategy         string                   `json:"processing_strategy,omitempty"`
	Partial          bool                     `json:"partial,omitempty"`
}

type IntentDTO struct {
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
}

// ErrorResponse is the error body for all endpoints.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

func toSearchResponse(resp domain.SearchResponse) SearchResponse {
	out := SearchResponse{
		Candidates: make([]Candidate, 0, len(resp.Candidates)),
		Metadata: ResponseMetadata{
			RequestID:        resp.Metadata.RequestID,
			ExecutionPath:    resp.Metadata.ExecutionPath,
			TimingsMs:        make(map[string]float64, len(resp.Metadata.TimingsByStage)),
			DegradedStages:   resp.Metadata.DegradedStages,
			EntityStatistics: resp.Metadata.EntityStatistics,
			Intent: IntentDTO{
				Label:      string(resp.Metadata.Intent.Label),
				Confidence: resp.Metadata.Intent.Confidence,
			},
			Strategy: string(resp.Metadata.Strategy),
			Partial:  resp.Metadata.Partial,
		},
	}
	for s, d := range resp.Metadata.TimingsByStage {
		out.Metadata.TimingsMs[s] = float64(d) / float64(time.Millisecond)
	}
	for _, cand := range resp.Candidates {
		out.Candidates = append(out.Candidates, Candidate{
			ItemID:              cand.ItemID,
			FusedScore:          cand.FusedScore,
			PerSourceScores:     cand.PerSourceScores,
			ContributingSources: cand.ContributingSources,
			Explanation:         cand.Explanation,
			Item:                cand.Item,
		})
	}
	return out
}

func toHealthResponse(report healthuc.Report) HealthResponse {
	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}
	return HealthResponse{Status: string(report.Status), Checks: checks}
}
