// Package inference is the model stage of the scoring engine. Providers
// take an extracted feature set and return a bounded score adjustment plus
// a narrative; the pipeline treats the whole stage as optional and falls
// back to heuristics-only when no provider answers.
package inference

import "context"

// Provider is the interface for all model connectors. Providers adjust and
// explain, they never decide: the heuristic score stands on its own and a
// provider may only nudge it within [-MaxDelta, +MaxDelta].
type Provider interface {
	Name() string
	Assess(ctx context.Context, req AssessRequest) (*Assessment, error)
	Health() ProviderHealth
}

// MaxDelta bounds how far a model adjustment can move the heuristic score.
const MaxDelta = 0.25

// AssessRequest is sent to a model provider.
type AssessRequest struct {
	Address        string         `json:"address"`
	Kind           string         `json:"kind"`
	HeuristicScore float64        `json:"heuristic_score"`
	Features       map[string]any `json:"features"`
	SourceExcerpt  string         `json:"source_excerpt,omitempty"`
	TimeoutMs      int            `json:"timeout_ms,omitempty"`
}

// Assessment is returned by a model provider. ScoreDelta is clamped to
// [-MaxDelta, +MaxDelta] by the scoring engine regardless of what the
// provider returns.
type Assessment struct {
	ScoreDelta float64  `json:"score_delta"`
	Narrative  []string `json:"narrative"`
	Confidence float64  `json:"confidence"`
	LatencyMs  int      `json:"latency_ms"`
	Provider   string   `json:"provider"`
}

// ProviderHealth reports the health status of a model provider.
type ProviderHealth struct {
	Available    bool
	ErrorRate    float64
	LatencyP95Ms int
	LastError    string
}
