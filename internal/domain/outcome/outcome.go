// Package outcome models stage results that distinguish clean success,
// degraded success (fallback or partial data), and exhausted failure, so
// callers and tests can assert on the path taken rather than only the value.
package outcome

// Status is the result status of a stage.
type Status string

// Outcome status constants.
const (
	StatusOK       Status = "ok"
	StatusDegraded Status = "degraded"
	StatusFailed   Status = "failed"
)

// Outcome carries a stage value together with how it was produced.
type Outcome[T any] struct {
	value  T
	status Status
	reason string
	err    error
}

// Ok wraps a value produced on the primary path.
func Ok[T any](v T) Outcome[T] {
	return Outcome[T]{value: v, status: StatusOK}
}

// Degraded wraps a value produced on a fallback or partial-data path.
func Degraded[T any](v T, reason string) Outcome[T] {
	return Outcome[T]{value: v, status: StatusDegraded, reason: reason}
}

// Failed marks a stage whose fallback options are exhausted.
func Failed[T any](err error) Outcome[T] {
	return Outcome[T]{status: StatusFailed, err: err}
}

// Value returns the stage value (zero value when failed).
func (o Outcome[T]) Value() T { return o.value }

// Status returns the result status.
func (o Outcome[T]) Status() Status { return o.status }

// Reason returns the degradation reason, empty unless degraded.
func (o Outcome[T]) Reason() string { return o.reason }

// Err returns the terminal error, nil unless failed.
func (o Outcome[T]) Err() error { return o.err }

// IsOK reports a clean primary-path result.
func (o Outcome[T]) IsOK() bool { return o.status == StatusOK }

// IsDegraded reports a fallback or partial-data result.
func (o Outcome[T]) IsDegraded() bool { return o.status == StatusDegraded }

// IsFailed reports an exhausted failure.
func (o Outcome[T]) IsFailed() bool { return o.status == StatusFailed }
