// Package metrics defines the backend contract the service reports
// through. Implementations live in subpackages; Noop keeps call sites
// unconditional.
package metrics

// Labels tag one observation.
type Labels map[string]string

// Metric names. Backends may rewrite them to their own naming scheme.
const (
	MetricUploads              = "reshape_uploads_total"
	MetricPlans                = "reshape_plans_total"
	MetricValidationRejections = "reshape_validation_rejections_total"
	MetricExecutions           = "reshape_executions_total"
	MetricSessions             = "reshape_sessions_total"
	MetricExecuteDuration      = "reshape_execute_duration_seconds"
)

// Backend receives counter increments and duration samples. Flush
// pushes buffered observations; Close flushes once more and stops any
// background work.
type Backend interface {
	IncCounter(name string, delta float64, labels Labels)
	ObserveDuration(name string, seconds float64, labels Labels)
	Flush() error
	Close() error
}

// Noop discards every observation.
type Noop struct{}

func (Noop) IncCounter(string, float64, Labels)      {}
func (Noop) ObserveDuration(string, float64, Labels) {}
func (Noop) Flush() error                            { return nil }
func (Noop) Close() error                            { return nil }

var _ Backend = Noop{}
