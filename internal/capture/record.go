package capture

import "time"

type Status string

const (
	StatusPassed  Status = "PASSED"
	StatusFailed  Status = "FAILED"
	StatusBroken  Status = "BROKEN"
	StatusSkipped Status = "SKIPPED"
	StatusUnknown Status = "UNKNOWN"
)

// OutcomeRecord is the captured result of one finished test case.
// Records are values; Steps is never shared with the reporting layer.
type OutcomeRecord struct {
	// CorrelationID is the reporting layer's uuid for the test case. It stops resolving
	// once the reporting layer flushed the test case.
	CorrelationID string    `json:"correlation_id"`
	Name          string    `json:"name"`
	Package       string    `json:"package,omitempty"`
	FullName      string    `json:"full_name,omitempty"`
	Status        Status    `json:"status"`
	Steps         []string  `json:"steps,omitempty"`
	Description   string    `json:"description,omitempty"`
	Start         time.Time `json:"start,omitzero"`
	Stop          time.Time `json:"stop,omitzero"`
}
