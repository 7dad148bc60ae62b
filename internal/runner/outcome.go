package runner

// Outcome is the runner's verdict for a finished execution.
type Outcome string

const (
	OutcomePassed  Outcome = "passed"
	OutcomeFailed  Outcome = "failed"
	OutcomeSkipped Outcome = "skipped"
	// OutcomeUnknown marks executions that never reported a verdict (interrupted runs,
	// truncated streams).
	OutcomeUnknown Outcome = "unknown"
)

func outcomeFromAction(action string) Outcome {
	switch action {
	case ActionPass:
		return OutcomePassed
	case ActionFail:
		return OutcomeFailed
	case ActionSkip:
		return OutcomeSkipped
	default:
		return OutcomeUnknown
	}
}

// Summary counts test case verdicts for a run. Containers are not counted.
type Summary struct {
	Passed  int `json:"passed"`
	Failed  int `json:"failed"`
	Skipped int `json:"skipped"`
	Unknown int `json:"unknown"`
	// FailedPackages counts packages whose own verdict was fail, which includes
	// packages that did not build and so reported no tests.
	FailedPackages int `json:"failed_packages,omitempty"`
}

func (s *Summary) add(o Outcome) {
	switch o {
	case OutcomePassed:
		s.Passed++
	case OutcomeFailed:
		s.Failed++
	case OutcomeSkipped:
		s.Skipped++
	default:
		s.Unknown++
	}
}

func (s *Summary) merge(o Summary) {
	s.Passed += o.Passed
	s.Failed += o.Failed
	s.Skipped += o.Skipped
	s.Unknown += o.Unknown
	s.FailedPackages += o.FailedPackages
}

// Total returns the number of test cases that finished.
func (s Summary) Total() int {
	return s.Passed + s.Failed + s.Skipped + s.Unknown
}

// OK reports whether the run had no failed or unknown test cases and no failed package.
func (s Summary) OK() bool {
	return s.Failed == 0 && s.Unknown == 0 && s.FailedPackages == 0
}
