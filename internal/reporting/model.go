package reporting

// Status values follow the Allure result format.
const (
	StatusPassed  = "passed"
	StatusFailed  = "failed"
	StatusBroken  = "broken"
	StatusSkipped = "skipped"
	StatusUnknown = "unknown"
)

const (
	StageRunning  = "running"
	StageFinished = "finished"
)

// TestResult is one test case as written to `<uuid>-result.json`.
type TestResult struct {
	UUID          string        `json:"uuid"`
	HistoryID     string        `json:"historyId,omitempty"`
	Name          string        `json:"name"`
	FullName      string        `json:"fullName,omitempty"`
	Description   string        `json:"description,omitempty"`
	Status        string        `json:"status,omitempty"`
	StatusDetails StatusDetails `json:"statusDetails,omitempty"`
	Stage         string        `json:"stage"`
	Steps         []StepResult  `json:"steps"`
	Labels        []Label       `json:"labels,omitempty"`
	Start         int64         `json:"start,omitempty"`
	Stop          int64         `json:"stop,omitempty"`
}

type StatusDetails struct {
	Message string `json:"message,omitempty"`
	Trace   string `json:"trace,omitempty"`
}

type StepResult struct {
	Name   string `json:"name"`
	Status string `json:"status,omitempty"`
	Stage  string `json:"stage,omitempty"`
	Start  int64  `json:"start,omitempty"`
	Stop   int64  `json:"stop,omitempty"`
}

// Label names set by the Recorder.
const (
	LabelPackage     = "package"
	LabelFramework   = "framework"
	LabelParentSuite = "parentSuite"
)

type Label struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

func (r *TestResult) clone() TestResult {
	out := *r
	out.Steps = append([]StepResult(nil), r.Steps...)
	out.Labels = append([]Label(nil), r.Labels...)
	return out
}
