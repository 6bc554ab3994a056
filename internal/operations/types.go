package operations

import "time"

// Pipeline step identifiers
const (
	StepIDLoad   = "load"
	StepIDMerge  = "merge"
	StepIDDerive = "derive"
	StepIDWrite  = "write"
	StepIDReport = "report"
)

// Pipeline step names
const (
	StepNameLoad   = "Load and Reshape"
	StepNameMerge  = "Merge Datasets"
	StepNameDerive = "Derive SDG Indicators"
	StepNameWrite  = "Write Output"
	StepNameReport = "Console Report"
)

// OperationResponse summarizes a finished run
type OperationResponse struct {
	ID             string          `json:"id"`
	Status         OperationStatus `json:"status"`
	Duration       time.Duration   `json:"duration"`
	Steps          []StepResponse  `json:"steps"`
	FailedDatasets []string        `json:"failed_datasets,omitempty"`
	Error          string          `json:"error,omitempty"`
}

// StepResponse is the outcome of one step
type StepResponse struct {
	ID       string        `json:"id"`
	Name     string        `json:"name"`
	Status   StepStatus    `json:"status"`
	Duration time.Duration `json:"duration"`
	Message  string        `json:"message,omitempty"`
}
