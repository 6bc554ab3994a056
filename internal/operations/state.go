package operations

import (
	"sort"
	"sync"
	"time"

	"sdgwater/internal/dataprocessing"
	"sdgwater/internal/table"
)

// OperationStatus represents the overall run status
type OperationStatus string

const (
	OperationStatusPending   OperationStatus = "pending"
	OperationStatusRunning   OperationStatus = "running"
	OperationStatusCompleted OperationStatus = "completed"
	OperationStatusFailed    OperationStatus = "failed"
	OperationStatusCancelled OperationStatus = "cancelled"
)

// OperationState is the state of one pipeline run. Steps hand their
// results to later steps through it.
type OperationState struct {
	mu sync.RWMutex

	ID        string          `json:"id"`
	Status    OperationStatus `json:"status"`
	StartTime time.Time       `json:"start_time"`
	EndTime   *time.Time      `json:"end_time,omitempty"`

	Steps map[string]*StepState `json:"steps"`

	Error error `json:"-"`

	// Pipeline data. A dataset entry with a nil table is one that was
	// attempted and came back empty.
	datasets map[string]*table.Table
	merged   *table.Table
	final    *table.Table
	summary  *dataprocessing.Summary
}

// NewOperationState creates a new operation state
func NewOperationState(id string) *OperationState {
	return &OperationState{
		ID:        id,
		Status:    OperationStatusPending,
		StartTime: time.Now(),
		Steps:     make(map[string]*StepState),
		datasets:  make(map[string]*table.Table),
	}
}

// Start marks the operation as running
func (p *OperationState) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Status = OperationStatusRunning
	p.StartTime = time.Now()
}

// Complete marks the operation as completed
func (p *OperationState) Complete() {
	p.mu.Lock()
	defer p.mu.Unlock()
	now := time.Now()
	p.EndTime = &now
	p.Status = OperationStatusCompleted
}

// Fail marks the operation as failed
func (p *OperationState) Fail(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	now := time.Now()
	p.EndTime = &now
	p.Status = OperationStatusFailed
	p.Error = err
}

// Cancel marks the operation as cancelled
func (p *OperationState) Cancel() {
	p.mu.Lock()
	defer p.mu.Unlock()
	now := time.Now()
	p.EndTime = &now
	p.Status = OperationStatusCancelled
}

// GetStatus returns the current status
func (p *OperationState) GetStatus() OperationStatus {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.Status
}

// Err returns the error the run failed with
func (p *OperationState) Err() error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.Error
}

// GetStage returns the state of a specific step
func (p *OperationState) GetStage(stepID string) *StepState {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.Steps[stepID]
}

// SetStage updates the state of a specific step
func (p *OperationState) SetStage(stepID string, state *StepState) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Steps[stepID] = state
}

// Duration returns the duration of the operation execution
func (p *OperationState) Duration() time.Duration {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.EndTime != nil {
		return p.EndTime.Sub(p.StartTime)
	}
	return time.Since(p.StartTime)
}

// SetDataset records the wide table of a dataset, nil when it failed.
// Safe for concurrent loaders.
func (p *OperationState) SetDataset(name string, t *table.Table) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.datasets[name] = t
}

// Dataset returns a dataset's table and whether it was attempted
func (p *OperationState) Dataset(name string) (*table.Table, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	t, ok := p.datasets[name]
	return t, ok
}

// FailedDatasets lists the attempted datasets without a table, sorted
func (p *OperationState) FailedDatasets() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	var failed []string
	for name, t := range p.datasets {
		if t == nil {
			failed = append(failed, name)
		}
	}
	sort.Strings(failed)
	return failed
}

// SetMerged stores the joined table
func (p *OperationState) SetMerged(t *table.Table) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.merged = t
}

// Merged returns the joined table
func (p *OperationState) Merged() *table.Table {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.merged
}

// SetFinal stores the table with derived indicators
func (p *OperationState) SetFinal(t *table.Table, s *dataprocessing.Summary) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.final = t
	p.summary = s
}

// Final returns the table with derived indicators
func (p *OperationState) Final() *table.Table {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.final
}

// Summary returns the statistics of the final table
func (p *OperationState) Summary() *dataprocessing.Summary {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.summary
}

// HasFailures returns true if any step has failed
func (p *OperationState) HasFailures() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	for _, step := range p.Steps {
		if step.GetStatus() == StepStatusFailed {
			return true
		}
	}
	return false
}
