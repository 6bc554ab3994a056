package operations

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"sdgwater/internal/infrastructure"
)

// Manager runs registered steps in dependency order
type Manager struct {
	registry *Registry
	tracer   *OperationTracer
	logger   *slog.Logger
}

// NewManager creates a new operation manager. A nil registry, tracer or
// logger falls back to an empty registry, a no-op tracer and slog.Default.
func NewManager(registry *Registry, tracer *OperationTracer, logger *slog.Logger) *Manager {
	if registry == nil {
		registry = NewRegistry()
	}
	if tracer == nil {
		tracer = NewOperationTracer(nil)
	}
	return &Manager{
		registry: registry,
		tracer:   tracer,
		logger:   infrastructure.WithComponent(logger, "operations"),
	}
}

// RegisterStage registers a new step with the manager
func (m *Manager) RegisterStage(step Step) error {
	return m.registry.Register(step)
}

// GetRegistry returns the step registry
func (m *Manager) GetRegistry() *Registry {
	return m.registry
}

// Execute runs every registered step against state. Steps run one after
// another; the first failure stops the run and skips its dependents.
func (m *Manager) Execute(ctx context.Context, state *OperationState) (*OperationResponse, error) {
	if state == nil {
		return nil, NewFatalError("operation state is nil", nil)
	}

	steps, err := m.registry.GetDependencyOrder()
	if err != nil {
		return nil, NewFatalError("failed to resolve step order", err)
	}

	for _, step := range steps {
		state.SetStage(step.ID(), NewStepState(step.ID(), step.Name()))
	}

	ctx, span := m.tracer.TraceOperationExecution(ctx, state.ID)
	state.Start()
	m.logger.InfoContext(ctx, "operation_started",
		slog.String("operation_id", state.ID),
		slog.Int("steps", len(steps)))

	runErr := m.executeSequential(ctx, state, steps)

	switch {
	case runErr == nil:
		state.Complete()
		m.logger.InfoContext(ctx, "operation_completed",
			slog.String("operation_id", state.ID),
			slog.Duration("duration", state.Duration()))
	case GetErrorType(runErr) == ErrorTypeCancellation:
		state.Cancel()
		m.logger.WarnContext(ctx, "operation_cancelled",
			slog.String("operation_id", state.ID),
			slog.String("error", runErr.Error()))
	default:
		state.Fail(runErr)
		m.logger.ErrorContext(ctx, "operation_failed",
			slog.String("operation_id", state.ID),
			slog.String("error", runErr.Error()))
	}

	m.tracer.RecordOperationCompletion(span, state.GetStatus(), runErr)
	return m.createResponse(state, steps), runErr
}

func (m *Manager) executeSequential(ctx context.Context, state *OperationState, steps []Step) error {
	for _, step := range steps {
		if err := ctx.Err(); err != nil {
			state.GetStage(step.ID()).Skip("operation cancelled")
			m.skipDependentStages(state, step.ID())
			return NewCancellationError(step.ID(), err)
		}

		if err := m.executeStage(ctx, state, step); err != nil {
			m.skipDependentStages(state, step.ID())
			return err
		}
	}
	return nil
}

func (m *Manager) executeStage(ctx context.Context, state *OperationState, step Step) error {
	stepState := state.GetStage(step.ID())
	if stepState == nil {
		return NewFatalError(fmt.Sprintf("state of step %s not found", step.ID()), nil)
	}

	if err := m.checkDependencies(state, step); err != nil {
		m.logger.WarnContext(ctx, "dependencies_not_met",
			slog.String("operation_id", state.ID),
			slog.String("step", step.ID()),
			slog.String("error", err.Error()))
		stepState.Skip(fmt.Sprintf("Dependencies not met: %v", err))
		return err
	}

	if err := step.Validate(state); err != nil {
		m.logger.WarnContext(ctx, "validation_failed",
			slog.String("operation_id", state.ID),
			slog.String("step", step.ID()),
			slog.String("error", err.Error()))
		verr := NewValidationError(step.ID(), err.Error())
		stepState.Fail(verr)
		return verr
	}

	stepCtx, span := m.tracer.TraceStepExecution(ctx, state.ID, step)
	stepState.Start()
	m.logger.InfoContext(stepCtx, "step_started",
		slog.String("operation_id", state.ID),
		slog.String("step", step.ID()),
		slog.String("name", step.Name()))

	start := time.Now()
	err := step.Execute(stepCtx, state)
	duration := time.Since(start)
	m.tracer.RecordStepCompletion(stepCtx, span, step.ID(), duration, err)

	if err != nil {
		stepState.Fail(err)
		m.logger.ErrorContext(ctx, "step_failed",
			slog.String("operation_id", state.ID),
			slog.String("step", step.ID()),
			slog.Duration("duration", duration),
			slog.String("error", err.Error()))

		if ctxErr := ctx.Err(); ctxErr != nil {
			return NewCancellationError(step.ID(), ctxErr)
		}
		return WrapError(err, step.ID(), "step execution failed")
	}

	stepState.Complete()
	m.logger.InfoContext(ctx, "step_completed",
		slog.String("operation_id", state.ID),
		slog.String("step", step.ID()),
		slog.Duration("duration", duration))
	return nil
}

// skipDependentStages marks every pending step that depends on failedID
func (m *Manager) skipDependentStages(state *OperationState, failedID string) {
	for _, dependent := range m.registry.GetDependents(failedID) {
		if s := state.GetStage(dependent.ID()); s != nil && s.GetStatus() == StepStatusPending {
			s.Skip(fmt.Sprintf("Dependency %s did not complete", failedID))
		}
	}
}

func (m *Manager) checkDependencies(state *OperationState, step Step) error {
	for _, dep := range step.GetDependencies() {
		depState := state.GetStage(dep)
		if depState == nil {
			return NewDependencyError(step.ID(), dep, fmt.Sprintf("dependency %s has no state", dep))
		}
		if depState.GetStatus() != StepStatusCompleted {
			return NewDependencyError(step.ID(), dep, fmt.Sprintf("dependency %s is %s", dep, depState.GetStatus()))
		}
	}
	return nil
}

func (m *Manager) createResponse(state *OperationState, steps []Step) *OperationResponse {
	resp := &OperationResponse{
		ID:             state.ID,
		Status:         state.GetStatus(),
		Duration:       state.Duration(),
		Steps:          make([]StepResponse, 0, len(steps)),
		FailedDatasets: state.FailedDatasets(),
	}
	for _, step := range steps {
		s := state.GetStage(step.ID())
		s.mu.RLock()
		resp.Steps = append(resp.Steps, StepResponse{
			ID:      s.ID,
			Name:    s.Name,
			Status:  s.Status,
			Message: s.Message,
		})
		s.mu.RUnlock()
		resp.Steps[len(resp.Steps)-1].Duration = s.Duration()
	}
	if err := state.Err(); err != nil {
		resp.Error = err.Error()
	}
	return resp
}
