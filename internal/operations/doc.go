// Package operations runs the SDG water pipeline as a chain of steps.
//
// Core components:
//
// Manager: executes registered steps one after another in dependency order,
// wrapping each in a span and recording its duration and outcome. A failed
// step stops the run and marks its dependents as skipped.
//
// Step: a single unit of work. The pipeline registers five of them:
//
//	load    read each dataset and pivot it to wide form (concurrent)
//	merge   left-join the wide tables onto the first dataset
//	derive  add SDG_6_Status, Urban_Rural_Gap and Priority_Rank
//	write   save the CSV, and the workbook when configured
//	report  print the console summary
//
// Registry: holds steps and sorts them topologically.
//
// OperationState: the run's status, per-step state and the tables the
// steps hand to each other.
//
// Example usage:
//
//	manager := operations.NewManager(nil, operations.NewOperationTracer(tel), logger)
//	if err := operations.RegisterPipeline(manager, operations.PipelineOptions{
//		Config: cfg,
//		Paths:  paths,
//		Logger: logger,
//	}); err != nil {
//		return err
//	}
//	resp, err := manager.Execute(ctx, operations.NewOperationState(runID))
package operations
