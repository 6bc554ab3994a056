// Package app wires the SDG water pipeline together and runs it once.
//
// # Initialization Flow
//
//	1. Resolve paths and create the output directories
//	2. Initialize logging (stderr by default, so stdout carries the report)
//	3. Initialize OpenTelemetry tracing and the Prometheus-backed meter
//	4. Register the load, merge, derive, write and report steps
//
// # Usage
//
//	cfg, err := config.Load(configPath)
//	if err != nil {
//	    return err
//	}
//	resp, err := app.Run(ctx, cfg, app.Options{})
//
// # Error Handling
//
// Errors are returned to the caller. The app never calls os.Exit, leaving
// the exit code to main.
package app
