// Package dataprocessing turns the loaded survey tables into the final
// SDG indicator table.
//
// # Architecture
//
// The package has three parts:
//
//  1. Reshape: pivots a long (State, Sector, Category, Value) table into one
//     row per (State, Sector) with one column per category
//  2. Merge: left-joins the reshaped tables on State and Sector, starting
//     from the water access table
//  3. Indicators: sector encoding, SDG 6.1 compliance, the urban-rural gap and
//     the quantile priority tier, followed by Summarize for the console report
//
// The join gathers right-hand rows and the per-state means are grouped on
// Arrow arrays through internal/columnar. The pivot stays row-oriented.
//
// # Usage
//
//	wide, err := dataprocessing.Reshape(long, dataprocessing.ReshapeSpec{
//	    CategoryColumn: "Water Source",
//	    ValueColumn:    "Value",
//	    KeyColumns:     []string{"State", "Sector"},
//	})
//
//	merged, err := dataprocessing.MergeAll(ctx, tables, []string{"State", "Sector"},
//	    dataprocessing.MergeOptions{})
//
//	final, err := dataprocessing.NewDeriver(dataprocessing.DefaultDeriverConfig(), logger).
//	    Derive(ctx, merged)
//
// # Data Flow
//
//	CSV/XLSX → table.Loader → Reshape → MergeAll → Deriver → Summarize
//
// # Error Handling
//
// Errors are *errors.AppError values from internal/errors, so callers can
// branch on the type (RESHAPE, JOIN, QUANTILE, VALUE) with errors.Is.
package dataprocessing
