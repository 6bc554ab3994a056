// Package exporter writes the results of a pipeline run.
//
// This package contains three components:
//
// CSVWriter: delimited output with a header row and no index column, with an
// optional UTF-8 BOM for Excel compatibility.
//
// XLSXWriter: an Excel workbook with the final table on a "data" sheet and
// the key statistics on a "summary" sheet.
//
// Reporter: the console summary printed at the end of a run.
//
// Example usage:
//
//	writer := exporter.NewCSVWriter(paths, logger)
//	err := writer.WriteTable("final_sdg_water_data.csv", final, exporter.TableOptions{})
//
//	summary := dataprocessing.Summarize(final, deriverCfg, 5)
//	err = exporter.NewReporter(os.Stdout).Print(paths.OutputCSV, summary)
package exporter
