// Package config provides centralized configuration management for the
// sdgwater pipeline. It handles loading configuration from multiple sources,
// validation, and resolution of input and output paths.
//
// # Configuration Sources
//
// Configuration is loaded from the following sources in order of precedence:
//
//	1. Environment variables (highest priority)
//	2. YAML configuration file (-config flag or SDG_CONFIG_FILE)
//	3. Default values (lowest priority)
//
// A .env file in the working directory is read before the environment is
// processed, so its values behave like exported variables.
//
// # Environment Variables
//
// All environment variables follow the pattern SDG_<SECTION>_<FIELD>:
//
//	SDG_LOGGING_LEVEL=debug
//	SDG_PATHS_INPUT_DIR=./data
//	SDG_PIPELINE_SKIP_FAILED_DATASETS=true
//	SDG_INDICATORS_THRESHOLD=95
//	SDG_OUTPUT_XLSX_FILE=final_sdg_water_data.xlsx
//
// Datasets can only be changed from the YAML file.
//
// # Datasets
//
// Each dataset is a record of where the long-form file lives and how it is
// reshaped:
//
//	datasets:
//	  - name: migration
//	    path: Main reason for Migration.csv
//	    category_column: Main reason for Migration
//	    value_column: Value
//	    key_columns: [State, Sector]
//	    drop_columns: [Gender]
//
// The first dataset is the base of the left join.
//
// # Path Management
//
// Paths resolves every location against the working directory:
//
//	paths, err := config.GetPaths(cfg)
//	csv := paths.DatasetPath(cfg.Datasets[0])
package config
