package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "sdgwater/internal/errors"
)

func writeYAML(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sdgwater.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

// TestLoad tests the Load function with various scenarios
func TestLoad(t *testing.T) {
	t.Setenv(ConfigFileEnv, "")

	tests := []struct {
		name        string
		setupEnv    func(t *testing.T)
		yaml        string
		wantErr     bool
		validateCfg func(*testing.T, *Config)
	}{
		{
			name: "default configuration with no env vars",
			validateCfg: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "info", cfg.Logging.Level)
				assert.Equal(t, "console", cfg.Logging.Output)
				assert.Equal(t, ".", cfg.Paths.InputDir)
				assert.Equal(t, 6, cfg.Pipeline.MaxParallelLoads)
				assert.False(t, cfg.Pipeline.SkipFailedDatasets)
				assert.Equal(t, []string{"State", "Sector"}, cfg.Pipeline.JoinKeys)
				assert.Equal(t, 90.0, cfg.Indicators.Threshold)
				assert.Len(t, cfg.Indicators.TierLabels, 5)
				assert.Equal(t, "final_sdg_water_data.csv", cfg.Output.FileName)
				assert.Equal(t, "none", cfg.Telemetry.TraceExporter)
				assert.Len(t, cfg.Datasets, 6)
			},
		},
		{
			name: "environment overrides",
			setupEnv: func(t *testing.T) {
				t.Setenv("SDG_LOGGING_LEVEL", "debug")
				t.Setenv("SDG_PATHS_OUTPUT_DIR", "out")
				t.Setenv("SDG_PIPELINE_SKIP_FAILED_DATASETS", "true")
				t.Setenv("SDG_INDICATORS_THRESHOLD", "95.5")
				t.Setenv("SDG_OUTPUT_BOM", "true")
			},
			validateCfg: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "debug", cfg.Logging.Level)
				assert.Equal(t, "out", cfg.Paths.OutputDir)
				assert.True(t, cfg.Pipeline.SkipFailedDatasets)
				assert.Equal(t, 95.5, cfg.Indicators.Threshold)
				assert.True(t, cfg.Output.BOM)
			},
		},
		{
			name: "yaml file overlays defaults",
			yaml: `
logging:
  level: warn
indicators:
  threshold: 80
  tier_labels: [Low, High]
datasets:
  - name: water
    path: water.tsv
    category_column: Sub Indicator
    value_column: Value
    key_columns: [State, Sector]
`,
			validateCfg: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "warn", cfg.Logging.Level)
				assert.Equal(t, "json", cfg.Logging.Format, "unset keys keep defaults")
				assert.Equal(t, 80.0, cfg.Indicators.Threshold)
				assert.Equal(t, []string{"Low", "High"}, cfg.Indicators.TierLabels)
				require.Len(t, cfg.Datasets, 1)
				assert.Equal(t, "water.tsv", cfg.Datasets[0].Path)
			},
		},
		{
			name: "env wins over yaml",
			yaml: "logging:\n  level: warn\n",
			setupEnv: func(t *testing.T) {
				t.Setenv("SDG_LOGGING_LEVEL", "error")
			},
			validateCfg: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "error", cfg.Logging.Level)
			},
		},
		{
			name: "invalid env value",
			setupEnv: func(t *testing.T) {
				t.Setenv("SDG_PIPELINE_MAX_PARALLEL_LOADS", "many")
			},
			wantErr: true,
		},
		{
			name:    "invalid yaml",
			yaml:    "logging: [unclosed",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.setupEnv != nil {
				tt.setupEnv(t)
			}
			path := ""
			if tt.yaml != "" {
				path = writeYAML(t, tt.yaml)
			}

			cfg, err := Load(path)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, apperrors.ErrConfig))
				return
			}
			require.NoError(t, err)
			tt.validateCfg(t, cfg)
		})
	}
}

func TestLoad_ConfigFileEnv(t *testing.T) {
	t.Setenv(ConfigFileEnv, writeYAML(t, "output:\n  file_name: custom.csv\n"))

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "custom.csv", cfg.Output.FileName)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrConfig))
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantMsg string
	}{
		{
			name:    "empty join keys",
			mutate:  func(c *Config) { c.Pipeline.JoinKeys = nil },
			wantMsg: "join_keys",
		},
		{
			name:    "dataset without keys",
			mutate:  func(c *Config) { c.Datasets[2].KeyColumns = []string{} },
			wantMsg: "key_columns",
		},
		{
			name:    "dataset without category",
			mutate:  func(c *Config) { c.Datasets[0].CategoryColumn = "" },
			wantMsg: "category_column is required",
		},
		{
			name: "duplicate dataset names",
			mutate: func(c *Config) {
				c.Datasets[1].Name = c.Datasets[0].Name
			},
			wantMsg: "unique",
		},
		{
			name:    "no datasets",
			mutate:  func(c *Config) { c.Datasets = nil },
			wantMsg: "datasets",
		},
		{
			name:    "threshold out of range",
			mutate:  func(c *Config) { c.Indicators.Threshold = 101 },
			wantMsg: "threshold",
		},
		{
			name:    "single tier",
			mutate:  func(c *Config) { c.Indicators.TierLabels = []string{"Only"} },
			wantMsg: "tier_labels",
		},
		{
			name:    "multi character delimiter",
			mutate:  func(c *Config) { c.Output.Delimiter = "||" },
			wantMsg: "single character",
		},
		{
			name:    "quote delimiter",
			mutate:  func(c *Config) { c.Datasets[0].Delimiter = `"` },
			wantMsg: "single character",
		},
		{
			name:    "unknown log level",
			mutate:  func(c *Config) { c.Logging.Level = "verbose" },
			wantMsg: "level must be one of",
		},
		{
			name:    "log file required for file output",
			mutate:  func(c *Config) { c.Logging.Output = "file"; c.Logging.FilePath = "" },
			wantMsg: "file_path is required",
		},
		{
			name:    "unknown trace exporter",
			mutate:  func(c *Config) { c.Telemetry.TraceExporter = "jaeger" },
			wantMsg: "trace_exporter",
		},
	}

	require.NoError(t, Default().Validate())

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)

			err := cfg.Validate()
			require.Error(t, err)
			assert.True(t, errors.Is(err, apperrors.ErrConfig))
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}
}

func TestDefaultDatasets(t *testing.T) {
	datasets := DefaultDatasets()

	names := make([]string, len(datasets))
	for i, ds := range datasets {
		names[i] = ds.Name
		assert.Equal(t, []string{"State", "Sector"}, ds.KeyColumns)
		assert.Equal(t, "Value", ds.ValueColumn)
	}
	assert.Equal(t, []string{DatasetWater, DatasetMedia, DatasetLatrine, DatasetAssets, DatasetMigration, DatasetMobile}, names)

	assert.Equal(t, "Internet Access", datasets[1].CategoryColumn)
	assert.Equal(t, "Indicator", datasets[5].CategoryColumn)
	assert.Equal(t, []string{"Gender"}, datasets[4].DropColumns)
	for i, ds := range datasets {
		if i != 4 {
			assert.Empty(t, ds.DropColumns, ds.Name)
		}
	}

	// callers can mutate their copy freely
	datasets[0].KeyColumns[0] = "Region"
	assert.Equal(t, "State", DefaultDatasets()[0].KeyColumns[0])
}

func TestDelimiterRune(t *testing.T) {
	assert.Equal(t, ',', OutputConfig{}.DelimiterRune())
	assert.Equal(t, ';', OutputConfig{Delimiter: ";"}.DelimiterRune())
	assert.Equal(t, '\t', DatasetConfig{}.DelimiterRune('\t'))
	assert.Equal(t, '|', DatasetConfig{Delimiter: "|"}.DelimiterRune(','))
}
