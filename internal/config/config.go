package config

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"strings"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"

	apperrors "sdgwater/internal/errors"
)

// EnvPrefix is the prefix of every environment override, e.g. SDG_LOGGING_LEVEL.
const EnvPrefix = "SDG"

// ConfigFileEnv names the variable that points at a YAML config file.
const ConfigFileEnv = "SDG_CONFIG_FILE"

// Config represents the complete pipeline configuration
type Config struct {
	Logging    LoggingConfig   `yaml:"logging" envconfig:"LOGGING"`
	Paths      PathsConfig     `yaml:"paths" envconfig:"PATHS"`
	Pipeline   PipelineConfig  `yaml:"pipeline" envconfig:"PIPELINE"`
	Indicators IndicatorConfig `yaml:"indicators" envconfig:"INDICATORS"`
	Output     OutputConfig    `yaml:"output" envconfig:"OUTPUT"`
	Telemetry  TelemetryConfig `yaml:"telemetry" envconfig:"TELEMETRY"`
	Datasets   []DatasetConfig `yaml:"datasets" ignored:"true" validate:"min=1,unique=Name,dive"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level    string `yaml:"level" envconfig:"LEVEL" validate:"oneof=debug info warn warning error"`
	Format   string `yaml:"format" envconfig:"FORMAT" validate:"oneof=json text"`
	Output   string `yaml:"output" envconfig:"OUTPUT" validate:"oneof=console file both"`
	FilePath string `yaml:"file_path" envconfig:"FILE_PATH" validate:"required_unless=Output console"`
}

// PathsConfig contains file system locations. Relative paths resolve
// against the working directory.
type PathsConfig struct {
	InputDir  string `yaml:"input_dir" envconfig:"INPUT_DIR"`
	OutputDir string `yaml:"output_dir" envconfig:"OUTPUT_DIR"`
}

// PipelineConfig controls how datasets are combined
type PipelineConfig struct {
	MaxParallelLoads   int      `yaml:"max_parallel_loads" envconfig:"MAX_PARALLEL_LOADS" validate:"min=1"`
	SkipFailedDatasets bool     `yaml:"skip_failed_datasets" envconfig:"SKIP_FAILED_DATASETS"`
	JoinKeys           []string `yaml:"join_keys" envconfig:"JOIN_KEYS" validate:"min=1,dive,required"`
}

// IndicatorConfig controls the derived SDG columns
type IndicatorConfig struct {
	PrimaryColumn string   `yaml:"primary_column" envconfig:"PRIMARY_COLUMN" validate:"required"`
	StateColumn   string   `yaml:"state_column" envconfig:"STATE_COLUMN" validate:"required"`
	SectorColumn  string   `yaml:"sector_column" envconfig:"SECTOR_COLUMN" validate:"required"`
	Threshold     float64  `yaml:"threshold" envconfig:"THRESHOLD" validate:"gte=0,lte=100"`
	TierLabels    []string `yaml:"tier_labels" envconfig:"TIER_LABELS" validate:"min=2,dive,required"`
}

// OutputConfig controls what the run writes
type OutputConfig struct {
	FileName   string `yaml:"file_name" envconfig:"FILE_NAME" validate:"required"`
	Delimiter  string `yaml:"delimiter" envconfig:"DELIMITER" validate:"delimiter"`
	BOM        bool   `yaml:"bom" envconfig:"BOM"`
	XLSXFile   string `yaml:"xlsx_file" envconfig:"XLSX_FILE"`
	SampleRows int    `yaml:"sample_rows" envconfig:"SAMPLE_ROWS" validate:"min=0"`
}

// TelemetryConfig contains tracing and metrics configuration
type TelemetryConfig struct {
	ServiceName     string `yaml:"service_name" envconfig:"SERVICE_NAME"`
	Environment     string `yaml:"environment" envconfig:"ENVIRONMENT"`
	TraceExporter   string `yaml:"trace_exporter" envconfig:"TRACE_EXPORTER" validate:"oneof=none stdout"`
	TraceFile       string `yaml:"trace_file" envconfig:"TRACE_FILE"`
	MetricsTextfile string `yaml:"metrics_textfile" envconfig:"METRICS_TEXTFILE"`
}

// Default returns the configuration that reproduces the original batch:
// six datasets in the working directory, output next to them.
func Default() *Config {
	return &Config{
		Logging: LoggingConfig{
			Level:    "info",
			Format:   "json",
			Output:   "console",
			FilePath: "logs/sdgwater.log",
		},
		Paths: PathsConfig{
			InputDir:  ".",
			OutputDir: ".",
		},
		Pipeline: PipelineConfig{
			MaxParallelLoads: len(DefaultDatasets()),
			JoinKeys:         []string{"State", "Sector"},
		},
		Indicators: IndicatorConfig{
			PrimaryColumn: "Improved_Source_of_Drinking_Water",
			StateColumn:   "State",
			SectorColumn:  "Sector",
			Threshold:     DefaultThreshold,
			TierLabels:    append([]string(nil), DefaultTierLabels...),
		},
		Output: OutputConfig{
			FileName:   DefaultOutputFile,
			Delimiter:  ",",
			SampleRows: DefaultSampleRows,
		},
		Telemetry: TelemetryConfig{
			ServiceName:   AppName,
			Environment:   "development",
			TraceExporter: "none",
		},
		Datasets: DefaultDatasets(),
	}
}

// Load builds the configuration: defaults, then the YAML file (path argument,
// or SDG_CONFIG_FILE), then SDG_* environment variables. A .env file in the
// working directory is read first when present.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, apperrors.NewConfigError("failed to load .env", err)
	}

	cfg := Default()

	if path == "" {
		path = os.Getenv(ConfigFileEnv)
	}
	if path != "" {
		if err := loadFromFile(path, cfg); err != nil {
			return nil, apperrors.NewConfigError("failed to load config from file", err)
		}
	}

	// Load from environment variables last so they take precedence
	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, apperrors.NewConfigError("failed to load config from env", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadFromFile overlays a YAML file onto cfg
func loadFromFile(filePath string, cfg *Config) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

// Validate checks the configuration with struct tags
func (c *Config) Validate() error {
	v := newValidator()
	if err := v.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, formatValidationError(fe))
			}
			return apperrors.NewConfigError("config validation failed", errors.New(strings.Join(msgs, "; ")))
		}
		return apperrors.NewConfigError("config validation failed", err)
	}
	return nil
}

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterValidation("delimiter", isDelimiter)

	// Use YAML tag names in error messages
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("yaml"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
	return v
}

// isDelimiter accepts empty (default) or a single rune that csv can split on
func isDelimiter(fl validator.FieldLevel) bool {
	s := fl.Field().String()
	if s == "" {
		return true
	}
	if utf8.RuneCountInString(s) != 1 {
		return false
	}
	r, _ := utf8.DecodeRuneInString(s)
	return r != '"' && r != '\r' && r != '\n' && r != utf8.RuneError
}

func formatValidationError(fe validator.FieldError) string {
	field := fe.Namespace()
	switch fe.Tag() {
	case "required", "required_unless":
		return fmt.Sprintf("%s is required", field)
	case "min":
		return fmt.Sprintf("%s must have at least %s", field, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s]", field, fe.Param())
	case "gte", "lte":
		return fmt.Sprintf("%s must be %s %s", field, fe.Tag(), fe.Param())
	case "unique":
		return fmt.Sprintf("%s must have unique %s", field, fe.Param())
	case "delimiter":
		return fmt.Sprintf("%s must be a single character", field)
	default:
		return fmt.Sprintf("%s failed %s validation", field, fe.Tag())
	}
}

// DelimiterRune returns the output delimiter rune, comma when unset.
func (o OutputConfig) DelimiterRune() rune {
	if o.Delimiter == "" {
		return ','
	}
	r, _ := utf8.DecodeRuneInString(o.Delimiter)
	return r
}
