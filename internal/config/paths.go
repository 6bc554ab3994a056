package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// Paths contains all the file locations used by a run.
// Relative directories are resolved against the working directory, matching
// how the survey files are usually dropped next to the binary's invocation.
type Paths struct {
	WorkingDir string
	InputDir   string
	OutputDir  string
	LogsDir    string

	// Well-known output files
	OutputCSV       string
	OutputXLSX      string
	MetricsTextfile string
	TraceFile       string
}

// GetPaths resolves the configured locations into absolute paths
func GetPaths(cfg *Config) (*Paths, error) {
	wd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("failed to get working directory: %v", err)
	}

	resolve := func(p string) string {
		if p == "" {
			return ""
		}
		if filepath.IsAbs(p) {
			return filepath.Clean(p)
		}
		return filepath.Join(wd, p)
	}

	inputDir := resolve(cfg.Paths.InputDir)
	if inputDir == "" {
		inputDir = wd
	}
	outputDir := resolve(cfg.Paths.OutputDir)
	if outputDir == "" {
		outputDir = wd
	}

	paths := &Paths{
		WorkingDir: wd,
		InputDir:   inputDir,
		OutputDir:  outputDir,
		OutputCSV:  filepath.Join(outputDir, cfg.Output.FileName),
	}

	if cfg.Logging.FilePath != "" {
		paths.LogsDir = filepath.Dir(resolve(cfg.Logging.FilePath))
	}
	if cfg.Output.XLSXFile != "" {
		paths.OutputXLSX = paths.outputFile(cfg.Output.XLSXFile)
	}
	if cfg.Telemetry.MetricsTextfile != "" {
		paths.MetricsTextfile = paths.outputFile(cfg.Telemetry.MetricsTextfile)
	}
	if cfg.Telemetry.TraceFile != "" {
		paths.TraceFile = paths.outputFile(cfg.Telemetry.TraceFile)
	}

	return paths, nil
}

// outputFile places bare file names in the output directory
func (p *Paths) outputFile(name string) string {
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(p.OutputDir, name)
}

// DatasetPath returns where a dataset is read from
func (p *Paths) DatasetPath(ds DatasetConfig) string {
	if filepath.IsAbs(ds.Path) {
		return ds.Path
	}
	return filepath.Join(p.InputDir, ds.Path)
}

// EnsureDirectories creates the output directories if they don't exist.
// The input directory is never created.
func (p *Paths) EnsureDirectories() error {
	directories := []string{p.OutputDir}
	if p.LogsDir != "" {
		directories = append(directories, p.LogsDir)
	}

	logger := slog.Default()
	for _, dir := range directories {
		if err := os.MkdirAll(dir, DirPermissions); err != nil {
			return fmt.Errorf("failed to create directory %s: %v", dir, err)
		}
		logger.Debug("Ensured directory exists", slog.String("directory", dir))
	}
	return nil
}

// FileExists checks if a file exists
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return !os.IsNotExist(err)
}

// LogPathResolution logs the resolved locations for debugging
func (p *Paths) LogPathResolution(logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("Path resolution summary",
		slog.Group("directories",
			slog.String("working", p.WorkingDir),
			slog.String("input", p.InputDir),
			slog.String("output", p.OutputDir),
		),
		slog.Group("output_files",
			slog.String("csv", p.OutputCSV),
			slog.String("xlsx", p.OutputXLSX),
			slog.String("metrics", p.MetricsTextfile),
		))
}
