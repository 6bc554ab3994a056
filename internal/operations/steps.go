package operations

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync/atomic"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"sdgwater/internal/config"
	"sdgwater/internal/dataprocessing"
	apperrors "sdgwater/internal/errors"
	"sdgwater/internal/exporter"
	"sdgwater/internal/infrastructure"
	"sdgwater/internal/table"
)

// PipelineOptions carries what the pipeline steps need from a run
type PipelineOptions struct {
	Config *config.Config
	Paths  *config.Paths
	Logger *slog.Logger
	Tracer *OperationTracer
	// Stdout receives the console report. Nil means os.Stdout.
	Stdout io.Writer
}

// RegisterPipeline registers the load, merge, derive, write and report
// steps on m in that dependency chain
func RegisterPipeline(m *Manager, opts PipelineOptions) error {
	if opts.Config == nil || opts.Paths == nil {
		return NewFatalError("pipeline needs a config and resolved paths", nil)
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Tracer == nil {
		opts.Tracer = NewOperationTracer(nil)
	}

	steps := []Step{
		NewLoadStep(opts),
		NewMergeStep(opts),
		NewDeriveStep(opts),
		NewWriteStep(opts),
		NewReportStep(opts),
	}
	for _, step := range steps {
		if err := m.RegisterStage(step); err != nil {
			return err
		}
	}
	return nil
}

// DeriverConfigFrom maps the indicator settings onto the deriver's config
func DeriverConfigFrom(cfg config.IndicatorConfig) dataprocessing.DeriverConfig {
	dc := dataprocessing.DefaultDeriverConfig()
	if cfg.PrimaryColumn != "" {
		dc.PrimaryColumn = cfg.PrimaryColumn
	}
	if cfg.StateColumn != "" {
		dc.StateColumn = cfg.StateColumn
	}
	if cfg.SectorColumn != "" {
		dc.SectorColumn = cfg.SectorColumn
	}
	dc.Threshold = cfg.Threshold
	if len(cfg.TierLabels) > 0 {
		dc.TierLabels = append([]string(nil), cfg.TierLabels...)
	}
	return dc
}

// LoadStep reads every dataset and pivots it to wide form. Datasets load
// concurrently, bounded by max_parallel_loads.
type LoadStep struct {
	BaseStage
	datasets    []config.DatasetConfig
	paths       *config.Paths
	maxParallel int
	tracer      *OperationTracer
	logger      *slog.Logger
}

// NewLoadStep creates the load step
func NewLoadStep(opts PipelineOptions) *LoadStep {
	return &LoadStep{
		BaseStage:   NewBaseStage(StepIDLoad, StepNameLoad, nil),
		datasets:    opts.Config.Datasets,
		paths:       opts.Paths,
		maxParallel: opts.Config.Pipeline.MaxParallelLoads,
		tracer:      opts.Tracer,
		logger:      opts.Logger.With(slog.String("step", StepIDLoad)),
	}
}

// Validate requires at least one configured dataset
func (s *LoadStep) Validate(state *OperationState) error {
	if len(s.datasets) == 0 {
		return fmt.Errorf("no datasets configured")
	}
	return nil
}

// Execute loads and reshapes the datasets. A dataset that is missing, lacks
// a required column, or fails to reshape is logged and recorded as nil.
// Any other error stops the run.
func (s *LoadStep) Execute(ctx context.Context, state *OperationState) error {
	stepState := state.GetStage(s.ID())

	limit := s.maxParallel
	if limit < 1 {
		limit = 1
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)

	var done atomic.Int32
	total := len(s.datasets)

	for _, ds := range s.datasets {
		ds := ds
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			wide, err := s.loadDataset(gctx, ds)
			if err != nil {
				if !apperrors.IsRecoverable(err) {
					return fmt.Errorf("dataset %s: %w", ds.Name, err)
				}
				s.logger.WarnContext(gctx, "Dataset unavailable",
					slog.String("dataset", ds.Name),
					slog.String("path", s.paths.DatasetPath(ds)),
					slog.String("error_type", string(apperrors.TypeOf(err))),
					slog.String("error", err.Error()))
				infrastructure.RecordDatasetFailure(gctx, s.tracer.Metrics(), ds.Name, err)
				wide = nil
			}
			state.SetDataset(ds.Name, wide)

			n := done.Add(1)
			if stepState != nil {
				stepState.UpdateProgress(float64(n)*100/float64(total),
					fmt.Sprintf("Loaded %d of %d datasets", n, total))
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}

	failed := state.FailedDatasets()
	if stepState != nil {
		stepState.SetMetadata("datasets", total)
		stepState.SetMetadata("failed_datasets", failed)
	}
	s.logger.InfoContext(ctx, "Datasets loaded",
		slog.Int("datasets", total),
		slog.Int("failed", len(failed)))
	return nil
}

func (s *LoadStep) loadDataset(ctx context.Context, ds config.DatasetConfig) (*table.Table, error) {
	ctx, span := s.tracer.Tracer().Start(ctx, "load_dataset")
	defer span.End()
	span.SetAttributes(attribute.String("dataset", ds.Name))

	path := s.paths.DatasetPath(ds)
	loader := table.NewLoader(s.logger, table.LoadOptions{
		Delimiter: ds.DelimiterRune(','),
		Sheet:     ds.Sheet,
	})

	long, err := loader.Load(path)
	if err != nil {
		infrastructure.RecordError(ctx, err)
		return nil, err
	}
	infrastructure.RecordDatasetLoaded(ctx, s.tracer.Metrics(), ds.Name, long.Len())

	wide, err := dataprocessing.Reshape(long, dataprocessing.ReshapeSpec{
		CategoryColumn: ds.CategoryColumn,
		ValueColumn:    ds.ValueColumn,
		KeyColumns:     ds.KeyColumns,
		DropColumns:    ds.DropColumns,
	})
	if err != nil {
		infrastructure.RecordError(ctx, err)
		return nil, err
	}

	infrastructure.SetSpanAttributes(ctx, map[string]interface{}{
		"rows.long":    long.Len(),
		"rows.wide":    wide.Len(),
		"columns.wide": wide.Width(),
	})
	s.logger.DebugContext(ctx, "Dataset reshaped",
		slog.String("dataset", ds.Name),
		slog.Int("long_rows", long.Len()),
		slog.Int("wide_rows", wide.Len()),
		slog.Int("columns", wide.Width()))
	return wide, nil
}

// MergeStep left-joins the wide datasets onto the first one
type MergeStep struct {
	BaseStage
	datasets []config.DatasetConfig
	keys     []string
	skip     bool
	logger   *slog.Logger
}

// NewMergeStep creates the merge step
func NewMergeStep(opts PipelineOptions) *MergeStep {
	return &MergeStep{
		BaseStage: NewBaseStage(StepIDMerge, StepNameMerge, []string{StepIDLoad}),
		datasets:  opts.Config.Datasets,
		keys:      opts.Config.Pipeline.JoinKeys,
		skip:      opts.Config.Pipeline.SkipFailedDatasets,
		logger:    opts.Logger.With(slog.String("step", StepIDMerge)),
	}
}

// Validate requires every dataset to have been attempted
func (s *MergeStep) Validate(state *OperationState) error {
	for _, ds := range s.datasets {
		if _, ok := state.Dataset(ds.Name); !ok {
			return fmt.Errorf("dataset %s was not loaded", ds.Name)
		}
	}
	return nil
}

// Execute joins the datasets in configured order
func (s *MergeStep) Execute(ctx context.Context, state *OperationState) error {
	tables := make([]dataprocessing.NamedTable, 0, len(s.datasets))
	for _, ds := range s.datasets {
		t, _ := state.Dataset(ds.Name)
		tables = append(tables, dataprocessing.NamedTable{Name: ds.Name, Table: t})
	}

	merged, err := dataprocessing.MergeAll(ctx, tables, s.keys, dataprocessing.MergeOptions{
		SkipMissing: s.skip,
		Logger:      s.logger,
	})
	if err != nil {
		return err
	}

	state.SetMerged(merged)
	s.logger.InfoContext(ctx, "Datasets merged",
		slog.Int("rows", merged.Len()),
		slog.Int("columns", merged.Width()))
	return nil
}

// DeriveStep adds the SDG indicator columns and summarizes the result
type DeriveStep struct {
	BaseStage
	cfg        dataprocessing.DeriverConfig
	sampleRows int
	logger     *slog.Logger
}

// NewDeriveStep creates the derive step
func NewDeriveStep(opts PipelineOptions) *DeriveStep {
	return &DeriveStep{
		BaseStage:  NewBaseStage(StepIDDerive, StepNameDerive, []string{StepIDMerge}),
		cfg:        DeriverConfigFrom(opts.Config.Indicators),
		sampleRows: opts.Config.Output.SampleRows,
		logger:     opts.Logger.With(slog.String("step", StepIDDerive)),
	}
}

// Validate requires a merged table
func (s *DeriveStep) Validate(state *OperationState) error {
	if state.Merged() == nil {
		return fmt.Errorf("no merged table")
	}
	return nil
}

// Execute derives the indicators
func (s *DeriveStep) Execute(ctx context.Context, state *OperationState) error {
	final, err := dataprocessing.NewDeriver(s.cfg, s.logger).Derive(ctx, state.Merged())
	if err != nil {
		return err
	}

	summary := dataprocessing.Summarize(final, s.cfg, s.sampleRows)
	state.SetFinal(final, summary)
	s.logger.InfoContext(ctx, "Indicators derived",
		slog.Int("rows", summary.Rows),
		slog.Int("states", summary.States),
		slog.Int("met", summary.Count(dataprocessing.StatusMet)))
	return nil
}

// WriteStep writes the final table as CSV, plus a workbook when configured
type WriteStep struct {
	BaseStage
	paths  *config.Paths
	output config.OutputConfig
	csv    *exporter.CSVWriter
	xlsx   *exporter.XLSXWriter
	tracer *OperationTracer
	logger *slog.Logger
}

// NewWriteStep creates the write step
func NewWriteStep(opts PipelineOptions) *WriteStep {
	logger := opts.Logger.With(slog.String("step", StepIDWrite))
	return &WriteStep{
		BaseStage: NewBaseStage(StepIDWrite, StepNameWrite, []string{StepIDDerive}),
		paths:     opts.Paths,
		output:    opts.Config.Output,
		csv:       exporter.NewCSVWriter(opts.Paths, logger),
		xlsx:      exporter.NewXLSXWriter(logger),
		tracer:    opts.Tracer,
		logger:    logger,
	}
}

// Validate requires a final table
func (s *WriteStep) Validate(state *OperationState) error {
	if state.Final() == nil {
		return fmt.Errorf("no final table")
	}
	return nil
}

// Execute writes the output files
func (s *WriteStep) Execute(ctx context.Context, state *OperationState) error {
	final := state.Final()

	if err := s.csv.WriteTable(s.paths.OutputCSV, final, exporter.TableOptions{
		Delimiter: s.output.DelimiterRune(),
		BOM:       s.output.BOM,
	}); err != nil {
		return err
	}
	infrastructure.RecordRowsWritten(ctx, s.tracer.Metrics(), final.Len())

	if s.paths.OutputXLSX != "" {
		if err := s.xlsx.WriteWorkbook(s.paths.OutputXLSX, final, state.Summary()); err != nil {
			return err
		}
	}

	s.logger.InfoContext(ctx, "Output written",
		slog.String("csv", s.paths.OutputCSV),
		slog.String("xlsx", s.paths.OutputXLSX),
		slog.Int("rows", final.Len()))
	return nil
}

// ReportStep prints the console summary
type ReportStep struct {
	BaseStage
	outputPath string
	reporter   *exporter.Reporter
}

// NewReportStep creates the report step
func NewReportStep(opts PipelineOptions) *ReportStep {
	return &ReportStep{
		BaseStage:  NewBaseStage(StepIDReport, StepNameReport, []string{StepIDWrite}),
		outputPath: opts.Config.Output.FileName,
		reporter:   exporter.NewReporter(opts.Stdout),
	}
}

// Validate requires a summary
func (s *ReportStep) Validate(state *OperationState) error {
	if state.Summary() == nil {
		return fmt.Errorf("no summary")
	}
	return nil
}

// Execute prints the report
func (s *ReportStep) Execute(ctx context.Context, state *OperationState) error {
	return s.reporter.Print(s.outputPath, state.Summary())
}
