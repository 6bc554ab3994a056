package dataprocessing

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"

	"github.com/apache/arrow-go/v18/arrow/memory"

	"sdgwater/internal/columnar"
	apperrors "sdgwater/internal/errors"
	"sdgwater/internal/table"
)

// Compliance labels written to the status column.
const (
	StatusMet    = "Met"
	StatusNotMet = "Not Met"
)

// DefaultTierLabels are the priority tiers from most to least urgent.
var DefaultTierLabels = []string{"Tier 1 (Urgent)", "Tier 2", "Tier 3", "Tier 4", "Tier 5 (Best)"}

// DeriverConfig names the columns and thresholds used by the Deriver.
type DeriverConfig struct {
	PrimaryColumn string
	StateColumn   string
	SectorColumn  string
	RuralLabel    string
	UrbanLabel    string
	Threshold     float64
	TierLabels    []string

	StatusColumn string
	GapColumn    string
	RankColumn   string
}

// DefaultDeriverConfig returns the SDG 6.1 settings: improved drinking water
// source as the indicator, 90% as the target.
func DefaultDeriverConfig() DeriverConfig {
	return DeriverConfig{
		PrimaryColumn: "Improved_Source_of_Drinking_Water",
		StateColumn:   "State",
		SectorColumn:  "Sector",
		RuralLabel:    "Rural",
		UrbanLabel:    "Urban",
		Threshold:     90,
		TierLabels:    DefaultTierLabels,
		StatusColumn:  "SDG_6_Status",
		GapColumn:     "Urban_Rural_Gap",
		RankColumn:    "Priority_Rank",
	}
}

// Deriver adds the SDG indicator columns to a merged table.
type Deriver struct {
	cfg    DeriverConfig
	logger *slog.Logger
}

// NewDeriver creates a Deriver. A nil logger falls back to slog.Default().
func NewDeriver(cfg DeriverConfig, logger *slog.Logger) *Deriver {
	if logger == nil {
		logger = slog.Default()
	}
	if len(cfg.TierLabels) == 0 {
		cfg.TierLabels = DefaultTierLabels
	}
	return &Deriver{
		cfg:    cfg,
		logger: logger.With(slog.String("component", "deriver")),
	}
}

// Derive runs every step in order and returns the table with rows lacking
// the primary indicator removed. t is modified in place by the earlier steps.
func (d *Deriver) Derive(ctx context.Context, t *table.Table) (*table.Table, error) {
	if err := t.Require(d.cfg.StateColumn, d.cfg.SectorColumn, d.cfg.PrimaryColumn); err != nil {
		return nil, err
	}
	if err := d.EncodeSector(t); err != nil {
		return nil, fmt.Errorf("encode sector: %w", err)
	}
	if err := d.FlagCompliance(t); err != nil {
		return nil, fmt.Errorf("compliance flag: %w", err)
	}
	if err := d.UrbanRuralGap(ctx, t); err != nil {
		return nil, fmt.Errorf("urban rural gap: %w", err)
	}
	if err := d.PriorityRank(ctx, t); err != nil {
		return nil, fmt.Errorf("priority rank: %w", err)
	}
	out, err := d.DropMissingPrimary(t)
	if err != nil {
		return nil, err
	}

	d.logger.Info("Derived indicators",
		slog.Int("rows_in", t.Len()),
		slog.Int("rows_out", out.Len()))
	return out, nil
}

// EncodeSector replaces the rural label with 0 and the urban label with 1.
// Any other value, null included, is a value error.
func (d *Deriver) EncodeSector(t *table.Table) error {
	sectors, err := t.Column(d.cfg.SectorColumn)
	if err != nil {
		return err
	}
	encoded := make([]table.Value, len(sectors))
	for i, v := range sectors {
		switch {
		case v.Kind() == table.KindString && v.Text() == d.cfg.RuralLabel:
			encoded[i] = table.Number(0)
		case v.Kind() == table.KindString && v.Text() == d.cfg.UrbanLabel:
			encoded[i] = table.Number(1)
		default:
			return apperrors.NewValueError(d.cfg.SectorColumn, v.String(), i)
		}
	}
	return t.SetColumn(d.cfg.SectorColumn, encoded)
}

// FlagCompliance marks rows whose primary indicator reaches the threshold.
func (d *Deriver) FlagCompliance(t *table.Table) error {
	primary, err := t.Column(d.cfg.PrimaryColumn)
	if err != nil {
		return err
	}
	status := make([]table.Value, len(primary))
	for i, v := range primary {
		if f, ok := v.Float(); ok && f >= d.cfg.Threshold {
			status[i] = table.String(StatusMet)
		} else {
			status[i] = table.String(StatusNotMet)
		}
	}
	return t.SetColumn(d.cfg.StatusColumn, status)
}

// UrbanRuralGap computes, per state, the mean primary indicator of urban rows
// minus that of rural rows and writes it to every row of the state. A state
// missing either side gets null, as does a row with a null state. Sector
// must already be encoded.
func (d *Deriver) UrbanRuralGap(ctx context.Context, t *table.Table) error {
	if err := t.Require(d.cfg.StateColumn, d.cfg.SectorColumn, d.cfg.PrimaryColumn); err != nil {
		return err
	}

	names := table.UniqueNames([]string{d.cfg.StateColumn, "urban", "rural"})
	split, err := table.New(names...)
	if err != nil {
		return err
	}
	for i := 0; i < t.Len(); i++ {
		row := []table.Value{t.Get(i, d.cfg.StateColumn), table.Null, table.Null}
		v := t.Get(i, d.cfg.PrimaryColumn)
		if _, ok := v.Float(); ok {
			sector, ok := t.Get(i, d.cfg.SectorColumn).Float()
			if !ok {
				return apperrors.NewValueError(d.cfg.SectorColumn, t.Get(i, d.cfg.SectorColumn).String(), i)
			}
			switch sector {
			case 1:
				row[1] = v
			case 0:
				row[2] = v
			}
		}
		if err := split.Append(row); err != nil {
			return err
		}
	}

	frame := columnar.FromTable(memory.DefaultAllocator, split)
	defer frame.Release()
	groups, err := frame.GroupMean(ctx, names[0], names[1], names[2])
	if err != nil {
		return err
	}

	values := make([]table.Value, t.Len())
	for _, g := range groups {
		if g.Counts[0] == 0 || g.Counts[1] == 0 {
			d.logger.Debug("State lacks a sector, gap is null",
				slog.String("state", g.Key),
				slog.Int("urban_rows", g.Counts[0]),
				slog.Int("rural_rows", g.Counts[1]))
			continue
		}
		gap := table.Number(g.Means[0] - g.Means[1])
		for _, r := range g.Rows {
			values[r] = gap
		}
	}
	return t.SetColumn(d.cfg.GapColumn, values)
}

// PriorityRank bins states by their mean primary indicator into
// equal-frequency tiers, lowest mean first. States without any indicator
// value get a null tier, as do rows with a null state. Too few distinct
// state means to fill every tier is a quantile error.
func (d *Deriver) PriorityRank(ctx context.Context, t *table.Table) error {
	if err := t.Require(d.cfg.StateColumn, d.cfg.PrimaryColumn); err != nil {
		return err
	}

	names := table.UniqueNames([]string{d.cfg.StateColumn, "indicator"})
	numeric, err := table.New(names...)
	if err != nil {
		return err
	}
	for i := 0; i < t.Len(); i++ {
		v := t.Get(i, d.cfg.PrimaryColumn)
		if _, ok := v.Float(); !ok {
			v = table.Null
		}
		if err := numeric.Append([]table.Value{t.Get(i, d.cfg.StateColumn), v}); err != nil {
			return err
		}
	}

	frame := columnar.FromTable(memory.DefaultAllocator, numeric)
	defer frame.Release()
	groups, err := frame.GroupMean(ctx, names[0], names[1])
	if err != nil {
		return err
	}

	var ranked []float64
	for _, g := range groups {
		if g.Counts[0] > 0 {
			ranked = append(ranked, g.Means[0])
		}
	}
	edges, err := QuantileEdges(ranked, len(d.cfg.TierLabels))
	if err != nil {
		return err
	}

	out := make([]table.Value, t.Len())
	for _, g := range groups {
		if g.Counts[0] == 0 {
			continue
		}
		tier := table.String(d.cfg.TierLabels[binIndex(edges, g.Means[0])])
		for _, r := range g.Rows {
			out[r] = tier
		}
	}
	return t.SetColumn(d.cfg.RankColumn, out)
}

// QuantileEdges returns the bins+1 edges splitting xs into equal-frequency
// bins, using linear interpolation between order statistics. It fails when
// xs has fewer distinct values than bins or when two edges coincide.
func QuantileEdges(xs []float64, bins int) ([]float64, error) {
	if bins < 1 {
		return nil, apperrors.NewQuantileError(fmt.Sprintf("invalid bin count %d", bins))
	}
	sorted := make([]float64, len(xs))
	copy(sorted, xs)
	sort.Float64s(sorted)

	distinct := 0
	for i, x := range sorted {
		if i == 0 || x != sorted[i-1] {
			distinct++
		}
	}
	if distinct < bins {
		return nil, apperrors.NewQuantileError(
			fmt.Sprintf("%d distinct values cannot fill %d bins", distinct, bins)).
			WithContext("distinct", distinct)
	}

	n := len(sorted)
	edges := make([]float64, bins+1)
	for k := 0; k <= bins; k++ {
		h := float64(n-1) * float64(k) / float64(bins)
		lo := math.Floor(h)
		i := int(lo)
		if i >= n-1 {
			edges[k] = sorted[n-1]
			continue
		}
		edges[k] = sorted[i] + (h-lo)*(sorted[i+1]-sorted[i])
	}
	for k := 1; k < len(edges); k++ {
		if edges[k] <= edges[k-1] {
			return nil, apperrors.NewQuantileError(
				fmt.Sprintf("bin edges must be unique, edge %d equals edge %d (%g)", k, k-1, edges[k])).
				WithContext("edges", edges)
		}
	}
	return edges, nil
}

// binIndex places x in the right-closed bin it belongs to; the lowest edge
// is inclusive.
func binIndex(edges []float64, x float64) int {
	last := len(edges) - 2
	for i := 0; i < last; i++ {
		if x <= edges[i+1] {
			return i
		}
	}
	return last
}

// DropMissingPrimary returns a copy without rows whose primary indicator is
// null.
func (d *Deriver) DropMissingPrimary(t *table.Table) (*table.Table, error) {
	idx, ok := t.Index(d.cfg.PrimaryColumn)
	if !ok {
		return nil, apperrors.NewSchemaError(d.cfg.PrimaryColumn, t.Columns())
	}
	out := t.Filter(func(_ int, row []table.Value) bool {
		return !row[idx].IsNull()
	})
	if dropped := t.Len() - out.Len(); dropped > 0 {
		d.logger.Info("Dropped rows missing the primary indicator",
			slog.String("column", d.cfg.PrimaryColumn),
			slog.Int("dropped", dropped))
	}
	return out, nil
}
