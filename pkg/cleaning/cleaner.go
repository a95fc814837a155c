// Package cleaning applies row-level validity filters to a fetched
// dataset: rows without a target or surface value, non-positive energy
// quantities, and implausible per-area consumption are removed. Filters
// are monotonic row predicates, so cleaning is idempotent.
package cleaning

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"

	"github.com/enerdata-io/dpe-dataprep/pkg/dataset"
	"github.com/enerdata-io/dpe-dataprep/pkg/dpe"
	"github.com/enerdata-io/dpe-dataprep/pkg/logging"
)

// rowsDroppedTotal counts rows removed by each filter stage.
var rowsDroppedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "dpe_clean_rows_dropped_total",
	Help: "Total rows dropped by cleaning stage",
}, []string{"stage"})

// Config holds the cleaner configuration.
type Config struct {
	// EnergyColumn is the target-defining energy quantity.
	EnergyColumn string

	// SizeColumn is the primary size attribute (habitable surface).
	SizeColumn string

	// PerAreaColumn is the per-unit-area target quantity.
	PerAreaColumn string

	// PerAreaCeiling is the plausibility ceiling for PerAreaColumn.
	PerAreaCeiling float64
}

// DefaultConfig returns the cleaner configuration for the DPE dataset.
func DefaultConfig() Config {
	return Config{
		EnergyColumn:   dpe.EnergyColumn,
		SizeColumn:     dpe.SizeColumn,
		PerAreaColumn:  dpe.PerAreaColumn,
		PerAreaCeiling: dpe.PerAreaCeiling,
	}
}

// StageReport records one filter stage's effect.
type StageReport struct {
	Stage   string
	Dropped int
}

// Report summarizes a cleaning run.
type Report struct {
	Initial int
	Stages  []StageReport
	Final   int
}

// Dropped returns the total rows removed across all stages.
func (r Report) Dropped() int {
	return r.Initial - r.Final
}

// Cleaner filters invalid rows out of a dataset.
type Cleaner struct {
	config Config
	logger zerolog.Logger
}

// New creates a new cleaner.
func New(config Config) *Cleaner {
	if config.PerAreaCeiling <= 0 {
		config.PerAreaCeiling = dpe.PerAreaCeiling
	}
	return &Cleaner{
		config: config,
		logger: logging.NewLogger("cleaning"),
	}
}

// stage is one named row filter; keep returns true for rows to retain.
type stage struct {
	name string
	keep func(dataset.Record) bool
}

// Clean applies the validity filters in sequence and reports the count
// removed at each stage. Row order is preserved and indices renumber
// contiguously from zero. Fails when a required column is absent, since
// the predicates cannot be evaluated.
func (c *Cleaner) Clean(ds dataset.Dataset) (dataset.Dataset, Report, error) {
	for _, col := range []string{c.config.EnergyColumn, c.config.SizeColumn, c.config.PerAreaColumn} {
		if !ds.HasColumn(col) {
			return dataset.Dataset{}, Report{}, fmt.Errorf("cleaning: required column %q missing from dataset", col)
		}
	}

	cfg := c.config
	stages := []stage{
		{
			name: "missing_target_or_size",
			keep: func(r dataset.Record) bool {
				return !r.IsNull(cfg.EnergyColumn) && !r.IsNull(cfg.SizeColumn)
			},
		},
		{
			name: "non_positive_energy",
			keep: func(r dataset.Record) bool {
				v, ok := r.Float(cfg.EnergyColumn)
				return ok && v > 0
			},
		},
		{
			name: "non_positive_per_area",
			keep: func(r dataset.Record) bool {
				v, ok := r.Float(cfg.PerAreaColumn)
				return ok && v > 0
			},
		},
		{
			name: "per_area_above_ceiling",
			keep: func(r dataset.Record) bool {
				v, ok := r.Float(cfg.PerAreaColumn)
				return ok && v <= cfg.PerAreaCeiling
			},
		},
	}

	report := Report{Initial: ds.Len()}

	for _, s := range stages {
		var dropped int
		ds, dropped = ds.Filter(s.keep)
		report.Stages = append(report.Stages, StageReport{Stage: s.name, Dropped: dropped})
		rowsDroppedTotal.WithLabelValues(s.name).Add(float64(dropped))

		if dropped > 0 {
			c.logger.Info().
				Str("stage", s.name).
				Int("dropped", dropped).
				Int("remaining", ds.Len()).
				Msg("Cleaning stage applied")
		}
	}

	report.Final = ds.Len()

	c.logger.Info().
		Int("initial", report.Initial).
		Int("final", report.Final).
		Int("dropped", report.Dropped()).
		Msg("Cleaning complete")

	return ds, report, nil
}
