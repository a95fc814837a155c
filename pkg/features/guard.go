// Package features derives the feature set of the prediction task:
// everything in the dataset except identifier/metadata columns, the
// target, and columns leaking the target through the shared energy
// balance. It also applies the metropolitan-France scope filter.
package features

import (
	"strings"

	"github.com/rs/zerolog"

	"github.com/enerdata-io/dpe-dataprep/pkg/dataset"
	"github.com/enerdata-io/dpe-dataprep/pkg/dpe"
	"github.com/enerdata-io/dpe-dataprep/pkg/logging"
)

// Config holds the guard configuration.
type Config struct {
	// TargetColumn is the prediction target.
	TargetColumn string

	// MetaColumns are non-predictive identifier/metadata columns.
	MetaColumns []string

	// LeakyColumns are columns derived from the target's energy balance.
	LeakyColumns []string

	// DepartmentColumn carries the department code for the scope filter.
	DepartmentColumn string

	// ExcludedDepartments are dropped by FilterGeography.
	ExcludedDepartments []string
}

// DefaultConfig returns the guard configuration for the DPE dataset.
func DefaultConfig() Config {
	return Config{
		TargetColumn:        dpe.TargetColumn,
		MetaColumns:         dpe.MetaColumns,
		LeakyColumns:        dpe.LeakyColumns,
		DepartmentColumn:    dpe.DepartmentColumn,
		ExcludedDepartments: dpe.OverseasDepartments,
	}
}

// Guard removes leaky, metadata and out-of-scope data before the split.
type Guard struct {
	config   Config
	excluded map[string]struct{}
	logger   zerolog.Logger
}

// New creates a new leakage guard.
func New(config Config) *Guard {
	excluded := make(map[string]struct{}, len(config.MetaColumns)+len(config.LeakyColumns)+1)
	for _, c := range config.MetaColumns {
		excluded[c] = struct{}{}
	}
	for _, c := range config.LeakyColumns {
		excluded[c] = struct{}{}
	}
	excluded[config.TargetColumn] = struct{}{}

	return &Guard{
		config:   config,
		excluded: excluded,
		logger:   logging.NewLogger("features"),
	}
}

// FeatureColumns returns the feature set for the columns actually
// present: a pure set difference against the fixed exclusion lists.
// Excluded columns absent from the input are ignored, never an error.
// The result is recomputed on every call; it is a view of the input
// schema, not a cached state.
func (g *Guard) FeatureColumns(present []string) []string {
	out := make([]string, 0, len(present))
	for _, c := range present {
		if _, drop := g.excluded[c]; !drop {
			out = append(out, c)
		}
	}
	return out
}

// FilterGeography drops rows whose department code is in the fixed
// exclusion list, returning the kept rows and the count removed.
// Department codes are compared in trimmed string form to tolerate
// numeric encodings.
func (g *Guard) FilterGeography(ds dataset.Dataset) (dataset.Dataset, int) {
	excluded := make(map[string]struct{}, len(g.config.ExcludedDepartments))
	for _, code := range g.config.ExcludedDepartments {
		excluded[code] = struct{}{}
	}

	kept, dropped := ds.Filter(func(r dataset.Record) bool {
		code := strings.TrimSpace(r.String(g.config.DepartmentColumn))
		_, out := excluded[code]
		return !out
	})

	if dropped > 0 {
		g.logger.Info().
			Int("dropped", dropped).
			Int("remaining", kept.Len()).
			Msg("Out-of-scope departments removed")
	}
	return kept, dropped
}

// DropMissingTarget removes rows with a null target label, returning
// the kept rows and the count removed.
func (g *Guard) DropMissingTarget(ds dataset.Dataset) (dataset.Dataset, int) {
	kept, dropped := ds.Filter(func(r dataset.Record) bool {
		return !r.IsNull(g.config.TargetColumn)
	})

	if dropped > 0 {
		g.logger.Info().
			Int("dropped", dropped).
			Int("remaining", kept.Len()).
			Msg("Rows without target label removed")
	}
	return kept, dropped
}

// Features returns the feature view of the dataset.
func (g *Guard) Features(ds dataset.Dataset) dataset.Dataset {
	return ds.Select(g.FeatureColumns(ds.Columns))
}

// Labels returns the single-column label view of the dataset.
func (g *Guard) Labels(ds dataset.Dataset) dataset.Dataset {
	return ds.Select([]string{g.config.TargetColumn})
}

// Target returns the configured target column name.
func (g *Guard) Target() string {
	return g.config.TargetColumn
}
