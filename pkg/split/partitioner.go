package split

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"

	"github.com/enerdata-io/dpe-dataprep/pkg/dataset"
	"github.com/enerdata-io/dpe-dataprep/pkg/dpe"
	"github.com/enerdata-io/dpe-dataprep/pkg/logging"
)

// partitionRows tracks the size of the latest partitioning run.
var partitionRows = promauto.NewGaugeVec(prometheus.GaugeOpts{
	Name: "dpe_partition_rows",
	Help: "Rows per subset of the latest partitioning run",
}, []string{"subset"})

// MissingRegion is the canonical key component for a null or
// unparseable region code.
const MissingRegion = "missing"

// Granularity is the chosen stratification key scheme.
type Granularity string

const (
	// GranularityJoint stratifies on label x region.
	GranularityJoint Granularity = "label_x_region"

	// GranularityLabel stratifies on the label alone, the fallback for
	// datasets too small to support the joint scheme.
	GranularityLabel Granularity = "label"
)

// Config holds the partitioner configuration.
type Config struct {
	// TargetColumn is the label column.
	TargetColumn string

	// RegionColumn is the region identifier column.
	RegionColumn string

	// Seed drives both chained splits.
	Seed int64

	// HoldOutFrac is the share held out by the first split
	// (test + private test). Default 0.30.
	HoldOutFrac float64

	// TestFrac is the share of the hold-out that becomes the public
	// test set; the rest is the private test set. Default 0.50.
	TestFrac float64

	// MinPerStratum is the per-stratum member guarantee used to
	// estimate the minimum dataset size for joint stratification.
	// Default 4.
	MinPerStratum int
}

// DefaultConfig returns the 70/15/15 configuration for the DPE dataset.
func DefaultConfig(seed int64) Config {
	return Config{
		TargetColumn:  dpe.TargetColumn,
		RegionColumn:  dpe.RegionColumn,
		Seed:          seed,
		HoldOutFrac:   0.30,
		TestFrac:      0.50,
		MinPerStratum: 4,
	}
}

// Result is a partition plan: three disjoint index sets covering the
// input dataset exactly once, plus the granularity diagnostics.
type Result struct {
	Granularity Granularity
	MinRequired int
	TrainIdx    []int
	TestIdx     []int
	PrivateIdx  []int
}

// Partitioner performs the adaptive stratified three-way split.
type Partitioner struct {
	config Config
	logger zerolog.Logger
}

// New creates a new partitioner.
func New(config Config) *Partitioner {
	if config.HoldOutFrac <= 0 || config.HoldOutFrac >= 1 {
		config.HoldOutFrac = 0.30
	}
	if config.TestFrac <= 0 || config.TestFrac >= 1 {
		config.TestFrac = 0.50
	}
	if config.MinPerStratum <= 0 {
		config.MinPerStratum = 4
	}

	return &Partitioner{
		config: config,
		logger: logging.NewLogger("split"),
	}
}

// CanonicalRegion normalizes a region code to a canonical string:
// decimal values are truncated to their integer part ("84.0" -> "84"),
// nulls and unparseable values become the MissingRegion sentinel. Mixed
// numeric/float-as-string encodings of the same region therefore derive
// the same stratum key.
func CanonicalRegion(v any) string {
	switch val := v.(type) {
	case nil:
		return MissingRegion
	case float64:
		return strconv.FormatInt(int64(val), 10)
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case string:
		s := strings.TrimSpace(val)
		if s == "" {
			return MissingRegion
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return MissingRegion
		}
		return strconv.FormatInt(int64(f), 10)
	default:
		return MissingRegion
	}
}

// Keys derives the stratification key for every row after deciding the
// granularity: joint label x region when the dataset is at least the
// estimated minimum size for the per-stratum guarantee, label-only
// otherwise. The fallback key is not re-validated; a stratum may still
// be too small and fail the split.
func (p *Partitioner) Keys(ds dataset.Dataset) ([]string, Granularity, int) {
	minRequired := p.minRequired(ds)
	granularity := GranularityJoint
	if ds.Len() < minRequired {
		granularity = GranularityLabel
		p.logger.Warn().
			Int("rows", ds.Len()).
			Int("min_required", minRequired).
			Str("stratify_on", string(granularity)).
			Msg("Dataset undersized for joint stratification, falling back to label only")
	} else {
		p.logger.Info().
			Int("rows", ds.Len()).
			Int("min_required", minRequired).
			Str("stratify_on", string(granularity)).
			Msg("Stratification granularity selected")
	}

	keys := make([]string, ds.Len())
	for i, r := range ds.Rows {
		label := r.String(p.config.TargetColumn)
		if granularity == GranularityJoint {
			keys[i] = label + "_" + CanonicalRegion(r[p.config.RegionColumn])
		} else {
			keys[i] = label
		}
	}
	return keys, granularity, minRequired
}

// minRequired estimates the minimum dataset size for the joint scheme:
// ceil(minPerStratum / (p_label_min * p_region_min)), the size at which
// the rarest label x region cell is expected to hold minPerStratum
// members under the first split.
func (p *Partitioner) minRequired(ds dataset.Dataset) int {
	pLabel := minProportion(ds, func(r dataset.Record) (string, bool) {
		if r.IsNull(p.config.TargetColumn) {
			return "", false
		}
		return r.String(p.config.TargetColumn), true
	})
	pRegion := minProportion(ds, func(r dataset.Record) (string, bool) {
		if r.IsNull(p.config.RegionColumn) {
			return "", false
		}
		return CanonicalRegion(r[p.config.RegionColumn]), true
	})

	if pLabel <= 0 || pRegion <= 0 {
		// No usable label or region distribution; force the fallback.
		return math.MaxInt
	}
	return int(math.Ceil(float64(p.config.MinPerStratum) / (pLabel * pRegion)))
}

// minProportion returns the smallest class share among non-null values
// of the keyed column, computed over the non-null count.
func minProportion(ds dataset.Dataset, key func(dataset.Record) (string, bool)) float64 {
	counts := make(map[string]int)
	total := 0
	for _, r := range ds.Rows {
		k, ok := key(r)
		if !ok {
			continue
		}
		counts[k]++
		total++
	}
	if total == 0 {
		return 0
	}

	min := math.MaxInt
	for _, c := range counts {
		if c < min {
			min = c
		}
	}
	return float64(min) / float64(total)
}

// Partition splits the dataset into train, test and private-test index
// sets: first HoldOutFrac is held out of train, then the hold-out is
// divided TestFrac/1-TestFrac with the same seed and the key restricted
// to its rows. A stratum too small to divide aborts the run with a
// *StratumError wrapped in context.
func (p *Partitioner) Partition(ds dataset.Dataset) (Result, error) {
	if ds.Len() == 0 {
		return Result{}, fmt.Errorf("partition: empty dataset")
	}
	if !ds.HasColumn(p.config.TargetColumn) {
		return Result{}, fmt.Errorf("partition: target column %q missing from dataset", p.config.TargetColumn)
	}

	keys, granularity, minRequired := p.Keys(ds)

	trainIdx, restIdx, err := StratifiedSplit(keys, p.config.HoldOutFrac, p.config.Seed)
	if err != nil {
		return Result{}, fmt.Errorf("train/rest split (stratify_on=%s): %w", granularity, err)
	}

	restKeys := make([]string, len(restIdx))
	for i, idx := range restIdx {
		restKeys[i] = keys[idx]
	}

	// Held-out side of the second split is the private test set.
	testLocal, privateLocal, err := StratifiedSplit(restKeys, 1-p.config.TestFrac, p.config.Seed)
	if err != nil {
		return Result{}, fmt.Errorf("test/private split (stratify_on=%s): %w", granularity, err)
	}

	result := Result{
		Granularity: granularity,
		MinRequired: minRequired,
		TrainIdx:    trainIdx,
		TestIdx:     mapIndices(restIdx, testLocal),
		PrivateIdx:  mapIndices(restIdx, privateLocal),
	}

	partitionRows.WithLabelValues("train").Set(float64(len(result.TrainIdx)))
	partitionRows.WithLabelValues("test").Set(float64(len(result.TestIdx)))
	partitionRows.WithLabelValues("private_test").Set(float64(len(result.PrivateIdx)))

	p.logger.Info().
		Int64("seed", p.config.Seed).
		Str("stratify_on", string(granularity)).
		Int("train", len(result.TrainIdx)).
		Int("test", len(result.TestIdx)).
		Int("private_test", len(result.PrivateIdx)).
		Msg("Partition complete")

	return result, nil
}

// mapIndices translates local positions within base back to dataset
// indices.
func mapIndices(base []int, local []int) []int {
	out := make([]int, len(local))
	for i, l := range local {
		out[i] = base[l]
	}
	return out
}
