// Package prep orchestrates benchmark preparation: geographic scope
// filtering, target-label hygiene, leakage removal and the adaptive
// stratified three-way split, producing index-aligned (features,
// labels) pairs for train, public test and private test.
package prep

import (
	"fmt"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/enerdata-io/dpe-dataprep/pkg/dataset"
	"github.com/enerdata-io/dpe-dataprep/pkg/features"
	"github.com/enerdata-io/dpe-dataprep/pkg/logging"
	"github.com/enerdata-io/dpe-dataprep/pkg/split"
)

// Bundle is one subset's feature view and label view, index-aligned.
type Bundle struct {
	Features dataset.Dataset
	Labels   dataset.Dataset
}

// Output is the result of a preparation run.
type Output struct {
	Granularity  split.Granularity
	MinRequired  int
	ScopeDropped int
	LabelDropped int

	Train       Bundle
	Test        Bundle
	PrivateTest Bundle
}

// Rows returns the total rows across the three subsets.
func (o Output) Rows() int {
	return o.Train.Features.Len() + o.Test.Features.Len() + o.PrivateTest.Features.Len()
}

// Pipeline ties the leakage guard and the partitioner together.
type Pipeline struct {
	guard       *features.Guard
	partitioner *split.Partitioner
	logger      zerolog.Logger
}

// NewPipeline creates a preparation pipeline.
func NewPipeline(guard *features.Guard, partitioner *split.Partitioner) *Pipeline {
	return &Pipeline{
		guard:       guard,
		partitioner: partitioner,
		logger:      logging.NewLogger("prep"),
	}
}

// Run prepares the cleaned dataset: out-of-scope departments and rows
// without a label are dropped, then the remaining rows are partitioned
// and materialized as (features, labels) pairs. The three subsets are
// disjoint and cover the scoped dataset exactly once. Stratum-too-small
// failures from the split propagate.
func (p *Pipeline) Run(ds dataset.Dataset) (Output, error) {
	scoped, scopeDropped := p.guard.FilterGeography(ds)
	scoped, labelDropped := p.guard.DropMissingTarget(scoped)

	if scoped.Len() == 0 {
		return Output{}, fmt.Errorf("prep: no rows left after scope and label filtering")
	}

	result, err := p.partitioner.Partition(scoped)
	if err != nil {
		return Output{}, err
	}

	out := Output{
		Granularity:  result.Granularity,
		MinRequired:  result.MinRequired,
		ScopeDropped: scopeDropped,
		LabelDropped: labelDropped,
		Train:        p.bundle(scoped, result.TrainIdx),
		Test:         p.bundle(scoped, result.TestIdx),
		PrivateTest:  p.bundle(scoped, result.PrivateIdx),
	}

	p.logger.Info().
		Int("features", len(out.Train.Features.Columns)).
		Int("train", out.Train.Features.Len()).
		Int("test", out.Test.Features.Len()).
		Int("private_test", out.PrivateTest.Features.Len()).
		Msg("Preparation complete")

	return out, nil
}

func (p *Pipeline) bundle(ds dataset.Dataset, indices []int) Bundle {
	sub := ds.Subset(indices)
	return Bundle{
		Features: p.guard.Features(sub),
		Labels:   p.guard.Labels(sub),
	}
}

// WriteFiles writes the six benchmark files under outputDir:
//
//	input_data/train/train_features.csv
//	input_data/train/train_labels.csv
//	input_data/test/test_features.csv
//	input_data/private_test/private_test_features.csv
//	reference_data/test_labels.csv
//	reference_data/private_test_labels.csv
//
// Test and private-test labels go to reference_data only; they are
// never exposed next to the features.
func (o Output) WriteFiles(outputDir string) error {
	inputDir := filepath.Join(outputDir, "input_data")
	refDir := filepath.Join(outputDir, "reference_data")

	files := []struct {
		path string
		data dataset.Dataset
	}{
		{filepath.Join(inputDir, "train", "train_features.csv"), o.Train.Features},
		{filepath.Join(inputDir, "train", "train_labels.csv"), o.Train.Labels},
		{filepath.Join(inputDir, "test", "test_features.csv"), o.Test.Features},
		{filepath.Join(refDir, "test_labels.csv"), o.Test.Labels},
		{filepath.Join(inputDir, "private_test", "private_test_features.csv"), o.PrivateTest.Features},
		{filepath.Join(refDir, "private_test_labels.csv"), o.PrivateTest.Labels},
	}

	for _, f := range files {
		if err := dataset.WriteFile(f.path, f.data); err != nil {
			return err
		}
	}
	return nil
}
