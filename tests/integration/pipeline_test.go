package integration

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/enerdata-io/dpe-dataprep/internal/testutil"
	"github.com/enerdata-io/dpe-dataprep/pkg/cleaning"
	"github.com/enerdata-io/dpe-dataprep/pkg/datafair"
	"github.com/enerdata-io/dpe-dataprep/pkg/dpe"
	"github.com/enerdata-io/dpe-dataprep/pkg/features"
	"github.com/enerdata-io/dpe-dataprep/pkg/pagination"
	"github.com/enerdata-io/dpe-dataprep/pkg/prep"
	"github.com/enerdata-io/dpe-dataprep/pkg/split"
)

var regionCodes = []string{
	"11", "24", "27", "28", "32", "44", "52", "53", "75", "76", "84", "93", "94",
}

// dpeRows generates n DPE-like rows with a sprinkling of rows each
// downstream stage must remove: missing surfaces, non-positive energy,
// implausible per-area values, overseas departments and missing labels.
func dpeRows(n int) []map[string]any {
	labels := []string{"A", "B", "C", "D", "E", "F", "G"}

	return testutil.NumberedRows(dpe.SortColumn, n, func(i int) map[string]any {
		row := map[string]any{
			dpe.TargetColumn:     labels[i%7],
			dpe.RegionColumn:     regionCodes[i%13],
			dpe.DepartmentColumn: "75",
			dpe.EnergyColumn:     12000.0 + float64(i),
			dpe.SizeColumn:       60.0 + float64(i%80),
			dpe.PerAreaColumn:    150.0 + float64(i%200),
			"type_batiment":      "maison",
		}
		switch {
		case i%97 == 5:
			row[dpe.EnergyColumn] = 0.0
		case i%97 == 13:
			row[dpe.SizeColumn] = nil
		case i%97 == 29:
			row[dpe.PerAreaColumn] = dpe.PerAreaCeiling + 500.0
		case i%97 == 41:
			row[dpe.PerAreaColumn] = 0.0
		case i%101 == 7:
			row[dpe.DepartmentColumn] = "971"
		case i%103 == 11:
			row[dpe.TargetColumn] = nil
		}
		return row
	})
}

func TestFetchCleanPreparePipeline(t *testing.T) {
	const available = 2000

	mock := testutil.NewMockDataFair(dpe.SortColumn, dpeRows(available))
	defer mock.Close()

	cfg := datafair.DefaultConfig()
	cfg.BaseURL = mock.URL()
	client, err := datafair.New(cfg)
	if err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}

	driver := pagination.NewDriver(client, pagination.Config{
		PageSize:  500,
		PagePause: 0,
		Columns:   dpe.SelectedColumns,
	})

	// Target above the available volume: the run ends on exhaustion.
	fetched, err := driver.FetchRecords(context.Background(), 5000)
	if err != nil {
		t.Fatalf("FetchRecords failed: %v", err)
	}
	if fetched.Len() != available {
		t.Fatalf("Expected %d fetched rows, got %d", available, fetched.Len())
	}
	if mock.RequestCount != 4 {
		t.Errorf("Expected 4 page requests for %d rows at size 500, got %d", available, mock.RequestCount)
	}

	cleaned, report, err := cleaning.New(cleaning.DefaultConfig()).Clean(fetched)
	if err != nil {
		t.Fatalf("Clean failed: %v", err)
	}
	if report.Initial != available {
		t.Errorf("Expected initial count %d, got %d", available, report.Initial)
	}
	if report.Dropped() == 0 {
		t.Error("Expected cleaning to drop the seeded invalid rows")
	}
	for _, s := range report.Stages {
		if s.Dropped == 0 {
			t.Errorf("Stage %s dropped nothing", s.Stage)
		}
	}

	pipeline := prep.NewPipeline(
		features.New(features.DefaultConfig()),
		split.New(split.DefaultConfig(123)),
	)
	out, err := pipeline.Run(cleaned)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if out.ScopeDropped == 0 {
		t.Error("Expected overseas rows to be dropped")
	}
	if out.LabelDropped == 0 {
		t.Error("Expected unlabeled rows to be dropped")
	}
	wantRows := cleaned.Len() - out.ScopeDropped - out.LabelDropped
	if out.Rows() != wantRows {
		t.Errorf("Expected %d partitioned rows, got %d", wantRows, out.Rows())
	}

	// Roughly 70/15/15; per-stratum rounding on small strata moves the
	// shares a little.
	total := float64(out.Rows())
	checks := []struct {
		name string
		got  int
		frac float64
	}{
		{"train", out.Train.Features.Len(), 0.70},
		{"test", out.Test.Features.Len(), 0.15},
		{"private_test", out.PrivateTest.Features.Len(), 0.15},
	}
	for _, c := range checks {
		want := c.frac * total
		if diff := float64(c.got) - want; diff > 0.03*total || diff < -0.03*total {
			t.Errorf("Subset %s has %d rows, expected about %.0f", c.name, c.got, want)
		}
	}

	for _, col := range out.Train.Features.Columns {
		if col == dpe.TargetColumn || col == dpe.EnergyColumn || col == dpe.SortColumn {
			t.Errorf("Column %s must not reach the feature set", col)
		}
	}

	dir := t.TempDir()
	if err := out.WriteFiles(dir); err != nil {
		t.Fatalf("WriteFiles failed: %v", err)
	}
	for _, rel := range []string{
		filepath.Join("input_data", "train", "train_features.csv"),
		filepath.Join("input_data", "train", "train_labels.csv"),
		filepath.Join("input_data", "test", "test_features.csv"),
		filepath.Join("input_data", "private_test", "private_test_features.csv"),
		filepath.Join("reference_data", "test_labels.csv"),
		filepath.Join("reference_data", "private_test_labels.csv"),
	} {
		if _, err := os.Stat(filepath.Join(dir, rel)); err != nil {
			t.Errorf("Expected output file %s: %v", rel, err)
		}
	}
}

func TestFetchFailureAbortsRun(t *testing.T) {
	mock := testutil.NewMockDataFair(dpe.SortColumn, dpeRows(300))
	defer mock.Close()
	mock.FailFromRequest(2, 503, `{"message":"service unavailable"}`)

	cfg := datafair.DefaultConfig()
	cfg.BaseURL = mock.URL()
	client, err := datafair.New(cfg)
	if err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}

	driver := pagination.NewDriver(client, pagination.Config{
		PageSize:  100,
		PagePause: 0,
		Columns:   dpe.SelectedColumns,
	})

	_, err = driver.FetchRecords(context.Background(), 300)
	if err == nil {
		t.Fatal("Expected the second page failure to abort the run")
	}

	var apiErr *datafair.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("Expected *datafair.APIError, got %v", err)
	}
	if apiErr.StatusCode != 503 {
		t.Errorf("Expected status 503, got %d", apiErr.StatusCode)
	}
	if apiErr.Class != datafair.ErrorClassServer {
		t.Errorf("Expected server error class, got %s", apiErr.Class)
	}
	if mock.RequestCount != 2 {
		t.Errorf("Expected no retry after the failure, got %d requests", mock.RequestCount)
	}
}
