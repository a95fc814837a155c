package pagination

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"

	"github.com/enerdata-io/dpe-dataprep/pkg/datafair"
	"github.com/enerdata-io/dpe-dataprep/pkg/dataset"
	"github.com/enerdata-io/dpe-dataprep/pkg/dpe"
	"github.com/enerdata-io/dpe-dataprep/pkg/logging"
)

// Prometheus metrics for record accumulation.
var (
	pagesFetchedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dpe_pages_fetched_total",
		Help: "Total pages fetched across accumulation runs",
	})

	recordsFetchedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dpe_records_fetched_total",
		Help: "Total records fetched across accumulation runs",
	})
)

// PageFetcher is the interface the driver uses to fetch a single page.
// after is empty for the first page; size is the number of rows wanted.
type PageFetcher interface {
	FetchPage(ctx context.Context, after string, size int) (datafair.Page, error)
}

// Config holds driver configuration.
type Config struct {
	// PageSize is the maximum rows requested per page.
	PageSize int

	// PagePause is the fixed pause between page fetches, skipped after
	// the terminal page and when the target is already met.
	PagePause time.Duration

	// Columns is the expected column set; the accumulated dataset is
	// restricted to the subset of these actually present in responses.
	Columns []string
}

// DefaultConfig returns the driver configuration for the DPE dataset.
func DefaultConfig() Config {
	return Config{
		PageSize:  dpe.MaxPageSize,
		PagePause: 1 * time.Second,
		Columns:   dpe.SelectedColumns,
	}
}

// Driver walks a cursor-paginated endpoint until a target record count
// is accumulated or the source is exhausted.
type Driver struct {
	fetcher PageFetcher
	config  Config
	logger  zerolog.Logger
}

// NewDriver creates a new pagination driver.
func NewDriver(fetcher PageFetcher, config Config) *Driver {
	if config.PageSize <= 0 {
		config.PageSize = dpe.MaxPageSize
	}
	if len(config.Columns) == 0 {
		config.Columns = dpe.SelectedColumns
	}

	return &Driver{
		fetcher: fetcher,
		config:  config,
		logger:  logging.NewLogger("pagination"),
	}
}

// FetchRecords accumulates up to target records, in fetch order. The
// result may hold fewer rows when the upstream source is exhausted
// first; that is a normal outcome. Any page fetch error aborts the run.
func (d *Driver) FetchRecords(ctx context.Context, target int) (dataset.Dataset, error) {
	if target <= 0 {
		return dataset.Dataset{}, fmt.Errorf("target record count must be positive, got %d", target)
	}

	start := time.Now()
	var rows []dataset.Record
	after := ""

	for len(rows) < target {
		size := target - len(rows)
		if size > d.config.PageSize {
			size = d.config.PageSize
		}

		d.logger.Debug().
			Str("after", after).
			Int("page_size", size).
			Int("fetched", len(rows)).
			Msg("Fetching page")

		page, err := d.fetcher.FetchPage(ctx, after, size)
		if err != nil {
			return dataset.Dataset{}, fmt.Errorf("fetch page (after %q): %w", after, err)
		}

		// Total is only meaningful on the first page.
		if after == "" && page.Total >= 0 {
			d.logger.Info().
				Int64("total_available", page.Total).
				Msg("Rows matching filter upstream")
		}

		if len(page.Rows) == 0 {
			d.logger.Info().Int("fetched", len(rows)).Msg("Source exhausted (empty page)")
			break
		}

		rows = append(rows, page.Rows...)
		pagesFetchedTotal.Inc()
		recordsFetchedTotal.Add(float64(len(page.Rows)))

		d.logger.Info().
			Int("page_rows", len(page.Rows)).
			Int("fetched", len(rows)).
			Int("target", target).
			Msg("Page fetched")

		if page.Next == "" {
			d.logger.Info().Int("fetched", len(rows)).Msg("Source exhausted (no next cursor)")
			break
		}
		after = page.Next

		if len(rows) < target {
			if err := d.pause(ctx); err != nil {
				return dataset.Dataset{}, err
			}
		}
	}

	ds := restrictColumns(rows, d.config.Columns)

	d.logger.Info().
		Int("rows", ds.Len()).
		Int("columns", len(ds.Columns)).
		Dur("duration", time.Since(start)).
		Msg("Accumulation complete")

	return ds, nil
}

// pause waits the inter-page interval, honoring context cancellation.
func (d *Driver) pause(ctx context.Context) error {
	if d.config.PagePause <= 0 {
		return nil
	}
	select {
	case <-ctx.Done():
		return fmt.Errorf("inter-page pause: %w", ctx.Err())
	case <-time.After(d.config.PagePause):
		return nil
	}
}

// restrictColumns builds the accumulated dataset, keeping the expected
// columns that actually appear in the fetched rows. Columns the server
// dropped (select syntax incompatibilities) disappear silently.
func restrictColumns(rows []dataset.Record, expected []string) dataset.Dataset {
	present := make(map[string]struct{})
	for _, r := range rows {
		for col := range r {
			present[col] = struct{}{}
		}
	}

	columns := make([]string, 0, len(expected))
	for _, col := range expected {
		if _, ok := present[col]; ok {
			columns = append(columns, col)
		}
	}

	return dataset.Dataset{Columns: columns, Rows: rows}
}
