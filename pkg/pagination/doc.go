// Package pagination accumulates records from a cursor-paginated
// Data Fair endpoint.
//
// The API bounds size+skip, so deep result sets are walked with the
// after parameter: each page's request cursor is the next-cursor
// returned by the previous page, and pages must therefore be fetched
// sequentially, in sort-key order. The driver requests
// min(remaining, page size) rows per page, pauses a fixed interval
// between pages for rate-limit compliance, and stops at the target
// count or at exhaustion (empty page or absent next cursor), whichever
// comes first.
//
// Example usage:
//
//	client, _ := datafair.New(datafair.DefaultConfig())
//	driver := pagination.NewDriver(client, pagination.DefaultConfig())
//	ds, err := driver.FetchRecords(ctx, 100_000)
//
// Fewer rows than requested is a normal outcome (the upstream filter
// matched less data), not a failure. A transport error aborts the whole
// accumulation: the driver never retries.
package pagination
