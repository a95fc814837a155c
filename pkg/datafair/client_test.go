package datafair

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/enerdata-io/dpe-dataprep/internal/testutil"
)

func testConfig(baseURL string) Config {
	cfg := DefaultConfig()
	cfg.BaseURL = baseURL
	cfg.Timeout = 5 * time.Second
	return cfg
}

func testRows(n int) []map[string]any {
	return testutil.NumberedRows("numero_dpe", n, func(i int) map[string]any {
		return map[string]any{
			"etiquette_dpe":              "C",
			"surface_habitable_logement": 60.0,
			"conso_5_usages_ep":          9000.0,
			"conso_5_usages_par_m2_ep":   150.0,
			"conso_5 usages_ef":          7000.0, // space-bearing name, never selectable
		}
	})
}

func TestNew_Validation(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func(*Config)
		expectError string
	}{
		{
			name:   "valid config",
			mutate: func(c *Config) {},
		},
		{
			name:        "missing base URL",
			mutate:      func(c *Config) { c.BaseURL = "" },
			expectError: "base URL is required",
		},
		{
			name:        "missing dataset",
			mutate:      func(c *Config) { c.Dataset = "" },
			expectError: "dataset identifier is required",
		},
		{
			name:        "missing sort column",
			mutate:      func(c *Config) { c.SortColumn = "" },
			expectError: "sort column is required",
		},
		{
			name:        "empty column selection",
			mutate:      func(c *Config) { c.Columns = nil },
			expectError: "column selection is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig("http://example.test")
			tt.mutate(&cfg)

			_, err := New(cfg)
			if tt.expectError == "" {
				if err != nil {
					t.Fatalf("Expected no error, got %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.expectError) {
				t.Fatalf("Expected error containing %q, got %v", tt.expectError, err)
			}
		})
	}
}

func TestFetchPage_CursorContinuation(t *testing.T) {
	mock := testutil.NewMockDataFair("numero_dpe", testRows(30))
	defer mock.Close()

	client, err := New(testConfig(mock.URL()))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ctx := context.Background()

	page1, err := client.FetchPage(ctx, "", 12)
	if err != nil {
		t.Fatalf("page 1: %v", err)
	}
	if len(page1.Rows) != 12 {
		t.Fatalf("page 1: expected 12 rows, got %d", len(page1.Rows))
	}
	if page1.Total != 30 {
		t.Errorf("page 1: expected total 30, got %d", page1.Total)
	}
	if page1.Next == "" {
		t.Fatal("page 1: expected a next cursor")
	}

	page2, err := client.FetchPage(ctx, page1.Next, 12)
	if err != nil {
		t.Fatalf("page 2: %v", err)
	}
	if len(page2.Rows) != 12 {
		t.Fatalf("page 2: expected 12 rows, got %d", len(page2.Rows))
	}

	page3, err := client.FetchPage(ctx, page2.Next, 12)
	if err != nil {
		t.Fatalf("page 3: %v", err)
	}
	if len(page3.Rows) != 6 {
		t.Fatalf("page 3: expected 6 rows, got %d", len(page3.Rows))
	}
	if page3.Next != "" {
		t.Errorf("page 3: expected no next cursor, got %q", page3.Next)
	}

	// First request carries no cursor; later requests carry exactly the
	// prior page's next cursor.
	if mock.AfterParams[0] != "" {
		t.Errorf("first request should have no cursor, got %q", mock.AfterParams[0])
	}
	if mock.AfterParams[1] != page1.Next || mock.AfterParams[2] != page2.Next {
		t.Errorf("request cursors %v do not chain the returned next cursors", mock.AfterParams)
	}
}

func TestFetchPage_OmitsSpaceColumnsFromSelect(t *testing.T) {
	mock := testutil.NewMockDataFair("numero_dpe", testRows(3))
	defer mock.Close()

	client, err := New(testConfig(mock.URL()))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	page, err := client.FetchPage(context.Background(), "", 10)
	if err != nil {
		t.Fatalf("FetchPage: %v", err)
	}

	for _, r := range page.Rows {
		if _, ok := r["conso_5 usages_ef"]; ok {
			t.Fatal("space-bearing column must not be requested nor returned")
		}
		if _, ok := r["conso_5_usages_ep"]; !ok {
			t.Fatal("selectable column missing from response")
		}
	}
}

func TestFetchPage_SizeCappedAtMaxPageSize(t *testing.T) {
	mock := testutil.NewMockDataFair("numero_dpe", testRows(5))
	defer mock.Close()

	client, err := New(testConfig(mock.URL()))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if _, err := client.FetchPage(context.Background(), "", 50_000); err != nil {
		t.Fatalf("FetchPage: %v", err)
	}

	if got := mock.SizeParams[0]; got != client.MaxPageSize() {
		t.Errorf("expected size clamped to %d, got %d", client.MaxPageSize(), got)
	}
}

func TestFetchPage_EmptyPageIsExhaustion(t *testing.T) {
	mock := testutil.NewMockDataFair("numero_dpe", nil)
	defer mock.Close()

	client, err := New(testConfig(mock.URL()))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	page, err := client.FetchPage(context.Background(), "", 10)
	if err != nil {
		t.Fatalf("empty page must not be an error, got %v", err)
	}
	if len(page.Rows) != 0 || page.Next != "" {
		t.Errorf("expected empty terminal page, got %d rows, next %q", len(page.Rows), page.Next)
	}
}

func TestFetchPage_ErrorClassification(t *testing.T) {
	tests := []struct {
		name          string
		status        int
		expectedClass ErrorClass
	}{
		{"server error", 500, ErrorClassServer},
		{"bad request", 400, ErrorClassClient},
		{"rate limited", 429, ErrorClassClient},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := testutil.NewMockDataFair("numero_dpe", testRows(3))
			defer mock.Close()
			mock.FailFromRequest(1, tt.status, `{"error":"boom"}`)

			client, err := New(testConfig(mock.URL()))
			if err != nil {
				t.Fatalf("New: %v", err)
			}

			_, err = client.FetchPage(context.Background(), "", 10)

			var apiErr *APIError
			if !errors.As(err, &apiErr) {
				t.Fatalf("expected *APIError, got %v", err)
			}
			if apiErr.StatusCode != tt.status {
				t.Errorf("expected status %d, got %d", tt.status, apiErr.StatusCode)
			}
			if apiErr.Class != tt.expectedClass {
				t.Errorf("expected class %s, got %s", tt.expectedClass, apiErr.Class)
			}
		})
	}
}

func TestFetchPage_NetworkError(t *testing.T) {
	mock := testutil.NewMockDataFair("numero_dpe", nil)
	url := mock.URL()
	mock.Close() // connection refused from here on

	client, err := New(testConfig(url))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	_, err = client.FetchPage(context.Background(), "", 10)

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *APIError, got %v", err)
	}
	if apiErr.Class != ErrorClassNetwork {
		t.Errorf("expected network class, got %s", apiErr.Class)
	}
	if apiErr.Unwrap() == nil {
		t.Error("network errors should wrap the transport error")
	}
}
