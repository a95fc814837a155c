// Package testutil provides testing utilities for the DPE data
// preparation pipeline.
package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"sync"
)

// MockDataFair is a configurable in-memory Data Fair lines endpoint
// supporting cursor pagination: sorted rows, the after parameter, and a
// next continuation URL.
type MockDataFair struct {
	server  *httptest.Server
	sortKey string

	mu   sync.RWMutex
	rows []map[string]any

	// Tracking
	RequestCount int
	AfterParams  []string
	SizeParams   []int

	// Failure injection: requests numbered >= failFrom (1-based)
	// respond with failStatus. Zero disables.
	failFrom   int
	failStatus int
	failBody   string
}

// NewMockDataFair creates a mock server over the given rows, kept
// sorted by sortKey.
func NewMockDataFair(sortKey string, rows []map[string]any) *MockDataFair {
	mock := &MockDataFair{
		sortKey: sortKey,
		rows:    append([]map[string]any(nil), rows...),
	}
	sort.Slice(mock.rows, func(i, j int) bool {
		return sortValue(mock.rows[i], sortKey) < sortValue(mock.rows[j], sortKey)
	})

	mock.server = httptest.NewServer(http.HandlerFunc(mock.handle))
	return mock
}

// URL returns the mock server base URL.
func (m *MockDataFair) URL() string {
	return m.server.URL
}

// Close shuts down the mock server.
func (m *MockDataFair) Close() {
	m.server.Close()
}

// FailFromRequest makes every request numbered n and later (1-based)
// respond with the given status and body.
func (m *MockDataFair) FailFromRequest(n, status int, body string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failFrom = n
	m.failStatus = status
	m.failBody = body
}

func (m *MockDataFair) handle(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	after := q.Get("after")
	size, err := strconv.Atoi(q.Get("size"))
	if err != nil || size <= 0 {
		size = 12
	}

	m.mu.Lock()
	m.RequestCount++
	m.AfterParams = append(m.AfterParams, after)
	m.SizeParams = append(m.SizeParams, size)
	fail := m.failFrom > 0 && m.RequestCount >= m.failFrom
	failStatus, failBody := m.failStatus, m.failBody
	rows := m.rows
	m.mu.Unlock()

	w.Header().Set("Content-Type", "application/json; charset=utf-8")

	if fail {
		w.WriteHeader(failStatus)
		fmt.Fprint(w, failBody)
		return
	}

	// Resume after the cursor, like the real API's size+skip-free
	// continuation over the sort field.
	start := 0
	if after != "" {
		for start < len(rows) && sortValue(rows[start], m.sortKey) <= after {
			start++
		}
	}

	end := start + size
	if end > len(rows) {
		end = len(rows)
	}

	var selected []string
	if sel := q.Get("select"); sel != "" {
		selected = strings.Split(sel, ",")
	}

	results := make([]map[string]any, 0, end-start)
	for _, row := range rows[start:end] {
		results = append(results, projectRow(row, selected))
	}

	resp := map[string]any{
		"results": results,
		"total":   len(rows),
	}

	if end < len(rows) && end > start {
		nextQ := url.Values{}
		nextQ.Set("after", sortValue(rows[end-1], m.sortKey))
		nextQ.Set("size", strconv.Itoa(size))
		resp["next"] = m.server.URL + r.URL.Path + "?" + nextQ.Encode()
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(resp)
}

// projectRow applies the select column list the way the real API does:
// only requested columns come back, so space-bearing names never appear
// in responses.
func projectRow(row map[string]any, selected []string) map[string]any {
	if selected == nil {
		return row
	}
	out := make(map[string]any, len(selected))
	for _, col := range selected {
		if v, ok := row[col]; ok {
			out[col] = v
		}
	}
	return out
}

func sortValue(row map[string]any, key string) string {
	switch v := row[key].(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64)
	default:
		return fmt.Sprint(v)
	}
}

// NumberedRows generates n rows with a zero-padded sort key and any
// extra columns produced by fill.
func NumberedRows(sortKey string, n int, fill func(i int) map[string]any) []map[string]any {
	rows := make([]map[string]any, 0, n)
	for i := 0; i < n; i++ {
		row := map[string]any{sortKey: fmt.Sprintf("DPE-%06d", i)}
		if fill != nil {
			for k, v := range fill(i) {
				row[k] = v
			}
		}
		rows = append(rows, row)
	}
	return rows
}
