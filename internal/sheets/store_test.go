package sheets

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/ignite/lead-automation/internal/crm"
)

type recordedRequest struct {
	method string
	path   string
	query  url.Values
	body   valueRange
}

// sheetsServer fakes the values API. The handler gets the unescaped
// range path segment and the parsed body, and returns the payload.
func sheetsServer(t *testing.T, respond func(req recordedRequest) interface{}) (*Store, *[]recordedRequest, func()) {
	t.Helper()
	var calls []recordedRequest

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := recordedRequest{method: r.Method, path: r.URL.Path, query: r.URL.Query()}
		if r.Body != nil {
			data, _ := io.ReadAll(r.Body)
			if len(data) > 0 {
				if err := json.Unmarshal(data, &rec.body); err != nil {
					t.Errorf("bad request body: %v", err)
				}
			}
		}
		calls = append(calls, rec)

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(respond(rec))
	}))

	store := NewStoreWithClient(Config{
		SpreadsheetID: "sheet-123",
		SheetName:     "Leads",
	}, server.URL, server.Client())

	return store, &calls, server.Close
}

func TestReadAllRows(t *testing.T) {
	store, calls, done := sheetsServer(t, func(req recordedRequest) interface{} {
		return valueRange{Values: [][]string{
			{"LEAD-1", "Acme Media"},
			{"LEAD-2", "Beta PR"},
		}}
	})
	defer done()

	rows, err := store.ReadAllRows(context.Background())
	if err != nil {
		t.Fatalf("ReadAllRows() error: %v", err)
	}
	if len(rows) != 2 || rows[1][1] != "Beta PR" {
		t.Errorf("unexpected rows: %v", rows)
	}

	// Data rows start at sheet row 2.
	if got := (*calls)[0].path; got != "/sheet-123/values/Leads!A2:IV" {
		t.Errorf("path = %q, want %q", got, "/sheet-123/values/Leads!A2:IV")
	}
}

func TestFindCellSingleColumnFetch(t *testing.T) {
	store, calls, done := sheetsServer(t, func(req recordedRequest) interface{} {
		return valueRange{Values: [][]string{{"jane@acme.com", "", "PAT@beta.co"}}}
	})
	defer done()

	idx, err := store.FindCell(context.Background(), "pat@beta.co", 2)
	if err != nil {
		t.Fatalf("FindCell() error: %v", err)
	}
	if idx != 2 {
		t.Errorf("idx = %d, want 2", idx)
	}

	if len(*calls) != 1 {
		t.Fatalf("expected one API call, got %d", len(*calls))
	}
	call := (*calls)[0]
	if call.path != "/sheet-123/values/Leads!C2:C" {
		t.Errorf("path = %q, want column C range", call.path)
	}
	if got := call.query.Get("majorDimension"); got != "COLUMNS" {
		t.Errorf("majorDimension = %q, want COLUMNS", got)
	}
}

func TestFindCellMiss(t *testing.T) {
	store, _, done := sheetsServer(t, func(req recordedRequest) interface{} {
		return valueRange{Values: [][]string{{"jane@acme.com"}}}
	})
	defer done()

	_, err := store.FindCell(context.Background(), "nobody@example.com", 0)
	if !errors.Is(err, crm.ErrCellNotFound) {
		t.Errorf("err = %v, want ErrCellNotFound", err)
	}
}

func TestFindCellsAllMatches(t *testing.T) {
	store, _, done := sheetsServer(t, func(req recordedRequest) interface{} {
		return valueRange{Values: [][]string{{"Acme Media", "Beta PR", "acme media"}}}
	})
	defer done()

	got, err := store.FindCells(context.Background(), "Acme Media", 1)
	if err != nil {
		t.Fatalf("FindCells() error: %v", err)
	}
	if len(got) != 2 || got[0] != 0 || got[1] != 2 {
		t.Errorf("got %v, want [0 2]", got)
	}
}

func TestReadRowOffsetsPastHeader(t *testing.T) {
	store, calls, done := sheetsServer(t, func(req recordedRequest) interface{} {
		return valueRange{Values: [][]string{{"LEAD-4", "Gamma Digital"}}}
	})
	defer done()

	row, err := store.ReadRow(context.Background(), 2)
	if err != nil {
		t.Fatalf("ReadRow() error: %v", err)
	}
	if row[0] != "LEAD-4" {
		t.Errorf("row = %v", row)
	}

	// Data row 2 lives on sheet row 4.
	if got := (*calls)[0].path; got != "/sheet-123/values/Leads!A4:IV4" {
		t.Errorf("path = %q, want sheet row 4 range", got)
	}
}

func TestUpdateCellWritesRawValue(t *testing.T) {
	store, calls, done := sheetsServer(t, func(req recordedRequest) interface{} {
		return map[string]interface{}{"updatedCells": 1}
	})
	defer done()

	if err := store.UpdateCell(context.Background(), 0, 20, "Replied"); err != nil {
		t.Fatalf("UpdateCell() error: %v", err)
	}

	call := (*calls)[0]
	if call.method != http.MethodPut {
		t.Errorf("method = %s, want PUT", call.method)
	}
	// Column 20 is U, data row 0 is sheet row 2.
	if call.path != "/sheet-123/values/Leads!U2" {
		t.Errorf("path = %q, want cell U2", call.path)
	}
	if got := call.query.Get("valueInputOption"); got != "RAW" {
		t.Errorf("valueInputOption = %q, want RAW", got)
	}
	if call.body.Values[0][0] != "Replied" {
		t.Errorf("body values = %v", call.body.Values)
	}
}

func TestAppendRow(t *testing.T) {
	store, calls, done := sheetsServer(t, func(req recordedRequest) interface{} {
		return map[string]interface{}{"updates": map[string]int{"updatedRows": 1}}
	})
	defer done()

	if err := store.AppendRow(context.Background(), []string{"LEAD-9", "Delta Comms"}); err != nil {
		t.Fatalf("AppendRow() error: %v", err)
	}

	call := (*calls)[0]
	if call.path != "/sheet-123/values/Leads!A1:append" {
		t.Errorf("path = %q, want append endpoint", call.path)
	}
	if got := call.query.Get("insertDataOption"); got != "INSERT_ROWS" {
		t.Errorf("insertDataOption = %q, want INSERT_ROWS", got)
	}
	if call.body.Values[0][1] != "Delta Comms" {
		t.Errorf("body values = %v", call.body.Values)
	}
}

func TestEnsureHeadersSkipsWhenCurrent(t *testing.T) {
	headers := []string{"Lead ID", "Company", "Email"}
	store, calls, done := sheetsServer(t, func(req recordedRequest) interface{} {
		return valueRange{Values: [][]string{headers}}
	})
	defer done()

	if err := store.EnsureHeaders(context.Background(), headers); err != nil {
		t.Fatalf("EnsureHeaders() error: %v", err)
	}
	if len(*calls) != 1 {
		t.Errorf("expected read only, got %d calls", len(*calls))
	}
}

func TestEnsureHeadersRewritesStaleRow(t *testing.T) {
	headers := []string{"Lead ID", "Company", "Email"}
	store, calls, done := sheetsServer(t, func(req recordedRequest) interface{} {
		if req.method == http.MethodGet {
			return valueRange{Values: [][]string{{"Lead ID", "Company"}}}
		}
		return map[string]interface{}{"updatedCells": 3}
	})
	defer done()

	if err := store.EnsureHeaders(context.Background(), headers); err != nil {
		t.Fatalf("EnsureHeaders() error: %v", err)
	}
	if len(*calls) != 2 {
		t.Fatalf("expected read then write, got %d calls", len(*calls))
	}
	write := (*calls)[1]
	if write.method != http.MethodPut || len(write.body.Values[0]) != 3 {
		t.Errorf("unexpected header write: %+v", write)
	}
}

func TestAPIErrorIncludesStatusAndBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`{"error": {"message": "The caller does not have permission"}}`))
	}))
	defer server.Close()

	store := NewStoreWithClient(Config{SpreadsheetID: "sheet-123", SheetName: "Leads"}, server.URL, server.Client())

	_, err := store.ReadAllRows(context.Background())
	if err == nil {
		t.Fatal("expected error")
	}
	want := "sheets API error (status 403)"
	if got := err.Error(); !strings.Contains(got, want) || !strings.Contains(got, "does not have permission") {
		t.Errorf("err = %q, want status and body", got)
	}
}

func TestColumnLetter(t *testing.T) {
	cases := map[int]string{0: "A", 2: "C", 25: "Z", 26: "AA", 27: "AB", 51: "AZ", 52: "BA", 255: "IV"}
	for col, want := range cases {
		if got := columnLetter(col); got != want {
			t.Errorf("columnLetter(%d) = %q, want %q", col, got, want)
		}
	}
}
