// Package sheets implements the CRM row store against the Google Sheets
// values API, authenticated with a service account.
package sheets

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"golang.org/x/oauth2/google"

	"github.com/ignite/lead-automation/internal/crm"
	"github.com/ignite/lead-automation/internal/pkg/httpretry"
	"github.com/ignite/lead-automation/internal/pkg/logger"
)

const (
	defaultBaseURL   = "https://sheets.googleapis.com/v4/spreadsheets"
	spreadsheetScope = "https://www.googleapis.com/auth/spreadsheets"
)

// Config holds Google Sheets store configuration.
type Config struct {
	CredentialsFile string `yaml:"credentials_file"`
	SpreadsheetID   string `yaml:"spreadsheet_id"`
	SheetName       string `yaml:"sheet_name"`
}

// Store is a crm.RowStore backed by one worksheet. Data rows are 0-based;
// sheet row 1 is the header and is managed by EnsureHeaders.
type Store struct {
	baseURL       string
	spreadsheetID string
	sheetName     string
	httpClient    httpretry.HTTPDoer
}

// NewStore creates a Sheets-backed row store using service-account JWT
// credentials. It fails fast when the credentials file is unreadable or
// malformed: that is a configuration error, surfaced before any work runs.
func NewStore(ctx context.Context, cfg Config) (*Store, error) {
	data, err := os.ReadFile(cfg.CredentialsFile)
	if err != nil {
		return nil, fmt.Errorf("read google credentials: %w", err)
	}
	conf, err := google.JWTConfigFromJSON(data, spreadsheetScope)
	if err != nil {
		return nil, fmt.Errorf("parse google credentials: %w", err)
	}
	authClient := conf.Client(ctx)
	authClient.Timeout = 30 * time.Second

	return &Store{
		baseURL:       defaultBaseURL,
		spreadsheetID: cfg.SpreadsheetID,
		sheetName:     cfg.SheetName,
		httpClient:    httpretry.NewRetryClient(authClient, 3),
	}, nil
}

// NewStoreWithClient creates a store with an injected HTTP client and base
// URL (tests).
func NewStoreWithClient(cfg Config, baseURL string, client httpretry.HTTPDoer) *Store {
	return &Store{
		baseURL:       baseURL,
		spreadsheetID: cfg.SpreadsheetID,
		sheetName:     cfg.SheetName,
		httpClient:    client,
	}
}

type valueRange struct {
	Range          string     `json:"range,omitempty"`
	MajorDimension string     `json:"majorDimension,omitempty"`
	Values         [][]string `json:"values"`
}

func (s *Store) doRequest(ctx context.Context, method, path string, query url.Values, body interface{}) ([]byte, error) {
	var reqBody io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal request body: %w", err)
		}
		reqBody = bytes.NewBuffer(jsonBody)
	}

	reqURL := fmt.Sprintf("%s/%s%s", s.baseURL, s.spreadsheetID, path)
	if len(query) > 0 {
		reqURL += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, reqBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("sheets API error (status %d): %s", resp.StatusCode, string(respBody))
	}
	return respBody, nil
}

// getValues fetches a range in the given major dimension ("ROWS"/"COLUMNS").
func (s *Store) getValues(ctx context.Context, a1Range, dimension string) ([][]string, error) {
	query := url.Values{}
	if dimension != "" {
		query.Set("majorDimension", dimension)
	}
	path := fmt.Sprintf("/values/%s", url.PathEscape(a1Range))
	respBody, err := s.doRequest(ctx, http.MethodGet, path, query, nil)
	if err != nil {
		return nil, err
	}
	var vr valueRange
	if err := json.Unmarshal(respBody, &vr); err != nil {
		return nil, fmt.Errorf("parse values response: %w", err)
	}
	return vr.Values, nil
}

// EnsureHeaders writes the header row when it is missing or stale.
func (s *Store) EnsureHeaders(ctx context.Context, headers []string) error {
	rows, err := s.getValues(ctx, fmt.Sprintf("%s!1:1", s.sheetName), "")
	if err != nil {
		return err
	}
	if len(rows) > 0 && equalRows(rows[0], headers) {
		return nil
	}

	rangeRef := fmt.Sprintf("%s!A1", s.sheetName)
	query := url.Values{"valueInputOption": {"RAW"}}
	path := fmt.Sprintf("/values/%s", url.PathEscape(rangeRef))
	_, err = s.doRequest(ctx, http.MethodPut, path, query, valueRange{Values: [][]string{headers}})
	if err != nil {
		return fmt.Errorf("write headers: %w", err)
	}
	logger.Info("sheet headers updated", "sheet", s.sheetName)
	return nil
}

func equalRows(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// ReadAllRows returns every data row (sheet rows 2 and below).
func (s *Store) ReadAllRows(ctx context.Context) ([][]string, error) {
	return s.getValues(ctx, fmt.Sprintf("%s!A2:%s", s.sheetName, columnLetter(255)), "")
}

// FindCell fetches the column in one call and matches client-side: one
// round trip regardless of sheet size.
func (s *Store) FindCell(ctx context.Context, value string, col int) (int, error) {
	values, err := s.ColumnValues(ctx, col)
	if err != nil {
		return 0, err
	}
	for i, v := range values {
		if strings.EqualFold(v, value) {
			return i, nil
		}
	}
	return 0, crm.ErrCellNotFound
}

// FindCells returns every matching data row index in sheet order.
func (s *Store) FindCells(ctx context.Context, value string, col int) ([]int, error) {
	values, err := s.ColumnValues(ctx, col)
	if err != nil {
		return nil, err
	}
	var out []int
	for i, v := range values {
		if strings.EqualFold(v, value) {
			out = append(out, i)
		}
	}
	if len(out) == 0 {
		return nil, crm.ErrCellNotFound
	}
	return out, nil
}

// ReadRow returns a single data row.
func (s *Store) ReadRow(ctx context.Context, row int) ([]string, error) {
	sheetRow := row + 2
	rows, err := s.getValues(ctx, fmt.Sprintf("%s!A%d:%s%d", s.sheetName, sheetRow, columnLetter(255), sheetRow), "")
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, crm.ErrCellNotFound
	}
	return rows[0], nil
}

// UpdateCell writes one cell.
func (s *Store) UpdateCell(ctx context.Context, row, col int, value string) error {
	rangeRef := fmt.Sprintf("%s!%s%d", s.sheetName, columnLetter(col), row+2)
	query := url.Values{"valueInputOption": {"RAW"}}
	path := fmt.Sprintf("/values/%s", url.PathEscape(rangeRef))
	_, err := s.doRequest(ctx, http.MethodPut, path, query, valueRange{Values: [][]string{{value}}})
	if err != nil {
		return fmt.Errorf("update cell %s: %w", rangeRef, err)
	}
	return nil
}

// AppendRow appends a data row below the existing table.
func (s *Store) AppendRow(ctx context.Context, values []string) error {
	rangeRef := fmt.Sprintf("%s!A1", s.sheetName)
	query := url.Values{
		"valueInputOption": {"RAW"},
		"insertDataOption": {"INSERT_ROWS"},
	}
	path := fmt.Sprintf("/values/%s:append", url.PathEscape(rangeRef))
	_, err := s.doRequest(ctx, http.MethodPost, path, query, valueRange{Values: [][]string{values}})
	if err != nil {
		return fmt.Errorf("append row: %w", err)
	}
	return nil
}

// ColumnValues returns the data cells of one column (header excluded).
func (s *Store) ColumnValues(ctx context.Context, col int) ([]string, error) {
	letter := columnLetter(col)
	cols, err := s.getValues(ctx, fmt.Sprintf("%s!%s2:%s", s.sheetName, letter, letter), "COLUMNS")
	if err != nil {
		return nil, err
	}
	if len(cols) == 0 {
		return nil, nil
	}
	return cols[0], nil
}

// columnLetter converts a 0-based column index to its A1 letter form.
func columnLetter(col int) string {
	var b []byte
	n := col
	for {
		b = append([]byte{byte('A' + n%26)}, b...)
		n = n/26 - 1
		if n < 0 {
			break
		}
	}
	return string(b)
}
