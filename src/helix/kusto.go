package helix

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"pipeline-agent/src/logger"
	"pipeline-agent/src/provider"
)

// kustoClient speaks the v1 REST query protocol of an analytics cluster.
type kustoClient struct {
	clusterURL string
	database   string
	token      string
	httpClient *http.Client
	log        logger.Logger
}

type kustoRequest struct {
	DB  string `json:"db"`
	CSL string `json:"csl"`
}

type kustoColumn struct {
	ColumnName string `json:"ColumnName"`
	DataType   string `json:"DataType"`
}

type kustoTable struct {
	TableName string          `json:"TableName"`
	Columns   []kustoColumn   `json:"Columns"`
	Rows      [][]interface{} `json:"Rows"`
}

type kustoResponse struct {
	Tables []kustoTable `json:"Tables"`
}

// query runs csl and returns the primary result table.
func (k *kustoClient) query(ctx context.Context, operation, csl string) (*kustoTable, error) {
	payload, err := json.Marshal(kustoRequest{DB: k.database, CSL: csl})
	if err != nil {
		return nil, fmt.Errorf("%s: failed to encode query: %w", operation, err)
	}

	endpoint := k.clusterURL + "/v1/rest/query"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("%s: failed to create request: %w", operation, err)
	}
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", k.token))
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	req.Header.Set("Accept", "application/json")

	k.log.Debug("POST %s\n%s", endpoint, csl)
	resp, err := k.httpClient.Do(req)
	if err != nil {
		return nil, provider.AnalyticsTransport(fmt.Errorf("%s against %s: %w", operation, k.clusterURL, err))
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, provider.NewStatusError(operation, k.database, resp.StatusCode, body)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, provider.AnalyticsTransport(fmt.Errorf("%s: failed to read response: %w", operation, err))
	}

	var parsed kustoResponse
	decoder := json.NewDecoder(bytes.NewReader(body))
	decoder.UseNumber()
	if err := decoder.Decode(&parsed); err != nil {
		return nil, fmt.Errorf("%s: %w: %w", operation, provider.ErrDecode, err)
	}
	if len(parsed.Tables) == 0 {
		return nil, fmt.Errorf("%s: %w: response has no result tables", operation, provider.ErrDecode)
	}
	return &parsed.Tables[0], nil
}

// rowReader reads cells of one row by column name. The first failure is
// kept and later reads return zero values.
type rowReader struct {
	index map[string]int
	row   []interface{}
	err   error
}

func newRowReaders(table *kustoTable) []*rowReader {
	index := make(map[string]int, len(table.Columns))
	for i, c := range table.Columns {
		index[c.ColumnName] = i
	}
	readers := make([]*rowReader, len(table.Rows))
	for i, row := range table.Rows {
		readers[i] = &rowReader{index: index, row: row}
	}
	return readers
}

func (r *rowReader) fail(column, format string, args ...interface{}) {
	if r.err == nil {
		r.err = fmt.Errorf("column %s: %s", column, fmt.Sprintf(format, args...))
	}
}

func (r *rowReader) cell(column string) (interface{}, bool) {
	i, ok := r.index[column]
	if !ok || i >= len(r.row) {
		r.fail(column, "missing from result")
		return nil, false
	}
	if r.row[i] == nil {
		r.fail(column, "is null")
		return nil, false
	}
	return r.row[i], true
}

func (r *rowReader) String(column string) string {
	v, ok := r.cell(column)
	if !ok {
		return ""
	}
	s, ok := v.(string)
	if !ok {
		r.fail(column, "expected string, got %T", v)
	}
	return s
}

// JSON returns a dynamic or string column as JSON text.
func (r *rowReader) JSON(column string) string {
	v, ok := r.cell(column)
	if !ok {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	raw, err := json.Marshal(v)
	if err != nil {
		r.fail(column, "cannot re-encode: %v", err)
		return ""
	}
	return string(raw)
}

func (r *rowReader) Int64(column string) int64 {
	v, ok := r.cell(column)
	if !ok {
		return 0
	}
	var text string
	switch n := v.(type) {
	case json.Number:
		text = n.String()
	case string:
		text = n
	default:
		r.fail(column, "expected number, got %T", v)
		return 0
	}
	i, err := strconv.ParseInt(strings.TrimSpace(text), 10, 64)
	if err != nil {
		r.fail(column, "expected integer, got %q", text)
	}
	return i
}

func (r *rowReader) Int(column string) int {
	return int(r.Int64(column))
}

func (r *rowReader) Time(column string) time.Time {
	s := r.String(column)
	if r.err != nil {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		r.fail(column, "expected datetime, got %q", s)
	}
	return t
}

func (r *rowReader) Err() error {
	return r.err
}
