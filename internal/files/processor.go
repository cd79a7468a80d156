// Package files turns uploaded JSON and CSV files into structured data
// a chat session can answer questions about. Processing happens once at
// upload time; the stored result feeds prompt assembly on every
// subsequent message.
package files

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"
)

const (
	TypeJSON = "json"
	TypeCSV  = "csv"

	// DefaultMaxFileBytes caps uploads at 5 MB, matching what a widget
	// can reasonably post inline.
	DefaultMaxFileBytes = 5 * 1024 * 1024

	sampleRowCount     = 3
	typeInferenceLimit = 100
)

var (
	ErrEmptyFile       = errors.New("file is empty")
	ErrFileTooLarge    = errors.New("file exceeds size limit")
	ErrUnsupportedType = errors.New("unsupported file type (expected .json or .csv)")
)

// Summary describes a processed file. CSV and JSON files populate
// different subsets of the fields.
type Summary struct {
	// CSV fields.
	ColumnCount int               `json:"columnCount,omitempty"`
	RowCount    int               `json:"rowCount,omitempty"`
	Columns     []string          `json:"columns,omitempty"`
	ColumnTypes map[string]string `json:"columnTypes,omitempty"`
	SampleRows  []json.RawMessage `json:"sampleData,omitempty"`

	// JSON fields.
	Kind      string            `json:"type,omitempty"` // "array", "object" or "scalar"
	Length    int               `json:"length,omitempty"`
	Keys      []string          `json:"keys,omitempty"`
	DataTypes map[string]string `json:"dataTypes,omitempty"`
}

// Processed is the stored result of ingesting one upload.
type Processed struct {
	Type         string
	OriginalName string
	Size         int64
	// Data is the normalized structured payload, ready for prompt
	// assembly. CSV rows become an array of objects in column order.
	Data json.RawMessage
	// Summary is the schema overview shown to the model and the widget.
	Summary Summary
}

// Processor validates and parses uploads.
type Processor struct {
	maxBytes int64
}

func NewProcessor(maxBytes int64) *Processor {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxFileBytes
	}
	return &Processor{maxBytes: maxBytes}
}

// Process dispatches on the file extension.
func (p *Processor) Process(name string, content []byte) (*Processed, error) {
	if int64(len(content)) > p.maxBytes {
		return nil, fmt.Errorf("%w: %d bytes (limit %d)", ErrFileTooLarge, len(content), p.maxBytes)
	}
	if len(bytes.TrimSpace(content)) == 0 {
		return nil, ErrEmptyFile
	}

	switch strings.ToLower(filepath.Ext(name)) {
	case ".json":
		return p.processJSON(name, content)
	case ".csv":
		return p.processCSV(name, content)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedType, filepath.Ext(name))
	}
}

func (p *Processor) processJSON(name string, content []byte) (*Processed, error) {
	var data any
	dec := json.NewDecoder(bytes.NewReader(content))
	dec.UseNumber()
	if err := dec.Decode(&data); err != nil {
		return nil, fmt.Errorf("failed to parse JSON file: %w", err)
	}

	return &Processed{
		Type:         TypeJSON,
		OriginalName: name,
		Size:         int64(len(content)),
		Data:         json.RawMessage(bytes.TrimSpace(content)),
		Summary:      summarizeJSON(data),
	}, nil
}

func summarizeJSON(data any) Summary {
	switch v := data.(type) {
	case []any:
		s := Summary{Kind: "array", Length: len(v)}
		if len(v) > 0 {
			if first, ok := v[0].(map[string]any); ok {
				for key := range first {
					s.Keys = append(s.Keys, key)
				}
				sort.Strings(s.Keys)
				s.DataTypes = inferObjectTypes(s.Keys, v)
			}
		}
		return s
	case map[string]any:
		s := Summary{Kind: "object"}
		for key := range v {
			s.Keys = append(s.Keys, key)
		}
		sort.Strings(s.Keys)
		s.DataTypes = inferObjectTypes(s.Keys, []any{v})
		return s
	default:
		return Summary{Kind: "scalar"}
	}
}

func (p *Processor) processCSV(name string, content []byte) (*Processed, error) {
	reader := csv.NewReader(bytes.NewReader(content))
	reader.FieldsPerRecord = -1 // tolerate ragged rows
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse CSV file: %w", err)
	}
	if len(records) == 0 {
		return nil, ErrEmptyFile
	}

	headers := make([]string, len(records[0]))
	for i, h := range records[0] {
		headers[i] = strings.TrimSpace(h)
	}

	rows := make([][]string, 0, len(records)-1)
	for _, rec := range records[1:] {
		empty := true
		for _, cell := range rec {
			if strings.TrimSpace(cell) != "" {
				empty = false
				break
			}
		}
		if !empty {
			rows = append(rows, rec)
		}
	}

	data, err := encodeRows(headers, rows)
	if err != nil {
		return nil, err
	}

	summary := Summary{
		ColumnCount: len(headers),
		RowCount:    len(rows),
		Columns:     headers,
		ColumnTypes: inferCSVColumnTypes(headers, rows),
	}
	for i := 0; i < len(rows) && i < sampleRowCount; i++ {
		sample, err := encodeRow(headers, rows[i])
		if err != nil {
			return nil, err
		}
		summary.SampleRows = append(summary.SampleRows, sample)
	}

	return &Processed{
		Type:         TypeCSV,
		OriginalName: name,
		Size:         int64(len(content)),
		Data:         data,
		Summary:      summary,
	}, nil
}

// encodeRows renders CSV rows as a JSON array of objects, keys in
// column order. Built by hand because map marshaling would alphabetize
// the keys and lose the file's column order downstream.
func encodeRows(headers []string, rows [][]string) (json.RawMessage, error) {
	var buf bytes.Buffer
	buf.WriteByte('[')
	for i, row := range rows {
		if i > 0 {
			buf.WriteByte(',')
		}
		obj, err := encodeRow(headers, row)
		if err != nil {
			return nil, err
		}
		buf.Write(obj)
	}
	buf.WriteByte(']')
	return buf.Bytes(), nil
}

func encodeRow(headers []string, row []string) (json.RawMessage, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, header := range headers {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(header)
		if err != nil {
			return nil, err
		}
		cell := ""
		if i < len(row) {
			cell = strings.TrimSpace(row[i])
		}
		val, err := json.Marshal(cell)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// ContextNote is a one-line description of an upload, prepended to the
// data section of assembled prompts so the model knows where the table
// came from. It works from the stored summary so callers can rebuild
// the note long after processing.
func ContextNote(name, fileType string, s Summary) string {
	switch fileType {
	case TypeCSV:
		cols := make([]string, 0, len(s.Columns))
		for _, c := range s.Columns {
			if t, ok := s.ColumnTypes[c]; ok {
				cols = append(cols, c+": "+t)
			} else {
				cols = append(cols, c)
			}
		}
		return fmt.Sprintf("Uploaded file %s (CSV, %d rows; columns: %s)",
			name, s.RowCount, strings.Join(cols, ", "))
	case TypeJSON:
		switch s.Kind {
		case "array":
			return fmt.Sprintf("Uploaded file %s (JSON array, %d items)", name, s.Length)
		case "object":
			return fmt.Sprintf("Uploaded file %s (JSON object; keys: %s)",
				name, strings.Join(s.Keys, ", "))
		default:
			return fmt.Sprintf("Uploaded file %s (JSON)", name)
		}
	}
	return fmt.Sprintf("Uploaded file %s", name)
}

// --- type inference ---

func inferObjectTypes(keys []string, items []any) map[string]string {
	types := make(map[string]string, len(keys))
	for _, key := range keys {
		var values []any
		for _, item := range items {
			obj, ok := item.(map[string]any)
			if !ok {
				continue
			}
			if v, present := obj[key]; present && v != nil {
				values = append(values, v)
			}
		}
		types[key] = inferType(values)
	}
	return types
}

func inferCSVColumnTypes(headers []string, rows [][]string) map[string]string {
	types := make(map[string]string, len(headers))
	for i, header := range headers {
		var values []any
		for _, row := range rows {
			if i < len(row) && strings.TrimSpace(row[i]) != "" {
				values = append(values, strings.TrimSpace(row[i]))
			}
		}
		types[header] = inferType(values)
	}
	return types
}

var dateFormats = []string{
	"2006-01-02",
	"01/02/2006",
	"02/01/2006",
	"2006-01-02 15:04:05",
	"01/02/2006 15:04:05",
}

func inferType(values []any) string {
	if len(values) == 0 {
		return "empty"
	}
	sample := values
	if len(sample) > typeInferenceLimit {
		sample = sample[:typeInferenceLimit]
	}

	allNumbers := true
	for _, v := range sample {
		if !isNumber(v) {
			allNumbers = false
			break
		}
	}
	if allNumbers {
		return "number"
	}

	allBooleans := true
	for _, v := range sample {
		if !isBooleanish(v) {
			allBooleans = false
			break
		}
	}
	if allBooleans {
		return "boolean"
	}

	allDates := true
	for _, v := range sample {
		s, ok := v.(string)
		if !ok || !isDate(s) {
			allDates = false
			break
		}
	}
	if allDates {
		return "date"
	}

	return "string"
}

func isNumber(v any) bool {
	switch n := v.(type) {
	case json.Number, float64, int:
		return true
	case string:
		_, err := strconv.ParseFloat(n, 64)
		return err == nil
	default:
		return false
	}
}

func isBooleanish(v any) bool {
	switch b := v.(type) {
	case bool:
		return true
	case string:
		switch strings.ToLower(b) {
		case "true", "false", "1", "0", "yes", "no":
			return true
		}
	case json.Number:
		return b.String() == "0" || b.String() == "1"
	}
	return false
}

func isDate(s string) bool {
	for _, layout := range dateFormats {
		if _, err := time.Parse(layout, s); err == nil {
			return true
		}
	}
	return false
}

