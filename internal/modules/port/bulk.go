package port

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/gocarina/gocsv"
)

var (
	ErrUnsupportedBulkFile = errors.New("unsupported file format, please use JSON or CSV")
	ErrMalformedBulkFile   = errors.New("malformed bulk file")
)

var requiredColumns = []string{"name", "country", "unloc"}

// csvPort is one data row of a ports CSV upload.
type csvPort struct {
	Name      string `csv:"name"`
	Country   string `csv:"country"`
	Unloc     string `csv:"unloc"`
	Code      string `csv:"code"`
	Latitude  string `csv:"latitude"`
	Longitude string `csv:"longitude"`
}

// ParseBulkFile decodes an uploaded ports file. JSON files must hold an array
// of ports; CSV files need a header with at least name, country and unloc.
func ParseBulkFile(filename string, data []byte) ([]PortRequest, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".json":
		return DecodeBulkJSON(data)
	case ".csv":
		return decodeBulkCSV(data)
	default:
		return nil, ErrUnsupportedBulkFile
	}
}

// DecodeBulkJSON decodes a JSON array of ports.
func DecodeBulkJSON(data []byte) ([]PortRequest, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return nil, fmt.Errorf("%w: JSON file must contain an array of ports", ErrMalformedBulkFile)
	}
	var entries []PortRequest
	if err := json.Unmarshal(trimmed, &entries); err != nil {
		return nil, fmt.Errorf("%w: invalid JSON format", ErrMalformedBulkFile)
	}
	return entries, nil
}

func decodeBulkCSV(data []byte) ([]PortRequest, error) {
	r := csv.NewReader(bytes.NewReader(bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))))
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedBulkFile, err)
	}
	if len(records) < 2 {
		return nil, fmt.Errorf("%w: CSV file must have at least a header and one data row", ErrMalformedBulkFile)
	}

	header := records[0]
	present := make(map[string]bool, len(header))
	for i, h := range header {
		header[i] = strings.ToLower(strings.TrimSpace(h))
		present[header[i]] = true
	}
	for _, col := range requiredColumns {
		if !present[col] {
			return nil, fmt.Errorf("%w: CSV must include %s column", ErrMalformedBulkFile, col)
		}
	}
	for i := 1; i < len(records); i++ {
		for len(records[i]) < len(header) {
			records[i] = append(records[i], "")
		}
	}

	var rows []csvPort
	if err := gocsv.UnmarshalCSV(&recordReader{records: records}, &rows); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedBulkFile, err)
	}

	entries := make([]PortRequest, 0, len(rows))
	for i, row := range rows {
		req := PortRequest{Name: row.Name, Country: row.Country, Unloc: row.Unloc, Code: row.Code}
		if err := req.Latitude.parse(row.Latitude); err != nil {
			return nil, fmt.Errorf("%w: row %d: invalid latitude %q", ErrMalformedBulkFile, i+2, row.Latitude)
		}
		if err := req.Longitude.parse(row.Longitude); err != nil {
			return nil, fmt.Errorf("%w: row %d: invalid longitude %q", ErrMalformedBulkFile, i+2, row.Longitude)
		}
		entries = append(entries, req)
	}
	return entries, nil
}

// recordReader replays already-read records to gocsv with the normalised header.
type recordReader struct {
	records [][]string
	pos     int
}

func (r *recordReader) Read() ([]string, error) {
	if r.pos >= len(r.records) {
		return nil, io.EOF
	}
	rec := r.records[r.pos]
	r.pos++
	return rec, nil
}

func (r *recordReader) ReadAll() ([][]string, error) {
	rest := r.records[r.pos:]
	r.pos = len(r.records)
	return rest, nil
}
