package upload

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/xuri/excelize/v2"
)

var (
	ErrUnsupportedFormat = errors.New("Unsupported file type. Please upload Excel, CSV, or JSON files.")
	ErrMalformedFile     = errors.New("malformed file")
)

// Format is an accepted upload encoding.
type Format int

const (
	FormatJSON Format = iota + 1
	FormatCSV
	FormatXLSX
)

const (
	mimeJSON = "application/json"
	mimeCSV  = "text/csv"
	mimeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	mimeXLS  = "application/vnd.ms-excel"
)

// Canonical field keys after header normalisation.
const (
	FieldServiceName     = "servicename"
	FieldCarrier         = "carrier"
	FieldPOL             = "pol"
	FieldPOD             = "pod"
	FieldTransitTime     = "transittime"
	FieldPartnerServices = "partnerservices"
	FieldRouteName       = "routename"
)

// Row is one data record of an uploaded file. Number is the spreadsheet row
// number the record came from (the header is row 1).
type Row struct {
	Number int
	Fields map[string]string
}

// Get returns the value stored under any spelling of key.
func (r Row) Get(key string) string {
	return r.Fields[NormalizeHeader(key)]
}

// NormalizeHeader folds header spellings such as "Service Name", "serviceName"
// and "service_name" onto one key.
func NormalizeHeader(h string) string {
	h = strings.ToLower(strings.TrimSpace(h))
	return strings.Map(func(r rune) rune {
		switch r {
		case ' ', '_', '-', '\t':
			return -1
		}
		return r
	}, h)
}

// DetectFormat picks the decoder for an upload from its file name, then its
// declared content type, then its content.
func DetectFormat(filename, contentType string, data []byte) (Format, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".json":
		return FormatJSON, nil
	case ".csv":
		return FormatCSV, nil
	case ".xlsx":
		return FormatXLSX, nil
	case ".xls":
		return 0, fmt.Errorf("%w: legacy .xls workbooks are not supported, save as .xlsx", ErrUnsupportedFormat)
	}

	if mediaType, _, err := mime.ParseMediaType(contentType); err == nil {
		switch mediaType {
		case mimeJSON:
			return FormatJSON, nil
		case mimeCSV, "application/csv":
			return FormatCSV, nil
		case mimeXLSX:
			return FormatXLSX, nil
		}
	}

	detected := mimetype.Detect(data)
	switch {
	case detected.Is(mimeXLSX):
		return FormatXLSX, nil
	case detected.Is(mimeJSON):
		return FormatJSON, nil
	case detected.Is(mimeCSV):
		return FormatCSV, nil
	case detected.Is(mimeXLS):
		return 0, fmt.Errorf("%w: legacy .xls workbooks are not supported, save as .xlsx", ErrUnsupportedFormat)
	}
	return 0, ErrUnsupportedFormat
}

// ParseFile decodes an uploaded file into rows.
func ParseFile(filename, contentType string, data []byte) ([]Row, error) {
	format, err := DetectFormat(filename, contentType, data)
	if err != nil {
		return nil, err
	}
	switch format {
	case FormatJSON:
		return parseJSON(data)
	case FormatCSV:
		return parseCSV(data)
	default:
		return parseXLSX(data)
	}
}

func parseJSON(data []byte) ([]Row, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var objects []map[string]interface{}
	if err := dec.Decode(&objects); err != nil {
		return nil, fmt.Errorf("%w: JSON must be an array of objects: %v", ErrMalformedFile, err)
	}
	if objects == nil {
		return nil, fmt.Errorf("%w: JSON must be an array of objects", ErrMalformedFile)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: unexpected data after JSON array", ErrMalformedFile)
	}

	rows := make([]Row, 0, len(objects))
	for i, obj := range objects {
		fields := make(map[string]string, len(obj))
		for k, v := range obj {
			key := NormalizeHeader(k)
			if _, taken := fields[key]; taken && stringify(v) == "" {
				continue
			}
			fields[key] = stringify(v)
		}
		rows = append(rows, Row{Number: i + 2, Fields: fields})
	}
	return rows, nil
}

func stringify(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case json.Number:
		return t.String()
	case bool:
		return strconv.FormatBool(t)
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprint(t)
		}
		return string(b)
	}
}

func parseCSV(data []byte) ([]Row, error) {
	r := csv.NewReader(bytes.NewReader(bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedFile, err)
	}
	return tabular(records)
}

func parseXLSX(data []byte) ([]Row, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedFile, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("%w: workbook has no worksheets", ErrMalformedFile)
	}
	records, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedFile, err)
	}
	return tabular(records)
}

// tabular turns a header row plus data rows into Rows. Blank lines are
// skipped but keep their place in the row numbering.
func tabular(records [][]string) ([]Row, error) {
	if len(records) == 0 || isBlank(records[0]) {
		return nil, fmt.Errorf("%w: file has no header row", ErrMalformedFile)
	}
	header := make([]string, len(records[0]))
	for i, h := range records[0] {
		header[i] = NormalizeHeader(h)
	}

	rows := make([]Row, 0, len(records)-1)
	for i := 1; i < len(records); i++ {
		rec := records[i]
		if isBlank(rec) {
			continue
		}
		fields := make(map[string]string, len(header))
		for j, key := range header {
			if key == "" {
				continue
			}
			var v string
			if j < len(rec) {
				v = rec[j]
			}
			if _, taken := fields[key]; taken && v == "" {
				continue
			}
			fields[key] = v
		}
		rows = append(rows, Row{Number: i + 1, Fields: fields})
	}
	return rows, nil
}

func isBlank(rec []string) bool {
	for _, v := range rec {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
