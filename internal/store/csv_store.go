package store

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/evyataryagoni/ipgeocode/internal/models"
)

// ParseIPList reads a single-column CSV body without header
// Surrounding whitespace is trimmed, blank lines are skipped and only the
// first column of a row is used. IPs are not validated here.
func ParseIPList(r io.Reader) ([]string, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1 // Rows may have a varying number of columns
	reader.TrimLeadingSpace = true
	reader.LazyQuotes = true

	var ips []string
	first := true
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read CSV: %w", err)
		}

		if len(record) == 0 {
			continue
		}
		field := record[0]
		if first {
			// Spreadsheet exports often start with a UTF-8 byte order mark
			field = strings.TrimPrefix(field, "\ufeff")
			first = false
		}
		ip := strings.TrimSpace(field)
		if ip == "" {
			continue
		}
		ips = append(ips, ip)
	}

	if len(ips) == 0 {
		return nil, ErrEmptyInput
	}

	return ips, nil
}

// Columns returns the CSV header for results:
// "ip", then every payload key in order of first appearance, then "error"
// if and only if at least one result is a failure
func Columns(results []models.GeoResult) []string {
	columns := []string{"ip"}
	seen := map[string]bool{"ip": true}
	hasFailure := false

	for _, result := range results {
		if !result.OK() {
			hasFailure = true
			continue
		}
		for _, field := range result.Payload.Fields {
			if seen[field.Key] {
				continue
			}
			seen[field.Key] = true
			columns = append(columns, field.Key)
		}
	}

	// "error" is reserved for failures even if the API sends such a key
	if hasFailure && !seen["error"] {
		columns = append(columns, "error")
	}

	return columns
}

// WriteResultsCSV renders results as a CSV body with a header row
// One data row per result, in the order given
func WriteResultsCSV(w io.Writer, results []models.GeoResult) error {
	writer := csv.NewWriter(w)
	columns := Columns(results)

	if err := writer.Write(columns); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}

	for _, result := range results {
		row := make([]string, len(columns))
		for i, column := range columns {
			switch {
			case column == "ip":
				row[i] = result.IP
			case !result.OK():
				if column == "error" {
					row[i] = string(result.Failure)
				}
			default:
				row[i] = result.Payload.Value(column)
			}
		}
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("failed to write CSV row: %w", err)
		}
	}

	writer.Flush()
	return writer.Error()
}

// EncodeResultsCSV renders results into memory
func EncodeResultsCSV(results []models.GeoResult) ([]byte, error) {
	var buf bytes.Buffer
	if err := WriteResultsCSV(&buf, results); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// CSVFileSource reads IP addresses from a local CSV file
type CSVFileSource struct {
	path string
}

// NewCSVFileSource creates a source reading the file at filePath
// CSV Format: one IP per line, no header
// Example: 8.8.8.8
func NewCSVFileSource(filePath string) *CSVFileSource {
	return &CSVFileSource{path: filePath}
}

// ReadIPs implements the Source interface
func (s *CSVFileSource) ReadIPs(ctx context.Context) ([]string, error) {
	// Open the CSV file for reading
	file, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("failed to open CSV file: %w", err)
	}
	defer file.Close()

	ips, err := ParseIPList(file)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", s.path, err)
	}

	return ips, nil
}

func (s *CSVFileSource) String() string {
	return s.path
}

// CSVFileSink writes results to a local CSV file
type CSVFileSink struct {
	path string
}

// NewCSVFileSink creates a sink writing the file at filePath (truncated on write)
func NewCSVFileSink(filePath string) *CSVFileSink {
	return &CSVFileSink{path: filePath}
}

// Write implements the Sink interface
// The file is written to a temporary name first and renamed, so a failed
// run never leaves a half-written output behind
func (s *CSVFileSink) Write(ctx context.Context, results []models.GeoResult) error {
	tmpPath := s.path + ".tmp"

	file, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("failed to create CSV file: %w", err)
	}

	if err := WriteResultsCSV(file, results); err != nil {
		file.Close()
		os.Remove(tmpPath)
		return err
	}

	if err := file.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close CSV file: %w", err)
	}

	if err := os.Rename(tmpPath, s.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to move CSV file into place: %w", err)
	}

	return nil
}

func (s *CSVFileSink) String() string {
	return s.path
}

// Close cleans up resources
// For CSV sink, there's nothing to clean up (the file is closed after each write)
func (s *CSVFileSink) Close() error {
	return nil
}
