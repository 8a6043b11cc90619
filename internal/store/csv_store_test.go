package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/evyataryagoni/ipgeocode/internal/models"
)

func payload(pairs ...string) models.GeoPayload {
	p := models.GeoPayload{}
	for i := 0; i+1 < len(pairs); i += 2 {
		p.Fields = append(p.Fields, models.Field{Key: pairs[i], Value: pairs[i+1]})
	}
	return p
}

// sampleResults is the end-to-end scenario: the middle IP is a bogon
func sampleResults() []models.GeoResult {
	return []models.GeoResult{
		models.Success("8.8.8.8", payload(
			"ip", "8.8.8.8",
			"country_name", "United States",
			"city", "Mountain View",
		)),
		models.Failed("0.0.0.0", models.RestrictedAddress),
		models.Success("1.1.1.1", payload(
			"ip", "1.1.1.1",
			"country_name", "Australia",
			"city", "Sydney",
			"zipcode", "2000",
		)),
	}
}

// TestParseIPList tests parsing of single-column input bodies
func TestParseIPList(t *testing.T) {
	tests := []struct {
		name     string
		content  string
		expected []string
	}{
		{"one per line", "8.8.8.8\n0.0.0.0\n1.1.1.1\n", []string{"8.8.8.8", "0.0.0.0", "1.1.1.1"}},
		{"no trailing newline", "8.8.8.8\n1.1.1.1", []string{"8.8.8.8", "1.1.1.1"}},
		{"windows line endings", "8.8.8.8\r\n1.1.1.1\r\n", []string{"8.8.8.8", "1.1.1.1"}},
		{"blank lines skipped", "8.8.8.8\n\n  \n1.1.1.1\n", []string{"8.8.8.8", "1.1.1.1"}},
		{"whitespace trimmed", "  8.8.8.8 \n", []string{"8.8.8.8"}},
		{"extra columns ignored", "8.8.8.8,extra\n1.1.1.1\n", []string{"8.8.8.8", "1.1.1.1"}},
		{"malformed kept as is", "not-an-ip\n8.8.8.8\n", []string{"not-an-ip", "8.8.8.8"}},
		{"duplicates kept", "8.8.8.8\n8.8.8.8\n", []string{"8.8.8.8", "8.8.8.8"}},
		{"byte order mark stripped", "\ufeff8.8.8.8\n1.1.1.1\n", []string{"8.8.8.8", "1.1.1.1"}},
		{"byte order mark before blank line", "\ufeff\n8.8.8.8\n", []string{"8.8.8.8"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ips, err := ParseIPList(strings.NewReader(tt.content))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !reflect.DeepEqual(ips, tt.expected) {
				t.Errorf("expected %v, got %v", tt.expected, ips)
			}
		})
	}
}

// TestParseIPList_Empty tests that an empty body is rejected
func TestParseIPList_Empty(t *testing.T) {
	for _, content := range []string{"", "\n\n", "   \n"} {
		_, err := ParseIPList(strings.NewReader(content))
		if !errors.Is(err, ErrEmptyInput) {
			t.Errorf("content %q: expected ErrEmptyInput, got %v", content, err)
		}
	}
}

// TestColumns tests header computation
func TestColumns(t *testing.T) {
	columns := Columns(sampleResults())

	expected := []string{"ip", "country_name", "city", "zipcode", "error"}
	if !reflect.DeepEqual(columns, expected) {
		t.Errorf("expected %v, got %v", expected, columns)
	}
}

// TestColumns_NoFailure tests that the error column is only present when needed
func TestColumns_NoFailure(t *testing.T) {
	results := sampleResults()
	results = append(results[:1], results[2:]...)

	columns := Columns(results)

	for _, c := range columns {
		if c == "error" {
			t.Errorf("did not expect an error column, got %v", columns)
		}
	}
}

// TestColumns_AllFailures tests the two-column failure shape
func TestColumns_AllFailures(t *testing.T) {
	columns := Columns([]models.GeoResult{
		models.Failed("0.0.0.0", models.RestrictedAddress),
		models.Failed("10.0.0.1", models.TimeoutFailure),
	})

	if !reflect.DeepEqual(columns, []string{"ip", "error"}) {
		t.Errorf("expected [ip error], got %v", columns)
	}
}

// TestWriteResultsCSV tests rendering of mixed results
func TestWriteResultsCSV(t *testing.T) {
	data, err := EncodeResultsCSV(sampleResults())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	expected := "ip,country_name,city,zipcode,error\n" +
		"8.8.8.8,United States,Mountain View,,\n" +
		"0.0.0.0,,,,restricted_address\n" +
		"1.1.1.1,Australia,Sydney,2000,\n"

	if string(data) != expected {
		t.Errorf("unexpected CSV:\n%s\nexpected:\n%s", data, expected)
	}
}

// TestWriteResultsCSV_InputIPWins tests that the ip cell is the input token
func TestWriteResultsCSV_InputIPWins(t *testing.T) {
	results := []models.GeoResult{
		models.Success("dns.google", payload("ip", "8.8.8.8", "city", "Mountain View")),
	}

	data, err := EncodeResultsCSV(results)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	expected := "ip,city\ndns.google,Mountain View\n"
	if string(data) != expected {
		t.Errorf("expected %q, got %q", expected, data)
	}
}

// TestCSVFileSource tests reading a local input file
func TestCSVFileSource(t *testing.T) {
	tmpDir := t.TempDir()
	csvPath := filepath.Join(tmpDir, "ip-addresses.csv")

	if err := os.WriteFile(csvPath, []byte("8.8.8.8\n0.0.0.0\n1.1.1.1\n"), 0644); err != nil {
		t.Fatalf("failed to create test file: %v", err)
	}

	source := NewCSVFileSource(csvPath)
	ips, err := source.ReadIPs(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(ips) != 3 || ips[1] != "0.0.0.0" {
		t.Errorf("unexpected IPs: %v", ips)
	}
	if source.String() != csvPath {
		t.Errorf("expected String() to be the path, got %s", source.String())
	}
}

// TestCSVFileSource_FileNotFound tests handling of nonexistent file
func TestCSVFileSource_FileNotFound(t *testing.T) {
	_, err := NewCSVFileSource("/nonexistent/path/file.csv").ReadIPs(context.Background())

	if err == nil {
		t.Error("expected error for nonexistent file, got nil")
	}
}

// TestCSVFileSource_EmptyFile tests handling of empty CSV file
func TestCSVFileSource_EmptyFile(t *testing.T) {
	tmpDir := t.TempDir()
	csvPath := filepath.Join(tmpDir, "empty.csv")

	f, _ := os.Create(csvPath)
	f.Close()

	_, err := NewCSVFileSource(csvPath).ReadIPs(context.Background())

	if !errors.Is(err, ErrEmptyInput) {
		t.Errorf("expected ErrEmptyInput, got %v", err)
	}
}

// TestCSVFileSink tests writing a local output file
func TestCSVFileSink(t *testing.T) {
	tmpDir := t.TempDir()
	csvPath := filepath.Join(tmpDir, "geocoded_ip_addresses.csv")

	sink := NewCSVFileSink(csvPath)
	defer sink.Close()

	if err := sink.Write(context.Background(), sampleResults()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	data, err := os.ReadFile(csvPath)
	if err != nil {
		t.Fatalf("failed to read output: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 4 {
		t.Fatalf("expected header + 3 rows, got %d lines", len(lines))
	}
	if !strings.HasPrefix(lines[2], "0.0.0.0,") || !strings.HasSuffix(lines[2], "restricted_address") {
		t.Errorf("unexpected failure row: %s", lines[2])
	}

	if _, err := os.Stat(csvPath + ".tmp"); !os.IsNotExist(err) {
		t.Error("expected temporary file to be gone")
	}
}

// TestCSVFileSink_BadDirectory tests write errors
func TestCSVFileSink_BadDirectory(t *testing.T) {
	sink := NewCSVFileSink("/nonexistent/dir/out.csv")

	if err := sink.Write(context.Background(), sampleResults()); err == nil {
		t.Error("expected error for missing directory, got nil")
	}
}
