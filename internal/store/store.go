package store

import (
	"context"
	"errors"

	"github.com/evyataryagoni/ipgeocode/internal/models"
)

// ErrEmptyInput is returned when an input holds no IP address at all
var ErrEmptyInput = errors.New("input contains no IP addresses")

// Source supplies the ordered list of IP addresses of one run
// Allows multiple implementations (local file, storage object) and easy testing with mocks
type Source interface {
	// ReadIPs returns the IP addresses in input order
	ReadIPs(ctx context.Context) ([]string, error)

	// String describes where the input comes from (for logs)
	String() string
}

// Sink persists the ordered results of one run
// Implementations: CSV file, storage object, MySQL, Redis
type Sink interface {
	// Write stores every result; results are in input order
	Write(ctx context.Context, results []models.GeoResult) error

	// String describes where the output goes (for logs and summaries)
	String() string

	// Close cleans up resources (database connections, file handles, etc.)
	Close() error
}
