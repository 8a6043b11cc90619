package store

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"cloud.google.com/go/storage"
	"github.com/evyataryagoni/ipgeocode/internal/models"
)

// ObjectStorage is the subset of a blob store used by the triggered variant
type ObjectStorage interface {
	// ReadObject returns the full content of bucket/name
	ReadObject(ctx context.Context, bucket, name string) ([]byte, error)

	// WriteObject creates or replaces bucket/name
	WriteObject(ctx context.Context, bucket, name, contentType string, data []byte) error

	// Close releases the underlying client
	Close() error
}

// ErrObjectNotFound is returned when an object does not exist
var ErrObjectNotFound = errors.New("object not found")

// GCSStorage implements ObjectStorage on Google Cloud Storage
type GCSStorage struct {
	client *storage.Client
}

// NewGCSStorage creates a Cloud Storage client using Application Default Credentials
func NewGCSStorage(ctx context.Context) (*GCSStorage, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}

	return &GCSStorage{client: client}, nil
}

// ReadObject downloads an object
func (s *GCSStorage) ReadObject(ctx context.Context, bucket, name string) ([]byte, error) {
	reader, err := s.client.Bucket(bucket).Object(name).NewReader(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return nil, fmt.Errorf("gs://%s/%s: %w", bucket, name, ErrObjectNotFound)
		}
		return nil, fmt.Errorf("failed to open gs://%s/%s: %w", bucket, name, err)
	}
	defer reader.Close()

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read gs://%s/%s: %w", bucket, name, err)
	}

	return data, nil
}

// WriteObject uploads an object
func (s *GCSStorage) WriteObject(ctx context.Context, bucket, name, contentType string, data []byte) error {
	writer := s.client.Bucket(bucket).Object(name).NewWriter(ctx)
	writer.ContentType = contentType

	if _, err := writer.Write(data); err != nil {
		writer.Close()
		return fmt.Errorf("failed to write gs://%s/%s: %w", bucket, name, err)
	}

	// The upload is committed on Close
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to upload gs://%s/%s: %w", bucket, name, err)
	}

	return nil
}

// Close closes the Cloud Storage client
func (s *GCSStorage) Close() error {
	if s.client != nil {
		return s.client.Close()
	}
	return nil
}

// ObjectSource reads IP addresses from a storage object
type ObjectSource struct {
	storage ObjectStorage
	bucket  string
	name    string
}

// NewObjectSource creates a source for bucket/name
func NewObjectSource(storage ObjectStorage, bucket, name string) *ObjectSource {
	return &ObjectSource{storage: storage, bucket: bucket, name: name}
}

// ReadIPs implements the Source interface
func (s *ObjectSource) ReadIPs(ctx context.Context) ([]string, error) {
	data, err := s.storage.ReadObject(ctx, s.bucket, s.name)
	if err != nil {
		return nil, err
	}

	ips, err := ParseIPList(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", s, err)
	}

	return ips, nil
}

func (s *ObjectSource) String() string {
	return fmt.Sprintf("gs://%s/%s", s.bucket, s.name)
}

// ObjectSink writes results as a CSV storage object
type ObjectSink struct {
	storage ObjectStorage
	bucket  string
	name    string
}

// OutputObjectName derives the output object name from the input object name
// Example: ("geocoded_", "ips.csv") -> "geocoded_ips.csv"
func OutputObjectName(prefix, inputName string) string {
	return prefix + inputName
}

// NewObjectSink creates a sink writing bucket/name
func NewObjectSink(storage ObjectStorage, bucket, name string) *ObjectSink {
	return &ObjectSink{storage: storage, bucket: bucket, name: name}
}

// Write implements the Sink interface
func (s *ObjectSink) Write(ctx context.Context, results []models.GeoResult) error {
	data, err := EncodeResultsCSV(results)
	if err != nil {
		return err
	}

	return s.storage.WriteObject(ctx, s.bucket, s.name, "text/csv", data)
}

func (s *ObjectSink) String() string {
	return fmt.Sprintf("gs://%s/%s", s.bucket, s.name)
}

// Close does nothing: the storage client is shared and closed by its owner
func (s *ObjectSink) Close() error {
	return nil
}
