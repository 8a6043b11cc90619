package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/evyataryagoni/ipgeocode/internal/models"
)

// MockSource is a test double for the Source interface
type MockSource struct {
	IPs       []string
	ReadError error
	ReadCalls int
}

// NewMockSource creates a source returning ips
func NewMockSource(ips ...string) *MockSource {
	return &MockSource{IPs: ips}
}

// ReadIPs implements the Source interface
func (m *MockSource) ReadIPs(ctx context.Context) ([]string, error) {
	m.ReadCalls++
	if m.ReadError != nil {
		return nil, m.ReadError
	}
	return m.IPs, nil
}

func (m *MockSource) String() string {
	return "mock-source"
}

// MockSink is a test double for the Sink interface
// It records what was written so tests can inspect it
type MockSink struct {
	Written     [][]models.GeoResult
	WriteError  error
	CloseCalled bool
}

// NewMockSink creates an empty mock sink
func NewMockSink() *MockSink {
	return &MockSink{}
}

// Write implements the Sink interface
func (m *MockSink) Write(ctx context.Context, results []models.GeoResult) error {
	if m.WriteError != nil {
		return m.WriteError
	}
	m.Written = append(m.Written, results)
	return nil
}

func (m *MockSink) String() string {
	return "mock-sink"
}

// Close implements the Sink interface
func (m *MockSink) Close() error {
	m.CloseCalled = true
	return nil
}

// MemoryStorage is an in-memory ObjectStorage for tests
type MemoryStorage struct {
	mu           sync.Mutex
	Objects      map[string][]byte
	ContentTypes map[string]string
	WriteError   error
}

// NewMemoryStorage creates an empty in-memory object store
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		Objects:      map[string][]byte{},
		ContentTypes: map[string]string{},
	}
}

func objectKey(bucket, name string) string {
	return bucket + "/" + name
}

// Put stores an object directly
func (m *MemoryStorage) Put(bucket, name string, data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Objects[objectKey(bucket, name)] = data
}

// Get returns an object and whether it exists
func (m *MemoryStorage) Get(bucket, name string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.Objects[objectKey(bucket, name)]
	return data, ok
}

// ReadObject implements the ObjectStorage interface
func (m *MemoryStorage) ReadObject(ctx context.Context, bucket, name string) ([]byte, error) {
	data, ok := m.Get(bucket, name)
	if !ok {
		return nil, fmt.Errorf("gs://%s/%s: %w", bucket, name, ErrObjectNotFound)
	}
	return data, nil
}

// WriteObject implements the ObjectStorage interface
func (m *MemoryStorage) WriteObject(ctx context.Context, bucket, name, contentType string, data []byte) error {
	if m.WriteError != nil {
		return m.WriteError
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.Objects[objectKey(bucket, name)] = data
	m.ContentTypes[objectKey(bucket, name)] = contentType
	return nil
}

// Close implements the ObjectStorage interface
func (m *MemoryStorage) Close() error {
	return nil
}
