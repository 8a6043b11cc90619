package store

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
)

// TestRedisStore_Connection tests Redis connection
func TestRedisStore_Connection(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}
	defer mr.Close()

	store, err := NewRedisStore(mr.Addr(), "", 0, 0)
	if err != nil {
		t.Fatalf("failed to connect to Redis: %v", err)
	}
	defer store.Close()

	if store.client == nil {
		t.Error("expected client to be initialized")
	}
	if store.String() != "redis://"+mr.Addr() {
		t.Errorf("unexpected String(): %s", store.String())
	}
}

// TestRedisStore_ConnectionFailure tests connection errors
func TestRedisStore_ConnectionFailure(t *testing.T) {
	_, err := NewRedisStore("invalid:9999", "", 0, 0)

	if err == nil {
		t.Error("expected connection error, got nil")
	}
}

// TestRedisStore_Write tests storing a batch
func TestRedisStore_Write(t *testing.T) {
	mr, _ := miniredis.Run()
	defer mr.Close()

	store, _ := NewRedisStore(mr.Addr(), "", 0, 0)
	defer store.Close()

	if err := store.Write(context.Background(), sampleResults()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	raw, err := mr.Get("geo:8.8.8.8")
	if err != nil {
		t.Fatalf("expected key geo:8.8.8.8: %v", err)
	}
	var stored map[string]string
	if err := json.Unmarshal([]byte(raw), &stored); err != nil {
		t.Fatalf("stored value is not JSON: %v", err)
	}
	if stored["city"] != "Mountain View" || stored["ip"] != "8.8.8.8" {
		t.Errorf("unexpected stored value: %v", stored)
	}

	failure, err := store.Get(context.Background(), "0.0.0.0")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if failure["error"] != "restricted_address" {
		t.Errorf("expected restricted_address, got %v", failure)
	}

	if len(mr.Keys()) != 3 {
		t.Errorf("expected 3 keys, got %v", mr.Keys())
	}
}

// TestRedisStore_WriteWithTTL tests key expiry
func TestRedisStore_WriteWithTTL(t *testing.T) {
	mr, _ := miniredis.Run()
	defer mr.Close()

	store, _ := NewRedisStore(mr.Addr(), "", 0, time.Hour)
	defer store.Close()

	if err := store.Write(context.Background(), sampleResults()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if ttl := mr.TTL("geo:1.1.1.1"); ttl != time.Hour {
		t.Errorf("expected 1h TTL, got %v", ttl)
	}

	mr.FastForward(2 * time.Hour)

	if mr.Exists("geo:1.1.1.1") {
		t.Error("expected key to expire")
	}
}

// TestRedisStore_Get_NotFound tests a missing IP
func TestRedisStore_Get_NotFound(t *testing.T) {
	mr, _ := miniredis.Run()
	defer mr.Close()

	store, _ := NewRedisStore(mr.Addr(), "", 0, 0)
	defer store.Close()

	_, err := store.Get(context.Background(), "192.168.1.1")
	if err == nil || err.Error() != "IP address not found" {
		t.Errorf("expected 'IP address not found', got %v", err)
	}
}

// TestRedisStore_Write_Empty tests that an empty batch is a no-op
func TestRedisStore_Write_Empty(t *testing.T) {
	mr, _ := miniredis.Run()
	defer mr.Close()

	store, _ := NewRedisStore(mr.Addr(), "", 0, 0)
	defer store.Close()

	if err := store.Write(context.Background(), nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(mr.Keys()) != 0 {
		t.Errorf("expected no keys, got %v", mr.Keys())
	}
}

// TestRedisStore_Write_ServerDown tests write errors
func TestRedisStore_Write_ServerDown(t *testing.T) {
	mr, _ := miniredis.Run()

	store, _ := NewRedisStore(mr.Addr(), "", 0, 0)
	defer store.Close()

	mr.Close()

	if err := store.Write(context.Background(), sampleResults()); err == nil {
		t.Error("expected error when Redis is down, got nil")
	}
}

// TestRedisStore_Close tests closing the connection
func TestRedisStore_Close(t *testing.T) {
	mr, _ := miniredis.Run()
	defer mr.Close()

	store, _ := NewRedisStore(mr.Addr(), "", 0, 0)

	if err := store.Close(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}
