package database

import (
	"testing"
	"testing/fstest"

	"github.com/alicebob/miniredis/v2"
)

func TestPendingOrder(t *testing.T) {
	fsys := fstest.MapFS{
		"migrations/010_late.sql":    {Data: []byte("SELECT 1")},
		"migrations/002_second.sql":  {Data: []byte("SELECT 1")},
		"migrations/001_first.sql":   {Data: []byte("SELECT 1")},
		"migrations/README.md":       {Data: []byte("notes")},
		"migrations/000_ignored.sql": {Data: []byte("SELECT 1")},
		"migrations/abc_invalid.sql": {Data: []byte("SELECT 1")},
	}

	got, err := pendingOrder(fsys)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	expected := []int{1, 2, 10}
	if len(got) != len(expected) {
		t.Fatalf("Expected %d migrations, got %+v", len(expected), got)
	}
	for i, v := range expected {
		if got[i].version != v {
			t.Errorf("position %d: expected version %d, got %d", i, v, got[i].version)
		}
	}
}

func TestEmbeddedMigrations(t *testing.T) {
	got, err := pendingOrder(Migrations)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) == 0 || got[0].name != "001_chat_usage.sql" {
		t.Errorf("Expected embedded chat_usage migration, got %+v", got)
	}
}

func TestNewRedisClient(t *testing.T) {
	mr := miniredis.RunT(t)

	client, err := NewRedisClient("redis://" + mr.Addr())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer client.Close()
}

func TestNewRedisClient_InvalidURL(t *testing.T) {
	if _, err := NewRedisClient("not a url"); err == nil {
		t.Fatal("Expected error for invalid Redis URL")
	}
}
