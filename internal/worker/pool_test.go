package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"fluently-backend/internal/models"
)

type memoryStore struct {
	mu   sync.Mutex
	rows []models.ChatUsage
	err  error
}

func (s *memoryStore) Insert(ctx context.Context, u *models.ChatUsage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.rows = append(s.rows, *u)
	return nil
}

func (s *memoryStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.rows)
}

func newTestRedis(t *testing.T) *redis.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return client
}

func TestQueueAndPool_DeliverUsage(t *testing.T) {
	client := newTestRedis(t)
	store := &memoryStore{}

	pool := NewPool(client, store, 2)
	pool.popTimeout = time.Second
	pool.Start()

	q := NewQueue(client)
	ids := []uuid.UUID{uuid.New(), uuid.New(), uuid.New()}
	for _, id := range ids {
		q.Record(context.Background(), models.ChatUsage{ID: id, Mode: "tutor", MessageCount: 1, Status: 200})
	}

	deadline := time.Now().Add(3 * time.Second)
	for store.count() < len(ids) && time.Now().Before(deadline) {
		time.Sleep(20 * time.Millisecond)
	}
	pool.Stop()

	if store.count() != len(ids) {
		t.Fatalf("Expected %d stored records, got %d", len(ids), store.count())
	}
	seen := map[uuid.UUID]bool{}
	for _, r := range store.rows {
		seen[r.ID] = true
	}
	for _, id := range ids {
		if !seen[id] {
			t.Errorf("record %s was not stored", id)
		}
	}
}

func TestPool_ProcessRejectsMalformedPayload(t *testing.T) {
	p := NewPool(nil, &memoryStore{}, 1)
	if err := p.process(context.Background(), "{broken"); err == nil {
		t.Fatal("Expected parse error")
	}
}

func TestPool_ProcessWrapsStoreError(t *testing.T) {
	boom := errors.New("db down")
	p := NewPool(nil, &memoryStore{err: boom}, 1)

	err := p.process(context.Background(), `{"id":"`+uuid.NewString()+`","mode":"tutor"}`)
	if !errors.Is(err, boom) {
		t.Fatalf("Expected store error, got %v", err)
	}
}

func TestNewPool_MinimumOneWorker(t *testing.T) {
	p := NewPool(nil, &memoryStore{}, 0)
	if p.workerCount != 1 {
		t.Errorf("Expected 1 worker, got %d", p.workerCount)
	}
}
