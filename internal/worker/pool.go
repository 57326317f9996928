package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"fluently-backend/internal/models"
)

// UsageQueue is the Redis list carrying chat usage records.
const UsageQueue = "queue:chat-usage"

type usageStore interface {
	Insert(ctx context.Context, u *models.ChatUsage) error
}

// Queue records chat usage by pushing it onto the Redis list. Request
// handlers never wait on Postgres.
type Queue struct {
	redis *redis.Client
}

func NewQueue(redisClient *redis.Client) *Queue {
	return &Queue{redis: redisClient}
}

func (q *Queue) Record(ctx context.Context, u models.ChatUsage) {
	data, err := json.Marshal(u)
	if err != nil {
		log.Printf("usage queue: failed to encode record %s: %v", u.ID, err)
		return
	}
	if err := q.redis.RPush(ctx, UsageQueue, data).Err(); err != nil {
		log.Printf("usage queue: failed to enqueue record %s: %v", u.ID, err)
	}
}

// Pool drains the usage queue into Postgres.
type Pool struct {
	redis       *redis.Client
	store       usageStore
	workerCount int
	popTimeout  time.Duration
	stopChan    chan struct{}
	wg          sync.WaitGroup
}

func NewPool(redisClient *redis.Client, store usageStore, workerCount int) *Pool {
	if workerCount < 1 {
		workerCount = 1
	}
	return &Pool{
		redis:       redisClient,
		store:       store,
		workerCount: workerCount,
		popTimeout:  5 * time.Second,
		stopChan:    make(chan struct{}),
	}
}

func (p *Pool) Start() {
	for i := 0; i < p.workerCount; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}

	log.Printf("Started %d usage worker goroutines", p.workerCount)
}

// Stop signals the workers and waits for in-progress inserts to finish.
func (p *Pool) Stop() {
	close(p.stopChan)
	p.wg.Wait()
}

func (p *Pool) worker(id int) {
	defer p.wg.Done()

	for {
		select {
		case <-p.stopChan:
			log.Printf("Usage worker %d shutting down", id)
			return
		default:
		}

		ctx := context.Background()

		// BLPOP with a short timeout so Stop is noticed promptly
		result, err := p.redis.BLPop(ctx, p.popTimeout, UsageQueue).Result()
		if err != nil {
			if err != redis.Nil {
				// Back off on connection errors instead of spinning.
				select {
				case <-p.stopChan:
				case <-time.After(time.Second):
				}
			}
			continue
		}

		if len(result) < 2 {
			continue
		}

		if err := p.process(ctx, result[1]); err != nil {
			log.Printf("Usage worker %d: %v", id, err)
		}
	}
}

func (p *Pool) process(ctx context.Context, payload string) error {
	var u models.ChatUsage
	if err := json.Unmarshal([]byte(payload), &u); err != nil {
		return fmt.Errorf("failed to parse usage record: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := p.store.Insert(ctx, &u); err != nil {
		return fmt.Errorf("failed to store usage record %s: %w", u.ID, err)
	}
	return nil
}
