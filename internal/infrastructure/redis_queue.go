package infrastructure

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"
	"time"
	"whatsapp_crm/internal/entities"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

func NewRedisClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		MaxRetries:   3,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

const replyQueueKey = "crm:reply_jobs"

// RedisQueue keeps reply jobs in a Redis list so they survive a restart.
// Producers LPUSH, workers BRPOP.
type RedisQueue struct {
	client *redis.Client
	key    string
	poll   time.Duration
	closed atomic.Bool
}

func NewRedisQueue(client *redis.Client) *RedisQueue {
	return &RedisQueue{client: client, key: replyQueueKey, poll: 2 * time.Second}
}

func (q *RedisQueue) Enqueue(ctx context.Context, job entities.ReplyJob) error {
	if q.closed.Load() {
		return ErrQueueClosed
	}
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	data, err := json.Marshal(job)
	if err != nil {
		return err
	}
	if err := q.client.LPush(ctx, q.key, data).Err(); err != nil {
		return fmt.Errorf("lpush reply job: %w", err)
	}
	return nil
}

func (q *RedisQueue) Dequeue(ctx context.Context) (entities.ReplyJob, error) {
	for {
		if q.closed.Load() {
			return entities.ReplyJob{}, ErrQueueClosed
		}
		res, err := q.client.BRPop(ctx, q.poll, q.key).Result()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			return entities.ReplyJob{}, err
		}
		// res is [key, value]
		var job entities.ReplyJob
		if err := json.Unmarshal([]byte(res[1]), &job); err != nil {
			return entities.ReplyJob{}, fmt.Errorf("decode reply job: %w", err)
		}
		return job, nil
	}
}

// Close stops the queue; jobs left in the list are picked up on next start.
func (q *RedisQueue) Close() error {
	q.closed.Store(true)
	return nil
}
