package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Client caches per-schedule availability snapshots with a short TTL. It is
// a read-path optimization only: hold and order mutations invalidate the key
// and correctness never depends on a hit.
type Client struct {
	rdb *redis.Client
	ttl time.Duration
}

type Config struct {
	Addr     string
	Password string
	TTL      time.Duration
}

func New(cfg Config) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           0,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
		DialTimeout:  5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = 2 * time.Second
	}

	return &Client{rdb: rdb, ttl: ttl}, nil
}

func availabilityKey(eventID, scheduleID int64) string {
	return fmt.Sprintf("availability:%d:%d", eventID, scheduleID)
}

// GetAvailabilityRaw returns the cached snapshot JSON, redis.Nil on miss.
func (c *Client) GetAvailabilityRaw(ctx context.Context, eventID, scheduleID int64) ([]byte, error) {
	return c.rdb.Get(ctx, availabilityKey(eventID, scheduleID)).Bytes()
}

// SetAvailability stores a snapshot. Failures are ignored by callers.
func (c *Client) SetAvailability(ctx context.Context, eventID, scheduleID int64, snapshot interface{}) error {
	payload, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}
	return c.rdb.Set(ctx, availabilityKey(eventID, scheduleID), payload, c.ttl).Err()
}

// InvalidateAvailability drops the snapshot after a claim mutation.
func (c *Client) InvalidateAvailability(ctx context.Context, eventID, scheduleID int64) error {
	return c.rdb.Del(ctx, availabilityKey(eventID, scheduleID)).Err()
}

func (c *Client) Close() error {
	return c.rdb.Close()
}
