package redisclient

import (
	"context"
	_ "embed"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

//go:embed scripts/reserve_tokens.lua
var reserveTokensScript string

//go:embed scripts/release_tokens.lua
var releaseTokensScript string

//go:embed scripts/commit_tokens.lua
var commitTokensScript string

// Client is the Redis fast path for offering availability. Postgres stays
// the source of truth; these counters only pre-filter doomed submissions
// before the transactional checks run.
type Client struct {
	rdb           *redis.Client
	reserveScript *redis.Script
	releaseScript *redis.Script
	commitScript  *redis.Script
}

// NewClient creates a new Redis client with Lua scripts loaded
func NewClient(addr, password string, db int) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &Client{
		rdb:           rdb,
		reserveScript: redis.NewScript(reserveTokensScript),
		releaseScript: redis.NewScript(releaseTokensScript),
		commitScript:  redis.NewScript(commitTokensScript),
	}, nil
}

// GetClient returns the underlying Redis client
func (c *Client) GetClient() *redis.Client {
	return c.rdb
}

// Close closes the Redis connection
func (c *Client) Close() error {
	return c.rdb.Close()
}

func offeringKey(offeringID int64) string {
	return fmt.Sprintf("offering:%d", offeringID)
}

// ReserveTokens atomically reserves availability for a purchase request.
// Returns false when the offering has fewer tokens than requested. An
// unseeded key returns an error so callers can fall back to the database.
func (c *Client) ReserveTokens(ctx context.Context, offeringID int64, tokens int) (bool, error) {
	result, err := c.reserveScript.Run(ctx, c.rdb, []string{offeringKey(offeringID)}, tokens).Result()
	if err != nil {
		return false, fmt.Errorf("reserve tokens script failed: %w", err)
	}

	status, ok := result.(int64)
	if !ok {
		return false, fmt.Errorf("unexpected script result type")
	}
	if status == -1 {
		return false, fmt.Errorf("availability not seeded for offering %d", offeringID)
	}

	return status == 1, nil
}

// ReleaseTokens returns reserved tokens to availability (request rejected
// or cancelled before assignment).
func (c *Client) ReleaseTokens(ctx context.Context, offeringID int64, tokens int) error {
	_, err := c.releaseScript.Run(ctx, c.rdb, []string{offeringKey(offeringID)}, tokens).Result()
	if err != nil {
		return fmt.Errorf("release tokens script failed: %w", err)
	}
	return nil
}

// CommitTokens clears a reservation once the assignment transaction has
// committed in Postgres.
func (c *Client) CommitTokens(ctx context.Context, offeringID int64, tokens int) error {
	_, err := c.commitScript.Run(ctx, c.rdb, []string{offeringKey(offeringID)}, tokens).Result()
	if err != nil {
		return fmt.Errorf("commit tokens script failed: %w", err)
	}
	return nil
}

// InitAvailability seeds the availability counters for an offering
func (c *Client) InitAvailability(ctx context.Context, offeringID int64, available, reserved int) error {
	pipe := c.rdb.Pipeline()
	pipe.HSet(ctx, offeringKey(offeringID), "available", available)
	pipe.HSet(ctx, offeringKey(offeringID), "reserved", reserved)

	_, err := pipe.Exec(ctx)
	return err
}

// GetAvailability retrieves the cached availability counters
func (c *Client) GetAvailability(ctx context.Context, offeringID int64) (available, reserved int, err error) {
	result, err := c.rdb.HGetAll(ctx, offeringKey(offeringID)).Result()
	if err != nil {
		return 0, 0, err
	}

	if len(result) == 0 {
		return 0, 0, fmt.Errorf("availability not found for offering %d", offeringID)
	}

	var availableInt, reservedInt int
	fmt.Sscanf(result["available"], "%d", &availableInt)
	fmt.Sscanf(result["reserved"], "%d", &reservedInt)

	return availableInt, reservedInt, nil
}

// AcquireLock acquires a distributed lock (used by the expiry sweep so only
// one instance runs it)
func (c *Client) AcquireLock(ctx context.Context, lockKey string, ttl time.Duration) (bool, error) {
	return c.rdb.SetNX(ctx, fmt.Sprintf("lock:%s", lockKey), "1", ttl).Result()
}

// ReleaseLock releases a distributed lock
func (c *Client) ReleaseLock(ctx context.Context, lockKey string) error {
	return c.rdb.Del(ctx, fmt.Sprintf("lock:%s", lockKey)).Err()
}
