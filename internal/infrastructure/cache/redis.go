package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/callsight-team/callsight/internal/domain/entities"
	"github.com/callsight-team/callsight/pkg/config"
)

// DefaultRecordTTL bounds how long an analyzed record may be served from
// cache. Records are immutable once written, so a long TTL is safe; the
// bound exists to reclaim memory for calls nobody reads anymore.
const DefaultRecordTTL = 6 * time.Hour

// RedisRecordCache caches analyzed call records in Redis, keyed by call ID
type RedisRecordCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisRecordCache connects to Redis and verifies the connection
func NewRedisRecordCache(cfg *config.Config) (*RedisRecordCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.GetRedisAddr(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &RedisRecordCache{client: client, ttl: DefaultRecordTTL}, nil
}

func recordKey(callID string) string {
	return "callsight:record:" + callID
}

// GetCallRecord returns the cached record, or nil on a miss
func (c *RedisRecordCache) GetCallRecord(ctx context.Context, callID string) (*entities.CallRecord, error) {
	raw, err := c.client.Get(ctx, recordKey(callID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}
	var record entities.CallRecord
	if err := json.Unmarshal(raw, &record); err != nil {
		// Corrupt entry, drop it and treat as a miss
		c.client.Del(ctx, recordKey(callID))
		return nil, nil
	}
	return &record, nil
}

// SetCallRecord stores the record under the configured TTL
func (c *RedisRecordCache) SetCallRecord(ctx context.Context, record *entities.CallRecord) error {
	if record == nil {
		return errors.New("record cannot be nil")
	}
	raw, err := json.Marshal(record)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, recordKey(record.CallID), raw, c.ttl).Err()
}

// DeleteCallRecord invalidates a cached record, used when a resubmitted
// call replaces its previous analysis
func (c *RedisRecordCache) DeleteCallRecord(ctx context.Context, callID string) error {
	return c.client.Del(ctx, recordKey(callID)).Err()
}

// Close releases the underlying connection pool
func (c *RedisRecordCache) Close() error {
	return c.client.Close()
}
