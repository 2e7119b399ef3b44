package behavior

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	redisClient "github.com/campuswatch/checkin-fraud/pkg/redis"
)

const patternKeyPrefix = "behavior:pattern:"

// RedisStore keeps each student's baseline as a JSON blob in redis so
// baselines survive restarts and are shared across instances. The retention
// TTL is refreshed on every update; a student inactive for the whole
// retention window starts cold again.
type RedisStore struct {
	redis      *redisClient.Client
	maxHistory int
	retention  time.Duration
}

var _ Store = (*RedisStore)(nil)

// NewRedisStore creates a redis-backed store.
func NewRedisStore(redis *redisClient.Client, maxHistory int, retention time.Duration) *RedisStore {
	return &RedisStore{
		redis:      redis,
		maxHistory: maxHistory,
		retention:  retention,
	}
}

func patternKey(studentID int64) string {
	return fmt.Sprintf("%s%d", patternKeyPrefix, studentID)
}

// Get returns the student's baseline, or nil if none exists.
func (s *RedisStore) Get(ctx context.Context, studentID int64) (*Pattern, error) {
	data, err := s.redis.GetString(ctx, patternKey(studentID))
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load behavior pattern: %w", err)
	}

	var pattern Pattern
	if err := json.Unmarshal([]byte(data), &pattern); err != nil {
		return nil, fmt.Errorf("failed to decode behavior pattern: %w", err)
	}
	return &pattern, nil
}

// Update records an attempt with a read-modify-write cycle. Per-student
// update serialization is the caller's contract, so no redis transaction is
// needed here.
func (s *RedisStore) Update(ctx context.Context, studentID int64, attempt Attempt) error {
	pattern, err := s.Get(ctx, studentID)
	if err != nil {
		return err
	}
	if pattern == nil {
		pattern = NewPattern(studentID)
	}

	pattern.Record(attempt, s.maxHistory)
	return s.save(ctx, pattern)
}

// Prune drops attempts older than before from the retained history.
func (s *RedisStore) Prune(ctx context.Context, studentID int64, before time.Time) error {
	pattern, err := s.Get(ctx, studentID)
	if err != nil || pattern == nil {
		return err
	}

	kept := pattern.Attempts[:0]
	for _, a := range pattern.Attempts {
		if !a.Timestamp.Before(before) {
			kept = append(kept, a)
		}
	}
	pattern.Attempts = kept
	return s.save(ctx, pattern)
}

func (s *RedisStore) save(ctx context.Context, pattern *Pattern) error {
	data, err := json.Marshal(pattern)
	if err != nil {
		return fmt.Errorf("failed to encode behavior pattern: %w", err)
	}
	if err := s.redis.SetWithExpiration(ctx, patternKey(pattern.StudentID), data, s.retention); err != nil {
		return fmt.Errorf("failed to store behavior pattern: %w", err)
	}
	return nil
}
