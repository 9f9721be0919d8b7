package telegram

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mykytaterentiev/metaOfmBot/internal/jobs"
)

const (
	pendingTTL = 24 * time.Hour
	// a request never runs longer than its task timeout
	busyTTL = 2 * time.Hour
)

// Sessions keeps per-user conversation state in redis: the file waiting for
// /process and a busy flag so one user runs one request at a time.
type Sessions struct {
	rdb redis.Cmdable
}

func NewSessions(rdb redis.Cmdable) *Sessions {
	return &Sessions{rdb: rdb}
}

func keyPending(user int64) string { return fmt.Sprintf("pending:%d", user) }
func keyBusy(user int64) string    { return fmt.Sprintf("busy:%d", user) }

func (s *Sessions) SetPending(ctx context.Context, user int64, item jobs.MediaItem) error {
	b, err := json.Marshal(item)
	if err != nil {
		return err
	}
	return s.rdb.Set(ctx, keyPending(user), b, pendingTTL).Err()
}

// Pending returns the stored file; ok is false when there is none.
func (s *Sessions) Pending(ctx context.Context, user int64) (item jobs.MediaItem, ok bool, err error) {
	raw, err := s.rdb.Get(ctx, keyPending(user)).Bytes()
	if errors.Is(err, redis.Nil) {
		return item, false, nil
	}
	if err != nil {
		return item, false, err
	}
	if err := json.Unmarshal(raw, &item); err != nil {
		return item, false, fmt.Errorf("decode pending file: %w", err)
	}
	return item, true, nil
}

func (s *Sessions) ClearPending(ctx context.Context, user int64) error {
	return s.rdb.Del(ctx, keyPending(user)).Err()
}

// Acquire marks user busy. It reports false if a request is already running.
func (s *Sessions) Acquire(ctx context.Context, user int64) (bool, error) {
	return s.rdb.SetNX(ctx, keyBusy(user), time.Now().Unix(), busyTTL).Result()
}

func (s *Sessions) Release(ctx context.Context, user int64) error {
	return s.rdb.Del(ctx, keyBusy(user)).Err()
}

// Reset drops everything stored for user.
func (s *Sessions) Reset(ctx context.Context, user int64) error {
	return s.rdb.Del(ctx, keyPending(user), keyBusy(user)).Err()
}
