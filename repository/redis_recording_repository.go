package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/NancyGarg/transcribe-ai/logger"
	"github.com/NancyGarg/transcribe-ai/model"
)

// DefaultRedisKey holds the JSON array of recordings.
const DefaultRedisKey = "transcribeai:recordings"

const maxWatchRetries = 5

// RedisRecordingRepository stores the library as one JSON value.
type RedisRecordingRepository struct {
	client *redis.Client
	key    string
}

// NewRedisRecordingRepository creates a repository under key.
func NewRedisRecordingRepository(client *redis.Client, key string) *RedisRecordingRepository {
	if key == "" {
		key = DefaultRedisKey
	}
	return &RedisRecordingRepository{client: client, key: key}
}

func decodeEntries(data []byte) ([]model.RecordingEntry, error) {
	entries := []model.RecordingEntry{}
	if len(data) == 0 {
		return entries, nil
	}
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("failed to decode recordings: %w", err)
	}
	return entries, nil
}

// Load returns the stored library, or an empty one if the key is absent.
func (r *RedisRecordingRepository) Load(ctx context.Context) ([]model.RecordingEntry, error) {
	data, err := r.client.Get(ctx, r.key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return []model.RecordingEntry{}, nil
		}
		return nil, fmt.Errorf("failed to read recordings: %w", err)
	}
	return decodeEntries(data)
}

// SaveAll overwrites the stored library.
func (r *RedisRecordingRepository) SaveAll(ctx context.Context, entries []model.RecordingEntry) error {
	if entries == nil {
		entries = []model.RecordingEntry{}
	}
	data, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("failed to encode recordings: %w", err)
	}
	if err := r.client.Set(ctx, r.key, data, 0).Err(); err != nil {
		return fmt.Errorf("failed to write recordings: %w", err)
	}
	return nil
}

// DeleteOne removes id with an optimistic WATCH transaction so a concurrent
// SaveAll is never overwritten with stale data.
func (r *RedisRecordingRepository) DeleteOne(ctx context.Context, id string) error {
	txf := func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, r.key).Bytes()
		if errors.Is(err, redis.Nil) {
			return nil
		}
		if err != nil {
			return err
		}
		entries, err := decodeEntries(data)
		if err != nil {
			return err
		}
		kept := entries[:0]
		for _, e := range entries {
			if e.ID != id {
				kept = append(kept, e)
			}
		}
		if len(kept) == len(entries) {
			return nil
		}
		out, err := json.Marshal(kept)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, r.key, out, 0)
			return nil
		})
		return err
	}

	for i := 0; i < maxWatchRetries; i++ {
		err := r.client.Watch(ctx, txf, r.key)
		if err == nil {
			return nil
		}
		if errors.Is(err, redis.TxFailedErr) {
			logger.Debug("Recordings key changed during delete, retrying", logger.RecordingID(id))
			continue
		}
		return fmt.Errorf("failed to delete recording %s: %w", id, err)
	}
	return fmt.Errorf("failed to delete recording %s: too many concurrent updates", id)
}

// ClearAll deletes the key.
func (r *RedisRecordingRepository) ClearAll(ctx context.Context) error {
	if err := r.client.Del(ctx, r.key).Err(); err != nil {
		return fmt.Errorf("failed to clear recordings: %w", err)
	}
	return nil
}

// Get retrieves one recording by id.
func (r *RedisRecordingRepository) Get(ctx context.Context, id string) (*model.RecordingEntry, error) {
	entries, err := r.Load(ctx)
	if err != nil {
		return nil, err
	}
	for i := range entries {
		if entries[i].ID == id {
			return &entries[i], nil
		}
	}
	return nil, nil
}
