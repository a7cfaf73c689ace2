package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stemsi/testdesk/internal/config"
	"github.com/stemsi/testdesk/internal/model"
)

// snapshotTTL bounds how long an untouched snapshot survives.
const snapshotTTL = 30 * 24 * time.Hour

// snapshot is the stored document. Version guards future layout changes.
type snapshot struct {
	Version int          `json:"version"`
	SavedAt time.Time    `json:"saved_at"`
	Tests   []model.Test `json:"tests"`
}

const snapshotVersion = 1

// SnapshotRepository persists each admin's test list in Redis.
type SnapshotRepository struct {
	rdb *redis.Client
}

func NewSnapshotRepository(rdb *redis.Client) *SnapshotRepository {
	return &SnapshotRepository{rdb: rdb}
}

// Load returns the stored list, or nil when nothing was saved.
func (r *SnapshotRepository) Load(ctx context.Context, chatID model.ChatID) ([]model.Test, error) {
	raw, err := r.rdb.Get(ctx, config.CacheKey.TestSnapshotKey(chatID.String())).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load snapshot: %w", err)
	}

	var snap snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	if snap.Version != snapshotVersion {
		return nil, nil
	}
	return snap.Tests, nil
}

// Save overwrites the stored list.
func (r *SnapshotRepository) Save(ctx context.Context, chatID model.ChatID, tests []model.Test) error {
	if tests == nil {
		tests = []model.Test{}
	}
	raw, err := json.Marshal(snapshot{Version: snapshotVersion, SavedAt: time.Now().UTC(), Tests: tests})
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	if err := r.rdb.Set(ctx, config.CacheKey.TestSnapshotKey(chatID.String()), raw, snapshotTTL).Err(); err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	return nil
}

// Delete removes the stored list.
func (r *SnapshotRepository) Delete(ctx context.Context, chatID model.ChatID) error {
	return r.rdb.Del(ctx, config.CacheKey.TestSnapshotKey(chatID.String())).Err()
}
