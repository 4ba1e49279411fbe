package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/sanadzhioua/tunisia-stock-dashboard/pkg/models"
)

const (
	snapshotKey    = "market:snapshot"
	updatesChannel = "market.updates"
)

// RedisMirror keeps the latest snapshot in Redis and announces writes on a
// pub/sub channel so sibling instances can follow. It is a cache, never
// authoritative: the TTL bounds staleness and every failure is recoverable.
type RedisMirror struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisMirror(client *redis.Client, ttl time.Duration) *RedisMirror {
	return &RedisMirror{client: client, ttl: ttl}
}

// Save writes the snapshot and publishes it in a single pipeline, so
// followers never see an announcement for a snapshot that isn't stored.
func (r *RedisMirror) Save(ctx context.Context, snap *models.Snapshot) error {
	payload, err := json.Marshal(snap)
	if err != nil {
		return err
	}

	pipe := r.client.Pipeline()
	pipe.Set(ctx, snapshotKey, payload, r.ttl)
	pipe.Publish(ctx, updatesChannel, payload)
	_, err = pipe.Exec(ctx)
	return err
}

// Load returns the mirrored snapshot, or (nil, nil) when none is stored. Used
// to warm-start the store after a restart instead of beginning from synthetic
// data.
func (r *RedisMirror) Load(ctx context.Context) (*models.Snapshot, error) {
	payload, err := r.client.Get(ctx, snapshotKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var snap models.Snapshot
	if err := json.Unmarshal(payload, &snap); err != nil {
		return nil, err
	}
	return &snap, nil
}

func (r *RedisMirror) Close() error {
	return r.client.Close()
}
