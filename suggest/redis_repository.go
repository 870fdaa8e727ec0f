// Copyright 2025 The Ubica Authors
// SPDX-License-Identifier: Apache-2.0

package suggest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// redisMaxRetries bounds optimistic retries when another writer touches the
// key between WATCH and EXEC.
const redisMaxRetries = 5

// RedisRepository stores one JSON value per owner under prefix+owner.
type RedisRepository struct {
	client *redis.Client
	prefix string
}

// NewRedisRepository returns a repository using client. An empty prefix
// defaults to "ubica:suggestions:".
func NewRedisRepository(client *redis.Client, prefix string) *RedisRepository {
	if prefix == "" {
		prefix = "ubica:suggestions:"
	}

	return &RedisRepository{client: client, prefix: prefix}
}

func (r *RedisRepository) key(owner string) string {
	return r.prefix + owner
}

// Load implements Repository.
func (r *RedisRepository) Load(ctx context.Context, owner string) (*Snapshot, error) {
	data, err := r.client.Get(ctx, r.key(owner)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}

	if err != nil {
		return nil, fmt.Errorf("loading suggestions for %q: %w", owner, err)
	}

	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("decoding suggestions for %q: %w", owner, err)
	}

	return &snap, nil
}

// Save implements Repository. The stored seq is compared under WATCH so a
// concurrent writer aborts the transaction instead of being overwritten.
func (r *RedisRepository) Save(ctx context.Context, owner string, snap Snapshot) error {
	payload, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encoding suggestions for %q: %w", owner, err)
	}

	key := r.key(owner)

	txf := func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, key).Bytes()

		switch {
		case errors.Is(err, redis.Nil):
		case err != nil:
			return err
		default:
			var current Snapshot
			if err := json.Unmarshal(data, &current); err != nil {
				return fmt.Errorf("decoding suggestions for %q: %w", owner, err)
			}

			if snap.Seq <= current.Seq {
				return fmt.Errorf("%w: have %d, got %d", ErrStaleSnapshot, current.Seq, snap.Seq)
			}
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, payload, 0)

			return nil
		})

		return err
	}

	for range redisMaxRetries {
		err = r.client.Watch(ctx, txf, key)
		if !errors.Is(err, redis.TxFailedErr) {
			break
		}
	}

	if err != nil {
		return fmt.Errorf("saving suggestions for %q: %w", owner, err)
	}

	return nil
}
