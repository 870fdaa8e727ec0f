// Copyright 2025 The Ubica Authors
// SPDX-License-Identifier: Apache-2.0

package suggest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/sync/singleflight"

	"github.com/chambape/ubica/location"
)

// ErrInvalidOwner rejects empty or oversized owner keys.
var ErrInvalidOwner = errors.New("invalid suggestion owner")

const maxOwnerLen = 128

// RegistryOptions bounds how many stores stay in memory.
type RegistryOptions struct {
	Size int
	TTL  time.Duration
}

// Registry keeps one open Store per owner. Idle stores are dropped after TTL
// and reloaded from the repository on the next Get.
type Registry struct {
	repo  Repository
	ds    *location.Dataset
	opts  Options
	group singleflight.Group
	cache *expirable.LRU[string, *Store]
}

// NewRegistry returns a Registry opening stores with opts.
func NewRegistry(repo Repository, ds *location.Dataset, opts Options, ropts RegistryOptions) *Registry {
	if ropts.Size <= 0 {
		ropts.Size = 4096
	}

	if ropts.TTL <= 0 {
		ropts.TTL = 30 * time.Minute
	}

	return &Registry{
		repo:  repo,
		ds:    ds,
		opts:  opts.withDefaults(),
		cache: expirable.NewLRU[string, *Store](ropts.Size, nil, ropts.TTL),
	}
}

// Get returns the owner's store, opening it on first use. Concurrent first
// calls for the same owner share one load.
func (r *Registry) Get(ctx context.Context, owner string) (*Store, error) {
	if owner == "" || len(owner) > maxOwnerLen {
		return nil, fmt.Errorf("%w: %q", ErrInvalidOwner, owner)
	}

	if s, ok := r.cache.Get(owner); ok {
		return s, nil
	}

	v, err, _ := r.group.Do(owner, func() (any, error) {
		if s, ok := r.cache.Get(owner); ok {
			return s, nil
		}

		s, err := Open(ctx, owner, r.repo, r.ds, r.opts)
		if err != nil {
			return nil, err
		}

		r.cache.Add(owner, s)

		return s, nil
	})
	if err != nil {
		return nil, err
	}

	return v.(*Store), nil
}
