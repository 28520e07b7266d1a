// Copyright (C) 2020-2026, the manifestation-node authors. All rights reserved.
// See the file LICENSE for licensing terms.

// Package dedup implements the seen-message cache that lets the node
// drop replayed gossipsub messages before any validation or byte
// counting occurs.
package dedup

import (
	lru "github.com/hashicorp/golang-lru"
)

// Capacity is the maximum number of message ids retained.
const Capacity = 10_000

// Cache is an LRU of recently-seen message ids. Presence means "already
// processed, drop duplicates." It is intended to be owned by a single
// goroutine and is not safe for concurrent use.
type Cache struct {
	lru *lru.Cache
}

// NewCache creates a cache with the given capacity.
func NewCache(capacity int) *Cache {
	c, err := lru.New(capacity)
	if err != nil {
		// lru.New only errors on capacity <= 0; fall back to the
		// spec-mandated default rather than propagate a constructor
		// error for a fixed, always-valid capacity.
		c, _ = lru.New(Capacity)
	}
	return &Cache{lru: c}
}

// SeenOrAdd reports whether id has already been seen. If it has not,
// id is recorded so that a subsequent call returns true.
func (c *Cache) SeenOrAdd(id string) bool {
	if c.lru.Contains(id) {
		return true
	}
	c.lru.Add(id, struct{}{})
	return false
}
