// Copyright 2025 The Docpipeline Authors
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package proxy

import (
	"container/list"
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"

	"docpipeline/shared/logger"
)

// IdempotencyTTL is how long a cached response stays eligible for replay.
const IdempotencyTTL = 5 * time.Minute

// IdempotencyCap bounds the in-memory fallback cache's size; eviction is
// least-recently-used.
const IdempotencyCap = 1000

// IdempotencyCache stores command responses keyed by request id so a
// duplicate receipt within the TTL window returns the cached response
// instead of re-dispatching to the executor. It prefers Redis (so the
// cache survives a Proxy restart and is shared across replicas) and falls
// back to an in-memory LRU when Redis is unavailable, mirroring the
// fail-open posture of a sliding-window rate limiter: a cache outage must
// never block command dispatch.
type IdempotencyCache struct {
	log    *logger.Logger
	rdb    *redis.Client
	keyPfx string

	mu      sync.Mutex
	entries map[string]*list.Element
	order   *list.List
}

type cacheEntry struct {
	key      string
	response []byte
	storedAt time.Time
}

// NewIdempotencyCache constructs a cache. rdb may be nil, in which case
// every lookup uses the in-memory fallback directly.
func NewIdempotencyCache(log *logger.Logger, rdb *redis.Client) *IdempotencyCache {
	return &IdempotencyCache{
		log:     log,
		rdb:     rdb,
		keyPfx:  "idempotency:",
		entries: make(map[string]*list.Element),
		order:   list.New(),
	}
}

// Get returns the cached response for requestID and true if present, or
// nil/false on a miss. A hit is a caller-visible "idempotent replay" and
// should be logged as such by the caller.
func (c *IdempotencyCache) Get(ctx context.Context, requestID string) ([]byte, bool) {
	if c.rdb != nil {
		val, err := c.rdb.Get(ctx, c.keyPfx+requestID).Bytes()
		if err == nil {
			return val, true
		}
		if err != redis.Nil {
			c.log.Warn("", requestID, "idempotency cache redis GET failed, falling back to memory", map[string]interface{}{"error": err.Error()})
			return c.memGet(requestID)
		}
		return nil, false
	}
	return c.memGet(requestID)
}

// Put stores response under requestID with the idempotency TTL.
func (c *IdempotencyCache) Put(ctx context.Context, requestID string, response interface{}) {
	data, err := json.Marshal(response)
	if err != nil {
		c.log.Error("", requestID, "failed to marshal response for idempotency cache", map[string]interface{}{"error": err.Error()})
		return
	}

	if c.rdb != nil {
		if err := c.rdb.Set(ctx, c.keyPfx+requestID, data, IdempotencyTTL).Err(); err == nil {
			return
		}
		c.log.Warn("", requestID, "idempotency cache redis SET failed, falling back to memory", nil)
	}
	c.memPut(requestID, data)
}

func (c *IdempotencyCache) memGet(requestID string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.entries[requestID]
	if !ok {
		return nil, false
	}
	entry := el.Value.(*cacheEntry)
	if time.Since(entry.storedAt) > IdempotencyTTL {
		c.order.Remove(el)
		delete(c.entries, requestID)
		return nil, false
	}
	c.order.MoveToFront(el)
	return entry.response, true
}

func (c *IdempotencyCache) memPut(requestID string, data []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.entries[requestID]; ok {
		el.Value.(*cacheEntry).response = data
		el.Value.(*cacheEntry).storedAt = time.Now()
		c.order.MoveToFront(el)
		return
	}

	el := c.order.PushFront(&cacheEntry{key: requestID, response: data, storedAt: time.Now()})
	c.entries[requestID] = el

	for c.order.Len() > IdempotencyCap {
		back := c.order.Back()
		if back == nil {
			break
		}
		c.order.Remove(back)
		delete(c.entries, back.Value.(*cacheEntry).key)
	}
}
