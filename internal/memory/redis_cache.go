// Copyright 2026 fanjia1024
//
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

package memory

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisCache 翻译记忆的旁路缓存。Redis 故障时直接回退到底层存储，
// 缓存不可用不影响正确性。
type RedisCache struct {
	inner  Store
	client redis.UniversalClient
	ttl    time.Duration
}

// NewRedisCache 包装底层翻译记忆
func NewRedisCache(inner Store, client redis.UniversalClient, ttl time.Duration) *RedisCache {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &RedisCache{inner: inner, client: client, ttl: ttl}
}

func cacheKey(siteID string, k Key) string {
	return fmt.Sprintf("tm:%s:%s:%s", siteID, k.Hash, k.Lang)
}

func (c *RedisCache) Probe(ctx context.Context, siteID string, keys []Key) (map[Key]string, error) {
	if len(keys) == 0 {
		return map[Key]string{}, nil
	}
	hits := make(map[Key]string, len(keys))
	misses := keys

	redisKeys := make([]string, len(keys))
	for i, k := range keys {
		redisKeys[i] = cacheKey(siteID, k)
	}
	if values, err := c.client.MGet(ctx, redisKeys...).Result(); err == nil {
		misses = misses[:0:0]
		for i, v := range values {
			if s, ok := v.(string); ok {
				hits[keys[i]] = s
			} else {
				misses = append(misses, keys[i])
			}
		}
	}
	if len(misses) == 0 {
		return hits, nil
	}

	fromStore, err := c.inner.Probe(ctx, siteID, misses)
	if err != nil {
		return nil, err
	}
	if len(fromStore) > 0 {
		pipe := c.client.Pipeline()
		for k, text := range fromStore {
			hits[k] = text
			pipe.Set(ctx, cacheKey(siteID, k), text, c.ttl)
		}
		_, _ = pipe.Exec(ctx)
	}
	return hits, nil
}

func (c *RedisCache) Upsert(ctx context.Context, siteID string, entries []Entry) error {
	if err := c.inner.Upsert(ctx, siteID, entries); err != nil {
		return err
	}
	pipe := c.client.Pipeline()
	for _, e := range entries {
		pipe.Set(ctx, cacheKey(siteID, Key{Hash: e.Hash, Lang: e.Lang}), e.Text, c.ttl)
	}
	_, _ = pipe.Exec(ctx)
	return nil
}
