package utils

import (
	"fmt"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// CacheItem 包装缓存数据和过期时间
type CacheItem struct {
	Data      interface{}
	ExpiresAt time.Time
}

// PageCache 本地 LRU 缓存，只存可以随时重算的派生数据（侧边栏、热门列表）
type PageCache struct {
	lruCache *lru.Cache[string, CacheItem]
	ttl      time.Duration
	now      func() time.Time
}

// NewPageCache size 为容量，ttl 为默认过期时间
func NewPageCache(size int, ttl time.Duration) (*PageCache, error) {
	l, err := lru.New[string, CacheItem](size)
	if err != nil {
		return nil, fmt.Errorf("utils.NewPageCache: %w", err)
	}
	return &PageCache{lruCache: l, ttl: ttl, now: time.Now}, nil
}

// Set 使用默认 TTL
func (c *PageCache) Set(key string, data interface{}) {
	c.SetTTL(key, data, c.ttl)
}

func (c *PageCache) SetTTL(key string, data interface{}, ttl time.Duration) {
	c.lruCache.Add(key, CacheItem{
		Data:      data,
		ExpiresAt: c.now().Add(ttl),
	})
}

// Get 获取缓存，若不存在或已过期则返回 nil
func (c *PageCache) Get(key string) interface{} {
	val, ok := c.lruCache.Get(key)
	if !ok {
		return nil
	}

	// 检查过期
	if c.now().After(val.ExpiresAt) {
		c.lruCache.Remove(key)
		return nil
	}

	return val.Data
}

// Delete 删除指定缓存
func (c *PageCache) Delete(key string) {
	c.lruCache.Remove(key)
}

// Purge 清空，发帖或投票后调用
func (c *PageCache) Purge() {
	c.lruCache.Purge()
}

func (c *PageCache) Len() int {
	return c.lruCache.Len()
}
