package aims

import (
	"encoding/json"
	"sync"
	"time"
)

// formatCacheTTL article format 内存缓存有效期
// format 很少变化，过期后先回退到持久化设置，不会直接打到厂家
const formatCacheTTL = 30 * time.Minute

type formatEntry struct {
	value    json.RawMessage
	cachedAt time.Time
}

// FormatCache article format 的内存层缓存（companyID -> format JSON）
type FormatCache struct {
	mu      sync.RWMutex
	entries map[string]formatEntry
	ttl     time.Duration
	now     func() time.Time
}

// NewFormatCache 创建 format 缓存
func NewFormatCache() *FormatCache {
	return &FormatCache{
		entries: map[string]formatEntry{},
		ttl:     formatCacheTTL,
		now:     time.Now,
	}
}

// Get 返回未过期的 format
func (c *FormatCache) Get(companyID string) (json.RawMessage, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	entry, ok := c.entries[companyID]
	if !ok {
		return nil, false
	}
	if c.now().Sub(entry.cachedAt) > c.ttl {
		return nil, false
	}
	return entry.value, true
}

// Set 写入 format
func (c *FormatCache) Set(companyID string, value json.RawMessage) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[companyID] = formatEntry{value: value, cachedAt: c.now()}
}

// Invalidate 清除租户的内存层 format（租户改了字段结构后调用）
// 持久化层由设置保存路径更新，这里不动
func (c *FormatCache) Invalidate(companyID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, companyID)
}
