package aims

import (
	"sync"
	"time"
)

// tokenStaleBuffer token 刷新提前量：剩余有效期低于该值即视为过期，提前换新
const tokenStaleBuffer = 5 * time.Minute

type cachedToken struct {
	accessToken string
	expiresAt   time.Time
}

// TokenCache 进程内 token 缓存（companyID -> token）
// 不持久化、不跨进程共享：多实例部署时各实例独立登录，厂家侧登录次数按实例数放大
type TokenCache struct {
	mu     sync.RWMutex
	tokens map[string]cachedToken
	now    func() time.Time
}

// NewTokenCache 创建 token 缓存
func NewTokenCache() *TokenCache {
	return &TokenCache{
		tokens: map[string]cachedToken{},
		now:    time.Now,
	}
}

// Get 返回仍然新鲜的 token；剩余有效期不足 tokenStaleBuffer 按未命中处理
func (c *TokenCache) Get(companyID string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	token, ok := c.tokens[companyID]
	if !ok {
		return "", false
	}
	if token.expiresAt.Sub(c.now()) < tokenStaleBuffer {
		return "", false
	}
	return token.accessToken, true
}

// Set 写入登录得到的 token
func (c *TokenCache) Set(companyID, accessToken string, expiresAt time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tokens[companyID] = cachedToken{accessToken: accessToken, expiresAt: expiresAt}
}

// Invalidate 作废租户的缓存 token（401/403 恢复、凭据变更、显式断开时调用）
func (c *TokenCache) Invalidate(companyID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.tokens, companyID)
}
