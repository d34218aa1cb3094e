package aims

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"go.uber.org/zap"
)

// 登录重试参数：最多重试 3 次（共 4 次尝试），基础延迟 1s 逐次翻倍
const (
	loginMaxRetries = 3
	loginBaseDelay  = 1000 * time.Millisecond
	jitterMin       = 0.8
	jitterSpan      = 0.4
)

// retryPolicy 登录重试策略，sleep/randFloat 可注入（测试替换以捕获延迟）
type retryPolicy struct {
	maxRetries int
	baseDelay  time.Duration
	sleep      func(time.Duration)
	randFloat  func() float64
}

func defaultRetryPolicy() retryPolicy {
	return retryPolicy{
		maxRetries: loginMaxRetries,
		baseDelay:  loginBaseDelay,
		sleep:      time.Sleep,
		randFloat:  rand.Float64,
	}
}

// backoffDelay 第 attempt 次重试前的等待：base * 2^(attempt-1) * jitter[0.8,1.2)
func (p retryPolicy) backoffDelay(attempt int) time.Duration {
	jitter := jitterMin + jitterSpan*p.randFloat()
	return time.Duration(float64(p.baseDelay) * float64(uint(1)<<uint(attempt-1)) * jitter)
}

// loginWithRetry 带退避的登录
// 只重试 429/5xx；401 等非瞬时错误立即返回；重试耗尽返回最后一次错误
func (g *Gateway) loginWithRetry(ctx context.Context, creds *Credentials) (Token, error) {
	var lastErr error
	for attempt := 0; attempt <= g.retry.maxRetries; attempt++ {
		if attempt > 0 {
			g.retry.sleep(g.retry.backoffDelay(attempt))
		}

		token, err := g.api.Login(ctx, creds)
		if err == nil {
			if attempt > 0 {
				g.logger.Info("AIMS login succeeded after retry",
					zap.String("company_id", creds.CompanyID),
					zap.Int("attempt", attempt+1),
				)
			}
			return token, nil
		}

		lastErr = err
		if !IsRetryable(err) {
			return Token{}, err
		}
		g.logger.Warn("AIMS login attempt failed",
			zap.String("company_id", creds.CompanyID),
			zap.Int("attempt", attempt+1),
			zap.Error(err),
		)
	}
	return Token{}, fmt.Errorf("AIMS login failed after %d attempts: %w", g.retry.maxRetries+1, lastErr)
}
