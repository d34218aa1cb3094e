package aims

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrNotConfigured 租户没有可用的 AIMS 凭据（缺字段、解密失败或站点未绑定）
var ErrNotConfigured = errors.New("No AIMS credentials configured")

// APIError 厂家 API 错误
// 在客户端边界按 HTTP 状态码归类，上层只通过 IsAuthError/IsRetryable 判断，
// 不做错误消息字符串匹配
type APIError struct {
	StatusCode int    // HTTP 状态码
	Code       string // 厂家响应码（responseCode，可能为空）
	Message    string // 厂家错误消息
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("AIMS API error: status %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("AIMS API error: status %d", e.StatusCode)
}

// IsAuthError 401/403：token 失效或越权，走"作废token重登录"恢复
func IsAuthError(err error) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.StatusCode == http.StatusUnauthorized || apiErr.StatusCode == http.StatusForbidden
}

// IsRetryable 429/5xx：瞬时故障，登录重试只认这类错误
func IsRetryable(err error) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.StatusCode == http.StatusTooManyRequests || apiErr.StatusCode >= 500
}
