package client

import (
	"bytes"
	"io"
	"net"
	"net/http"
	"time"
)

// RetryConfig 重试配置
//
// 安装在连接工厂创建的 HTTP 传输层上，对网络错误与限流响应做指数退避重试
// 本层之外的组件不做任何重试（重试策略只属于传输中间件）
type RetryConfig struct {
	// MaxRetries 最大重试次数
	MaxRetries int
	// InitialDelay 初始延迟（毫秒）
	InitialDelay int
	// MaxDelay 最大延迟（毫秒）
	MaxDelay int
	// BackoffMultiplier 退避倍数
	BackoffMultiplier float64
	// Retryable 判断错误是否可重试的函数
	Retryable func(error) bool
	// OnRetry 重试前的回调函数
	OnRetry func(attempt int, err error)
}

// DefaultRetryConfig 返回默认重试配置
func DefaultRetryConfig() *RetryConfig {
	return &RetryConfig{
		MaxRetries:        3,
		InitialDelay:      1000,
		MaxDelay:          10000,
		BackoffMultiplier: 2.0,
		Retryable:         isRetryableError,
		OnRetry:           nil,
	}
}

// isRetryableError 判断错误是否可重试
func isRetryableError(err error) bool {
	if err == nil {
		return false
	}

	// 网络错误（连接失败、超时等）
	if netErr, ok := err.(net.Error); ok {
		if netErr.Timeout() {
			return true
		}
	}

	// DNS 错误
	if _, ok := err.(*net.DNSError); ok {
		return true
	}

	// 通过错误消息判断常见的传输层错误
	errMsg := err.Error()
	if containsAny(errMsg, []string{
		"connection refused",
		"connection reset",
		"no such host",
		"network is unreachable",
		"broken pipe",
		"timeout",
		"EOF",
	}) {
		return true
	}

	return false
}

// isRetryableHTTPError 判断 HTTP 响应状态码是否可重试
func isRetryableHTTPError(statusCode int) bool {
	// HTTP 5xx 错误（服务器错误）
	if statusCode >= 500 && statusCode < 600 {
		return true
	}
	// HTTP 429 错误（请求过多，节点限流）
	if statusCode == 429 {
		return true
	}
	return false
}

// containsAny 检查字符串是否包含任意一个子串
func containsAny(s string, substrs []string) bool {
	for _, substr := range substrs {
		if len(s) >= len(substr) {
			for i := 0; i <= len(s)-len(substr); i++ {
				if s[i:i+len(substr)] == substr {
					return true
				}
			}
		}
	}
	return false
}

// calculateBackoffDelay 计算退避延迟
func calculateBackoffDelay(attempt int, config *RetryConfig) time.Duration {
	delay := float64(config.InitialDelay) * pow(config.BackoffMultiplier, float64(attempt))
	maxDelay := float64(config.MaxDelay)
	if delay > maxDelay {
		delay = maxDelay
	}
	return time.Duration(delay) * time.Millisecond
}

// pow 计算 x 的 y 次方
func pow(x, y float64) float64 {
	result := 1.0
	for i := 0; i < int(y); i++ {
		result *= x
	}
	return result
}

// retryTransport 带重试的 HTTP 传输层
//
// 包装底层 http.RoundTripper，在网络错误或可重试状态码（429/5xx）时
// 重放请求。请求体通过 GetBody 重建（Body 只能读取一次）
type retryTransport struct {
	base   http.RoundTripper
	config *RetryConfig
}

// newRetryTransport 创建重试传输层
func newRetryTransport(base http.RoundTripper, config *RetryConfig) *retryTransport {
	if config == nil {
		config = DefaultRetryConfig()
	}
	return &retryTransport{
		base:   base,
		config: config,
	}
}

// RoundTrip 实现 http.RoundTripper 接口
func (t *retryTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	// 缓存请求体用于重放
	var body []byte
	if req.Body != nil {
		var err error
		body, err = io.ReadAll(req.Body)
		req.Body.Close()
		if err != nil {
			return nil, err
		}
	}

	retryable := t.config.Retryable
	if retryable == nil {
		retryable = isRetryableError
	}

	var lastErr error
	var lastResp *http.Response

	for attempt := 0; attempt <= t.config.MaxRetries; attempt++ {
		if body != nil {
			req.Body = io.NopCloser(bytes.NewReader(body))
		}

		resp, err := t.base.RoundTrip(req)
		if err == nil && !isRetryableHTTPError(resp.StatusCode) {
			return resp, nil
		}

		if err != nil {
			lastErr = err
			lastResp = nil
			// 不可重试的错误直接返回
			if !retryable(err) {
				return nil, err
			}
		} else {
			// 可重试的状态码：丢弃响应体后重试
			lastErr = nil
			lastResp = resp
			if attempt < t.config.MaxRetries {
				io.Copy(io.Discard, resp.Body)
				resp.Body.Close()
			}
		}

		// 最后一次尝试不再等待
		if attempt >= t.config.MaxRetries {
			break
		}

		if t.config.OnRetry != nil {
			t.config.OnRetry(attempt+1, lastErr)
		}

		delay := calculateBackoffDelay(attempt, t.config)
		select {
		case <-req.Context().Done():
			return nil, req.Context().Err()
		case <-time.After(delay):
			// 继续重试
		}
	}

	if lastResp != nil {
		return lastResp, nil
	}
	return nil, lastErr
}
