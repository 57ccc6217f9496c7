package client

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// FallbackProvider 多端点故障转移提供者
//
// 按顺序包装多个 JSON-RPC 提供者，当前提供者出现可重试的传输错误时
// 切换到下一个提供者并退避等待：
// - JSON-RPC 层的错误（合约回滚等）不属于传输故障，原样传播
// - 每个提供者按方法维护 API 调用计数，便于测试与监控
type FallbackProvider struct {
	providers []Caller
	sleep     time.Duration
	backoff   float64
	maxRetry  int
	logger    *zap.Logger

	mu            sync.Mutex
	active        int
	retryCount    int
	apiCallCounts []map[string]int
}

// FallbackOption FallbackProvider 的可选配置
type FallbackOption func(*FallbackProvider)

// WithFallbackSleep 设置切换提供者后的初始等待时间
func WithFallbackSleep(sleep time.Duration) FallbackOption {
	return func(p *FallbackProvider) {
		p.sleep = sleep
	}
}

// WithFallbackBackoff 设置等待时间的退避倍数
func WithFallbackBackoff(backoff float64) FallbackOption {
	return func(p *FallbackProvider) {
		p.backoff = backoff
	}
}

// WithFallbackMaxRetries 设置放弃前的最大切换次数
func WithFallbackMaxRetries(max int) FallbackOption {
	return func(p *FallbackProvider) {
		p.maxRetry = max
	}
}

// WithFallbackLogger 设置日志器
func WithFallbackLogger(logger *zap.Logger) FallbackOption {
	return func(p *FallbackProvider) {
		p.logger = logger
	}
}

// NewFallbackProvider 创建故障转移提供者
//
// providers 至少一个，顺序即优先级
func NewFallbackProvider(providers []Caller, opts ...FallbackOption) *FallbackProvider {
	p := &FallbackProvider{
		providers: providers,
		sleep:     5 * time.Second,
		backoff:   1.6,
		maxRetry:  5,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.apiCallCounts = make([]map[string]int, len(providers))
	for i := range p.apiCallCounts {
		p.apiCallCounts[i] = make(map[string]int)
	}
	return p
}

// CallContext 实现 Caller 接口
//
// 在当前活跃提供者上执行调用；可重试的传输错误触发切换与退避，
// 其他错误原样返回
func (p *FallbackProvider) CallContext(ctx context.Context, result interface{}, method string, args ...interface{}) error {
	delay := p.sleep

	for {
		p.mu.Lock()
		idx := p.active
		provider := p.providers[idx]
		p.mu.Unlock()

		err := provider.CallContext(ctx, result, method, args...)
		if err == nil {
			p.mu.Lock()
			p.apiCallCounts[idx][method]++
			p.mu.Unlock()
			return nil
		}

		// 非传输故障（JSON-RPC 错误、编码错误等）不切换提供者
		if !isRetryableError(err) {
			return err
		}

		p.mu.Lock()
		if p.retryCount >= p.maxRetry {
			p.mu.Unlock()
			return err
		}
		p.retryCount++
		p.active = (p.active + 1) % len(p.providers)
		next := p.active
		p.mu.Unlock()

		p.logger.Warn("JSON-RPC provider failed, switching",
			zap.Int("failed_provider", idx),
			zap.Int("next_provider", next),
			zap.String("method", method),
			zap.Error(err),
		)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		delay = time.Duration(float64(delay) * p.backoff)
	}
}

// CurrentlyActiveProvider 返回当前活跃提供者的下标
func (p *FallbackProvider) CurrentlyActiveProvider() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.active
}

// RetryCount 返回累计的提供者切换次数
func (p *FallbackProvider) RetryCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.retryCount
}

// APICallCount 返回指定提供者指定方法的成功调用次数
func (p *FallbackProvider) APICallCount(provider int, method string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.apiCallCounts[provider][method]
}
