package client

import (
	"context"
	"sync"
)

// transactMethods 需要经过交易提供者路由的 JSON-RPC 方法
//
// 交易广播走 MEV 保护端点，其余（读查询、gas 估算）走普通端点
var transactMethods = map[string]bool{
	"eth_sendTransaction":        true,
	"eth_sendRawTransaction":     true,
	"eth_sendPrivateTransaction": true,
}

// MEVBlockerProvider 交易与查询分流提供者
//
// 把交易广播方法路由到单独的 transact 提供者（例如 MEV blocker 端点），
// 其余方法路由到普通 call 提供者：
// - 两个提供者各自维护调用计数
// - 本层不做重试，错误原样传播
type MEVBlockerProvider struct {
	callProvider     Caller
	transactProvider Caller

	mu      sync.Mutex
	counter map[string]int
}

// NewMEVBlockerProvider 创建分流提供者
func NewMEVBlockerProvider(callProvider, transactProvider Caller) *MEVBlockerProvider {
	return &MEVBlockerProvider{
		callProvider:     callProvider,
		transactProvider: transactProvider,
		counter: map[string]int{
			"call":     0,
			"transact": 0,
		},
	}
}

// CallContext 实现 Caller 接口，按方法名路由
func (p *MEVBlockerProvider) CallContext(ctx context.Context, result interface{}, method string, args ...interface{}) error {
	provider := p.callProvider
	kind := "call"
	if transactMethods[method] {
		provider = p.transactProvider
		kind = "transact"
	}

	p.mu.Lock()
	p.counter[kind]++
	p.mu.Unlock()

	return provider.CallContext(ctx, result, method, args...)
}

// ProviderCounter 返回按类别（call/transact）的调用计数
func (p *MEVBlockerProvider) ProviderCounter(kind string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.counter[kind]
}
