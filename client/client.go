package client

import (
	"context"

	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
	"go.uber.org/zap"
)

// Caller JSON-RPC 调用接口
//
// 连接工厂、故障转移提供者与批量查询共享的最小 JSON-RPC 表面
// *rpc.Client 直接满足该接口
type Caller interface {
	// CallContext 调用 JSON-RPC 方法，结果解码到 result
	CallContext(ctx context.Context, result interface{}, method string, args ...interface{}) error
}

// Handle 连接句柄
//
// 绑定单一 JSON-RPC 端点的客户端句柄：
// - 底层 *rpc.Client 及其 *ethclient.Client 视图
// - 每个句柄一个 TCP 连接池
// - 合约注册表（首次访问时创建，生命周期与句柄一致）
//
// 句柄不能跨 worker 共享，除非通过 Factory.Worker 获取（每个 worker 一个私有句柄）
type Handle struct {
	endpoint string
	rpc      *rpc.Client
	eth      *ethclient.Client
	logger   *zap.Logger

	registry *Registry
}

// NewHandle 从已建立的 RPC 连接创建句柄
func NewHandle(endpoint string, rpcClient *rpc.Client, logger *zap.Logger) *Handle {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handle{
		endpoint: endpoint,
		rpc:      rpcClient,
		eth:      ethclient.NewClient(rpcClient),
		logger:   logger,
	}
}

// Endpoint 获取句柄绑定的端点地址
func (h *Handle) Endpoint() string {
	return h.endpoint
}

// RPC 获取底层 JSON-RPC 客户端
func (h *Handle) RPC() *rpc.Client {
	return h.rpc
}

// Eth 获取底层以太坊客户端
func (h *Handle) Eth() *ethclient.Client {
	return h.eth
}

// Logger 获取句柄的日志器
func (h *Handle) Logger() *zap.Logger {
	return h.logger
}

// CallContext 实现 Caller 接口，委托给底层 RPC 客户端
func (h *Handle) CallContext(ctx context.Context, result interface{}, method string, args ...interface{}) error {
	return h.rpc.CallContext(ctx, result, method, args...)
}

// Close 关闭连接
func (h *Handle) Close() {
	h.rpc.Close()
}
