package client

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/rpc"
	"go.uber.org/zap"
)

// Factory 连接工厂接口
//
// 生产绑定单一 JSON-RPC 端点的连接句柄，支撑多 worker 并发 RPC 访问：
// - 连接句柄不能跨 worker 边界传递
// - 每个 worker 初始化时调用工厂获取自己的 JSON-RPC 连接
type Factory interface {
	// Create 创建一个新的连接句柄
	Create(ctx context.Context) (*Handle, error)

	// Worker 返回指定 worker 的缓存句柄，首次访问时创建
	//
	// 不同 worker ID 获得不同的句柄；同一 worker ID 重复调用返回同一句柄
	Worker(ctx context.Context, workerID int) (*Handle, error)
}

// TunedFactory 调优的连接工厂
//
// 每次创建句柄时：
// - 建立带连接池的 HTTP 会话（HTTP 1.1 keep-alive 复用）
// - 安装重试传输中间件（限流与网络错误的指数退避）
// - 其余传输与编解码全部委托给 go-ethereum 的 rpc 客户端
//
// 故障模式：任何传输构建错误原样传播给调用方，本层不做重试
// （重试属于安装在传输层的中间件）
type TunedFactory struct {
	config *Config

	mu      sync.Mutex
	workers map[int]*Handle
}

// NewTunedFactory 创建调优的连接工厂
func NewTunedFactory(config *Config) *TunedFactory {
	if config == nil {
		config = DefaultConfig()
	}
	if config.Logger == nil {
		config.Logger = zap.NewNop()
	}
	return &TunedFactory{
		config:  config,
		workers: make(map[int]*Handle),
	}
}

// Create 创建一个新的连接句柄
func (f *TunedFactory) Create(ctx context.Context) (*Handle, error) {
	cfg := f.config

	// 连接池参数（HTTPS 会话复用）
	poolConnections := cfg.PoolConnections
	if poolConnections <= 0 {
		poolConnections = 10
	}
	poolMaxSize := cfg.PoolMaxSize
	if poolMaxSize <= 0 {
		poolMaxSize = 10
	}

	transport := &http.Transport{
		MaxIdleConns:        poolConnections,
		MaxIdleConnsPerHost: poolConnections,
		MaxConnsPerHost:     poolMaxSize,
		IdleConnTimeout:     90 * time.Second,
	}

	retryConfig := cfg.Retry
	if retryConfig == nil {
		retryConfig = DefaultRetryConfig()
		retryConfig.OnRetry = func(attempt int, err error) {
			cfg.Logger.Warn("retrying JSON-RPC request",
				zap.Int("attempt", attempt),
				zap.Error(err),
			)
		}
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30
	}

	httpClient := &http.Client{
		Transport: newRetryTransport(transport, retryConfig),
		Timeout:   time.Duration(timeout) * time.Second,
	}

	rpcClient, err := rpc.DialOptions(ctx, cfg.Endpoint, rpc.WithHTTPClient(httpClient))
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", cfg.Endpoint, err)
	}

	return NewHandle(cfg.Endpoint, rpcClient, cfg.Logger), nil
}

// Worker 返回指定 worker 的缓存句柄，首次访问时创建
//
// 替代隐式线程本地缓存：句柄按 worker 标识显式缓存，
// 每个 worker 确定性地获得自己的私有句柄，无跨 worker 共享
func (f *TunedFactory) Worker(ctx context.Context, workerID int) (*Handle, error) {
	f.mu.Lock()
	if handle, ok := f.workers[workerID]; ok {
		f.mu.Unlock()
		return handle, nil
	}
	f.mu.Unlock()

	// 拨号在锁外进行，避免阻塞其他 worker
	handle, err := f.Create(ctx)
	if err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	// 并发首次访问时保留先到的句柄
	if existing, ok := f.workers[workerID]; ok {
		handle.Close()
		return existing, nil
	}
	f.workers[workerID] = handle
	return handle, nil
}

// Close 关闭所有缓存的 worker 句柄
func (f *TunedFactory) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, handle := range f.workers {
		handle.Close()
	}
	f.workers = make(map[int]*Handle)
}

// SimpleFactory 单句柄工厂
//
// 始终返回同一个已建立的句柄：
// - 不适用于多 worker 场景（句柄不能跨 worker 传递）
// - 用于测试
type SimpleFactory struct {
	handle *Handle
}

// NewSimpleFactory 包装一个现成的句柄
func NewSimpleFactory(handle *Handle) *SimpleFactory {
	return &SimpleFactory{handle: handle}
}

// Create 返回包装的句柄
func (f *SimpleFactory) Create(ctx context.Context) (*Handle, error) {
	return f.handle, nil
}

// Worker 返回包装的句柄（忽略 worker ID）
func (f *SimpleFactory) Worker(ctx context.Context, workerID int) (*Handle, error) {
	return f.handle, nil
}
