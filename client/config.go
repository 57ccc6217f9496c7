package client

import (
	"go.uber.org/zap"
)

// Config 连接工厂配置
type Config struct {
	// Endpoint 节点 JSON-RPC 端点地址
	Endpoint string

	// PoolConnections HTTP 连接池大小（空闲连接数）
	PoolConnections int

	// PoolMaxSize 单主机最大连接数
	PoolMaxSize int

	// Timeout 单次请求超时时间（秒）
	Timeout int

	// Retry 重试配置（nil 表示使用默认配置）
	Retry *RetryConfig

	// Logger 日志器（可选）
	Logger *zap.Logger
}

// DefaultConfig 返回默认配置
//
// 连接池默认大小 10，与 HTTP 1.1 keep-alive 会话复用配合
func DefaultConfig() *Config {
	return &Config{
		Endpoint:        "http://localhost:8545",
		PoolConnections: 10,
		PoolMaxSize:     10,
		Timeout:         30,
	}
}
