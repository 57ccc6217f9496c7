// Package integration 提供连真实节点的集成测试基础设施
//
// 测试通过 ETH_JSON_RPC_URL 环境变量定位节点（本地 anvil/hardhat
// 或公共端点）；变量未设置时整组测试跳过
package integration

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/omahs/web3-ethereum-defi/client"
	"github.com/omahs/web3-ethereum-defi/wallet"
)

const (
	// NodeEndpointEnv 节点端点环境变量名
	NodeEndpointEnv = "ETH_JSON_RPC_URL"
	// DefaultTimeout 默认超时时间
	DefaultTimeout = 30 * time.Second
)

// NodeEndpoint 返回节点端点，未配置时跳过测试
func NodeEndpoint(t *testing.T) string {
	t.Helper()
	endpoint := os.Getenv(NodeEndpointEnv)
	if endpoint == "" {
		t.Skipf("set %s to run integration tests", NodeEndpointEnv)
	}
	return endpoint
}

// SetupTestFactory 创建指向测试节点的连接工厂
func SetupTestFactory(t *testing.T) *client.TunedFactory {
	t.Helper()
	factory := client.NewTunedFactory(&client.Config{
		Endpoint: NodeEndpoint(t),
		Timeout:  int(DefaultTimeout.Seconds()),
	})
	t.Cleanup(factory.Close)
	return factory
}

// SetupTestHandle 创建连接句柄并验证节点可达
func SetupTestHandle(t *testing.T) *client.Handle {
	t.Helper()
	factory := SetupTestFactory(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	handle, err := factory.Create(ctx)
	require.NoError(t, err, "创建连接句柄失败")
	t.Cleanup(handle.Close)

	// 验证节点是否运行
	_, err = handle.Eth().BlockNumber(ctx)
	require.NoError(t, err, "节点未运行，请检查 %s", NodeEndpointEnv)

	return handle
}

// CreateTestWallet 创建随机测试钱包
func CreateTestWallet(t *testing.T) *wallet.HotWallet {
	t.Helper()
	w, err := wallet.Generate()
	require.NoError(t, err, "创建测试钱包失败")
	return w
}
