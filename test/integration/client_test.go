package integration

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestNodeConnectivity 基础连通性：区块高度与链 ID 可读
func TestNodeConnectivity(t *testing.T) {
	handle := SetupTestHandle(t)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	blockNumber, err := handle.Eth().BlockNumber(ctx)
	require.NoError(t, err, "查询区块高度失败")
	t.Logf("当前区块高度: %d", blockNumber)

	chainID, err := handle.Eth().ChainID(ctx)
	require.NoError(t, err, "查询链 ID 失败")
	assert.Positive(t, chainID.Sign(), "链 ID 应该为正")
}

// TestFactoryWorkerHandles worker 句柄缓存语义在真实节点上成立
func TestFactoryWorkerHandles(t *testing.T) {
	factory := SetupTestFactory(t)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	h1, err := factory.Worker(ctx, 1)
	require.NoError(t, err)
	h2, err := factory.Worker(ctx, 2)
	require.NoError(t, err)
	h1Again, err := factory.Worker(ctx, 1)
	require.NoError(t, err)

	assert.NotSame(t, h1, h2, "不同 worker 应该拿到不同句柄")
	assert.Same(t, h1, h1Again, "同一 worker 应该拿到同一句柄")

	// 两个句柄都能独立工作
	_, err = h1.Eth().BlockNumber(ctx)
	require.NoError(t, err)
	_, err = h2.Eth().BlockNumber(ctx)
	require.NoError(t, err)
}
