package contract

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"

	"github.com/omahs/web3-ethereum-defi/client"
)

// receiptPollInterval 回执轮询间隔
const receiptPollInterval = 2 * time.Second

// Deploy 部署合约并记入注册表
//
// 从 deployer（节点托管账户）提交构造交易，阻塞等待交易上链，
// 把部署地址包装成代理并以符号名记入句柄的合约注册表。
//
// 任何交易回滚或等待超时由底层客户端/ctx 原样传播，本层不做重试
// 也不解释错误
func Deploy(ctx context.Context, handle *client.Handle, artifact *Artifact, deployer common.Address, args ...interface{}) (*Proxy, error) {
	return deploy(ctx, handle, artifact, deployer, true, args...)
}

// DeployUnregistered 部署合约但不记入注册表
func DeployUnregistered(ctx context.Context, handle *client.Handle, artifact *Artifact, deployer common.Address, args ...interface{}) (*Proxy, error) {
	return deploy(ctx, handle, artifact, deployer, false, args...)
}

func deploy(ctx context.Context, handle *client.Handle, artifact *Artifact, deployer common.Address, register bool, args ...interface{}) (*Proxy, error) {
	if artifact == nil {
		return nil, fmt.Errorf("artifact must be provided")
	}
	if len(artifact.Bytecode) == 0 {
		return nil, fmt.Errorf("artifact %s has no creation bytecode", artifact.ContractName)
	}

	// 1. 编码构造参数，拼接在创建字节码之后
	ctorArgs, err := artifact.ABI.Pack("", args...)
	if err != nil {
		return nil, fmt.Errorf("pack %s constructor args: %w", artifact.ContractName, err)
	}
	data := make([]byte, 0, len(artifact.Bytecode)+len(ctorArgs))
	data = append(data, artifact.Bytecode...)
	data = append(data, ctorArgs...)

	// 2. 从部署账户提交创建交易（节点托管账户，gas 由节点估算）
	var txHash common.Hash
	err = handle.RPC().CallContext(ctx, &txHash, "eth_sendTransaction", map[string]interface{}{
		"from": deployer,
		"data": hexutil.Bytes(data),
	})
	if err != nil {
		return nil, fmt.Errorf("deploy %s: %w", artifact.ContractName, err)
	}

	handle.Logger().Info("contract deployment submitted",
		zap.String("contract", artifact.ContractName),
		zap.String("tx", txHash.Hex()),
		zap.String("deployer", deployer.Hex()),
	)

	// 3. 阻塞等待回执
	receipt, err := WaitMined(ctx, handle, txHash)
	if err != nil {
		return nil, fmt.Errorf("deploy %s: %w", artifact.ContractName, err)
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return nil, fmt.Errorf("deploy %s: transaction %s reverted", artifact.ContractName, txHash.Hex())
	}

	// 4. 包装代理并注册符号名
	proxy := NewProxy(handle, receipt.ContractAddress, artifact.ContractName, artifact.ABI)
	if register {
		handle.Registry().Register(receipt.ContractAddress, proxy)
	}

	return proxy, nil
}

// WaitMined 轮询等待交易上链并返回回执
//
// 无超时：长时间等待会一直阻塞调用方，超时控制交给 ctx
func WaitMined(ctx context.Context, handle *client.Handle, txHash common.Hash) (*types.Receipt, error) {
	ticker := time.NewTicker(receiptPollInterval)
	defer ticker.Stop()

	for {
		receipt, err := handle.Eth().TransactionReceipt(ctx, txHash)
		if err == nil {
			return receipt, nil
		}
		if !errors.Is(err, ethereum.NotFound) {
			return nil, fmt.Errorf("fetch receipt %s: %w", txHash.Hex(), err)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
			// 继续轮询
		}
	}
}
