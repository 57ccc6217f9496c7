package enzyme

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/omahs/web3-ethereum-defi/contract"
	"github.com/omahs/web3-ethereum-defi/wallet"
)

// AssetDelta 期望的资产余额变化（代币地址，带符号数量）
//
// 只用于客户端侧的记账与断言，不上链编码。
// 正数表示期望流入，负数表示期望流出
type AssetDelta struct {
	// Token 代币地址
	Token common.Address
	// Delta 带符号的数量变化
	Delta *big.Int
}

// String 人类可读形式
func (d AssetDelta) String() string {
	return fmt.Sprintf("AssetDelta(%s, %s)", d.Token.Hex(), d.Delta.String())
}

// VaultTransaction 待通过金库执行的交易
//
// 目标合约、函数名、参数、gas 上限与可选的资产增减声明；
// 构造后不可变，由签名步骤恰好消费一次
type VaultTransaction struct {
	// Target 目标合约代理
	Target *contract.Proxy
	// Function 目标合约的函数名
	Function string
	// Args 函数参数
	Args []interface{}
	// GasLimit gas 上限
	GasLimit uint64
	// AssetDeltas 期望的资产变化（可选，只做客户端记账）
	AssetDeltas []AssetDelta
}

// String 人类可读形式，用于日志与审计
func (tx *VaultTransaction) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "VaultTransaction(%s.%s, gas=%d", tx.Target.String(), tx.Function, tx.GasLimit)
	for _, delta := range tx.AssetDeltas {
		fmt.Fprintf(&sb, ", %s", delta.String())
	}
	sb.WriteString(")")
	return sb.String()
}

// assetLists 从资产增减声明导出流入/流出列表
//
// 正 delta → 流入资产 + 最小流入数量；负 delta → 流出资产 + 流出数量
func (tx *VaultTransaction) assetLists() (incoming []Asset, minIncoming []*big.Int, spend []Asset, spendAmounts []*big.Int) {
	for _, delta := range tx.AssetDeltas {
		if delta.Delta == nil || delta.Delta.Sign() == 0 {
			continue
		}
		if delta.Delta.Sign() > 0 {
			incoming = append(incoming, AssetFromAddress(delta.Token))
			minIncoming = append(minIncoming, new(big.Int).Set(delta.Delta))
		} else {
			spend = append(spend, AssetFromAddress(delta.Token))
			spendAmounts = append(spendAmounts, new(big.Int).Neg(delta.Delta))
		}
	}
	return incoming, minIncoming, spend, spendAmounts
}

// VaultControlledWallet 金库钱包
//
// 包装金库部署与持有私钥的热钱包，以金库所有者身份签名
// 途经金库的交易（包括 generic adapter 调用）。只签名，不广播
type VaultControlledWallet struct {
	vault   *Vault
	hot     *wallet.HotWallet
	chainID *big.Int
	logger  *zap.Logger
}

// NewVaultControlledWallet 创建金库控制钱包
//
// hot 为金库部署账户对应的 EOA 热钱包
func NewVaultControlledWallet(vault *Vault, hot *wallet.HotWallet, logger *zap.Logger) *VaultControlledWallet {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &VaultControlledWallet{
		vault:  vault,
		hot:    hot,
		logger: logger,
	}
}

// Address 金库地址
func (w *VaultControlledWallet) Address() common.Address {
	return w.vault.Address()
}

// HotWallet 底层热钱包
func (w *VaultControlledWallet) HotWallet() *wallet.HotWallet {
	return w.hot
}

// SyncNonce 从链上同步热钱包的 nonce 计数器
func (w *VaultControlledWallet) SyncNonce(ctx context.Context) error {
	return w.hot.SyncNonce(ctx, w.vault.Comptroller.Handle())
}

// AllocateNonce 获取下一个可用 nonce 并递增计数器
func (w *VaultControlledWallet) AllocateNonce() (uint64, error) {
	return w.hot.AllocateNonce()
}

// SignTransactionWithNewNonce 把金库交易封装为 generic adapter 调用，
// 分配新 nonce 并签名
//
// 请求已携带 nonce 时签名失败且计数器不变。不广播
func (w *VaultControlledWallet) SignTransactionWithNewNonce(ctx context.Context, vtx *VaultTransaction) (*wallet.SignedTransactionWithNonce, error) {
	req, err := w.buildRequest(ctx, vtx)
	if err != nil {
		return nil, err
	}
	return w.hot.SignTransactionWithNewNonce(req)
}

// NativeBalance 读取热钱包账户的原生币余额（ether 单位）
func (w *VaultControlledWallet) NativeBalance(ctx context.Context) (*big.Float, error) {
	return w.hot.NativeBalance(ctx, w.vault.Comptroller.Handle())
}

// buildRequest 把金库交易编译为 comptroller callOnExtension 交易请求
func (w *VaultControlledWallet) buildRequest(ctx context.Context, vtx *VaultTransaction) (*wallet.TransactionRequest, error) {
	if vtx == nil || vtx.Target == nil {
		return nil, newEncodingError("vault transaction must carry a target", nil)
	}

	w.logger.Info("building vault transaction",
		zap.String("transaction", vtx.String()),
		zap.Stringer("vault", w.vault.Vault),
	)

	// 1. 目标合约的调用数据
	data, err := vtx.Target.Pack(vtx.Function, vtx.Args...)
	if err != nil {
		return nil, err
	}

	// 2. 资产增减声明导出的流入/流出列表
	incoming, minIncoming, spend, spendAmounts := vtx.assetLists()

	// 3. 两阶段参数编码
	executeCallArgs, err := EncodeExecuteCallsArgs(
		incoming,
		minIncoming,
		spend,
		spendAmounts,
		[]ExternalCall{{Target: AssetFromProxy(vtx.Target), Data: data}},
	)
	if err != nil {
		return nil, err
	}

	// 4. call on integration 封装
	callArgs, err := EncodeCallOnIntegrationArgs(
		AssetFromProxy(w.vault.GenericAdapter),
		ExecuteCallsSelector,
		executeCallArgs,
	)
	if err != nil {
		return nil, err
	}

	// 5. comptroller callOnExtension 调用数据
	payload, err := EncodeCallOnExtension(w.vault.IntegrationManager.Address(), CallOnIntegration, callArgs)
	if err != nil {
		return nil, err
	}

	handle := w.vault.Comptroller.Handle()

	// 6. 链 ID 与 gas 价格取自节点
	if w.chainID == nil {
		chainID, err := handle.Eth().ChainID(ctx)
		if err != nil {
			return nil, fmt.Errorf("fetch chain id: %w", err)
		}
		w.chainID = chainID
	}
	gasPrice, err := handle.Eth().SuggestGasPrice(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch gas price: %w", err)
	}

	to := w.vault.Comptroller.Address()
	return &wallet.TransactionRequest{
		ChainID:  w.chainID,
		To:       &to,
		Gas:      vtx.GasLimit,
		GasPrice: gasPrice,
		Data:     payload,
	}, nil
}
