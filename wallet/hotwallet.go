// Package wallet 提供持有私钥的热钱包实现
//
// 热钱包负责 nonce 分配与交易签名，从不广播交易；
// 广播由外部协作方（例如 eth_sendRawTransaction 调用方）完成
package wallet

import (
	"context"
	"crypto/ecdsa"
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/params"

	"github.com/omahs/web3-ethereum-defi/client"
)

var (
	// ErrNonceAlreadySet 请求已携带显式 nonce
	//
	// 这是编程错误而非可恢复条件：nonce 分配是钱包的职责
	ErrNonceAlreadySet = errors.New("transaction request already carries a nonce")

	// ErrNonceNotSynced 计数器未从链上同步就开始分配
	ErrNonceNotSynced = errors.New("nonce counter not synced, call SyncNonce first")
)

// TransactionRequest 待签名交易请求
//
// 构造后不可变，由签名步骤恰好消费一次。
// Nonce 字段必须为 nil：显式 nonce 由 SignTransactionWithNewNonce 拒绝
type TransactionRequest struct {
	// ChainID 目标链 ID
	ChainID *big.Int
	// To 目标地址（nil 表示合约创建）
	To *common.Address
	// Value 转账金额（wei）
	Value *big.Int
	// Gas gas 上限
	Gas uint64
	// GasPrice 传统交易的 gas 价格
	GasPrice *big.Int
	// GasFeeCap EIP-1559 最大总费用；非 nil 时构建动态费用交易
	GasFeeCap *big.Int
	// GasTipCap EIP-1559 小费上限
	GasTipCap *big.Int
	// Data 调用数据
	Data []byte
	// Nonce 显式 nonce（正常流程必须留空）
	Nonce *uint64
}

// SignedTransactionWithNonce 签名结果记录
//
// 携带原始签名字节、哈希、签名分量、消耗的 nonce 与原始请求，
// 供审计使用；创建后不再修改
type SignedTransactionWithNonce struct {
	// Tx 已签名交易
	Tx *types.Transaction
	// RawTransaction 原始签名字节（RLP），可直接用于 eth_sendRawTransaction
	RawTransaction []byte
	// Hash 交易哈希
	Hash common.Hash
	// V R S 签名分量
	V, R, S *big.Int
	// Nonce 本次消耗的 nonce
	Nonce uint64
	// Source 原始请求
	Source *TransactionRequest
}

// HotWallet 持有私钥的热钱包
//
// nonce 计数器归钱包独占：同一钱包实例上的并发分配通过互斥锁串行化，
// 保证不重复分配
type HotWallet struct {
	key     *ecdsa.PrivateKey
	address common.Address

	mu     sync.Mutex
	synced bool
	nonce  uint64
}

// New 从私钥创建热钱包
func New(key *ecdsa.PrivateKey) *HotWallet {
	return &HotWallet{
		key:     key,
		address: ethcrypto.PubkeyToAddress(key.PublicKey),
	}
}

// NewFromHex 从十六进制私钥字符串创建热钱包
//
// 接受带或不带 0x 前缀的 32 字节私钥
func NewFromHex(privateKeyHex string) (*HotWallet, error) {
	if len(privateKeyHex) >= 2 && privateKeyHex[:2] == "0x" {
		privateKeyHex = privateKeyHex[2:]
	}

	keyBytes, err := hex.DecodeString(privateKeyHex)
	if err != nil {
		return nil, fmt.Errorf("decode private key: %w", err)
	}
	if len(keyBytes) != 32 {
		return nil, fmt.Errorf("invalid private key length: expected 32 bytes, got %d", len(keyBytes))
	}

	key, err := ethcrypto.ToECDSA(keyBytes)
	if err != nil {
		return nil, fmt.Errorf("parse secp256k1 private key: %w", err)
	}

	return New(key), nil
}

// Generate 生成随机私钥的热钱包（用于测试和开发）
func Generate() (*HotWallet, error) {
	key, err := ethcrypto.GenerateKey()
	if err != nil {
		return nil, fmt.Errorf("generate private key: %w", err)
	}
	return New(key), nil
}

// Address 获取钱包地址
func (w *HotWallet) Address() common.Address {
	return w.address
}

// PrivateKey 获取私钥（谨慎使用）
func (w *HotWallet) PrivateKey() *ecdsa.PrivateKey {
	return w.key
}

// SyncNonce 从链上读取当前交易计数并作为计数器起点
//
// 首次使用前必须调用一次；无条件覆盖任何已有本地值（不合并）
func (w *HotWallet) SyncNonce(ctx context.Context, caller client.Caller) error {
	var count hexutil.Uint64
	err := caller.CallContext(ctx, &count, "eth_getTransactionCount", w.address, "pending")
	if err != nil {
		return fmt.Errorf("sync nonce for %s: %w", w.address.Hex(), err)
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	w.nonce = uint64(count)
	w.synced = true
	return nil
}

// AllocateNonce 原子地返回当前计数器值并递增
//
// 钱包生命周期内不会有两次调用返回相同的值
func (w *HotWallet) AllocateNonce() (uint64, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.synced {
		return 0, ErrNonceNotSynced
	}
	nonce := w.nonce
	w.nonce++
	return nonce, nil
}

// CurrentNonce 返回下一个将被分配的 nonce（只读，用于审计）
func (w *HotWallet) CurrentNonce() uint64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.nonce
}

// SignTransactionWithNewNonce 分配新 nonce、签名并返回签名记录
//
// 请求已携带显式 nonce 时直接失败（计数器不变）；
// 否则分配新 nonce、构建交易并用持有的私钥签名。
// 不广播 —— 广播是外部协作方的职责
func (w *HotWallet) SignTransactionWithNewNonce(req *TransactionRequest) (*SignedTransactionWithNonce, error) {
	if req == nil {
		return nil, fmt.Errorf("transaction request must be provided")
	}
	if req.Nonce != nil {
		return nil, fmt.Errorf("%w: nonce %d", ErrNonceAlreadySet, *req.Nonce)
	}
	if req.ChainID == nil {
		return nil, fmt.Errorf("transaction request missing chain id")
	}

	nonce, err := w.AllocateNonce()
	if err != nil {
		return nil, err
	}

	tx := buildTransaction(req, nonce)

	signer := types.LatestSignerForChainID(req.ChainID)
	signed, err := types.SignTx(tx, signer, w.key)
	if err != nil {
		return nil, fmt.Errorf("sign transaction with nonce %d: %w", nonce, err)
	}

	raw, err := signed.MarshalBinary()
	if err != nil {
		return nil, fmt.Errorf("marshal signed transaction: %w", err)
	}

	// 签名字节往返校验
	var check types.Transaction
	if err := check.UnmarshalBinary(raw); err != nil {
		return nil, fmt.Errorf("signed transaction does not decode back: %w", err)
	}

	v, r, s := signed.RawSignatureValues()

	return &SignedTransactionWithNonce{
		Tx:             signed,
		RawTransaction: raw,
		Hash:           signed.Hash(),
		V:              v,
		R:              r,
		S:              s,
		Nonce:          nonce,
		Source:         req,
	}, nil
}

// NativeBalance 读取账户的原生币余额并换算为 ether 单位
//
// 只读操作，常用于检查 gas 费是否充足
func (w *HotWallet) NativeBalance(ctx context.Context, caller client.Caller) (*big.Float, error) {
	var balance hexutil.Big
	err := caller.CallContext(ctx, &balance, "eth_getBalance", w.address, "latest")
	if err != nil {
		return nil, fmt.Errorf("get balance for %s: %w", w.address.Hex(), err)
	}
	return WeiToEther(balance.ToInt()), nil
}

// WeiToEther 把 wei 金额换算为十进制 ether 显示值
func WeiToEther(wei *big.Int) *big.Float {
	return new(big.Float).Quo(
		new(big.Float).SetInt(wei),
		new(big.Float).SetFloat64(params.Ether),
	)
}

// buildTransaction 根据请求的费用字段构建交易
//
// GasFeeCap 设置时构建 EIP-1559 动态费用交易，否则构建传统交易
func buildTransaction(req *TransactionRequest, nonce uint64) *types.Transaction {
	if req.GasFeeCap != nil {
		return types.NewTx(&types.DynamicFeeTx{
			ChainID:   req.ChainID,
			Nonce:     nonce,
			GasTipCap: req.GasTipCap,
			GasFeeCap: req.GasFeeCap,
			Gas:       req.Gas,
			To:        req.To,
			Value:     req.Value,
			Data:      req.Data,
		})
	}
	return types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		GasPrice: req.GasPrice,
		Gas:      req.Gas,
		To:       req.To,
		Value:    req.Value,
		Data:     req.Data,
	})
}
