package uniswapv3

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/lmittmann/w3"

	"github.com/omahs/web3-ethereum-defi/client"
)

// Quoter 合约方法描述符
var (
	funcQuoteExactInput  = w3.MustNewFunc("quoteExactInput(bytes,uint256)", "uint256")
	funcQuoteExactOutput = w3.MustNewFunc("quoteExactOutput(bytes,uint256)", "uint256")
)

// bpsDenominator 滑点基点分母
var bpsDenominator = big.NewInt(10_000)

// PriceHelper Uniswap v3 价格估算辅助
//
// 通过 Quoter 合约估算多跳路由的输入/输出数量，滑点以基点表示
type PriceHelper struct {
	handle *client.Handle
	quoter common.Address
}

// NewPriceHelper 创建价格估算辅助
func NewPriceHelper(handle *client.Handle, quoter common.Address) *PriceHelper {
	return &PriceHelper{
		handle: handle,
		quoter: quoter,
	}
}

// GetAmountOut 估算沿路由卖出 amountIn 能收到的数量
//
// slippageBPS 表示可容忍的最大滑点（基点）；估算值按最大滑点折减：
// amountOut * 10000 / (10000 + slippage)。
// blockNumber 为 nil 时查询最新区块
func (h *PriceHelper) GetAmountOut(
	ctx context.Context,
	amountIn *big.Int,
	path []common.Address,
	fees []uint32,
	slippageBPS int64,
	blockNumber *big.Int,
) (*big.Int, error) {
	if err := validateArgs(path, fees, slippageBPS, amountIn); err != nil {
		return nil, err
	}

	encodedPath, err := EncodePath(path, fees, false)
	if err != nil {
		return nil, err
	}

	amountOut, err := h.quote(ctx, funcQuoteExactInput, encodedPath, amountIn, blockNumber)
	if err != nil {
		return nil, err
	}

	// amountOut * 10000 / (10000 + slippage)
	result := new(big.Int).Mul(amountOut, bpsDenominator)
	return result.Div(result, big.NewInt(10_000+slippageBPS)), nil
}

// GetAmountIn 估算沿路由买到 amountOut 需要付出的数量
//
// 估算值按最大滑点放大：amountIn * (10000 + slippage) / 10000
func (h *PriceHelper) GetAmountIn(
	ctx context.Context,
	amountOut *big.Int,
	path []common.Address,
	fees []uint32,
	slippageBPS int64,
	blockNumber *big.Int,
) (*big.Int, error) {
	if err := validateArgs(path, fees, slippageBPS, amountOut); err != nil {
		return nil, err
	}

	encodedPath, err := EncodePath(path, fees, true)
	if err != nil {
		return nil, err
	}

	amountIn, err := h.quote(ctx, funcQuoteExactOutput, encodedPath, amountOut, blockNumber)
	if err != nil {
		return nil, err
	}

	// amountIn * (10000 + slippage) / 10000
	result := new(big.Int).Mul(amountIn, big.NewInt(10_000+slippageBPS))
	return result.Div(result, bpsDenominator), nil
}

// quote 执行 Quoter 的只读调用并解码数量
func (h *PriceHelper) quote(ctx context.Context, fn *w3.Func, encodedPath []byte, amount *big.Int, blockNumber *big.Int) (*big.Int, error) {
	data, err := fn.EncodeArgs(encodedPath, amount)
	if err != nil {
		return nil, fmt.Errorf("encode quoter call: %w", err)
	}

	output, err := h.handle.Eth().CallContract(ctx, ethereum.CallMsg{To: &h.quoter, Data: data}, blockNumber)
	if err != nil {
		return nil, fmt.Errorf("call quoter %s: %w", h.quoter.Hex(), err)
	}

	result := new(big.Int)
	if err := fn.DecodeReturns(output, result); err != nil {
		return nil, fmt.Errorf("decode quoter result: %w", err)
	}
	return result, nil
}

// validateArgs 校验路由参数
func validateArgs(path []common.Address, fees []uint32, slippageBPS int64, amount *big.Int) error {
	if len(path) < 2 {
		return fmt.Errorf("path must contain at least 2 tokens, got %d", len(path))
	}
	if len(fees) != len(path)-1 {
		return fmt.Errorf("fees length must be %d (one per hop), got %d", len(path)-1, len(fees))
	}
	if slippageBPS < 0 {
		return fmt.Errorf("slippage must not be negative, got %d", slippageBPS)
	}
	if amount == nil || amount.Sign() <= 0 {
		return fmt.Errorf("amount must be a positive integer, got %v", amount)
	}
	return nil
}
