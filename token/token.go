// Package token 提供 ERC-20 代币元数据读取与数量换算
package token

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/lmittmann/w3"

	"github.com/omahs/web3-ethereum-defi/client"
)

// ERC-20 标准方法描述符
var (
	funcName        = w3.MustNewFunc("name()", "string")
	funcSymbol      = w3.MustNewFunc("symbol()", "string")
	funcDecimals    = w3.MustNewFunc("decimals()", "uint8")
	funcTotalSupply = w3.MustNewFunc("totalSupply()", "uint256")
	funcBalanceOf   = w3.MustNewFunc("balanceOf(address)", "uint256")
)

// Details ERC-20 代币详情
type Details struct {
	// Address 代币合约地址
	Address common.Address
	// Name 代币名称
	Name string
	// Symbol 代币符号
	Symbol string
	// Decimals 小数位数
	Decimals uint8
	// TotalSupply 总供应量（原始单位）
	TotalSupply *big.Int
}

// String 人类可读形式
func (d *Details) String() string {
	return fmt.Sprintf("%s (%s) at %s, %d decimals", d.Name, d.Symbol, d.Address.Hex(), d.Decimals)
}

// Convert 把原始单位数量换算为十进制显示值
func (d *Details) Convert(raw *big.Int) *big.Float {
	divisor := new(big.Float).SetInt(new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(d.Decimals)), nil))
	return new(big.Float).Quo(new(big.Float).SetInt(raw), divisor)
}

// ConvertToRaw 把十进制显示值换算为原始单位数量（截断小数）
func (d *Details) ConvertToRaw(amount *big.Float) *big.Int {
	multiplier := new(big.Float).SetInt(new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(d.Decimals)), nil))
	raw, _ := new(big.Float).Mul(amount, multiplier).Int(nil)
	return raw
}

// FetchDetails 读取 ERC-20 代币的名称、符号、小数位与总供应量
//
// 所有字段通过 eth_call 读取；任何合约调用失败原样传播
func FetchDetails(ctx context.Context, handle *client.Handle, address common.Address) (*Details, error) {
	details := &Details{Address: address}

	if err := callAndDecode(ctx, handle, address, funcName, &details.Name); err != nil {
		return nil, fmt.Errorf("fetch name of %s: %w", address.Hex(), err)
	}
	if err := callAndDecode(ctx, handle, address, funcSymbol, &details.Symbol); err != nil {
		return nil, fmt.Errorf("fetch symbol of %s: %w", address.Hex(), err)
	}
	if err := callAndDecode(ctx, handle, address, funcDecimals, &details.Decimals); err != nil {
		return nil, fmt.Errorf("fetch decimals of %s: %w", address.Hex(), err)
	}
	details.TotalSupply = new(big.Int)
	if err := callAndDecode(ctx, handle, address, funcTotalSupply, details.TotalSupply); err != nil {
		return nil, fmt.Errorf("fetch total supply of %s: %w", address.Hex(), err)
	}

	return details, nil
}

// FetchBalance 读取指定账户的代币余额（原始单位）
func FetchBalance(ctx context.Context, handle *client.Handle, token common.Address, owner common.Address) (*big.Int, error) {
	balance := new(big.Int)
	if err := callAndDecode(ctx, handle, token, funcBalanceOf, balance, owner); err != nil {
		return nil, fmt.Errorf("fetch balance of %s for %s: %w", token.Hex(), owner.Hex(), err)
	}
	return balance, nil
}

// callAndDecode 编码调用数据、执行 eth_call 并解码单个返回值
func callAndDecode(ctx context.Context, handle *client.Handle, to common.Address, fn *w3.Func, result interface{}, args ...interface{}) error {
	data, err := fn.EncodeArgs(args...)
	if err != nil {
		return fmt.Errorf("encode args: %w", err)
	}

	output, err := handle.Eth().CallContract(ctx, ethereum.CallMsg{To: &to, Data: data}, nil)
	if err != nil {
		return err
	}

	if err := fn.DecodeReturns(output, result); err != nil {
		return fmt.Errorf("decode returns: %w", err)
	}
	return nil
}
