// Package uniswapv3 提供 Uniswap v3 路径编码与价格估算
package uniswapv3

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

// EncodePath 编码 Uniswap v3 swap 路由
//
// 打包布局：address ++ (uint24 fee ++ address)*，地址 20 字节、
// 费率 3 字节大端。exactOutput 为 true 时整条路由反转
// （quoteExactOutput 按输出到输入的顺序遍历）
func EncodePath(path []common.Address, fees []uint32, exactOutput bool) ([]byte, error) {
	if len(path) < 2 {
		return nil, fmt.Errorf("path must contain at least 2 tokens, got %d", len(path))
	}
	if len(fees) != len(path)-1 {
		return nil, fmt.Errorf("fees length must be %d (one per hop), got %d", len(path)-1, len(fees))
	}

	tokens := path
	hopFees := fees
	if exactOutput {
		tokens = reverseAddresses(path)
		hopFees = reverseFees(fees)
	}

	encoded := make([]byte, 0, len(tokens)*20+len(hopFees)*3)
	for i, token := range tokens {
		encoded = append(encoded, token.Bytes()...)
		if i < len(hopFees) {
			fee := hopFees[i]
			encoded = append(encoded, byte(fee>>16), byte(fee>>8), byte(fee))
		}
	}
	return encoded, nil
}

func reverseAddresses(in []common.Address) []common.Address {
	out := make([]common.Address, len(in))
	for i, a := range in {
		out[len(in)-1-i] = a
	}
	return out
}

func reverseFees(in []uint32) []uint32 {
	out := make([]uint32, len(in))
	for i, f := range in {
		out[len(in)-1-i] = f
	}
	return out
}
