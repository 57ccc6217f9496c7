package contract

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"github.com/omahs/web3-ethereum-defi/client"
)

// Proxy 已部署合约的类型化代理
//
// 绑定部署地址、ABI 与所属连接句柄；实现 client.ContractDescriptor，
// 可直接记入句柄的合约注册表
type Proxy struct {
	handle  *client.Handle
	address common.Address
	name    string
	abi     abi.ABI
}

// NewProxy 把地址包装成合约代理
func NewProxy(handle *client.Handle, address common.Address, name string, contractABI abi.ABI) *Proxy {
	return &Proxy{
		handle:  handle,
		address: address,
		name:    name,
		abi:     contractABI,
	}
}

// ContractAddress 实现 client.ContractDescriptor
func (p *Proxy) ContractAddress() common.Address {
	return p.address
}

// ContractName 实现 client.ContractDescriptor
func (p *Proxy) ContractName() string {
	return p.name
}

// Address ContractAddress 的简写
func (p *Proxy) Address() common.Address {
	return p.address
}

// ABI 返回合约 ABI
func (p *Proxy) ABI() abi.ABI {
	return p.abi
}

// Handle 返回所属连接句柄
func (p *Proxy) Handle() *client.Handle {
	return p.handle
}

// String 人类可读形式，用于诊断跟踪
func (p *Proxy) String() string {
	if p.name != "" {
		return fmt.Sprintf("%s<%s>", p.name, p.address.Hex())
	}
	return p.address.Hex()
}

// Pack 编码方法调用数据（函数选择器 + ABI 编码参数）
func (p *Proxy) Pack(method string, args ...interface{}) ([]byte, error) {
	data, err := p.abi.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("pack %s.%s: %w", p.String(), method, err)
	}
	return data, nil
}

// CallFunc 只读调用合约方法（eth_call），返回解包后的结果
//
// blockNumber 为 nil 时查询最新区块
func (p *Proxy) CallFunc(ctx context.Context, method string, blockNumber *big.Int, args ...interface{}) ([]interface{}, error) {
	data, err := p.Pack(method, args...)
	if err != nil {
		return nil, err
	}

	msg := ethereum.CallMsg{
		To:   &p.address,
		Data: data,
	}
	output, err := p.handle.Eth().CallContract(ctx, msg, blockNumber)
	if err != nil {
		return nil, fmt.Errorf("call %s.%s: %w", p.String(), method, err)
	}

	results, err := p.abi.Unpack(method, output)
	if err != nil {
		return nil, fmt.Errorf("unpack %s.%s result: %w", p.String(), method, err)
	}
	return results, nil
}
