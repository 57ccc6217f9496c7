package client

import (
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

// ContractDescriptor 合约描述符
//
// 注册表存储的符号化合约信息，用于让诊断跟踪输出可读
// contract.Proxy 实现该接口
type ContractDescriptor interface {
	// ContractAddress 合约部署地址
	ContractAddress() common.Address
	// ContractName 合约符号名（可为空）
	ContractName() string
}

// Registry 合约注册表
//
// 地址到符号化合约描述符的映射：
// - 生命周期与所属连接句柄完全一致
// - 条目只追加，不删除；同地址重复注册时覆盖
// - 仅用于诊断跟踪，不参与任何链上逻辑
type Registry struct {
	mu      sync.RWMutex
	entries map[common.Address]ContractDescriptor
}

// Registry 返回句柄的合约注册表，首次访问时创建
//
// 注册表由创建句柄的组件持有，替代在连接对象上挂接全局可变属性
func (h *Handle) Registry() *Registry {
	// 句柄不跨 worker 共享，首次访问无并发竞争
	if h.registry == nil {
		h.registry = &Registry{
			entries: make(map[common.Address]ContractDescriptor),
		}
	}
	return h.registry
}

// Register 存储或覆盖指定地址的条目
func (r *Registry) Register(address common.Address, descriptor ContractDescriptor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[address] = descriptor
}

// Get 返回指定地址的条目，不存在时返回 nil
func (r *Registry) Get(address common.Address) ContractDescriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.entries[address]
}

// Len 返回注册表条目数
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}
