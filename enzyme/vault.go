package enzyme

import (
	"github.com/ethereum/go-ethereum/common"

	"github.com/omahs/web3-ethereum-defi/contract"
)

// Vault Enzyme 金库部署
//
// 金库本体、comptroller（管理代理）、generic adapter 与
// integration manager 的合约代理集合。
//
// 注意：默认的 GenericAdapter 实现未对恶意或错误配置的 adapter
// 做任何校验（协议层已知的宽松行为）。本包保持同样的宽松语义，
// 不额外发明校验
type Vault struct {
	// Vault 金库合约
	Vault *contract.Proxy
	// Comptroller 金库的管理代理，授权并路由扩展调用
	Comptroller *contract.Proxy
	// GenericAdapter 执行外部调用批次的扩展合约
	GenericAdapter *contract.Proxy
	// IntegrationManager 扩展调用的入口管理器
	IntegrationManager *contract.Proxy
}

// NewVault 组装金库部署
func NewVault(vault, comptroller, genericAdapter, integrationManager *contract.Proxy) *Vault {
	return &Vault{
		Vault:              vault,
		Comptroller:        comptroller,
		GenericAdapter:     genericAdapter,
		IntegrationManager: integrationManager,
	}
}

// Address 金库地址
func (v *Vault) Address() common.Address {
	return v.Vault.Address()
}
