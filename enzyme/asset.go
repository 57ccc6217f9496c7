package enzyme

import (
	"github.com/ethereum/go-ethereum/common"

	"github.com/omahs/web3-ethereum-defi/contract"
)

// Asset 资产引用
//
// 原始地址或已部署合约代理的带标签变体，编码前必须解析为原始地址；
// 解析是全函数：任何其他形状立即报错
type Asset struct {
	kind  assetKind
	addr  common.Address
	proxy *contract.Proxy
}

type assetKind int

const (
	assetInvalid assetKind = iota
	assetAddress
	assetProxy
)

// AssetFromAddress 用原始地址构造资产引用
func AssetFromAddress(address common.Address) Asset {
	return Asset{kind: assetAddress, addr: address}
}

// AssetFromProxy 用合约代理构造资产引用
func AssetFromProxy(proxy *contract.Proxy) Asset {
	return Asset{kind: assetProxy, proxy: proxy}
}

// Resolve 解析为原始地址
func (a Asset) Resolve() (common.Address, error) {
	switch a.kind {
	case assetAddress:
		return a.addr, nil
	case assetProxy:
		if a.proxy == nil {
			return common.Address{}, newEncodingError("got bad asset: nil proxy", nil)
		}
		return a.proxy.Address(), nil
	default:
		return common.Address{}, newEncodingError("got bad asset", a)
	}
}

// String 人类可读形式
func (a Asset) String() string {
	switch a.kind {
	case assetAddress:
		return a.addr.Hex()
	case assetProxy:
		if a.proxy == nil {
			return "<nil proxy>"
		}
		return a.proxy.String()
	default:
		return "<invalid asset>"
	}
}

// resolveAssets 解析资产引用列表
func resolveAssets(assets []Asset) ([]common.Address, error) {
	addresses := make([]common.Address, len(assets))
	for i, a := range assets {
		addr, err := a.Resolve()
		if err != nil {
			return nil, err
		}
		addresses[i] = addr
	}
	return addresses, nil
}

// ExternalCall 外部调用元组（目标合约，调用数据）
//
// 零个或多个外部调用组成一次 adapter 调用；
// 有效的 adapter 调用至少要有一个外部调用
type ExternalCall struct {
	// Target 调用目标
	Target Asset
	// Data 不透明调用数据
	Data []byte
}
