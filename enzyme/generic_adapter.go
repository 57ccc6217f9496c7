// Package enzyme 提供 Enzyme 金库 generic adapter 的调用参数编码
// 与金库控制的交易签名钱包
//
// generic adapter 是金库的扩展合约，代表金库执行一批任意外部调用，
// 受声明的资产增减界限约束。编码布局是外部金库标准的协议要求
// （定长头 + 动态尾、32 字节字对齐），不是本包的设计选择
package enzyme

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/lmittmann/w3"
	"go.uber.org/zap"
)

// funcExecuteCalls generic adapter 的入口函数描述符
var funcExecuteCalls = w3.MustNewFunc("executeCalls(address,bytes,bytes)", "")

// ExecuteCallsSelector executeCalls 的 4 字节函数选择器
var ExecuteCallsSelector = funcExecuteCalls.Selector[:]

// funcCallOnExtension 金库 comptroller 的扩展调用入口
//
// 见 ComptrollerLib.sol
var funcCallOnExtension = w3.MustNewFunc("callOnExtension(address,uint256,bytes)", "")

// mustABIType 解析 ABI 类型描述，仅用于包级常量
func mustABIType(t string) abi.Type {
	typ, err := abi.NewType(t, "", nil)
	if err != nil {
		panic(fmt.Sprintf("bad abi type %q: %v", t, err))
	}
	return typ
}

var (
	typeAddress      = mustABIType("address")
	typeAddressSlice = mustABIType("address[]")
	typeUint256Slice = mustABIType("uint256[]")
	typeBytes        = mustABIType("bytes")
	typeBytes4       = mustABIType("bytes4")
	typeBytesSlice   = mustABIType("bytes[]")
)

// externalCallsArguments 第一阶段元组 (address[], bytes[])
var externalCallsArguments = abi.Arguments{
	{Type: typeAddressSlice},
	{Type: typeBytesSlice},
}

// executeCallsArguments 第二阶段元组
// (address[], uint256[], address[], uint256[], bytes)
var executeCallsArguments = abi.Arguments{
	{Type: typeAddressSlice},
	{Type: typeUint256Slice},
	{Type: typeAddressSlice},
	{Type: typeUint256Slice},
	{Type: typeBytes},
}

// callOnIntegrationArguments (address, bytes4, bytes)
var callOnIntegrationArguments = abi.Arguments{
	{Type: typeAddress},
	{Type: typeBytes4},
	{Type: typeBytes},
}

// EncodeExecuteCallsArgs 编码 generic adapter executeCalls 的参数块
//
// 两阶段定长/动态 ABI 编码：
// 1. 外部调用列表编码为 (目标地址数组, 调用数据数组) 元组
// 2. 外层元组 (流入资产地址, 最小流入数量, 流出资产地址, 流出数量, 第一阶段字节)
//
// 列表参数按位置两两配对（incomingAssets[i] 对应 minIncomingAmounts[i]）；
// 任何长度不匹配或无法解析的资产引用抛出点名出错值的编码错误
func EncodeExecuteCallsArgs(
	incomingAssets []Asset,
	minIncomingAmounts []*big.Int,
	spendAssets []Asset,
	spendAmounts []*big.Int,
	externalCalls []ExternalCall,
) ([]byte, error) {
	if len(incomingAssets) != len(minIncomingAmounts) {
		return nil, newEncodingError(
			fmt.Sprintf("incoming assets (%d) and min incoming amounts (%d) do not pair up",
				len(incomingAssets), len(minIncomingAmounts)), nil)
	}
	if len(spendAssets) != len(spendAmounts) {
		return nil, newEncodingError(
			fmt.Sprintf("spend assets (%d) and spend amounts (%d) do not pair up",
				len(spendAssets), len(spendAmounts)), nil)
	}
	if len(externalCalls) == 0 {
		return nil, newEncodingError("adapter invocation needs at least one external call", nil)
	}
	if err := checkAmounts(minIncomingAmounts); err != nil {
		return nil, err
	}
	if err := checkAmounts(spendAmounts); err != nil {
		return nil, err
	}

	// 第一阶段：外部调用元组
	targets := make([]common.Address, len(externalCalls))
	datas := make([][]byte, len(externalCalls))
	for i, call := range externalCalls {
		addr, err := call.Target.Resolve()
		if err != nil {
			return nil, err
		}
		targets[i] = addr
		datas[i] = call.Data
	}

	encodedExternalCalls, err := externalCallsArguments.Pack(targets, datas)
	if err != nil {
		return nil, newEncodingError(
			fmt.Sprintf("could not encode external calls %v", targets), err)
	}

	// 第二阶段：外层元组
	incoming, err := resolveAssets(incomingAssets)
	if err != nil {
		return nil, err
	}
	spend, err := resolveAssets(spendAssets)
	if err != nil {
		return nil, err
	}

	encoded, err := executeCallsArguments.Pack(
		incoming,
		minIncomingAmounts,
		spend,
		spendAmounts,
		encodedExternalCalls,
	)
	if err != nil {
		return nil, newEncodingError("could not encode execute calls args", err)
	}

	return encoded, nil
}

// EncodeCallOnIntegrationArgs 编码金库 "call on integration" 外包封装
//
// (adapter 地址, 4 字节函数选择器, 第二阶段参数块)
func EncodeCallOnIntegrationArgs(adapter Asset, selector []byte, encodedCallArgs []byte) ([]byte, error) {
	if len(selector) != 4 {
		return nil, newEncodingError(
			fmt.Sprintf("selector must be exactly 4 bytes, got %d", len(selector)), selector)
	}
	if len(encodedCallArgs) == 0 {
		return nil, newEncodingError("encoded call args must not be empty", nil)
	}

	adapterAddr, err := adapter.Resolve()
	if err != nil {
		return nil, err
	}

	var sel [4]byte
	copy(sel[:], selector)

	encoded, err := callOnIntegrationArguments.Pack(adapterAddr, sel, encodedCallArgs)
	if err != nil {
		return nil, newEncodingError("could not encode call on integration args", err)
	}
	return encoded, nil
}

// EncodeCallOnExtension 编码 comptroller callOnExtension 的调用数据
func EncodeCallOnExtension(extension common.Address, actionID IntegrationManagerActionID, callArgs []byte) ([]byte, error) {
	data, err := funcCallOnExtension.EncodeArgs(extension, big.NewInt(int64(actionID)), callArgs)
	if err != nil {
		return nil, newEncodingError("could not encode callOnExtension", err)
	}
	return data, nil
}

// PreparedCall 构建好（未提交）的合约调用
type PreparedCall struct {
	// To 目标合约地址
	To common.Address
	// Data 调用数据
	Data []byte
}

// ExecuteCallsForGenericAdapter 构建通过 generic adapter 的金库买卖交易
//
// 组合两阶段参数编码与 call on integration 封装，然后产出指向
// comptroller callOnExtension(integrationManager, CallOnIntegration, args)
// 的调用数据。只构建，不提交
func ExecuteCallsForGenericAdapter(
	vault *Vault,
	externalCalls []ExternalCall,
	incomingAssets []Asset,
	minIncomingAmounts []*big.Int,
	spendAssets []Asset,
	spendAmounts []*big.Int,
	logger *zap.Logger,
) (*PreparedCall, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	// 合法性检查，与编码预条件一致
	if vault == nil || vault.Comptroller == nil || vault.GenericAdapter == nil || vault.IntegrationManager == nil {
		return nil, newEncodingError("vault deployment is incomplete", vault)
	}
	logger.Info("executeCalls for generic adapter",
		zap.Stringer("comptroller", vault.Comptroller),
		zap.Stringer("generic_adapter", vault.GenericAdapter),
		zap.Stringer("integration_manager", vault.IntegrationManager),
		zap.Int("external_calls", len(externalCalls)),
		zap.Int("incoming_assets", len(incomingAssets)),
		zap.Int("spend_assets", len(spendAssets)),
	)

	if len(externalCalls) == 0 {
		return nil, newEncodingError("adapter invocation needs at least one external call", nil)
	}
	if len(incomingAssets) == 0 {
		return nil, newEncodingError("at least one incoming asset required", nil)
	}
	if len(spendAssets) == 0 {
		return nil, newEncodingError("at least one spend asset required", nil)
	}

	executeCallArgs, err := EncodeExecuteCallsArgs(
		incomingAssets,
		minIncomingAmounts,
		spendAssets,
		spendAmounts,
		externalCalls,
	)
	if err != nil {
		return nil, err
	}

	callArgs, err := EncodeCallOnIntegrationArgs(
		AssetFromProxy(vault.GenericAdapter),
		ExecuteCallsSelector,
		executeCallArgs,
	)
	if err != nil {
		return nil, err
	}

	data, err := EncodeCallOnExtension(vault.IntegrationManager.Address(), CallOnIntegration, callArgs)
	if err != nil {
		return nil, err
	}

	return &PreparedCall{
		To:   vault.Comptroller.Address(),
		Data: data,
	}, nil
}

// checkAmounts 校验数量列表中没有 nil
func checkAmounts(amounts []*big.Int) error {
	for i, a := range amounts {
		if a == nil {
			return newEncodingError(fmt.Sprintf("amount at index %d is nil", i), amounts)
		}
	}
	return nil
}
