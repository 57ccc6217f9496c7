package enzyme

import (
	"bytes"
	"encoding/binary"
	"math/big"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

var (
	incomingToken = common.HexToAddress("0x2791bca1f2de4661ed88a30c99a7a9449aa84174") // USDC
	spendToken    = common.HexToAddress("0x7ceb23fd6bc0add59e62ac25578270cff1b9f619") // WETH
	targetAddr    = common.HexToAddress("0x1111111111111111111111111111111111111111")
	adapterAddr   = common.HexToAddress("0x2222222222222222222222222222222222222222")
)

// testTargetABI 带 approve 方法的最小 ABI
func testTargetABI(t *testing.T) abi.ABI {
	t.Helper()
	parsed, err := abi.JSON(strings.NewReader(`[
		{"type":"function","name":"approve","inputs":[
			{"name":"spender","type":"address"},
			{"name":"amount","type":"uint256"}
		],"outputs":[{"name":"","type":"bool"}]}
	]`))
	if err != nil {
		t.Fatalf("parse test abi: %v", err)
	}
	return parsed
}

// TestExecuteCallsSelector 选择器等于函数签名 keccak 的前 4 字节
func TestExecuteCallsSelector(t *testing.T) {
	want := crypto.Keccak256([]byte("executeCalls(address,bytes,bytes)"))[:4]
	if !bytes.Equal(ExecuteCallsSelector, want) {
		t.Errorf("ExecuteCallsSelector = %x, want %x", ExecuteCallsSelector, want)
	}
}

// TestEncodeExecuteCallsArgs_Roundtrip 编码结果用同一 ABI 布局解包后
// 与输入一致（外层元组与内嵌的外部调用元组都要能解回来）
func TestEncodeExecuteCallsArgs_Roundtrip(t *testing.T) {
	callData := []byte{0xde, 0xad, 0xbe, 0xef}
	minIncoming := big.NewInt(100_000_000)
	spendAmount := big.NewInt(2_000_000_000_000_000_000)

	encoded, err := EncodeExecuteCallsArgs(
		[]Asset{AssetFromAddress(incomingToken)},
		[]*big.Int{minIncoming},
		[]Asset{AssetFromAddress(spendToken)},
		[]*big.Int{spendAmount},
		[]ExternalCall{{Target: AssetFromAddress(targetAddr), Data: callData}},
	)
	if err != nil {
		t.Fatalf("EncodeExecuteCallsArgs() error = %v", err)
	}

	// 第 1 个字是流入资产数组的偏移，指向定长头之后（5 个头字 = 0xa0），
	// 偏移处是合法的 address[] 头尾编码
	offset := new(big.Int).SetBytes(encoded[:32]).Uint64()
	if offset != 5*32 {
		t.Errorf("incoming assets offset = %#x, want 0xa0", offset)
	}
	arrayLen := new(big.Int).SetBytes(encoded[offset : offset+32]).Uint64()
	if arrayLen != 1 {
		t.Errorf("incoming assets length = %d, want 1", arrayLen)
	}
	if got := common.BytesToAddress(encoded[offset+32+12 : offset+64]); got != incomingToken {
		t.Errorf("incoming asset at offset = %s, want %s", got.Hex(), incomingToken.Hex())
	}

	outer, err := executeCallsArguments.Unpack(encoded)
	if err != nil {
		t.Fatalf("unpack outer tuple: %v", err)
	}

	incoming := outer[0].([]common.Address)
	if len(incoming) != 1 || incoming[0] != incomingToken {
		t.Errorf("incoming assets = %v", incoming)
	}
	minAmounts := outer[1].([]*big.Int)
	if len(minAmounts) != 1 || minAmounts[0].Cmp(minIncoming) != 0 {
		t.Errorf("min incoming amounts = %v", minAmounts)
	}
	spend := outer[2].([]common.Address)
	if len(spend) != 1 || spend[0] != spendToken {
		t.Errorf("spend assets = %v", spend)
	}
	spendAmounts := outer[3].([]*big.Int)
	if len(spendAmounts) != 1 || spendAmounts[0].Cmp(spendAmount) != 0 {
		t.Errorf("spend amounts = %v", spendAmounts)
	}

	// 内嵌的外部调用元组
	inner, err := externalCallsArguments.Unpack(outer[4].([]byte))
	if err != nil {
		t.Fatalf("unpack inner tuple: %v", err)
	}
	targets := inner[0].([]common.Address)
	if len(targets) != 1 || targets[0] != targetAddr {
		t.Errorf("external call targets = %v", targets)
	}
	datas := inner[1].([][]byte)
	if len(datas) != 1 || !bytes.Equal(datas[0], callData) {
		t.Errorf("external call data = %x", datas)
	}
}

// TestEncodeExecuteCallsArgs_EmptyAssetLists 空资产列表合法
// （例如 approve 这种不产生余额变化的调用）
func TestEncodeExecuteCallsArgs_EmptyAssetLists(t *testing.T) {
	encoded, err := EncodeExecuteCallsArgs(
		nil, nil, nil, nil,
		[]ExternalCall{{Target: AssetFromAddress(targetAddr), Data: []byte{0x01}}},
	)
	if err != nil {
		t.Fatalf("EncodeExecuteCallsArgs() error = %v", err)
	}

	outer, err := executeCallsArguments.Unpack(encoded)
	if err != nil {
		t.Fatalf("unpack: %v", err)
	}
	if len(outer[0].([]common.Address)) != 0 {
		t.Error("incoming assets should be empty")
	}
}

// TestEncodeExecuteCallsArgs_Errors 形状不匹配立即失败，不做部分编码
func TestEncodeExecuteCallsArgs_Errors(t *testing.T) {
	oneCall := []ExternalCall{{Target: AssetFromAddress(targetAddr), Data: []byte{0x01}}}

	tests := []struct {
		name string
		run  func() ([]byte, error)
		want string
	}{
		{
			name: "incoming pairing mismatch",
			run: func() ([]byte, error) {
				return EncodeExecuteCallsArgs(
					[]Asset{AssetFromAddress(incomingToken)},
					nil, nil, nil, oneCall)
			},
			want: "do not pair up",
		},
		{
			name: "spend pairing mismatch",
			run: func() ([]byte, error) {
				return EncodeExecuteCallsArgs(
					nil, nil,
					[]Asset{AssetFromAddress(spendToken)},
					[]*big.Int{big.NewInt(1), big.NewInt(2)}, oneCall)
			},
			want: "do not pair up",
		},
		{
			name: "no external calls",
			run: func() ([]byte, error) {
				return EncodeExecuteCallsArgs(nil, nil, nil, nil, nil)
			},
			want: "at least one external call",
		},
		{
			name: "nil amount",
			run: func() ([]byte, error) {
				return EncodeExecuteCallsArgs(
					[]Asset{AssetFromAddress(incomingToken)},
					[]*big.Int{nil},
					nil, nil, oneCall)
			},
			want: "is nil",
		},
		{
			name: "unresolvable asset",
			run: func() ([]byte, error) {
				return EncodeExecuteCallsArgs(
					[]Asset{{}},
					[]*big.Int{big.NewInt(1)},
					nil, nil, oneCall)
			},
			want: "got bad asset",
		},
		{
			name: "unresolvable call target",
			run: func() ([]byte, error) {
				return EncodeExecuteCallsArgs(nil, nil, nil, nil,
					[]ExternalCall{{Target: Asset{}, Data: []byte{0x01}}})
			},
			want: "got bad asset",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.run()
			if err == nil {
				t.Fatal("encoding should fail")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error = %q, want substring %q", err.Error(), tt.want)
			}
		})
	}
}

// TestEncodeCallOnIntegrationArgs_Layout 验证外包封装的字布局：
// 第 1 字 adapter 地址、第 2 字左对齐选择器、第 3 字动态 bytes 偏移
func TestEncodeCallOnIntegrationArgs_Layout(t *testing.T) {
	callArgs := []byte{0x01, 0x02, 0x03}
	encoded, err := EncodeCallOnIntegrationArgs(AssetFromAddress(adapterAddr), ExecuteCallsSelector, callArgs)
	if err != nil {
		t.Fatalf("EncodeCallOnIntegrationArgs() error = %v", err)
	}

	// 定长头 3 字 + bytes 长度字 + 数据补齐 1 字
	if len(encoded) != 5*32 {
		t.Fatalf("encoded length = %d, want %d", len(encoded), 5*32)
	}

	// 第 1 字：地址右对齐
	if !bytes.Equal(encoded[12:32], adapterAddr.Bytes()) {
		t.Errorf("word 0 = %x, want adapter address", encoded[:32])
	}
	// 第 2 字：bytes4 左对齐
	if !bytes.Equal(encoded[32:36], ExecuteCallsSelector) {
		t.Errorf("word 1 = %x, want selector prefix", encoded[32:64])
	}
	// 第 3 字：动态 bytes 的偏移指向定长头之后（0x60）
	offset := binary.BigEndian.Uint64(encoded[88:96])
	if offset != 0x60 {
		t.Errorf("bytes offset = %#x, want 0x60", offset)
	}
	// 第 4 字：bytes 长度
	length := binary.BigEndian.Uint64(encoded[120:128])
	if length != uint64(len(callArgs)) {
		t.Errorf("bytes length = %d, want %d", length, len(callArgs))
	}

	// 解包回原值
	decoded, err := callOnIntegrationArguments.Unpack(encoded)
	if err != nil {
		t.Fatalf("unpack: %v", err)
	}
	if decoded[0].(common.Address) != adapterAddr {
		t.Errorf("decoded adapter = %v", decoded[0])
	}
	sel := decoded[1].([4]byte)
	if !bytes.Equal(sel[:], ExecuteCallsSelector) {
		t.Errorf("decoded selector = %x", sel)
	}
	if !bytes.Equal(decoded[2].([]byte), callArgs) {
		t.Errorf("decoded call args = %x", decoded[2])
	}
}

// TestEncodeCallOnIntegrationArgs_Errors 选择器长度与空参数校验
func TestEncodeCallOnIntegrationArgs_Errors(t *testing.T) {
	adapter := AssetFromAddress(adapterAddr)

	if _, err := EncodeCallOnIntegrationArgs(adapter, []byte{0x01, 0x02}, []byte{0x01}); err == nil {
		t.Error("2-byte selector should be rejected")
	}
	if _, err := EncodeCallOnIntegrationArgs(adapter, make([]byte, 32), []byte{0x01}); err == nil {
		t.Error("32-byte selector should be rejected")
	}
	if _, err := EncodeCallOnIntegrationArgs(adapter, ExecuteCallsSelector, nil); err == nil {
		t.Error("empty call args should be rejected")
	}
	if _, err := EncodeCallOnIntegrationArgs(Asset{}, ExecuteCallsSelector, []byte{0x01}); err == nil {
		t.Error("unresolvable adapter should be rejected")
	}
}

// TestEncodeCallOnExtension 调用数据以 callOnExtension 选择器开头，
// 参数可解码回来
func TestEncodeCallOnExtension(t *testing.T) {
	manager := common.HexToAddress("0x3333333333333333333333333333333333333333")
	callArgs := []byte{0xca, 0xfe}

	data, err := EncodeCallOnExtension(manager, CallOnIntegration, callArgs)
	if err != nil {
		t.Fatalf("EncodeCallOnExtension() error = %v", err)
	}

	wantSelector := crypto.Keccak256([]byte("callOnExtension(address,uint256,bytes)"))[:4]
	if !bytes.Equal(data[:4], wantSelector) {
		t.Errorf("selector = %x, want %x", data[:4], wantSelector)
	}

	var (
		extension common.Address
		actionID  = new(big.Int)
		decoded   []byte
	)
	if err := funcCallOnExtension.DecodeArgs(data, &extension, actionID, &decoded); err != nil {
		t.Fatalf("decode args: %v", err)
	}
	if extension != manager {
		t.Errorf("extension = %s, want %s", extension.Hex(), manager.Hex())
	}
	if actionID.Int64() != int64(CallOnIntegration) {
		t.Errorf("action id = %d, want %d", actionID.Int64(), CallOnIntegration)
	}
	if !bytes.Equal(decoded, callArgs) {
		t.Errorf("call args = %x, want %x", decoded, callArgs)
	}
}

// TestExecuteCallsForGenericAdapter 组合编码产出指向 comptroller 的调用
func TestExecuteCallsForGenericAdapter(t *testing.T) {
	vault := testVault(t)

	prepared, err := ExecuteCallsForGenericAdapter(
		vault,
		[]ExternalCall{{Target: AssetFromAddress(targetAddr), Data: []byte{0x01}}},
		[]Asset{AssetFromAddress(incomingToken)},
		[]*big.Int{big.NewInt(1)},
		[]Asset{AssetFromAddress(spendToken)},
		[]*big.Int{big.NewInt(2)},
		nil,
	)
	if err != nil {
		t.Fatalf("ExecuteCallsForGenericAdapter() error = %v", err)
	}

	if prepared.To != vault.Comptroller.Address() {
		t.Errorf("To = %s, want comptroller", prepared.To.Hex())
	}

	// 外层封装解码：extension 是 integration manager，动作是 CallOnIntegration
	var (
		extension common.Address
		actionID  = new(big.Int)
		callArgs  []byte
	)
	if err := funcCallOnExtension.DecodeArgs(prepared.Data, &extension, actionID, &callArgs); err != nil {
		t.Fatalf("decode callOnExtension: %v", err)
	}
	if extension != vault.IntegrationManager.Address() {
		t.Errorf("extension = %s, want integration manager", extension.Hex())
	}
	if actionID.Int64() != int64(CallOnIntegration) {
		t.Errorf("action id = %d, want CallOnIntegration", actionID.Int64())
	}

	// call on integration 封装指向 generic adapter 与 executeCalls 选择器
	decoded, err := callOnIntegrationArguments.Unpack(callArgs)
	if err != nil {
		t.Fatalf("unpack call args: %v", err)
	}
	if decoded[0].(common.Address) != vault.GenericAdapter.Address() {
		t.Errorf("adapter = %v, want generic adapter", decoded[0])
	}
	sel := decoded[1].([4]byte)
	if !bytes.Equal(sel[:], ExecuteCallsSelector) {
		t.Errorf("selector = %x, want executeCalls", sel)
	}
}

// TestExecuteCallsForGenericAdapter_Validation 入参校验
func TestExecuteCallsForGenericAdapter_Validation(t *testing.T) {
	vault := testVault(t)
	oneCall := []ExternalCall{{Target: AssetFromAddress(targetAddr), Data: []byte{0x01}}}
	oneAsset := []Asset{AssetFromAddress(incomingToken)}
	oneAmount := []*big.Int{big.NewInt(1)}

	if _, err := ExecuteCallsForGenericAdapter(nil, oneCall, oneAsset, oneAmount, oneAsset, oneAmount, nil); err == nil {
		t.Error("nil vault should be rejected")
	}
	if _, err := ExecuteCallsForGenericAdapter(&Vault{}, oneCall, oneAsset, oneAmount, oneAsset, oneAmount, nil); err == nil {
		t.Error("incomplete vault deployment should be rejected")
	}
	if _, err := ExecuteCallsForGenericAdapter(vault, nil, oneAsset, oneAmount, oneAsset, oneAmount, nil); err == nil {
		t.Error("empty external calls should be rejected")
	}
	if _, err := ExecuteCallsForGenericAdapter(vault, oneCall, nil, nil, oneAsset, oneAmount, nil); err == nil {
		t.Error("empty incoming assets should be rejected")
	}
	if _, err := ExecuteCallsForGenericAdapter(vault, oneCall, oneAsset, oneAmount, nil, nil, nil); err == nil {
		t.Error("empty spend assets should be rejected")
	}
}
