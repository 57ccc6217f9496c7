package contract

import (
	"context"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// TestProxy_String 符号名与地址的可读形式
func TestProxy_String(t *testing.T) {
	addr := common.HexToAddress("0x5fbdb2315678afecb367f032d93f642f64180aa3")
	artifact := testArtifact(t)

	named := NewProxy(nil, addr, "Ownable", artifact.ABI)
	if got := named.String(); got != "Ownable<"+addr.Hex()+">" {
		t.Errorf("String() = %s", got)
	}

	anonymous := NewProxy(nil, addr, "", artifact.ABI)
	if got := anonymous.String(); got != addr.Hex() {
		t.Errorf("String() without name = %s, want bare address", got)
	}
}

// TestProxy_Pack 方法调用数据 = 选择器 + 编码参数
func TestProxy_Pack(t *testing.T) {
	artifact := testArtifact(t)
	proxy := NewProxy(nil, common.Address{}, "Ownable", artifact.ABI)

	data, err := proxy.Pack("owner")
	if err != nil {
		t.Fatalf("Pack() error = %v", err)
	}
	if len(data) != 4 {
		t.Errorf("Pack(owner) length = %d, want 4 (selector only)", len(data))
	}

	_, err = proxy.Pack("noSuchMethod")
	if err == nil {
		t.Fatal("Pack() with unknown method should fail")
	}
	if !strings.Contains(err.Error(), "Ownable") {
		t.Errorf("error = %q, should name the contract", err.Error())
	}
}

// TestProxy_CallFunc 只读调用与返回值解包
func TestProxy_CallFunc(t *testing.T) {
	owner := common.HexToAddress("0x1111111111111111111111111111111111111111")

	handle := newTestHandle(t, func(req rpcRequest) string {
		if req.Method == "eth_call" {
			// owner() 返回一个 abi 编码的 address
			word := make([]byte, 32)
			copy(word[12:], owner.Bytes())
			return `"` + hexutil.Encode(word) + `"`
		}
		return ""
	})

	artifact := testArtifact(t)
	proxy := NewProxy(handle, common.HexToAddress(testContractAddress), "Ownable", artifact.ABI)

	results, err := proxy.CallFunc(context.Background(), "owner", nil)
	if err != nil {
		t.Fatalf("CallFunc() error = %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("CallFunc() returned %d values, want 1", len(results))
	}
	if got := results[0].(common.Address); got != owner {
		t.Errorf("owner = %s, want %s", got.Hex(), owner.Hex())
	}
}
