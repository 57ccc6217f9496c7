// Package contract 提供合约部署与符号化注册能力
//
// 部署任何预编译合约：从 Hardhat/Foundry 风格的 artifact JSON 解析
// ABI 与创建字节码，提交构造交易并等待回执，最后把部署地址包装成
// 类型化代理并记入连接句柄的注册表
package contract

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io/fs"
	"path"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

// Artifact 已解析的编译产物
//
// 取代"字符串名字或合约代理二选一"的隐式参数：部署入口显式接受
// *Artifact，按名加载通过 LoadArtifact 完成
type Artifact struct {
	// ContractName 合约符号名（取自文件名，不含扩展名）
	ContractName string
	// ABI 合约 ABI
	ABI abi.ABI
	// Bytecode 创建字节码
	Bytecode []byte
}

// artifactJSON Hardhat/Foundry artifact 文件的字段超集
type artifactJSON struct {
	ABI      json.RawMessage `json:"abi"`
	Bytecode json.RawMessage `json:"bytecode"`
	Bin      string          `json:"bin"`
}

// foundryBytecode Foundry 把字节码包在对象里
type foundryBytecode struct {
	Object string `json:"object"`
}

// LoadArtifact 从文件系统读取并解析 artifact JSON
//
// 支持两种布局：
// - Hardhat：{"abi": [...], "bytecode": "0x..."}
// - Foundry：{"abi": [...], "bytecode": {"object": "0x..."}}
//
// 解析失败时错误信息带上文件名与出错字段
func LoadArtifact(fsys fs.FS, name string) (*Artifact, error) {
	data, err := fs.ReadFile(fsys, name)
	if err != nil {
		return nil, fmt.Errorf("read artifact %s: %w", name, err)
	}

	var raw artifactJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse artifact %s: %w", name, err)
	}

	if len(raw.ABI) == 0 {
		return nil, fmt.Errorf("artifact %s: missing abi field", name)
	}

	parsedABI, err := abi.JSON(bytes.NewReader(raw.ABI))
	if err != nil {
		return nil, fmt.Errorf("artifact %s: parse abi: %w", name, err)
	}

	bytecodeHex, err := extractBytecodeHex(raw)
	if err != nil {
		return nil, fmt.Errorf("artifact %s: %w", name, err)
	}

	bytecode, err := hex.DecodeString(strings.TrimPrefix(bytecodeHex, "0x"))
	if err != nil {
		return nil, fmt.Errorf("artifact %s: decode bytecode: %w", name, err)
	}

	contractName := strings.TrimSuffix(path.Base(name), path.Ext(name))

	return &Artifact{
		ContractName: contractName,
		ABI:          parsedABI,
		Bytecode:     bytecode,
	}, nil
}

// extractBytecodeHex 提取字节码的十六进制字符串
func extractBytecodeHex(raw artifactJSON) (string, error) {
	if len(raw.Bytecode) > 0 {
		// 字符串形式（Hardhat）
		var s string
		if err := json.Unmarshal(raw.Bytecode, &s); err == nil {
			return s, nil
		}
		// 对象形式（Foundry）
		var obj foundryBytecode
		if err := json.Unmarshal(raw.Bytecode, &obj); err == nil && obj.Object != "" {
			return obj.Object, nil
		}
		return "", fmt.Errorf("unrecognized bytecode field")
	}
	if raw.Bin != "" {
		return raw.Bin, nil
	}
	return "", fmt.Errorf("missing bytecode field")
}
