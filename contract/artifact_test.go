package contract

import (
	"strings"
	"testing"
	"testing/fstest"
)

// minimalABI 带一个构造函数与一个方法的 ABI
const minimalABI = `[
	{"type":"constructor","inputs":[{"name":"initialOwner","type":"address"}]},
	{"type":"function","name":"owner","inputs":[],"outputs":[{"name":"","type":"address"}],"stateMutability":"view"}
]`

func TestLoadArtifact(t *testing.T) {
	fsys := fstest.MapFS{
		"abi/Hardhat.json": &fstest.MapFile{
			Data: []byte(`{"abi":` + minimalABI + `,"bytecode":"0x6080604052"}`),
		},
		"abi/Foundry.json": &fstest.MapFile{
			Data: []byte(`{"abi":` + minimalABI + `,"bytecode":{"object":"0x6080604052"}}`),
		},
		"abi/Solc.json": &fstest.MapFile{
			Data: []byte(`{"abi":` + minimalABI + `,"bin":"6080604052"}`),
		},
	}

	tests := []struct {
		name     string
		file     string
		wantName string
	}{
		{
			name:     "hardhat layout",
			file:     "abi/Hardhat.json",
			wantName: "Hardhat",
		},
		{
			name:     "foundry layout",
			file:     "abi/Foundry.json",
			wantName: "Foundry",
		},
		{
			name:     "solc bin field",
			file:     "abi/Solc.json",
			wantName: "Solc",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			artifact, err := LoadArtifact(fsys, tt.file)
			if err != nil {
				t.Fatalf("LoadArtifact() error = %v", err)
			}
			if artifact.ContractName != tt.wantName {
				t.Errorf("ContractName = %s, want %s", artifact.ContractName, tt.wantName)
			}
			if len(artifact.Bytecode) != 5 {
				t.Errorf("Bytecode length = %d, want 5", len(artifact.Bytecode))
			}
			if _, ok := artifact.ABI.Methods["owner"]; !ok {
				t.Error("parsed ABI is missing the owner method")
			}
		})
	}
}

func TestLoadArtifact_Errors(t *testing.T) {
	fsys := fstest.MapFS{
		"bad/NotJSON.json": &fstest.MapFile{
			Data: []byte(`{{{`),
		},
		"bad/NoABI.json": &fstest.MapFile{
			Data: []byte(`{"bytecode":"0x6080"}`),
		},
		"bad/NoBytecode.json": &fstest.MapFile{
			Data: []byte(`{"abi":` + minimalABI + `}`),
		},
		"bad/BadHex.json": &fstest.MapFile{
			Data: []byte(`{"abi":` + minimalABI + `,"bytecode":"0xZZZZ"}`),
		},
	}

	tests := []struct {
		name    string
		file    string
		wantMsg string
	}{
		{
			name:    "missing file",
			file:    "bad/Missing.json",
			wantMsg: "read artifact",
		},
		{
			name:    "malformed json",
			file:    "bad/NotJSON.json",
			wantMsg: "parse artifact",
		},
		{
			name:    "missing abi field",
			file:    "bad/NoABI.json",
			wantMsg: "missing abi field",
		},
		{
			name:    "missing bytecode field",
			file:    "bad/NoBytecode.json",
			wantMsg: "missing bytecode field",
		},
		{
			name:    "bad bytecode hex",
			file:    "bad/BadHex.json",
			wantMsg: "decode bytecode",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadArtifact(fsys, tt.file)
			if err == nil {
				t.Fatal("LoadArtifact() should fail")
			}
			if !strings.Contains(err.Error(), tt.wantMsg) {
				t.Errorf("error = %q, want substring %q", err.Error(), tt.wantMsg)
			}
			// 错误信息必须点名出错文件
			if !strings.Contains(err.Error(), tt.file) {
				t.Errorf("error = %q, should name the file %s", err.Error(), tt.file)
			}
		})
	}
}
