package wallet

import (
	"fmt"
	"os"

	"github.com/ethereum/go-ethereum/accounts/keystore"
)

// NewFromKeystore 从加密的 keystore JSON 文件加载热钱包
//
// 文件格式为标准的以太坊 keystore v3（scrypt/pbkdf2），
// 解密委托给 go-ethereum 的 keystore 实现
func NewFromKeystore(path string, password string) (*HotWallet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read keystore %s: %w", path, err)
	}

	key, err := keystore.DecryptKey(data, password)
	if err != nil {
		return nil, fmt.Errorf("decrypt keystore %s: %w", path, err)
	}

	return New(key.PrivateKey), nil
}
