package enzyme

// IntegrationManagerActionID 集成管理器扩展调用的动作标识
//
// 见 Enzyme 协议 IntegrationManager.sol
type IntegrationManagerActionID int

const (
	// CallOnIntegration 通过 adapter 执行集成调用
	CallOnIntegration IntegrationManagerActionID = iota
	// AddTrackedAssetsToVault 向金库添加跟踪资产
	AddTrackedAssetsToVault
	// RemoveTrackedAssetsFromVault 从金库移除跟踪资产
	RemoveTrackedAssetsFromVault
)
