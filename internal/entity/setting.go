package entity

// Setting 全局配置项, value 为 JSON 串
type Setting struct {
	Key   string `gorm:"primaryKey"`
	Value string `gorm:"type:text"`
}

// SettingKeyGlobalConfig holds the exchange / risk / notification settings
// blob written by the settings API.
const SettingKeyGlobalConfig = "global_config"
