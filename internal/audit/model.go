package audit

import "time"

// Changelog 用户维度的变更记录（追加写入，按用户限量保留）。
type Changelog struct {
	ID          string    `gorm:"primaryKey;size:36"`
	UserID      string    `gorm:"index;size:36;not null"`
	Description string    `gorm:"size:1024;not null"`
	CreatedAt   time.Time `gorm:"autoCreateTime;index"`
}

// VehicleChangelog 车辆维度的变更记录。
type VehicleChangelog struct {
	ID          string    `gorm:"primaryKey;size:36"`
	VehicleID   string    `gorm:"index;size:36;not null"`
	UserID      string    `gorm:"index;size:36;not null"`
	Description string    `gorm:"size:1024;not null"`
	CreatedAt   time.Time `gorm:"autoCreateTime;index"`
}

// 应用日志级别。
const (
	LevelInfo  = "INFO"
	LevelError = "ERROR"
)

// AppLog 请求级应用日志（全局限量保留）。
type AppLog struct {
	ID        string    `gorm:"primaryKey;size:36"`
	UserID    string    `gorm:"index;size:36"` // 未登录请求为空
	Event     string    `gorm:"size:255;not null"`
	Duration  float64   `gorm:"not null"` // 毫秒
	Level     string    `gorm:"size:8;not null"`
	Data      string    `gorm:"size:2048"` // 序列化后的请求信息
	CreatedAt time.Time `gorm:"autoCreateTime;index"`
}
