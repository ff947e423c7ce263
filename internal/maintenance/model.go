package maintenance

import "time"

// TimeUnit 保养周期的时间单位。
type TimeUnit string

const (
	UnitDay   TimeUnit = "DAY"
	UnitWeek  TimeUnit = "WEEK"
	UnitMonth TimeUnit = "MONTH"
	UnitYear  TimeUnit = "YEAR"
)

// ScheduledServiceType 用户自定义的保养类别（如 Oil Change），
// 名称在用户内唯一，应用到车辆前与任何车辆无关。
type ScheduledServiceType struct {
	ID        string    `gorm:"primaryKey;size:36"`
	UserID    string    `gorm:"index:idx_sst_user_name,unique;size:36;not null"`
	Name      string    `gorm:"index:idx_sst_user_name,unique;size:128;not null"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

// ScheduledServiceInstance 把保养类别应用到某辆车：
// 同一 (vehicle, type) 至多一条。
type ScheduledServiceInstance struct {
	ID                     string    `gorm:"primaryKey;size:36"`
	UserID                 string    `gorm:"index;size:36;not null"`
	VehicleID              string    `gorm:"index:idx_ssi_vehicle_type,unique;size:36;not null"`
	ScheduledServiceTypeID string    `gorm:"index:idx_ssi_vehicle_type,unique;size:36;not null"`
	MileInterval           int       `gorm:"not null"`
	TimeInterval           int       `gorm:"not null"`
	TimeUnits              TimeUnit  `gorm:"type:varchar(8);not null"`
	CreatedAt              time.Time `gorm:"autoCreateTime"`
	UpdatedAt              time.Time `gorm:"autoUpdateTime"`
}
