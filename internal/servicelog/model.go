package servicelog

import "time"

// ScheduledLog 一次按计划完成的保养，必须挂在某个保养实例上。
type ScheduledLog struct {
	ID                         string    `gorm:"primaryKey;size:36"`
	UserID                     string    `gorm:"index;size:36;not null"`
	VehicleID                  string    `gorm:"index;size:36;not null"`
	ScheduledServiceInstanceID string    `gorm:"index;size:36;not null"`
	DatePerformed              time.Time `gorm:"not null"`
	Mileage                    int       `gorm:"not null"`
	PartsCost                  float64   `gorm:"not null"`
	LaborCost                  float64   `gorm:"not null"`
	TotalCost                  float64   `gorm:"not null"`
	Notes                      string    `gorm:"type:text"`
	CreatedAt                  time.Time `gorm:"autoCreateTime"`
	UpdatedAt                  time.Time `gorm:"autoUpdateTime"`
}

// RepairLog 一次计划外维修，不挂保养实例，名称自由填写。
type RepairLog struct {
	ID            string    `gorm:"primaryKey;size:36"`
	UserID        string    `gorm:"index;size:36;not null"`
	VehicleID     string    `gorm:"index;size:36;not null"`
	Name          string    `gorm:"size:255;not null"`
	DatePerformed time.Time `gorm:"not null"`
	Mileage       int       `gorm:"not null"`
	PartsCost     float64   `gorm:"not null"`
	LaborCost     float64   `gorm:"not null"`
	TotalCost     float64   `gorm:"not null"`
	Notes         string    `gorm:"type:text"`
	CreatedAt     time.Time `gorm:"autoCreateTime"`
	UpdatedAt     time.Time `gorm:"autoUpdateTime"`
}
