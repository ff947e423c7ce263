package vehicle

import "time"

// Vehicle 用户名下的车辆。DateCreated 为毫秒时间戳，沿用对外接口的表示。
type Vehicle struct {
	ID           string    `gorm:"primaryKey;size:36"`
	UserID       string    `gorm:"index;size:36;not null"`
	Name         string    `gorm:"size:128;not null"`
	Mileage      int       `gorm:"not null"`
	Year         int       `gorm:"not null"`
	Make         string    `gorm:"size:64"`
	Model        string    `gorm:"size:64"`
	LicensePlate string    `gorm:"size:32"`
	VIN          string    `gorm:"column:vin;size:32"`
	Notes        string    `gorm:"type:text"`
	Base64Image  string    `gorm:"type:mediumtext"`
	DateCreated  int64     `gorm:"not null"`
	CreatedAt    time.Time `gorm:"autoCreateTime"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime"`
}

// VehicleShare 车辆共享关系，同一 (vehicle, user) 至多一条。
type VehicleShare struct {
	ID        string    `gorm:"primaryKey;size:36"`
	VehicleID string    `gorm:"index:idx_share_vehicle_user,unique;size:36;not null"`
	UserID    string    `gorm:"index:idx_share_vehicle_user,unique;size:36;not null"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
}

// VehicleAttachment 附件元数据，文件内容单独存 VehicleAttachmentFile。
type VehicleAttachment struct {
	ID          string    `gorm:"primaryKey;size:36"`
	VehicleID   string    `gorm:"index;size:36;not null"`
	UserID      string    `gorm:"index;size:36;not null"`
	Filename    string    `gorm:"size:255;not null"`
	Path        string    `gorm:"size:512"`
	ContentType string    `gorm:"size:128"`
	Size        int64     `gorm:"not null"`
	DateCreated time.Time `gorm:"autoCreateTime"`
}

// VehicleAttachmentFile 附件内容，按需单独拉取，避免列表查询拖全量字节。
type VehicleAttachmentFile struct {
	AttachmentID string `gorm:"primaryKey;size:36"`
	Contents     []byte `gorm:"type:longblob"`
}
