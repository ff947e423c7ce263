package vehicle

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/AutoHub/AutoHub/internal/maintenance"
	"github.com/AutoHub/AutoHub/internal/servicelog"
)

type Repo struct {
	db *gorm.DB
}

func NewRepo(db *gorm.DB) *Repo {
	return &Repo{db: db}
}

func (r *Repo) withCtx(ctx context.Context) *gorm.DB {
	if r == nil || r.db == nil {
		return nil
	}
	return r.db.WithContext(ctx)
}

// --- 车辆 ---

func (r *Repo) Create(ctx context.Context, v *Vehicle) error {
	db := r.withCtx(ctx)
	if db == nil {
		return fmt.Errorf("repo db is nil")
	}
	return db.Create(v).Error
}

func (r *Repo) Update(ctx context.Context, v *Vehicle) error {
	db := r.withCtx(ctx)
	if db == nil {
		return fmt.Errorf("repo db is nil")
	}
	return db.Save(v).Error
}

func (r *Repo) Get(ctx context.Context, id, userID string) (*Vehicle, error) {
	db := r.withCtx(ctx)
	if db == nil {
		return nil, fmt.Errorf("repo db is nil")
	}
	var v Vehicle
	if err := db.Where("id = ? AND user_id = ?", id, userID).First(&v).Error; err != nil {
		return nil, err
	}
	return &v, nil
}

func (r *Repo) GetByID(ctx context.Context, id string) (*Vehicle, error) {
	db := r.withCtx(ctx)
	if db == nil {
		return nil, fmt.Errorf("repo db is nil")
	}
	var v Vehicle
	if err := db.Where("id = ?", id).First(&v).Error; err != nil {
		return nil, err
	}
	return &v, nil
}

func (r *Repo) ListByUser(ctx context.Context, userID string) ([]Vehicle, error) {
	db := r.withCtx(ctx)
	if db == nil {
		return nil, fmt.Errorf("repo db is nil")
	}
	var vehicles []Vehicle
	if err := db.Where("user_id = ?", userID).Order("date_created asc").Find(&vehicles).Error; err != nil {
		return nil, err
	}
	return vehicles, nil
}

// ListSharedWithUser 取共享给该用户的车辆。
func (r *Repo) ListSharedWithUser(ctx context.Context, userID string) ([]Vehicle, error) {
	db := r.withCtx(ctx)
	if db == nil {
		return nil, fmt.Errorf("repo db is nil")
	}
	var vehicles []Vehicle
	err := db.
		Joins("JOIN vehicle_shares vs ON vs.vehicle_id = vehicles.id").
		Where("vs.user_id = ?", userID).
		Order("vehicles.date_created asc").
		Find(&vehicles).Error
	if err != nil {
		return nil, err
	}
	return vehicles, nil
}

// Delete 删除车辆及其全部关联数据，单事务。
func (r *Repo) Delete(ctx context.Context, id, userID string) error {
	db := r.withCtx(ctx)
	if db == nil {
		return fmt.Errorf("repo db is nil")
	}
	return db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("vehicle_id = ?", id).Delete(&servicelog.ScheduledLog{}).Error; err != nil {
			return err
		}
		if err := tx.Where("vehicle_id = ?", id).Delete(&servicelog.RepairLog{}).Error; err != nil {
			return err
		}
		if err := tx.Where("vehicle_id = ?", id).Delete(&maintenance.ScheduledServiceInstance{}).Error; err != nil {
			return err
		}
		if err := tx.Where("vehicle_id = ?", id).Delete(&VehicleShare{}).Error; err != nil {
			return err
		}
		var attachmentIDs []string
		if err := tx.Model(&VehicleAttachment{}).
			Where("vehicle_id = ?", id).
			Pluck("id", &attachmentIDs).Error; err != nil {
			return err
		}
		if len(attachmentIDs) > 0 {
			if err := tx.Where("attachment_id IN ?", attachmentIDs).Delete(&VehicleAttachmentFile{}).Error; err != nil {
				return err
			}
			if err := tx.Where("id IN ?", attachmentIDs).Delete(&VehicleAttachment{}).Error; err != nil {
				return err
			}
		}
		res := tx.Where("id = ? AND user_id = ?", id, userID).Delete(&Vehicle{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}

// --- 共享 ---

func (r *Repo) CreateShare(ctx context.Context, s *VehicleShare) error {
	db := r.withCtx(ctx)
	if db == nil {
		return fmt.Errorf("repo db is nil")
	}
	return db.Create(s).Error
}

func (r *Repo) GetShare(ctx context.Context, vehicleID, userID string) (*VehicleShare, error) {
	db := r.withCtx(ctx)
	if db == nil {
		return nil, fmt.Errorf("repo db is nil")
	}
	var s VehicleShare
	if err := db.Where("vehicle_id = ? AND user_id = ?", vehicleID, userID).First(&s).Error; err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *Repo) DeleteShare(ctx context.Context, vehicleID, userID string) error {
	db := r.withCtx(ctx)
	if db == nil {
		return fmt.Errorf("repo db is nil")
	}
	return db.Where("vehicle_id = ? AND user_id = ?", vehicleID, userID).Delete(&VehicleShare{}).Error
}

func (r *Repo) ListShares(ctx context.Context, vehicleID string) ([]VehicleShare, error) {
	db := r.withCtx(ctx)
	if db == nil {
		return nil, fmt.Errorf("repo db is nil")
	}
	var shares []VehicleShare
	if err := db.Where("vehicle_id = ?", vehicleID).Find(&shares).Error; err != nil {
		return nil, err
	}
	return shares, nil
}

// --- 附件 ---

// CreateAttachment 元数据和内容两行同事务写入。
func (r *Repo) CreateAttachment(ctx context.Context, a *VehicleAttachment, contents []byte) error {
	db := r.withCtx(ctx)
	if db == nil {
		return fmt.Errorf("repo db is nil")
	}
	return db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(a).Error; err != nil {
			return err
		}
		return tx.Create(&VehicleAttachmentFile{
			AttachmentID: a.ID,
			Contents:     contents,
		}).Error
	})
}

func (r *Repo) ListAttachments(ctx context.Context, vehicleID string) ([]VehicleAttachment, error) {
	db := r.withCtx(ctx)
	if db == nil {
		return nil, fmt.Errorf("repo db is nil")
	}
	var attachments []VehicleAttachment
	if err := db.Where("vehicle_id = ?", vehicleID).
		Order("date_created desc").Find(&attachments).Error; err != nil {
		return nil, err
	}
	return attachments, nil
}

func (r *Repo) GetAttachment(ctx context.Context, attachmentID, vehicleID string) (*VehicleAttachment, error) {
	db := r.withCtx(ctx)
	if db == nil {
		return nil, fmt.Errorf("repo db is nil")
	}
	var a VehicleAttachment
	if err := db.Where("id = ? AND vehicle_id = ?", attachmentID, vehicleID).First(&a).Error; err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *Repo) GetAttachmentContents(ctx context.Context, attachmentID string) ([]byte, error) {
	db := r.withCtx(ctx)
	if db == nil {
		return nil, fmt.Errorf("repo db is nil")
	}
	var f VehicleAttachmentFile
	if err := db.Where("attachment_id = ?", attachmentID).First(&f).Error; err != nil {
		return nil, err
	}
	return f.Contents, nil
}

func (r *Repo) DeleteAttachment(ctx context.Context, attachmentID, vehicleID string) error {
	db := r.withCtx(ctx)
	if db == nil {
		return fmt.Errorf("repo db is nil")
	}
	return db.Transaction(func(tx *gorm.DB) error {
		res := tx.Where("id = ? AND vehicle_id = ?", attachmentID, vehicleID).Delete(&VehicleAttachment{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return tx.Where("attachment_id = ?", attachmentID).Delete(&VehicleAttachmentFile{}).Error
	})
}
