package maintenance

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
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

// --- 保养类别 ---

func (r *Repo) CreateType(ctx context.Context, t *ScheduledServiceType) error {
	db := r.withCtx(ctx)
	if db == nil {
		return fmt.Errorf("repo db is nil")
	}
	return db.Create(t).Error
}

func (r *Repo) UpdateType(ctx context.Context, t *ScheduledServiceType) error {
	db := r.withCtx(ctx)
	if db == nil {
		return fmt.Errorf("repo db is nil")
	}
	return db.Save(t).Error
}

func (r *Repo) GetType(ctx context.Context, id, userID string) (*ScheduledServiceType, error) {
	db := r.withCtx(ctx)
	if db == nil {
		return nil, fmt.Errorf("repo db is nil")
	}
	var t ScheduledServiceType
	if err := db.Where("id = ? AND user_id = ?", id, userID).First(&t).Error; err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *Repo) ListTypes(ctx context.Context, userID string) ([]ScheduledServiceType, error) {
	db := r.withCtx(ctx)
	if db == nil {
		return nil, fmt.Errorf("repo db is nil")
	}
	var types []ScheduledServiceType
	if err := db.Where("user_id = ?", userID).Order("created_at asc").Find(&types).Error; err != nil {
		return nil, err
	}
	return types, nil
}

// DeleteType 删除保养类别，并级联删除其实例与依赖这些实例的保养记录。
func (r *Repo) DeleteType(ctx context.Context, id, userID string) error {
	db := r.withCtx(ctx)
	if db == nil {
		return fmt.Errorf("repo db is nil")
	}
	return db.Transaction(func(tx *gorm.DB) error {
		var instanceIDs []string
		if err := tx.Model(&ScheduledServiceInstance{}).
			Where("scheduled_service_type_id = ? AND user_id = ?", id, userID).
			Pluck("id", &instanceIDs).Error; err != nil {
			return err
		}
		if len(instanceIDs) > 0 {
			if err := tx.Table("scheduled_logs").
				Where("scheduled_service_instance_id IN ?", instanceIDs).
				Delete(nil).Error; err != nil {
				return err
			}
			if err := tx.Where("id IN ?", instanceIDs).
				Delete(&ScheduledServiceInstance{}).Error; err != nil {
				return err
			}
		}
		return tx.Where("id = ? AND user_id = ?", id, userID).
			Delete(&ScheduledServiceType{}).Error
	})
}

// --- 保养实例 ---

func (r *Repo) CreateInstances(ctx context.Context, instances []ScheduledServiceInstance) error {
	db := r.withCtx(ctx)
	if db == nil {
		return fmt.Errorf("repo db is nil")
	}
	if len(instances) == 0 {
		return nil
	}
	return db.Create(&instances).Error
}

func (r *Repo) UpdateInstance(ctx context.Context, i *ScheduledServiceInstance) error {
	db := r.withCtx(ctx)
	if db == nil {
		return fmt.Errorf("repo db is nil")
	}
	return db.Save(i).Error
}

func (r *Repo) GetInstance(ctx context.Context, id, vehicleID string) (*ScheduledServiceInstance, error) {
	db := r.withCtx(ctx)
	if db == nil {
		return nil, fmt.Errorf("repo db is nil")
	}
	var i ScheduledServiceInstance
	if err := db.Where("id = ? AND vehicle_id = ?", id, vehicleID).First(&i).Error; err != nil {
		return nil, err
	}
	return &i, nil
}

func (r *Repo) ListInstancesByVehicle(ctx context.Context, vehicleID string) ([]ScheduledServiceInstance, error) {
	db := r.withCtx(ctx)
	if db == nil {
		return nil, fmt.Errorf("repo db is nil")
	}
	var instances []ScheduledServiceInstance
	if err := db.Where("vehicle_id = ?", vehicleID).Order("created_at asc").Find(&instances).Error; err != nil {
		return nil, err
	}
	return instances, nil
}

// DeleteInstance 删除保养实例，并级联删除依赖它的保养记录。
func (r *Repo) DeleteInstance(ctx context.Context, id, vehicleID string) error {
	db := r.withCtx(ctx)
	if db == nil {
		return fmt.Errorf("repo db is nil")
	}
	return db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Table("scheduled_logs").
			Where("scheduled_service_instance_id = ?", id).
			Delete(nil).Error; err != nil {
			return err
		}
		return tx.Where("id = ? AND vehicle_id = ?", id, vehicleID).
			Delete(&ScheduledServiceInstance{}).Error
	})
}

// --- 最近一次保养记录 ---

// LatestLogRow 每个 (vehicle, instance) 组合最近一次保养记录的联查结果。
type LatestLogRow struct {
	ScheduledLogID             string    `gorm:"column:scheduled_log_id"`
	VehicleID                  string    `gorm:"column:vehicle_id"`
	VehicleName                string    `gorm:"column:vehicle_name"`
	VehicleMake                string    `gorm:"column:vehicle_make"`
	VehicleModel               string    `gorm:"column:vehicle_model"`
	VehicleYear                int       `gorm:"column:vehicle_year"`
	VehicleMileage             int       `gorm:"column:vehicle_mileage"`
	ScheduledServiceTypeID     string    `gorm:"column:scheduled_service_type_id"`
	ScheduledServiceTypeName   string    `gorm:"column:scheduled_service_type_name"`
	ScheduledServiceInstanceID string    `gorm:"column:scheduled_service_instance_id"`
	MileInterval               int       `gorm:"column:mile_interval"`
	TimeInterval               int       `gorm:"column:time_interval"`
	TimeUnits                  TimeUnit  `gorm:"column:time_units"`
	LastDatePerformed          time.Time `gorm:"column:last_date_performed"`
	LastMileagePerformed       int       `gorm:"column:last_mileage_performed"`
}

// LatestScheduledLogs 取用户（可选限定车辆）每个 (vehicle, instance)
// 组合按 date_performed 最新的一条保养记录；无记录的组合不返回。
func (r *Repo) LatestScheduledLogs(ctx context.Context, userID, vehicleID string) ([]LatestLogRow, error) {
	db := r.withCtx(ctx)
	if db == nil {
		return nil, fmt.Errorf("repo db is nil")
	}

	query := `
SELECT sl.id AS scheduled_log_id,
       sl.vehicle_id,
       v.name AS vehicle_name,
       v.make AS vehicle_make,
       v.model AS vehicle_model,
       v.year AS vehicle_year,
       v.mileage AS vehicle_mileage,
       sst.id AS scheduled_service_type_id,
       sst.name AS scheduled_service_type_name,
       ssi.id AS scheduled_service_instance_id,
       ssi.mile_interval,
       ssi.time_interval,
       ssi.time_units,
       sl.date_performed AS last_date_performed,
       sl.mileage AS last_mileage_performed
FROM scheduled_logs sl
JOIN scheduled_service_instances ssi ON ssi.id = sl.scheduled_service_instance_id
JOIN scheduled_service_types sst ON sst.id = ssi.scheduled_service_type_id
JOIN vehicles v ON v.id = sl.vehicle_id
WHERE sl.user_id = ?
  AND sl.date_performed = (
      SELECT MAX(s2.date_performed) FROM scheduled_logs s2
      WHERE s2.scheduled_service_instance_id = sl.scheduled_service_instance_id
  )`
	args := []interface{}{userID}
	if vehicleID != "" {
		query += " AND sl.vehicle_id = ?"
		args = append(args, vehicleID)
	}
	query += " ORDER BY sl.date_performed DESC"

	var rows []LatestLogRow
	if err := db.Raw(query, args...).Scan(&rows).Error; err != nil {
		return nil, err
	}

	// date_performed 并列时子查询会返回多行，按实例去重，先到先得
	seen := make(map[string]struct{}, len(rows))
	out := rows[:0]
	for _, row := range rows {
		if _, ok := seen[row.ScheduledServiceInstanceID]; ok {
			continue
		}
		seen[row.ScheduledServiceInstanceID] = struct{}{}
		out = append(out, row)
	}
	return out, nil
}
