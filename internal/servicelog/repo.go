package servicelog

import (
	"context"
	"fmt"

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

// --- 保养记录 ---

func (r *Repo) CreateScheduledLog(ctx context.Context, l *ScheduledLog) error {
	db := r.withCtx(ctx)
	if db == nil {
		return fmt.Errorf("repo db is nil")
	}
	return db.Create(l).Error
}

// UpdateScheduledLogs 批量更新，单事务，任意一条失败全部回滚。
func (r *Repo) UpdateScheduledLogs(ctx context.Context, vehicleID string, logs []ScheduledLog) error {
	db := r.withCtx(ctx)
	if db == nil {
		return fmt.Errorf("repo db is nil")
	}
	return db.Transaction(func(tx *gorm.DB) error {
		for i := range logs {
			res := tx.Model(&ScheduledLog{}).
				Where("id = ? AND vehicle_id = ?", logs[i].ID, vehicleID).
				Updates(map[string]interface{}{
					"scheduled_service_instance_id": logs[i].ScheduledServiceInstanceID,
					"date_performed":                logs[i].DatePerformed,
					"mileage":                       logs[i].Mileage,
					"parts_cost":                    logs[i].PartsCost,
					"labor_cost":                    logs[i].LaborCost,
					"total_cost":                    logs[i].TotalCost,
					"notes":                         logs[i].Notes,
				})
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return gorm.ErrRecordNotFound
			}
		}
		return nil
	})
}

func (r *Repo) GetScheduledLog(ctx context.Context, id, vehicleID string) (*ScheduledLog, error) {
	db := r.withCtx(ctx)
	if db == nil {
		return nil, fmt.Errorf("repo db is nil")
	}
	var l ScheduledLog
	if err := db.Where("id = ? AND vehicle_id = ?", id, vehicleID).First(&l).Error; err != nil {
		return nil, err
	}
	return &l, nil
}

func (r *Repo) ListScheduledLogs(ctx context.Context, vehicleID string) ([]ScheduledLog, error) {
	db := r.withCtx(ctx)
	if db == nil {
		return nil, fmt.Errorf("repo db is nil")
	}
	var logs []ScheduledLog
	if err := db.Where("vehicle_id = ?", vehicleID).
		Order("date_performed desc").Find(&logs).Error; err != nil {
		return nil, err
	}
	return logs, nil
}

func (r *Repo) ListScheduledLogsByIDs(ctx context.Context, ids []string, vehicleID string) ([]ScheduledLog, error) {
	db := r.withCtx(ctx)
	if db == nil {
		return nil, fmt.Errorf("repo db is nil")
	}
	var logs []ScheduledLog
	if err := db.Where("id IN ? AND vehicle_id = ?", ids, vehicleID).
		Order("date_performed desc").Find(&logs).Error; err != nil {
		return nil, err
	}
	return logs, nil
}

func (r *Repo) DeleteScheduledLogs(ctx context.Context, ids []string, vehicleID string) error {
	db := r.withCtx(ctx)
	if db == nil {
		return fmt.Errorf("repo db is nil")
	}
	return db.Where("id IN ? AND vehicle_id = ?", ids, vehicleID).
		Delete(&ScheduledLog{}).Error
}

// --- 维修记录 ---

func (r *Repo) CreateRepairLog(ctx context.Context, l *RepairLog) error {
	db := r.withCtx(ctx)
	if db == nil {
		return fmt.Errorf("repo db is nil")
	}
	return db.Create(l).Error
}

func (r *Repo) UpdateRepairLogs(ctx context.Context, vehicleID string, logs []RepairLog) error {
	db := r.withCtx(ctx)
	if db == nil {
		return fmt.Errorf("repo db is nil")
	}
	return db.Transaction(func(tx *gorm.DB) error {
		for i := range logs {
			res := tx.Model(&RepairLog{}).
				Where("id = ? AND vehicle_id = ?", logs[i].ID, vehicleID).
				Updates(map[string]interface{}{
					"name":           logs[i].Name,
					"date_performed": logs[i].DatePerformed,
					"mileage":        logs[i].Mileage,
					"parts_cost":     logs[i].PartsCost,
					"labor_cost":     logs[i].LaborCost,
					"total_cost":     logs[i].TotalCost,
					"notes":          logs[i].Notes,
				})
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return gorm.ErrRecordNotFound
			}
		}
		return nil
	})
}

func (r *Repo) ListRepairLogs(ctx context.Context, vehicleID string) ([]RepairLog, error) {
	db := r.withCtx(ctx)
	if db == nil {
		return nil, fmt.Errorf("repo db is nil")
	}
	var logs []RepairLog
	if err := db.Where("vehicle_id = ?", vehicleID).
		Order("date_performed desc").Find(&logs).Error; err != nil {
		return nil, err
	}
	return logs, nil
}

func (r *Repo) DeleteRepairLogs(ctx context.Context, ids []string, vehicleID string) error {
	db := r.withCtx(ctx)
	if db == nil {
		return fmt.Errorf("repo db is nil")
	}
	return db.Where("id IN ? AND vehicle_id = ?", ids, vehicleID).
		Delete(&RepairLog{}).Error
}

// --- 费用统计 ---

// CostSummary 某类日志的费用合计。
type CostSummary struct {
	PartsCost float64 `gorm:"column:parts_cost" json:"partsCost"`
	LaborCost float64 `gorm:"column:labor_cost" json:"laborCost"`
	TotalCost float64 `gorm:"column:total_cost" json:"totalCost"`
}

func (r *Repo) ScheduledLogCosts(ctx context.Context, userID, vehicleID string) (CostSummary, error) {
	return r.sumCosts(ctx, "scheduled_logs", userID, vehicleID)
}

func (r *Repo) RepairLogCosts(ctx context.Context, userID, vehicleID string) (CostSummary, error) {
	return r.sumCosts(ctx, "repair_logs", userID, vehicleID)
}

func (r *Repo) sumCosts(ctx context.Context, table, userID, vehicleID string) (CostSummary, error) {
	db := r.withCtx(ctx)
	if db == nil {
		return CostSummary{}, fmt.Errorf("repo db is nil")
	}
	var summary CostSummary
	err := db.Table(table).
		Select("COALESCE(SUM(parts_cost), 0) AS parts_cost, COALESCE(SUM(labor_cost), 0) AS labor_cost, COALESCE(SUM(total_cost), 0) AS total_cost").
		Where("user_id = ? AND vehicle_id = ?", userID, vehicleID).
		Scan(&summary).Error
	return summary, err
}

// TypeUsage 某保养类别在车辆上的记录条数。
type TypeUsage struct {
	ScheduledServiceTypeID   string `gorm:"column:scheduled_service_type_id" json:"scheduledServiceTypeId"`
	ScheduledServiceTypeName string `gorm:"column:scheduled_service_type_name" json:"scheduledServiceTypeName"`
	Count                    int64  `gorm:"column:log_count" json:"count"`
}

// ScheduledTypeUsage 按保养类别统计车辆上的保养记录条数，从多到少。
func (r *Repo) ScheduledTypeUsage(ctx context.Context, userID, vehicleID string) ([]TypeUsage, error) {
	db := r.withCtx(ctx)
	if db == nil {
		return nil, fmt.Errorf("repo db is nil")
	}
	var usage []TypeUsage
	err := db.Raw(`
SELECT sst.id AS scheduled_service_type_id,
       sst.name AS scheduled_service_type_name,
       COUNT(sl.id) AS log_count
FROM scheduled_logs sl
JOIN scheduled_service_instances ssi ON ssi.id = sl.scheduled_service_instance_id
JOIN scheduled_service_types sst ON sst.id = ssi.scheduled_service_type_id
WHERE sl.user_id = ? AND sl.vehicle_id = ?
GROUP BY sst.id, sst.name
ORDER BY log_count DESC`, userID, vehicleID).Scan(&usage).Error
	if err != nil {
		return nil, err
	}
	return usage, nil
}
