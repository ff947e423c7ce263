package audit

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repo 审计日志存储。写入路径在单个事务内执行“插入 + 超限淘汰”，
// 保证事务提交后分区内行数不超过上限。
type Repo struct {
	db               *gorm.DB
	changelogPerUser int64
	appLogTotal      int64
}

func NewRepo(db *gorm.DB, changelogPerUser, appLogTotal int64) *Repo {
	return &Repo{
		db:               db,
		changelogPerUser: changelogPerUser,
		appLogTotal:      appLogTotal,
	}
}

// CreateChangelog 写入用户变更记录并执行按用户的保留上限。
func (r *Repo) CreateChangelog(ctx context.Context, userID, description string) (*Changelog, error) {
	if r == nil || r.db == nil {
		return nil, fmt.Errorf("repo db is nil")
	}
	entry := &Changelog{
		ID:          uuid.NewString(),
		UserID:      userID,
		Description: description,
	}
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(entry).Error; err != nil {
			return err
		}
		return evictOldest(tx, &Changelog{}, "user_id = ?", []interface{}{userID}, r.changelogPerUser)
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// CreateVehicleChangelog 写入车辆变更记录并执行按用户的保留上限。
func (r *Repo) CreateVehicleChangelog(ctx context.Context, vehicleID, userID, description string) (*VehicleChangelog, error) {
	if r == nil || r.db == nil {
		return nil, fmt.Errorf("repo db is nil")
	}
	entry := &VehicleChangelog{
		ID:          uuid.NewString(),
		VehicleID:   vehicleID,
		UserID:      userID,
		Description: description,
	}
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(entry).Error; err != nil {
			return err
		}
		return evictOldest(tx, &VehicleChangelog{}, "user_id = ?", []interface{}{userID}, r.changelogPerUser)
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// CreateAppLog 写入应用日志并执行全局保留上限。
func (r *Repo) CreateAppLog(ctx context.Context, entry *AppLog) error {
	if r == nil || r.db == nil {
		return fmt.Errorf("repo db is nil")
	}
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(entry).Error; err != nil {
			return err
		}
		return evictOldest(tx, &AppLog{}, "", nil, r.appLogTotal)
	})
}

// evictOldest 统计分区内行数，超限则按 created_at ASC, id ASC 删除最老的多余行。
// cond 为空表示全表（无分区键）。
func evictOldest(tx *gorm.DB, model interface{}, cond string, args []interface{}, limit int64) error {
	if limit <= 0 {
		return nil
	}

	q := tx.Model(model)
	if cond != "" {
		q = q.Where(cond, args...)
	}
	var count int64
	if err := q.Count(&count).Error; err != nil {
		return err
	}
	if count <= limit {
		return nil
	}

	excess := count - limit
	sel := tx.Model(model).Order("created_at asc, id asc").Limit(int(excess))
	if cond != "" {
		sel = sel.Where(cond, args...)
	}
	var ids []string
	if err := sel.Pluck("id", &ids).Error; err != nil {
		return err
	}
	return tx.Where("id IN ?", ids).Delete(model).Error
}

// ListChangelog 按创建时间倒序返回用户变更记录。
func (r *Repo) ListChangelog(ctx context.Context, userID string) ([]Changelog, error) {
	if r == nil || r.db == nil {
		return nil, fmt.Errorf("repo db is nil")
	}
	var entries []Changelog
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at desc").
		Find(&entries).Error
	return entries, err
}

// ListVehicleChangelog 按创建时间倒序返回某车辆的变更记录。
func (r *Repo) ListVehicleChangelog(ctx context.Context, vehicleID string) ([]VehicleChangelog, error) {
	if r == nil || r.db == nil {
		return nil, fmt.Errorf("repo db is nil")
	}
	var entries []VehicleChangelog
	err := r.db.WithContext(ctx).
		Where("vehicle_id = ?", vehicleID).
		Order("created_at desc").
		Find(&entries).Error
	return entries, err
}

// ListAppLog 按创建时间倒序返回最近的应用日志，管理接口用。
func (r *Repo) ListAppLog(ctx context.Context, limit int) ([]AppLog, error) {
	if r == nil || r.db == nil {
		return nil, fmt.Errorf("repo db is nil")
	}
	if limit <= 0 || limit > 1000 {
		limit = 1000
	}
	var entries []AppLog
	err := r.db.WithContext(ctx).
		Order("created_at desc").
		Limit(limit).
		Find(&entries).Error
	return entries, err
}

// ListVehicleChangelogByUser 按创建时间倒序返回用户名下全部车辆变更记录。
func (r *Repo) ListVehicleChangelogByUser(ctx context.Context, userID string) ([]VehicleChangelog, error) {
	if r == nil || r.db == nil {
		return nil, fmt.Errorf("repo db is nil")
	}
	var entries []VehicleChangelog
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at desc").
		Find(&entries).Error
	return entries, err
}
