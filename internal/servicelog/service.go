package servicelog

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/AutoHub/AutoHub/internal/audit"
	"github.com/AutoHub/AutoHub/internal/common/apperr"
	"github.com/AutoHub/AutoHub/internal/common/logger"
	"github.com/AutoHub/AutoHub/internal/maintenance"
)

// VehicleAccess 车辆访问校验，由 vehicle 包实现。
type VehicleAccess interface {
	CheckAccess(ctx context.Context, vehicleID, userID string, ownerOnly bool) error
	VehicleOwner(ctx context.Context, vehicleID string) (string, error)
	VehicleName(ctx context.Context, vehicleID string) (string, error)
}

type Service struct {
	repo      *Repo
	instances *maintenance.Repo
	access    VehicleAccess
	pub       *audit.Publisher
	log       logger.Logger
}

func NewService(repo *Repo, instances *maintenance.Repo, access VehicleAccess, pub *audit.Publisher, log logger.Logger) *Service {
	return &Service{
		repo:      repo,
		instances: instances,
		access:    access,
		pub:       pub,
		log:       log,
	}
}

// CreateScheduledLogRequest 创建保养记录的请求。datePerformed 为毫秒时间戳。
type CreateScheduledLogRequest struct {
	ScheduledServiceInstanceID string  `json:"scheduledServiceInstanceId"`
	DatePerformed              int64   `json:"datePerformed"`
	Mileage                    int     `json:"mileage"`
	PartsCost                  float64 `json:"partsCost"`
	LaborCost                  float64 `json:"laborCost"`
	TotalCost                  float64 `json:"totalCost"`
	Notes                      string  `json:"notes"`
}

// UpdateScheduledLogRequest 更新保养记录的请求，按 id 定位。
type UpdateScheduledLogRequest struct {
	ID string `json:"id"`
	CreateScheduledLogRequest
}

// ScheduledLogDto 保养记录响应，附带推算出的下次保养点。
type ScheduledLogDto struct {
	ID                         string    `json:"id"`
	UserID                     string    `json:"userId"`
	VehicleID                  string    `json:"vehicleId"`
	ScheduledServiceInstanceID string    `json:"scheduledServiceInstanceId"`
	DatePerformed              time.Time `json:"datePerformed"`
	Mileage                    int       `json:"mileage"`
	PartsCost                  float64   `json:"partsCost"`
	LaborCost                  float64   `json:"laborCost"`
	TotalCost                  float64   `json:"totalCost"`
	Notes                      string    `json:"notes"`
	NextServiceMileage         int       `json:"nextServiceMileage"`
	NextServiceDate            time.Time `json:"nextServiceDate"`
}

func (s *Service) toDto(ctx context.Context, l *ScheduledLog) ScheduledLogDto {
	dto := ScheduledLogDto{
		ID:                         l.ID,
		UserID:                     l.UserID,
		VehicleID:                  l.VehicleID,
		ScheduledServiceInstanceID: l.ScheduledServiceInstanceID,
		DatePerformed:              l.DatePerformed,
		Mileage:                    l.Mileage,
		PartsCost:                  l.PartsCost,
		LaborCost:                  l.LaborCost,
		TotalCost:                  l.TotalCost,
		Notes:                      l.Notes,
	}
	instance, err := s.instances.GetInstance(ctx, l.ScheduledServiceInstanceID, l.VehicleID)
	if err != nil {
		// 实例已被删除时不推算，保持零值
		s.log.Warnf("scheduled log %s references missing instance %s: %v", l.ID, l.ScheduledServiceInstanceID, err)
		return dto
	}
	dto.NextServiceDate, dto.NextServiceMileage = maintenance.ProjectNextService(
		l.DatePerformed, l.Mileage,
		instance.MileInterval, instance.TimeInterval, instance.TimeUnits)
	return dto
}

// CreateScheduledLog 在车辆上登记一次保养。保养实例必须已应用到该车辆。
func (s *Service) CreateScheduledLog(ctx context.Context, userID, username, vehicleID string, req CreateScheduledLogRequest) (*ScheduledLogDto, error) {
	if vehicleID == "" {
		return nil, apperr.BadRequest("no vehicleId provided")
	}
	if userID == "" {
		return nil, apperr.BadRequest("no userId provided")
	}
	if err := s.access.CheckAccess(ctx, vehicleID, userID, false); err != nil {
		return nil, err
	}
	ownerID, err := s.access.VehicleOwner(ctx, vehicleID)
	if err != nil {
		return nil, err
	}

	instance, err := s.instances.GetInstance(ctx, req.ScheduledServiceInstanceID, vehicleID)
	if err != nil {
		return nil, apperr.BadRequest("scheduled service instance does not belong to vehicle")
	}

	l := &ScheduledLog{
		ID:                         uuid.NewString(),
		UserID:                     ownerID,
		VehicleID:                  vehicleID,
		ScheduledServiceInstanceID: instance.ID,
		DatePerformed:              time.UnixMilli(req.DatePerformed).UTC(),
		Mileage:                    req.Mileage,
		PartsCost:                  req.PartsCost,
		LaborCost:                  req.LaborCost,
		TotalCost:                  req.TotalCost,
		Notes:                      req.Notes,
	}
	if err := s.repo.CreateScheduledLog(ctx, l); err != nil {
		return nil, err
	}

	typeName := ""
	if t, err := s.instances.GetType(ctx, instance.ScheduledServiceTypeID, ownerID); err == nil {
		typeName = t.Name
	}
	vehicleName, err := s.access.VehicleName(ctx, vehicleID)
	if err != nil {
		s.log.Warnf("resolve vehicle name for changelog failed: %v", err)
	}
	s.pub.ScheduledLogCreated(userID, username, vehicleID, vehicleName, typeName, l.Mileage)

	dto := s.toDto(ctx, l)
	return &dto, nil
}

// UpdateScheduledLogs 批量更新车辆的保养记录。
func (s *Service) UpdateScheduledLogs(ctx context.Context, userID, username, vehicleID string, reqs []UpdateScheduledLogRequest) ([]ScheduledLogDto, error) {
	if vehicleID == "" {
		return nil, apperr.BadRequest("no vehicleId provided")
	}
	if len(reqs) == 0 {
		return nil, apperr.BadRequest("no scheduled logs provided")
	}
	if err := s.access.CheckAccess(ctx, vehicleID, userID, false); err != nil {
		return nil, err
	}

	logs := make([]ScheduledLog, 0, len(reqs))
	ids := make([]string, 0, len(reqs))
	for _, req := range reqs {
		if _, err := s.instances.GetInstance(ctx, req.ScheduledServiceInstanceID, vehicleID); err != nil {
			return nil, apperr.BadRequest("scheduled service instance does not belong to vehicle")
		}
		logs = append(logs, ScheduledLog{
			ID:                         req.ID,
			ScheduledServiceInstanceID: req.ScheduledServiceInstanceID,
			DatePerformed:              time.UnixMilli(req.DatePerformed).UTC(),
			Mileage:                    req.Mileage,
			PartsCost:                  req.PartsCost,
			LaborCost:                  req.LaborCost,
			TotalCost:                  req.TotalCost,
			Notes:                      req.Notes,
		})
		ids = append(ids, req.ID)
	}
	if err := s.repo.UpdateScheduledLogs(ctx, vehicleID, logs); err != nil {
		return nil, err
	}

	updated, err := s.repo.ListScheduledLogsByIDs(ctx, ids, vehicleID)
	if err != nil {
		return nil, err
	}
	dtos := make([]ScheduledLogDto, 0, len(updated))
	for i := range updated {
		dtos = append(dtos, s.toDto(ctx, &updated[i]))
	}

	vehicleName, err := s.access.VehicleName(ctx, vehicleID)
	if err != nil {
		s.log.Warnf("resolve vehicle name for changelog failed: %v", err)
	}
	s.pub.ScheduledLogsUpdated(userID, username, vehicleID, vehicleName, len(updated))
	return dtos, nil
}

func (s *Service) FindScheduledLogs(ctx context.Context, userID, vehicleID string) ([]ScheduledLogDto, error) {
	if vehicleID == "" {
		return nil, apperr.BadRequest("no vehicleId provided")
	}
	if userID == "" {
		return nil, apperr.BadRequest("no userId provided")
	}
	if err := s.access.CheckAccess(ctx, vehicleID, userID, false); err != nil {
		return nil, err
	}

	logs, err := s.repo.ListScheduledLogs(ctx, vehicleID)
	if err != nil {
		return nil, err
	}
	dtos := make([]ScheduledLogDto, 0, len(logs))
	for i := range logs {
		dtos = append(dtos, s.toDto(ctx, &logs[i]))
	}
	return dtos, nil
}

func (s *Service) DeleteScheduledLogs(ctx context.Context, userID, username, vehicleID string, ids []string) error {
	if vehicleID == "" {
		return apperr.BadRequest("no vehicleId provided")
	}
	if len(ids) == 0 {
		return apperr.BadRequest("no ids provided")
	}
	if err := s.access.CheckAccess(ctx, vehicleID, userID, false); err != nil {
		return err
	}
	if err := s.repo.DeleteScheduledLogs(ctx, ids, vehicleID); err != nil {
		return err
	}

	vehicleName, err := s.access.VehicleName(ctx, vehicleID)
	if err != nil {
		s.log.Warnf("resolve vehicle name for changelog failed: %v", err)
	}
	s.pub.ScheduledLogsDeleted(userID, username, vehicleID, vehicleName, len(ids))
	return nil
}

// --- 维修记录 ---

// CreateRepairLogRequest 创建维修记录的请求。datePerformed 为毫秒时间戳。
type CreateRepairLogRequest struct {
	Name          string  `json:"name"`
	DatePerformed int64   `json:"datePerformed"`
	Mileage       int     `json:"mileage"`
	PartsCost     float64 `json:"partsCost"`
	LaborCost     float64 `json:"laborCost"`
	TotalCost     float64 `json:"totalCost"`
	Notes         string  `json:"notes"`
}

// UpdateRepairLogRequest 更新维修记录的请求。
type UpdateRepairLogRequest struct {
	ID string `json:"id"`
	CreateRepairLogRequest
}

func (s *Service) CreateRepairLog(ctx context.Context, userID, username, vehicleID string, req CreateRepairLogRequest) (*RepairLog, error) {
	if vehicleID == "" {
		return nil, apperr.BadRequest("no vehicleId provided")
	}
	if strings.TrimSpace(req.Name) == "" {
		return nil, apperr.BadRequest("no name provided")
	}
	if err := s.access.CheckAccess(ctx, vehicleID, userID, false); err != nil {
		return nil, err
	}
	ownerID, err := s.access.VehicleOwner(ctx, vehicleID)
	if err != nil {
		return nil, err
	}

	l := &RepairLog{
		ID:            uuid.NewString(),
		UserID:        ownerID,
		VehicleID:     vehicleID,
		Name:          req.Name,
		DatePerformed: time.UnixMilli(req.DatePerformed).UTC(),
		Mileage:       req.Mileage,
		PartsCost:     req.PartsCost,
		LaborCost:     req.LaborCost,
		TotalCost:     req.TotalCost,
		Notes:         req.Notes,
	}
	if err := s.repo.CreateRepairLog(ctx, l); err != nil {
		return nil, err
	}

	vehicleName, err := s.access.VehicleName(ctx, vehicleID)
	if err != nil {
		s.log.Warnf("resolve vehicle name for changelog failed: %v", err)
	}
	s.pub.RepairLogCreated(userID, username, vehicleID, vehicleName, l.Name)
	return l, nil
}

func (s *Service) UpdateRepairLogs(ctx context.Context, userID, vehicleID string, reqs []UpdateRepairLogRequest) ([]RepairLog, error) {
	if vehicleID == "" {
		return nil, apperr.BadRequest("no vehicleId provided")
	}
	if len(reqs) == 0 {
		return nil, apperr.BadRequest("no repair logs provided")
	}
	if err := s.access.CheckAccess(ctx, vehicleID, userID, false); err != nil {
		return nil, err
	}

	logs := make([]RepairLog, 0, len(reqs))
	for _, req := range reqs {
		logs = append(logs, RepairLog{
			ID:            req.ID,
			Name:          req.Name,
			DatePerformed: time.UnixMilli(req.DatePerformed).UTC(),
			Mileage:       req.Mileage,
			PartsCost:     req.PartsCost,
			LaborCost:     req.LaborCost,
			TotalCost:     req.TotalCost,
			Notes:         req.Notes,
		})
	}
	if err := s.repo.UpdateRepairLogs(ctx, vehicleID, logs); err != nil {
		return nil, err
	}
	return s.repo.ListRepairLogs(ctx, vehicleID)
}

func (s *Service) FindRepairLogs(ctx context.Context, userID, vehicleID string) ([]RepairLog, error) {
	if vehicleID == "" {
		return nil, apperr.BadRequest("no vehicleId provided")
	}
	if err := s.access.CheckAccess(ctx, vehicleID, userID, false); err != nil {
		return nil, err
	}
	return s.repo.ListRepairLogs(ctx, vehicleID)
}

func (s *Service) DeleteRepairLogs(ctx context.Context, userID, username, vehicleID string, ids []string) error {
	if vehicleID == "" {
		return apperr.BadRequest("no vehicleId provided")
	}
	if len(ids) == 0 {
		return apperr.BadRequest("no ids provided")
	}
	if err := s.access.CheckAccess(ctx, vehicleID, userID, false); err != nil {
		return err
	}
	if err := s.repo.DeleteRepairLogs(ctx, ids, vehicleID); err != nil {
		return err
	}

	vehicleName, err := s.access.VehicleName(ctx, vehicleID)
	if err != nil {
		s.log.Warnf("resolve vehicle name for changelog failed: %v", err)
	}
	s.pub.RepairLogsDeleted(userID, username, vehicleID, vehicleName, len(ids))
	return nil
}

// --- 统计 ---

// VehicleCosts 车辆费用汇总，按日志类别分组。
type VehicleCosts struct {
	RepairLogCosts    CostSummary `json:"repairLogCosts"`
	ScheduledLogCosts CostSummary `json:"scheduledLogCosts"`
}

func (s *Service) AggregateVehicleCosts(ctx context.Context, userID, vehicleID string) (*VehicleCosts, error) {
	if err := s.access.CheckAccess(ctx, vehicleID, userID, false); err != nil {
		return nil, err
	}
	ownerID, err := s.access.VehicleOwner(ctx, vehicleID)
	if err != nil {
		return nil, err
	}
	repair, err := s.repo.RepairLogCosts(ctx, ownerID, vehicleID)
	if err != nil {
		return nil, err
	}
	scheduled, err := s.repo.ScheduledLogCosts(ctx, ownerID, vehicleID)
	if err != nil {
		return nil, err
	}
	return &VehicleCosts{RepairLogCosts: repair, ScheduledLogCosts: scheduled}, nil
}

func (s *Service) AggregateTypeUsage(ctx context.Context, userID, vehicleID string) ([]TypeUsage, error) {
	if err := s.access.CheckAccess(ctx, vehicleID, userID, false); err != nil {
		return nil, err
	}
	ownerID, err := s.access.VehicleOwner(ctx, vehicleID)
	if err != nil {
		return nil, err
	}
	return s.repo.ScheduledTypeUsage(ctx, ownerID, vehicleID)
}
