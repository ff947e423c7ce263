package maintenance

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/AutoHub/AutoHub/internal/audit"
	"github.com/AutoHub/AutoHub/internal/common/apperr"
	"github.com/AutoHub/AutoHub/internal/common/logger"
)

// VehicleAccess 车辆访问校验，由 vehicle 包实现。
type VehicleAccess interface {
	// CheckAccess 校验 userID 是否能访问 vehicleID。
	// ownerOnly 为 true 时仅车主可通过，共享用户不行。
	CheckAccess(ctx context.Context, vehicleID, userID string, ownerOnly bool) error
	// VehicleOwner 取车主的用户 id。共享用户写入的数据挂在车主名下。
	VehicleOwner(ctx context.Context, vehicleID string) (string, error)
	// VehicleName 取车辆名称，用于变更记录描述。
	VehicleName(ctx context.Context, vehicleID string) (string, error)
}

type Service struct {
	repo   *Repo
	access VehicleAccess
	pub    *audit.Publisher
	log    logger.Logger
	nowFn  func() time.Time
}

type Option func(*Service)

// WithClock 注入时钟，测试用。
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.nowFn = now }
}

func NewService(repo *Repo, access VehicleAccess, pub *audit.Publisher, log logger.Logger, opts ...Option) *Service {
	s := &Service{
		repo:   repo,
		access: access,
		pub:    pub,
		log:    log,
		nowFn:  time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) now() time.Time {
	if s.nowFn != nil {
		return s.nowFn()
	}
	return time.Now()
}

func validUnit(u TimeUnit) bool {
	switch u {
	case UnitDay, UnitWeek, UnitMonth, UnitYear:
		return true
	}
	return false
}

// --- 保养类别 ---

func (s *Service) CreateServiceType(ctx context.Context, userID, name string) (*ScheduledServiceType, error) {
	if userID == "" {
		return nil, apperr.BadRequest("no userId provided")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperr.BadRequest("no name provided")
	}

	t := &ScheduledServiceType{
		ID:     uuid.NewString(),
		UserID: userID,
		Name:   name,
	}
	if err := s.repo.CreateType(ctx, t); err != nil {
		return nil, err
	}
	s.pub.ServiceTypeCreated(userID, name)
	return t, nil
}

func (s *Service) UpdateServiceType(ctx context.Context, userID, id, name string) (*ScheduledServiceType, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperr.BadRequest("no name provided")
	}

	t, err := s.repo.GetType(ctx, id, userID)
	if err != nil {
		return nil, apperr.NotFound("scheduled service type not found")
	}
	t.Name = name
	if err := s.repo.UpdateType(ctx, t); err != nil {
		return nil, err
	}
	s.pub.ServiceTypeUpdated(userID, name)
	return t, nil
}

func (s *Service) DeleteServiceType(ctx context.Context, userID, id string) error {
	t, err := s.repo.GetType(ctx, id, userID)
	if err != nil {
		return apperr.NotFound("scheduled service type not found")
	}
	if err := s.repo.DeleteType(ctx, id, userID); err != nil {
		return err
	}
	s.pub.ServiceTypeDeleted(userID, t.Name)
	return nil
}

func (s *Service) ListServiceTypes(ctx context.Context, userID string) ([]ScheduledServiceType, error) {
	if userID == "" {
		return nil, apperr.BadRequest("no userId provided")
	}
	return s.repo.ListTypes(ctx, userID)
}

// --- 保养实例 ---

// ApplyRequest 把一个保养类别应用到车辆的参数。
type ApplyRequest struct {
	ScheduledServiceTypeID string   `json:"scheduledServiceTypeId"`
	MileInterval           int      `json:"mileInterval"`
	TimeInterval           int      `json:"timeInterval"`
	TimeUnits              TimeUnit `json:"timeUnits"`
}

// ApplyServiceTypes 把若干保养类别应用到车辆，每个类别生成一条实例。
func (s *Service) ApplyServiceTypes(ctx context.Context, userID, username, vehicleID string, reqs []ApplyRequest) ([]ScheduledServiceInstance, error) {
	if len(reqs) == 0 {
		return nil, apperr.BadRequest("no scheduled service types provided")
	}
	// 实例的增删改只允许车主操作，共享用户只能读
	if err := s.access.CheckAccess(ctx, vehicleID, userID, true); err != nil {
		return nil, err
	}
	ownerID, err := s.access.VehicleOwner(ctx, vehicleID)
	if err != nil {
		return nil, err
	}

	instances := make([]ScheduledServiceInstance, 0, len(reqs))
	typeNames := make([]string, 0, len(reqs))
	for _, req := range reqs {
		if !validUnit(req.TimeUnits) {
			return nil, apperr.BadRequest("invalid time units: " + string(req.TimeUnits))
		}
		if req.MileInterval < 0 || req.TimeInterval < 0 {
			return nil, apperr.BadRequest("intervals must be non-negative")
		}
		t, err := s.repo.GetType(ctx, req.ScheduledServiceTypeID, userID)
		if err != nil {
			return nil, apperr.NotFound("scheduled service type not found")
		}
		typeNames = append(typeNames, t.Name)
		instances = append(instances, ScheduledServiceInstance{
			ID:                     uuid.NewString(),
			UserID:                 ownerID,
			VehicleID:              vehicleID,
			ScheduledServiceTypeID: req.ScheduledServiceTypeID,
			MileInterval:           req.MileInterval,
			TimeInterval:           req.TimeInterval,
			TimeUnits:              req.TimeUnits,
		})
	}

	if err := s.repo.CreateInstances(ctx, instances); err != nil {
		return nil, err
	}

	vehicleName, err := s.access.VehicleName(ctx, vehicleID)
	if err != nil {
		s.log.Warnf("resolve vehicle name for changelog failed: %v", err)
	}
	s.pub.ServiceTypesApplied(userID, username, vehicleID, vehicleName, typeNames)
	return instances, nil
}

func (s *Service) UpdateServiceInstance(ctx context.Context, userID, vehicleID, instanceID string, mileInterval, timeInterval int, timeUnits TimeUnit) (*ScheduledServiceInstance, error) {
	if !validUnit(timeUnits) {
		return nil, apperr.BadRequest("invalid time units: " + string(timeUnits))
	}
	if mileInterval < 0 || timeInterval < 0 {
		return nil, apperr.BadRequest("intervals must be non-negative")
	}
	if err := s.access.CheckAccess(ctx, vehicleID, userID, true); err != nil {
		return nil, err
	}

	i, err := s.repo.GetInstance(ctx, instanceID, vehicleID)
	if err != nil {
		return nil, apperr.NotFound("scheduled service instance not found")
	}
	i.MileInterval = mileInterval
	i.TimeInterval = timeInterval
	i.TimeUnits = timeUnits
	if err := s.repo.UpdateInstance(ctx, i); err != nil {
		return nil, err
	}
	return i, nil
}

// DeleteServiceInstance 取消车辆上的一个保养类别，连带删除其保养记录。
func (s *Service) DeleteServiceInstance(ctx context.Context, userID, username, vehicleID, instanceID string) error {
	if err := s.access.CheckAccess(ctx, vehicleID, userID, true); err != nil {
		return err
	}
	if _, err := s.repo.GetInstance(ctx, instanceID, vehicleID); err != nil {
		return apperr.NotFound("scheduled service instance not found")
	}
	if err := s.repo.DeleteInstance(ctx, instanceID, vehicleID); err != nil {
		return err
	}

	vehicleName, err := s.access.VehicleName(ctx, vehicleID)
	if err != nil {
		s.log.Warnf("resolve vehicle name for changelog failed: %v", err)
	}
	s.pub.ServiceTypeUnapplied(userID, username, vehicleID, vehicleName)
	return nil
}

func (s *Service) ListServiceInstances(ctx context.Context, userID, vehicleID string) ([]ScheduledServiceInstance, error) {
	if err := s.access.CheckAccess(ctx, vehicleID, userID, false); err != nil {
		return nil, err
	}
	return s.repo.ListInstancesByVehicle(ctx, vehicleID)
}
