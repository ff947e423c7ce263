package audit

import (
	"context"
	"fmt"

	"github.com/AutoHub/AutoHub/internal/common/apperr"
)

// VehicleAccess 车辆访问校验。由 vehicle.Service 实现，
// 这里只依赖接口以避免包环。
type VehicleAccess interface {
	CheckAccess(ctx context.Context, vehicleID, userID string, ownerOnly bool) error
}

// Service 变更记录查询用例。
type Service struct {
	repo   *Repo
	access VehicleAccess
}

func NewService(repo *Repo, access VehicleAccess) *Service {
	return &Service{repo: repo, access: access}
}

// ChangelogBundle 用户变更记录查询结果。
type ChangelogBundle struct {
	Changelog        []Changelog        `json:"changelog"`
	VehicleChangelog []VehicleChangelog `json:"vehicleChangelog"`
}

// FindChangelog 返回用户自己的变更记录与其名下车辆的变更记录。
func (s *Service) FindChangelog(ctx context.Context, userID string) (*ChangelogBundle, error) {
	if s == nil || s.repo == nil {
		return nil, fmt.Errorf("service not initialized")
	}
	if userID == "" {
		return nil, apperr.BadRequest("No userId provided")
	}

	changelog, err := s.repo.ListChangelog(ctx, userID)
	if err != nil {
		return nil, err
	}
	vehicleChangelog, err := s.repo.ListVehicleChangelogByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &ChangelogBundle{Changelog: changelog, VehicleChangelog: vehicleChangelog}, nil
}

// FindVehicleChangelog 返回某车辆的变更记录，要求用户对车辆有访问权。
func (s *Service) FindVehicleChangelog(ctx context.Context, vehicleID, userID string) ([]VehicleChangelog, error) {
	if s == nil || s.repo == nil {
		return nil, fmt.Errorf("service not initialized")
	}
	if userID == "" {
		return nil, apperr.BadRequest("No userId provided")
	}
	if vehicleID == "" {
		return nil, apperr.BadRequest("No vehicleId provided")
	}
	if s.access != nil {
		if err := s.access.CheckAccess(ctx, vehicleID, userID, false); err != nil {
			return nil, err
		}
	}
	return s.repo.ListVehicleChangelog(ctx, vehicleID)
}

// FindAppLogs 返回最近的应用日志。调用方（HTTP 层）负责管理员鉴权。
func (s *Service) FindAppLogs(ctx context.Context, limit int) ([]AppLog, error) {
	if s == nil || s.repo == nil {
		return nil, fmt.Errorf("service not initialized")
	}
	return s.repo.ListAppLog(ctx, limit)
}
