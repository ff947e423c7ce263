package vehicle

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/AutoHub/AutoHub/internal/audit"
	"github.com/AutoHub/AutoHub/internal/common/apperr"
	"github.com/AutoHub/AutoHub/internal/common/logger"
)

// UserDirectory 用户查询，由 user 包实现，用于共享目标校验和变更记录描述。
type UserDirectory interface {
	Username(ctx context.Context, userID string) (string, error)
}

type Service struct {
	repo  *Repo
	users UserDirectory
	pub   *audit.Publisher
	log   logger.Logger
}

func NewService(repo *Repo, users UserDirectory, pub *audit.Publisher, log logger.Logger) *Service {
	return &Service{repo: repo, users: users, pub: pub, log: log}
}

// CheckAccess 校验用户能否访问车辆：车主总是可以，共享用户在
// ownerOnly 为 false 时可以。车辆不存在返回 404，无权限返回 403。
func (s *Service) CheckAccess(ctx context.Context, vehicleID, userID string, ownerOnly bool) error {
	if vehicleID == "" {
		return apperr.BadRequest("no vehicleId provided")
	}
	if userID == "" {
		return apperr.BadRequest("no userId provided")
	}

	v, err := s.repo.GetByID(ctx, vehicleID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.NotFound("no vehicle found")
		}
		return err
	}
	if v.UserID == userID {
		return nil
	}
	if !ownerOnly {
		if _, err := s.repo.GetShare(ctx, vehicleID, userID); err == nil {
			return nil
		}
	}
	return apperr.Forbidden("user cannot access vehicle")
}

func (s *Service) VehicleOwner(ctx context.Context, vehicleID string) (string, error) {
	v, err := s.repo.GetByID(ctx, vehicleID)
	if err != nil {
		return "", err
	}
	return v.UserID, nil
}

func (s *Service) VehicleName(ctx context.Context, vehicleID string) (string, error) {
	v, err := s.repo.GetByID(ctx, vehicleID)
	if err != nil {
		return "", err
	}
	return v.Name, nil
}

// CreateOrUpdateVehicleRequest 创建或整体更新车辆的请求。
type CreateOrUpdateVehicleRequest struct {
	Name         string `json:"name"`
	Mileage      int    `json:"mileage"`
	Year         int    `json:"year"`
	Make         string `json:"make"`
	Model        string `json:"model"`
	LicensePlate string `json:"licensePlate"`
	VIN          string `json:"vin"`
	Notes        string `json:"notes"`
	Base64Image  string `json:"base64Image,omitempty"`
}

func (s *Service) CreateVehicle(ctx context.Context, userID, username string, req CreateOrUpdateVehicleRequest) (*Vehicle, error) {
	if userID == "" {
		return nil, apperr.BadRequest("no userId provided")
	}
	if strings.TrimSpace(req.Name) == "" {
		return nil, apperr.BadRequest("no name provided")
	}

	v := &Vehicle{
		ID:           uuid.NewString(),
		UserID:       userID,
		Name:         req.Name,
		Mileage:      req.Mileage,
		Year:         req.Year,
		Make:         req.Make,
		Model:        req.Model,
		LicensePlate: req.LicensePlate,
		VIN:          req.VIN,
		Notes:        req.Notes,
		Base64Image:  req.Base64Image,
		DateCreated:  time.Now().UnixMilli(),
	}
	if err := s.repo.Create(ctx, v); err != nil {
		return nil, err
	}
	s.pub.VehicleCreated(userID, username, v.ID, v.Name)
	return v, nil
}

// UpdateVehicle 整体更新车辆，仅车主可改。变化的字段记入车辆变更记录。
func (s *Service) UpdateVehicle(ctx context.Context, vehicleID, userID, username string, req CreateOrUpdateVehicleRequest) (*Vehicle, error) {
	if vehicleID == "" {
		return nil, apperr.BadRequest("no vehicleId provided")
	}
	if userID == "" {
		return nil, apperr.BadRequest("no userId provided")
	}

	v, err := s.repo.Get(ctx, vehicleID, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("no vehicle found")
		}
		return nil, err
	}

	props := diffProps(v, req)
	v.Name = req.Name
	v.Mileage = req.Mileage
	v.Year = req.Year
	v.Make = req.Make
	v.Model = req.Model
	v.LicensePlate = req.LicensePlate
	v.VIN = req.VIN
	v.Notes = req.Notes
	v.Base64Image = req.Base64Image

	if err := s.repo.Update(ctx, v); err != nil {
		return nil, err
	}
	s.pub.VehicleUpdated(userID, username, v.ID, v.Name, props)
	return v, nil
}

// diffProps 对比请求和现状，产出变更记录用的字段清单。图片字段只记发生过变化。
func diffProps(v *Vehicle, req CreateOrUpdateVehicleRequest) []audit.UpdatedProperty {
	var props []audit.UpdatedProperty
	add := func(name, value string) {
		props = append(props, audit.UpdatedProperty{Property: name, Value: value})
	}
	if v.Name != req.Name {
		add("name", req.Name)
	}
	if v.Mileage != req.Mileage {
		add("mileage", strconv.Itoa(req.Mileage))
	}
	if v.Year != req.Year {
		add("year", strconv.Itoa(req.Year))
	}
	if v.Make != req.Make {
		add("make", req.Make)
	}
	if v.Model != req.Model {
		add("model", req.Model)
	}
	if v.LicensePlate != req.LicensePlate {
		add("licensePlate", req.LicensePlate)
	}
	if v.VIN != req.VIN {
		add("vin", req.VIN)
	}
	if v.Notes != req.Notes {
		add("notes", req.Notes)
	}
	if v.Base64Image != req.Base64Image {
		add("image", "changed")
	}
	return props
}

func (s *Service) FindVehicles(ctx context.Context, userID string) ([]Vehicle, error) {
	if userID == "" {
		return nil, apperr.BadRequest("no userId provided")
	}
	return s.repo.ListByUser(ctx, userID)
}

func (s *Service) FindSharedVehicles(ctx context.Context, userID string) ([]Vehicle, error) {
	if userID == "" {
		return nil, apperr.BadRequest("no userId provided")
	}
	return s.repo.ListSharedWithUser(ctx, userID)
}

func (s *Service) FindVehicle(ctx context.Context, vehicleID, userID string) (*Vehicle, error) {
	if err := s.CheckAccess(ctx, vehicleID, userID, false); err != nil {
		return nil, err
	}
	return s.repo.GetByID(ctx, vehicleID)
}

// RemoveVehicle 删除车辆及其全部日志、实例、共享和附件，仅车主可删。
func (s *Service) RemoveVehicle(ctx context.Context, vehicleID, userID, username string) error {
	if vehicleID == "" {
		return apperr.BadRequest("no vehicleId provided")
	}
	if userID == "" {
		return apperr.BadRequest("no userId provided")
	}

	v, err := s.repo.Get(ctx, vehicleID, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.NotFound("no vehicle found")
		}
		return err
	}
	if err := s.repo.Delete(ctx, vehicleID, userID); err != nil {
		return err
	}
	s.pub.VehicleDeleted(userID, username, v.Name)
	return nil
}

// --- 共享 ---

// ShareVehicle 把车辆共享给另一个用户，仅车主可操作，不能共享给自己。
func (s *Service) ShareVehicle(ctx context.Context, vehicleID, ownerID, username, targetUserID string) (*VehicleShare, error) {
	if targetUserID == "" {
		return nil, apperr.BadRequest("no userId provided")
	}
	if targetUserID == ownerID {
		return nil, apperr.BadRequest("cannot share a vehicle with its owner")
	}
	if err := s.CheckAccess(ctx, vehicleID, ownerID, true); err != nil {
		return nil, err
	}

	targetName, err := s.users.Username(ctx, targetUserID)
	if err != nil {
		return nil, apperr.NotFound("no user found")
	}
	if _, err := s.repo.GetShare(ctx, vehicleID, targetUserID); err == nil {
		return nil, apperr.BadRequest("vehicle already shared with user")
	}

	share := &VehicleShare{
		ID:        uuid.NewString(),
		VehicleID: vehicleID,
		UserID:    targetUserID,
	}
	if err := s.repo.CreateShare(ctx, share); err != nil {
		return nil, err
	}

	name, err := s.VehicleName(ctx, vehicleID)
	if err != nil {
		s.log.Warnf("resolve vehicle name for changelog failed: %v", err)
	}
	s.pub.VehicleShared(ownerID, username, vehicleID, name, targetName)
	return share, nil
}

// UnshareVehicle 解除共享。车主可以移除任何人，共享用户可以退出自己的共享。
func (s *Service) UnshareVehicle(ctx context.Context, vehicleID, requesterID, targetUserID string) error {
	owner, err := s.VehicleOwner(ctx, vehicleID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.NotFound("no vehicle found")
		}
		return err
	}
	if requesterID != owner && requesterID != targetUserID {
		return apperr.Forbidden("user cannot modify vehicle shares")
	}
	if _, err := s.repo.GetShare(ctx, vehicleID, targetUserID); err != nil {
		return apperr.NotFound("no vehicle share found")
	}
	return s.repo.DeleteShare(ctx, vehicleID, targetUserID)
}

// SharedUser 共享用户的对外表示。
type SharedUser struct {
	UserID   string `json:"userId"`
	Username string `json:"username"`
}

func (s *Service) FindSharedUsers(ctx context.Context, vehicleID, userID string) ([]SharedUser, error) {
	if err := s.CheckAccess(ctx, vehicleID, userID, false); err != nil {
		return nil, err
	}
	shares, err := s.repo.ListShares(ctx, vehicleID)
	if err != nil {
		return nil, err
	}
	users := make([]SharedUser, 0, len(shares))
	for _, share := range shares {
		name, err := s.users.Username(ctx, share.UserID)
		if err != nil {
			s.log.Warnf("resolve username for share %s failed: %v", share.ID, err)
		}
		users = append(users, SharedUser{UserID: share.UserID, Username: name})
	}
	return users, nil
}

// --- 附件 ---

func (s *Service) CreateAttachment(ctx context.Context, vehicleID, userID, filename, contentType string, contents []byte) (*VehicleAttachment, error) {
	if err := s.CheckAccess(ctx, vehicleID, userID, false); err != nil {
		return nil, err
	}
	if filename == "" {
		return nil, apperr.BadRequest("no filename provided")
	}
	if len(contents) == 0 {
		return nil, apperr.BadRequest("empty file")
	}

	a := &VehicleAttachment{
		ID:          uuid.NewString(),
		VehicleID:   vehicleID,
		UserID:      userID,
		Filename:    filename,
		Path:        vehicleID + "/" + filename,
		ContentType: contentType,
		Size:        int64(len(contents)),
	}
	if err := s.repo.CreateAttachment(ctx, a, contents); err != nil {
		return nil, err
	}
	return a, nil
}

func (s *Service) FindAttachments(ctx context.Context, vehicleID, userID string) ([]VehicleAttachment, error) {
	if err := s.CheckAccess(ctx, vehicleID, userID, false); err != nil {
		return nil, err
	}
	return s.repo.ListAttachments(ctx, vehicleID)
}

// FindAttachmentWithFile 取附件元数据和内容，下载用。
func (s *Service) FindAttachmentWithFile(ctx context.Context, attachmentID, vehicleID, userID string) (*VehicleAttachment, []byte, error) {
	if err := s.CheckAccess(ctx, vehicleID, userID, false); err != nil {
		return nil, nil, err
	}
	a, err := s.repo.GetAttachment(ctx, attachmentID, vehicleID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, apperr.NotFound("no attachment found")
		}
		return nil, nil, err
	}
	contents, err := s.repo.GetAttachmentContents(ctx, attachmentID)
	if err != nil {
		return nil, nil, err
	}
	return a, contents, nil
}

func (s *Service) RemoveAttachment(ctx context.Context, attachmentID, vehicleID, userID string) error {
	if err := s.CheckAccess(ctx, vehicleID, userID, false); err != nil {
		return err
	}
	if err := s.repo.DeleteAttachment(ctx, attachmentID, vehicleID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.NotFound("no attachment found")
		}
		return err
	}
	return nil
}
