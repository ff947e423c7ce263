package maintenance_test

import (
	"context"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/AutoHub/AutoHub/internal/audit"
	"github.com/AutoHub/AutoHub/internal/common/apperr"
	"github.com/AutoHub/AutoHub/internal/common/logger"
	"github.com/AutoHub/AutoHub/internal/maintenance"
	"github.com/AutoHub/AutoHub/internal/servicelog"
)

// ownerAwareAccess 区分 ownerOnly 的访问校验：共享用户有读权限，不是车主。
type ownerAwareAccess struct {
	owners map[string]string
	shared map[string]bool // "vehicleID/userID"
}

func (a *ownerAwareAccess) CheckAccess(_ context.Context, vehicleID, userID string, ownerOnly bool) error {
	owner, ok := a.owners[vehicleID]
	if !ok {
		return apperr.NotFound("no vehicle found")
	}
	if owner == userID {
		return nil
	}
	if !ownerOnly && a.shared[vehicleID+"/"+userID] {
		return nil
	}
	return apperr.Forbidden("user cannot access vehicle")
}

func (a *ownerAwareAccess) VehicleOwner(_ context.Context, vehicleID string) (string, error) {
	owner, ok := a.owners[vehicleID]
	if !ok {
		return "", apperr.NotFound("no vehicle found")
	}
	return owner, nil
}

func (a *ownerAwareAccess) VehicleName(_ context.Context, _ string) (string, error) {
	return "Test Vehicle", nil
}

func newInstanceFixture(t *testing.T) (*maintenance.Service, *gorm.DB) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	err = db.AutoMigrate(
		&maintenance.ScheduledServiceType{}, &maintenance.ScheduledServiceInstance{},
		&servicelog.ScheduledLog{},
	)
	if err != nil {
		t.Fatalf("migrate: %v", err)
	}
	for _, table := range []string{
		"scheduled_service_types", "scheduled_service_instances", "scheduled_logs",
	} {
		db.Exec("DELETE FROM " + table)
	}

	log, err := logger.NewLogger("error", "text", "stdout", "")
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	access := &ownerAwareAccess{
		owners: map[string]string{"v-1": "u-owner"},
		shared: map[string]bool{"v-1/u-friend": true},
	}
	svc := maintenance.NewService(maintenance.NewRepo(db), access, audit.NewPublisher(nil), log)
	return svc, db
}

func TestInstanceMutationsAreOwnerOnly(t *testing.T) {
	svc, _ := newInstanceFixture(t)
	ctx := context.Background()

	ownerType, err := svc.CreateServiceType(ctx, "u-owner", "Oil Change")
	if err != nil {
		t.Fatalf("CreateServiceType: %v", err)
	}
	friendType, err := svc.CreateServiceType(ctx, "u-friend", "Oil Change")
	if err != nil {
		t.Fatalf("CreateServiceType: %v", err)
	}

	// 共享用户不能应用保养类别
	_, err = svc.ApplyServiceTypes(ctx, "u-friend", "friend@example.com", "v-1", []maintenance.ApplyRequest{
		{ScheduledServiceTypeID: friendType.ID, MileInterval: 5000, TimeInterval: 6, TimeUnits: maintenance.UnitMonth},
	})
	if apperr.StatusCode(err) != 403 {
		t.Fatalf("expected 403 for shared user apply, got %v", err)
	}

	// 车主可以
	instances, err := svc.ApplyServiceTypes(ctx, "u-owner", "owner@example.com", "v-1", []maintenance.ApplyRequest{
		{ScheduledServiceTypeID: ownerType.ID, MileInterval: 5000, TimeInterval: 6, TimeUnits: maintenance.UnitMonth},
	})
	if err != nil {
		t.Fatalf("owner ApplyServiceTypes: %v", err)
	}
	if len(instances) != 1 {
		t.Fatalf("expected 1 instance, got %d", len(instances))
	}
	instanceID := instances[0].ID

	// 共享用户可以读实例列表
	if _, err := svc.ListServiceInstances(ctx, "u-friend", "v-1"); err != nil {
		t.Fatalf("shared user list: %v", err)
	}

	// 但不能改
	_, err = svc.UpdateServiceInstance(ctx, "u-friend", "v-1", instanceID, 6000, 12, maintenance.UnitMonth)
	if apperr.StatusCode(err) != 403 {
		t.Fatalf("expected 403 for shared user update, got %v", err)
	}
	// 也不能删
	err = svc.DeleteServiceInstance(ctx, "u-friend", "friend@example.com", "v-1", instanceID)
	if apperr.StatusCode(err) != 403 {
		t.Fatalf("expected 403 for shared user delete, got %v", err)
	}

	// 车主改/删正常
	updated, err := svc.UpdateServiceInstance(ctx, "u-owner", "v-1", instanceID, 6000, 12, maintenance.UnitMonth)
	if err != nil {
		t.Fatalf("owner UpdateServiceInstance: %v", err)
	}
	if updated.MileInterval != 6000 || updated.TimeInterval != 12 {
		t.Fatalf("update not applied: %+v", updated)
	}
	if err := svc.DeleteServiceInstance(ctx, "u-owner", "owner@example.com", "v-1", instanceID); err != nil {
		t.Fatalf("owner DeleteServiceInstance: %v", err)
	}
}
