package vehicle

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

type staticDirectory map[string]string

func (d staticDirectory) Username(_ context.Context, userID string) (string, error) {
	name, ok := d[userID]
	if !ok {
		return "", apperr.NotFound("no user found")
	}
	return name, nil
}

func newTestService(t *testing.T) (*Service, *gorm.DB) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	err = db.AutoMigrate(
		&Vehicle{}, &VehicleShare{}, &VehicleAttachment{}, &VehicleAttachmentFile{},
		&maintenance.ScheduledServiceType{}, &maintenance.ScheduledServiceInstance{},
		&servicelog.ScheduledLog{}, &servicelog.RepairLog{},
	)
	if err != nil {
		t.Fatalf("migrate: %v", err)
	}
	for _, table := range []string{
		"vehicles", "vehicle_shares", "vehicle_attachments", "vehicle_attachment_files",
		"scheduled_service_types", "scheduled_service_instances", "scheduled_logs", "repair_logs",
	} {
		db.Exec("DELETE FROM " + table)
	}

	log, err := logger.NewLogger("error", "text", "stdout", "")
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	dir := staticDirectory{"u-owner": "owner@example.com", "u-friend": "friend@example.com"}
	svc := NewService(NewRepo(db), dir, audit.NewPublisher(nil), log)
	return svc, db
}

func mustCreateVehicle(t *testing.T, svc *Service, userID, name string) *Vehicle {
	t.Helper()
	v, err := svc.CreateVehicle(context.Background(), userID, userID, CreateOrUpdateVehicleRequest{
		Name: name, Mileage: 42000, Year: 2019, Make: "Subaru", Model: "Outback",
	})
	if err != nil {
		t.Fatalf("CreateVehicle: %v", err)
	}
	return v
}

func TestCheckAccessOwnerAndShared(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	v := mustCreateVehicle(t, svc, "u-owner", "Daily Driver")

	if err := svc.CheckAccess(ctx, v.ID, "u-owner", false); err != nil {
		t.Fatalf("owner access: %v", err)
	}
	if err := svc.CheckAccess(ctx, v.ID, "u-friend", false); err == nil {
		t.Fatalf("expected access denied before share")
	}

	if _, err := svc.ShareVehicle(ctx, v.ID, "u-owner", "owner@example.com", "u-friend"); err != nil {
		t.Fatalf("ShareVehicle: %v", err)
	}
	if err := svc.CheckAccess(ctx, v.ID, "u-friend", false); err != nil {
		t.Fatalf("shared access: %v", err)
	}
	// 共享用户不是车主
	if err := svc.CheckAccess(ctx, v.ID, "u-friend", true); err == nil {
		t.Fatalf("expected ownerOnly to reject shared user")
	}

	if err := svc.CheckAccess(ctx, "missing", "u-owner", false); apperr.StatusCode(err) != 404 {
		t.Fatalf("expected 404 for unknown vehicle, got %v", err)
	}
}

func TestShareVehicleRejectsSelfAndDuplicates(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	v := mustCreateVehicle(t, svc, "u-owner", "Daily Driver")

	if _, err := svc.ShareVehicle(ctx, v.ID, "u-owner", "owner@example.com", "u-owner"); err == nil {
		t.Fatalf("expected self-share rejection")
	}
	if _, err := svc.ShareVehicle(ctx, v.ID, "u-owner", "owner@example.com", "u-friend"); err != nil {
		t.Fatalf("ShareVehicle: %v", err)
	}
	if _, err := svc.ShareVehicle(ctx, v.ID, "u-owner", "owner@example.com", "u-friend"); err == nil {
		t.Fatalf("expected duplicate share rejection")
	}
	// 共享用户不能继续分享
	if _, err := svc.ShareVehicle(ctx, v.ID, "u-friend", "friend@example.com", "u-owner"); err == nil {
		t.Fatalf("expected non-owner share rejection")
	}
}

func TestUnshareVehiclePermissions(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	v := mustCreateVehicle(t, svc, "u-owner", "Daily Driver")
	if _, err := svc.ShareVehicle(ctx, v.ID, "u-owner", "owner@example.com", "u-friend"); err != nil {
		t.Fatalf("ShareVehicle: %v", err)
	}

	// 第三方不能解除别人的共享
	if err := svc.UnshareVehicle(ctx, v.ID, "u-stranger", "u-friend"); err == nil {
		t.Fatalf("expected stranger unshare rejection")
	}
	// 共享用户可以退出自己的共享
	if err := svc.UnshareVehicle(ctx, v.ID, "u-friend", "u-friend"); err != nil {
		t.Fatalf("self unshare: %v", err)
	}
	if err := svc.CheckAccess(ctx, v.ID, "u-friend", false); err == nil {
		t.Fatalf("expected access revoked after unshare")
	}
}

func TestRemoveVehicleCascades(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()
	v := mustCreateVehicle(t, svc, "u-owner", "Daily Driver")

	db.Create(&maintenance.ScheduledServiceType{ID: "t-1", UserID: "u-owner", Name: "Oil Change"})
	db.Create(&maintenance.ScheduledServiceInstance{
		ID: "i-1", UserID: "u-owner", VehicleID: v.ID,
		ScheduledServiceTypeID: "t-1", MileInterval: 5000, TimeInterval: 6, TimeUnits: maintenance.UnitMonth,
	})
	db.Create(&servicelog.ScheduledLog{ID: "sl-1", UserID: "u-owner", VehicleID: v.ID, ScheduledServiceInstanceID: "i-1"})
	db.Create(&servicelog.RepairLog{ID: "rl-1", UserID: "u-owner", VehicleID: v.ID, Name: "Brakes"})
	if _, err := svc.ShareVehicle(ctx, v.ID, "u-owner", "owner@example.com", "u-friend"); err != nil {
		t.Fatalf("ShareVehicle: %v", err)
	}
	if _, err := svc.CreateAttachment(ctx, v.ID, "u-owner", "invoice.pdf", "application/pdf", []byte("pdf")); err != nil {
		t.Fatalf("CreateAttachment: %v", err)
	}

	if err := svc.RemoveVehicle(ctx, v.ID, "u-owner", "owner@example.com"); err != nil {
		t.Fatalf("RemoveVehicle: %v", err)
	}

	for _, table := range []string{
		"vehicles", "vehicle_shares", "vehicle_attachments", "vehicle_attachment_files",
		"scheduled_service_instances", "scheduled_logs", "repair_logs",
	} {
		var count int64
		db.Table(table).Count(&count)
		if count != 0 {
			t.Fatalf("expected %s to be empty after cascade delete, got %d rows", table, count)
		}
	}
	// 保养类别不挂在车辆上，保留
	var types int64
	db.Table("scheduled_service_types").Count(&types)
	if types != 1 {
		t.Fatalf("expected scheduled service types to survive, got %d", types)
	}
}

func TestRemoveVehicleOwnerOnly(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	v := mustCreateVehicle(t, svc, "u-owner", "Daily Driver")
	if _, err := svc.ShareVehicle(ctx, v.ID, "u-owner", "owner@example.com", "u-friend"); err != nil {
		t.Fatalf("ShareVehicle: %v", err)
	}

	if err := svc.RemoveVehicle(ctx, v.ID, "u-friend", "friend@example.com"); apperr.StatusCode(err) != 404 {
		t.Fatalf("expected shared user delete to fail with 404, got %v", err)
	}
	if _, err := svc.FindVehicle(ctx, v.ID, "u-owner"); err != nil {
		t.Fatalf("vehicle should survive: %v", err)
	}
}

func TestAttachmentRoundTrip(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	v := mustCreateVehicle(t, svc, "u-owner", "Daily Driver")

	created, err := svc.CreateAttachment(ctx, v.ID, "u-owner", "invoice.pdf", "application/pdf", []byte("hello"))
	if err != nil {
		t.Fatalf("CreateAttachment: %v", err)
	}
	if created.Size != 5 {
		t.Fatalf("size: got %d", created.Size)
	}

	a, contents, err := svc.FindAttachmentWithFile(ctx, created.ID, v.ID, "u-owner")
	if err != nil {
		t.Fatalf("FindAttachmentWithFile: %v", err)
	}
	if a.Filename != "invoice.pdf" || string(contents) != "hello" {
		t.Fatalf("round trip mismatch: %s %q", a.Filename, contents)
	}

	if err := svc.RemoveAttachment(ctx, created.ID, v.ID, "u-owner"); err != nil {
		t.Fatalf("RemoveAttachment: %v", err)
	}
	if _, _, err := svc.FindAttachmentWithFile(ctx, created.ID, v.ID, "u-owner"); apperr.StatusCode(err) != 404 {
		t.Fatalf("expected 404 after delete, got %v", err)
	}
}
