package maintenance_test

import (
	"context"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/AutoHub/AutoHub/internal/audit"
	"github.com/AutoHub/AutoHub/internal/common/apperr"
	"github.com/AutoHub/AutoHub/internal/common/logger"
	"github.com/AutoHub/AutoHub/internal/maintenance"
	"github.com/AutoHub/AutoHub/internal/servicelog"
	"github.com/AutoHub/AutoHub/internal/vehicle"
)

type allowOwnerAccess struct {
	owners map[string]string
}

func (a *allowOwnerAccess) CheckAccess(_ context.Context, vehicleID, userID string, _ bool) error {
	owner, ok := a.owners[vehicleID]
	if !ok {
		return apperr.NotFound("no vehicle found")
	}
	if owner != userID {
		return apperr.Forbidden("user cannot access vehicle")
	}
	return nil
}

func (a *allowOwnerAccess) VehicleOwner(_ context.Context, vehicleID string) (string, error) {
	owner, ok := a.owners[vehicleID]
	if !ok {
		return "", apperr.NotFound("no vehicle found")
	}
	return owner, nil
}

func (a *allowOwnerAccess) VehicleName(_ context.Context, _ string) (string, error) {
	return "Test Vehicle", nil
}

func newUpcomingFixture(t *testing.T, now time.Time) (*maintenance.Service, *gorm.DB) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	err = db.AutoMigrate(
		&vehicle.Vehicle{},
		&maintenance.ScheduledServiceType{}, &maintenance.ScheduledServiceInstance{},
		&servicelog.ScheduledLog{},
	)
	if err != nil {
		t.Fatalf("migrate: %v", err)
	}
	for _, table := range []string{
		"vehicles", "scheduled_service_types", "scheduled_service_instances", "scheduled_logs",
	} {
		db.Exec("DELETE FROM " + table)
	}

	log, err := logger.NewLogger("error", "text", "stdout", "")
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	access := &allowOwnerAccess{owners: map[string]string{"v-1": "u-1", "v-2": "u-1"}}
	svc := maintenance.NewService(maintenance.NewRepo(db), access, audit.NewPublisher(nil), log,
		maintenance.WithClock(func() time.Time { return now }))
	return svc, db
}

func seedPair(t *testing.T, db *gorm.DB, typeID, typeName, instanceID, vehicleID string, mileInterval, timeInterval int) {
	t.Helper()
	if err := db.Create(&maintenance.ScheduledServiceType{ID: typeID, UserID: "u-1", Name: typeName}).Error; err != nil {
		t.Fatalf("seed type: %v", err)
	}
	err := db.Create(&maintenance.ScheduledServiceInstance{
		ID: instanceID, UserID: "u-1", VehicleID: vehicleID,
		ScheduledServiceTypeID: typeID,
		MileInterval:           mileInterval, TimeInterval: timeInterval, TimeUnits: maintenance.UnitMonth,
	}).Error
	if err != nil {
		t.Fatalf("seed instance: %v", err)
	}
}

func seedLog(t *testing.T, db *gorm.DB, id, vehicleID, instanceID string, performed time.Time, mileage int) {
	t.Helper()
	err := db.Create(&servicelog.ScheduledLog{
		ID: id, UserID: "u-1", VehicleID: vehicleID,
		ScheduledServiceInstanceID: instanceID,
		DatePerformed:              performed, Mileage: mileage,
	}).Error
	if err != nil {
		t.Fatalf("seed log: %v", err)
	}
}

func TestFindUpcomingMaintenanceAggregation(t *testing.T) {
	now := time.Date(2024, time.May, 1, 0, 0, 0, 0, time.UTC)
	svc, db := newUpcomingFixture(t, now)
	ctx := context.Background()

	for _, v := range []vehicle.Vehicle{
		{ID: "v-1", UserID: "u-1", Name: "Outback", Make: "Subaru", Model: "Outback", Year: 2019, Mileage: 61000},
		{ID: "v-2", UserID: "u-1", Name: "Civic", Make: "Honda", Model: "Civic", Year: 2016, Mileage: 90000},
	} {
		if err := db.Create(&v).Error; err != nil {
			t.Fatalf("seed vehicle: %v", err)
		}
	}

	// iA：最近一次 2024-03-01 / 55000，里程超了但日期没到
	seedPair(t, db, "t-a", "Oil Change", "i-a", "v-1", 5000, 6)
	seedLog(t, db, "l-a1", "v-1", "i-a", time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC), 50000)
	seedLog(t, db, "l-a2", "v-1", "i-a", time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC), 55000)

	// iB：到期点恰好等于当前里程，不算逾期
	seedPair(t, db, "t-b", "Tire Rotation", "i-b", "v-1", 5000, 6)
	seedLog(t, db, "l-b1", "v-1", "i-b", time.Date(2024, time.April, 1, 0, 0, 0, 0, time.UTC), 56000)

	// iC：没有保养记录，不应出现在结果里
	seedPair(t, db, "t-c", "Coolant Flush", "i-c", "v-2", 30000, 24)

	// iD：日期和里程都超了
	seedPair(t, db, "t-d", "Air Filter", "i-d", "v-1", 1000, 1)
	seedLog(t, db, "l-d1", "v-1", "i-d", time.Date(2023, time.January, 1, 0, 0, 0, 0, time.UTC), 40000)

	entries, err := svc.FindUpcomingMaintenance(ctx, "u-1", "")
	if err != nil {
		t.Fatalf("FindUpcomingMaintenance: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d: %+v", len(entries), entries)
	}

	// 逾期的排前面，逾期之间按上次保养日期倒序
	if entries[0].ScheduledServiceTypeName != "Oil Change" || entries[0].OverdueReason != maintenance.ReasonMileageOverdue {
		t.Fatalf("first entry: %+v", entries[0])
	}
	if entries[0].LastScheduledLogID != "l-a2" || entries[0].ScheduledLogLastMileagePerformed != 55000 {
		t.Fatalf("expected latest log per instance, got %+v", entries[0])
	}
	if entries[1].ScheduledServiceTypeName != "Air Filter" || entries[1].OverdueReason != maintenance.ReasonOverdue {
		t.Fatalf("second entry: %+v", entries[1])
	}
	if entries[2].ScheduledServiceTypeName != "Tire Rotation" || entries[2].IsOverdue {
		t.Fatalf("third entry: %+v", entries[2])
	}
	if entries[2].MileageDue != 61000 {
		t.Fatalf("boundary mileage: %+v", entries[2])
	}
}

func TestFindUpcomingMaintenanceVehicleFilter(t *testing.T) {
	now := time.Date(2024, time.May, 1, 0, 0, 0, 0, time.UTC)
	svc, db := newUpcomingFixture(t, now)
	ctx := context.Background()

	for _, v := range []vehicle.Vehicle{
		{ID: "v-1", UserID: "u-1", Name: "Outback", Mileage: 61000},
		{ID: "v-2", UserID: "u-1", Name: "Civic", Mileage: 90000},
	} {
		if err := db.Create(&v).Error; err != nil {
			t.Fatalf("seed vehicle: %v", err)
		}
	}
	seedPair(t, db, "t-a", "Oil Change", "i-a", "v-1", 5000, 6)
	seedLog(t, db, "l-a1", "v-1", "i-a", time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC), 55000)
	seedPair(t, db, "t-b", "Oil Change 2", "i-b", "v-2", 5000, 6)
	seedLog(t, db, "l-b1", "v-2", "i-b", time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC), 85000)

	entries, err := svc.FindUpcomingMaintenance(ctx, "u-1", "v-2")
	if err != nil {
		t.Fatalf("FindUpcomingMaintenance: %v", err)
	}
	if len(entries) != 1 || entries[0].VehicleID != "v-2" {
		t.Fatalf("vehicle filter: %+v", entries)
	}

	// 非本人车辆直接拒绝
	if _, err := svc.FindUpcomingMaintenance(ctx, "u-2", "v-2"); apperr.StatusCode(err) != 403 {
		t.Fatalf("expected 403 for foreign user, got %v", err)
	}
}
