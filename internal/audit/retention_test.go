package audit

import (
	"context"
	"fmt"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared&_pragma=foreign_keys(1)"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&Changelog{}, &VehicleChangelog{}, &AppLog{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	// 内存库按连接隔离，清掉上一个用例的数据
	db.Exec("DELETE FROM changelogs")
	db.Exec("DELETE FROM vehicle_changelogs")
	db.Exec("DELETE FROM app_logs")
	return db
}

func TestChangelogRetentionKeepsNewestRows(t *testing.T) {
	db := newTestDB(t)
	repo := NewRepo(db, 10, 100000)
	ctx := context.Background()

	for i := 0; i < 15; i++ {
		if _, err := repo.CreateChangelog(ctx, "u-1", fmt.Sprintf("entry %d", i)); err != nil {
			t.Fatalf("CreateChangelog: %v", err)
		}
		// 保证 created_at 单调递增，使淘汰顺序确定
		time.Sleep(2 * time.Millisecond)
	}

	entries, err := repo.ListChangelog(ctx, "u-1")
	if err != nil {
		t.Fatalf("ListChangelog: %v", err)
	}
	if len(entries) != 10 {
		t.Fatalf("expected 10 entries after retention, got %d", len(entries))
	}
	// ListChangelog 按时间倒序：最新的是 entry 14，最老的是 entry 5
	if entries[0].Description != "entry 14" {
		t.Fatalf("newest entry mismatch: %s", entries[0].Description)
	}
	if entries[len(entries)-1].Description != "entry 5" {
		t.Fatalf("oldest surviving entry mismatch: %s", entries[len(entries)-1].Description)
	}
}

func TestChangelogRetentionIsPerUser(t *testing.T) {
	db := newTestDB(t)
	repo := NewRepo(db, 3, 100000)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if _, err := repo.CreateChangelog(ctx, "u-a", fmt.Sprintf("a %d", i)); err != nil {
			t.Fatalf("CreateChangelog: %v", err)
		}
		time.Sleep(2 * time.Millisecond)
	}
	if _, err := repo.CreateChangelog(ctx, "u-b", "b 0"); err != nil {
		t.Fatalf("CreateChangelog: %v", err)
	}

	a, err := repo.ListChangelog(ctx, "u-a")
	if err != nil {
		t.Fatalf("ListChangelog: %v", err)
	}
	b, err := repo.ListChangelog(ctx, "u-b")
	if err != nil {
		t.Fatalf("ListChangelog: %v", err)
	}
	if len(a) != 3 {
		t.Fatalf("expected 3 entries for u-a, got %d", len(a))
	}
	if len(b) != 1 {
		t.Fatalf("expected u-b partition untouched, got %d", len(b))
	}
}

func TestVehicleChangelogRetention(t *testing.T) {
	db := newTestDB(t)
	repo := NewRepo(db, 4, 100000)
	ctx := context.Background()

	for i := 0; i < 7; i++ {
		if _, err := repo.CreateVehicleChangelog(ctx, "v-1", "u-1", fmt.Sprintf("entry %d", i)); err != nil {
			t.Fatalf("CreateVehicleChangelog: %v", err)
		}
		time.Sleep(2 * time.Millisecond)
	}

	entries, err := repo.ListVehicleChangelog(ctx, "v-1")
	if err != nil {
		t.Fatalf("ListVehicleChangelog: %v", err)
	}
	if len(entries) != 4 {
		t.Fatalf("expected 4 entries, got %d", len(entries))
	}
	if entries[0].Description != "entry 6" {
		t.Fatalf("newest entry mismatch: %s", entries[0].Description)
	}
}

func TestAppLogRetentionIsGlobal(t *testing.T) {
	db := newTestDB(t)
	repo := NewRepo(db, 1000, 5)
	ctx := context.Background()

	// 不同用户写入，上限仍然是全局的
	for i := 0; i < 8; i++ {
		entry := &AppLog{
			UserID:   fmt.Sprintf("u-%d", i%2),
			Event:    "GET /api/vehicles",
			Duration: 1.5,
			Level:    LevelInfo,
		}
		if err := repo.CreateAppLog(ctx, entry); err != nil {
			t.Fatalf("CreateAppLog: %v", err)
		}
		time.Sleep(2 * time.Millisecond)
	}

	var count int64
	if err := db.Model(&AppLog{}).Count(&count).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 5 {
		t.Fatalf("expected global cap of 5, got %d", count)
	}
}

func TestRetentionInsertFailureLeavesNoPartialState(t *testing.T) {
	db := newTestDB(t)
	repo := NewRepo(db, 10, 100000)
	ctx := context.Background()

	first, err := repo.CreateChangelog(ctx, "u-1", "ok")
	if err != nil {
		t.Fatalf("CreateChangelog: %v", err)
	}

	// 主键冲突使插入失败，整个事务应回滚
	dup := &Changelog{ID: first.ID, UserID: "u-1", Description: "dup"}
	err = db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(dup).Error; err != nil {
			return err
		}
		return nil
	})
	if err == nil {
		t.Fatalf("expected duplicate insert to fail")
	}

	entries, err := repo.ListChangelog(ctx, "u-1")
	if err != nil {
		t.Fatalf("ListChangelog: %v", err)
	}
	if len(entries) != 1 || entries[0].Description != "ok" {
		t.Fatalf("unexpected partition state: %#v", entries)
	}
}
