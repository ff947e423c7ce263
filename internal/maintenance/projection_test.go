package maintenance

import (
	"testing"
	"time"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestProjectNextServiceMileage(t *testing.T) {
	cases := []struct {
		lastMileage  int
		mileInterval int
		want         int
	}{
		{0, 0, 0},
		{1000, 5000, 6000},
		{299999, 1, 300000},
	}
	for _, c := range cases {
		_, got := ProjectNextService(date(2024, 1, 1), c.lastMileage, c.mileInterval, 1, UnitDay)
		if got != c.want {
			t.Fatalf("mileage: got %d want %d", got, c.want)
		}
	}
}

func TestProjectNextServiceDateUnits(t *testing.T) {
	last := date(2024, 3, 15)

	cases := []struct {
		interval int
		unit     TimeUnit
		want     time.Time
	}{
		{10, UnitDay, date(2024, 3, 25)},
		{2, UnitWeek, date(2024, 3, 29)},
		{1, UnitMonth, date(2024, 4, 15)},
		{3, UnitYear, date(2027, 3, 15)},
	}
	for _, c := range cases {
		got, _ := ProjectNextService(last, 0, 0, c.interval, c.unit)
		if !got.Equal(c.want) {
			t.Fatalf("%d %s: got %v want %v", c.interval, c.unit, got, c.want)
		}
	}
}

func TestProjectNextServiceMonthOverflow(t *testing.T) {
	// time.AddDate 规整化：2024-01-31 + 1 个月 = 2024-03-02（2 月只有 29 天）
	got, _ := ProjectNextService(date(2024, 1, 31), 0, 0, 1, UnitMonth)
	if !got.Equal(date(2024, 3, 2)) {
		t.Fatalf("month overflow: got %v want 2024-03-02", got)
	}

	// 闰日 + 1 年 = 平年 3 月 1 日
	got, _ = ProjectNextService(date(2024, 2, 29), 0, 0, 1, UnitYear)
	if !got.Equal(date(2025, 3, 1)) {
		t.Fatalf("leap year overflow: got %v want 2025-03-01", got)
	}
}

func TestProjectNextServiceUnknownUnitKeepsDate(t *testing.T) {
	last := date(2024, 5, 1)
	got, mileage := ProjectNextService(last, 100, 50, 9, TimeUnit("FORTNIGHT"))
	if !got.Equal(last) {
		t.Fatalf("unknown unit should leave date unchanged, got %v", got)
	}
	if mileage != 150 {
		t.Fatalf("mileage still projected: got %d", mileage)
	}
}

func TestClassifyBoundaryEqualityIsNotOverdue(t *testing.T) {
	due := date(2024, 6, 1)
	c := Classify(due, 50000, due, 50000)
	if c.IsOverdue || c.Reason != "" {
		t.Fatalf("equality must not be overdue: %#v", c)
	}
}

func TestClassifyReasonTable(t *testing.T) {
	due := date(2024, 6, 1)
	before := date(2024, 5, 1)
	after := date(2024, 7, 1)

	cases := []struct {
		now         time.Time
		mileage     int
		wantOverdue bool
		wantReason  OverdueReason
	}{
		{before, 40000, false, ""},
		{after, 40000, true, ReasonDateOverdue},
		{before, 60000, true, ReasonMileageOverdue},
		{after, 60000, true, ReasonOverdue},
	}
	for i, c := range cases {
		got := Classify(due, 50000, c.now, c.mileage)
		if got.IsOverdue != c.wantOverdue || got.Reason != c.wantReason {
			t.Fatalf("case %d: got %#v", i, got)
		}
	}
}
