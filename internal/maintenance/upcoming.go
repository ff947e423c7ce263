package maintenance

import (
	"context"
	"sort"
	"time"

	"github.com/AutoHub/AutoHub/internal/common/apperr"
)

// UpcomingMaintenanceEntry 一条待保养条目，按 (vehicle, instance) 组合生成。
type UpcomingMaintenanceEntry struct {
	UserID                               string        `json:"userId"`
	LastScheduledLogID                   string        `json:"lastScheduledLogId"`
	VehicleID                            string        `json:"vehicleId"`
	VehicleName                          string        `json:"vehicleName"`
	VehicleMake                          string        `json:"vehicleMake"`
	VehicleModel                         string        `json:"vehicleModel"`
	VehicleYear                          int           `json:"vehicleYear"`
	VehicleMileage                       int           `json:"vehicleMileage"`
	ScheduledServiceTypeID               string        `json:"scheduledServiceTypeId"`
	ScheduledServiceTypeName             string        `json:"scheduledServiceTypeName"`
	ScheduledServiceInstanceTimeInterval int           `json:"scheduledServiceInstanceTimeInterval"`
	ScheduledServiceInstanceTimeUnits    TimeUnit      `json:"scheduledServiceInstanceTimeUnits"`
	ScheduledServiceInstanceMileInterval int           `json:"scheduledServiceInstanceMileInterval"`
	ScheduledLogLastDatePerformed        time.Time     `json:"scheduledLogLastDatePerformed"`
	ScheduledLogLastMileagePerformed     int           `json:"scheduledLogLastMileagePerformed"`
	MileageDue                           int           `json:"mileageDue"`
	DateDue                              time.Time     `json:"dateDue"`
	IsOverdue                            bool          `json:"isOverdue"`
	OverdueReason                        OverdueReason `json:"overdueReason,omitempty"`
}

// buildEntry 对单条最近保养记录做推算和逾期判定。
func buildEntry(userID string, row LatestLogRow, now time.Time) UpcomingMaintenanceEntry {
	dateDue, mileageDue := ProjectNextService(
		row.LastDatePerformed, row.LastMileagePerformed,
		row.MileInterval, row.TimeInterval, row.TimeUnits)
	c := Classify(dateDue, mileageDue, now, row.VehicleMileage)

	return UpcomingMaintenanceEntry{
		UserID:                               userID,
		LastScheduledLogID:                   row.ScheduledLogID,
		VehicleID:                            row.VehicleID,
		VehicleName:                          row.VehicleName,
		VehicleMake:                          row.VehicleMake,
		VehicleModel:                         row.VehicleModel,
		VehicleYear:                          row.VehicleYear,
		VehicleMileage:                       row.VehicleMileage,
		ScheduledServiceTypeID:               row.ScheduledServiceTypeID,
		ScheduledServiceTypeName:             row.ScheduledServiceTypeName,
		ScheduledServiceInstanceTimeInterval: row.TimeInterval,
		ScheduledServiceInstanceTimeUnits:    row.TimeUnits,
		ScheduledServiceInstanceMileInterval: row.MileInterval,
		ScheduledLogLastDatePerformed:        row.LastDatePerformed,
		ScheduledLogLastMileagePerformed:     row.LastMileagePerformed,
		MileageDue:                           mileageDue,
		DateDue:                              dateDue,
		IsOverdue:                            c.IsOverdue,
		OverdueReason:                        c.Reason,
	}
}

// sortEntries 逾期的排前面，逾期条目之间按上次保养日期倒序；
// 未逾期条目保持原有顺序。
func sortEntries(entries []UpcomingMaintenanceEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if a.IsOverdue != b.IsOverdue {
			return a.IsOverdue
		}
		if a.IsOverdue && b.IsOverdue {
			return a.ScheduledLogLastDatePerformed.After(b.ScheduledLogLastDatePerformed)
		}
		return false
	})
}

// FindUpcomingMaintenance 汇总用户（或其中一辆车）的全部待保养条目。
// vehicleID 为空时覆盖该用户的所有车辆；没有保养记录的组合不出现在结果里。
func (s *Service) FindUpcomingMaintenance(ctx context.Context, userID, vehicleID string) ([]UpcomingMaintenanceEntry, error) {
	if userID == "" {
		return nil, apperr.BadRequest("no userId provided")
	}
	if vehicleID != "" {
		if err := s.access.CheckAccess(ctx, vehicleID, userID, false); err != nil {
			return nil, err
		}
	}

	rows, err := s.repo.LatestScheduledLogs(ctx, userID, vehicleID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	entries := make([]UpcomingMaintenanceEntry, 0, len(rows))
	for _, row := range rows {
		entries = append(entries, buildEntry(userID, row, now))
	}
	sortEntries(entries)
	return entries, nil
}
