package vehicle

import (
	"context"

	"github.com/google/uuid"

	"github.com/AutoHub/AutoHub/internal/common/apperr"
	"github.com/AutoHub/AutoHub/internal/common/logger"
	"github.com/AutoHub/AutoHub/internal/maintenance"
	"github.com/AutoHub/AutoHub/internal/servicelog"
)

// ExportData 用户数据的完整导出，可直接序列化为 JSON。
type ExportData struct {
	Version               int                                `json:"version"`
	ScheduledServiceTypes []maintenance.ScheduledServiceType `json:"scheduledServiceTypes"`
	Vehicles              []VehicleExport                    `json:"vehicles"`
}

// VehicleExport 单辆车及其挂载的实例和日志。
type VehicleExport struct {
	Vehicle       Vehicle                                `json:"vehicle"`
	Instances     []maintenance.ScheduledServiceInstance `json:"scheduledServiceInstances"`
	ScheduledLogs []servicelog.ScheduledLog              `json:"scheduledLogs"`
	RepairLogs    []servicelog.RepairLog                 `json:"repairLogs"`
}

const exportVersion = 1

// Transfer 导入导出服务。导入时所有 id 重新生成，
// 只有引用关系（车辆、类别、实例之间）被保留。
type Transfer struct {
	vehicles *Repo
	maint    *maintenance.Repo
	logs     *servicelog.Repo
	log      logger.Logger
}

func NewTransfer(vehicles *Repo, maint *maintenance.Repo, logs *servicelog.Repo, log logger.Logger) *Transfer {
	return &Transfer{vehicles: vehicles, maint: maint, logs: logs, log: log}
}

func (t *Transfer) Export(ctx context.Context, userID string) (*ExportData, error) {
	if userID == "" {
		return nil, apperr.BadRequest("no userId provided")
	}

	types, err := t.maint.ListTypes(ctx, userID)
	if err != nil {
		return nil, err
	}
	vehicles, err := t.vehicles.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	data := &ExportData{
		Version:               exportVersion,
		ScheduledServiceTypes: types,
		Vehicles:              make([]VehicleExport, 0, len(vehicles)),
	}
	for _, v := range vehicles {
		instances, err := t.maint.ListInstancesByVehicle(ctx, v.ID)
		if err != nil {
			return nil, err
		}
		scheduled, err := t.logs.ListScheduledLogs(ctx, v.ID)
		if err != nil {
			return nil, err
		}
		repairs, err := t.logs.ListRepairLogs(ctx, v.ID)
		if err != nil {
			return nil, err
		}
		data.Vehicles = append(data.Vehicles, VehicleExport{
			Vehicle:       v,
			Instances:     instances,
			ScheduledLogs: scheduled,
			RepairLogs:    repairs,
		})
	}
	return data, nil
}

// Import 在 userID 名下重建导出的数据。与现有保养类别重名时复用现有类别。
func (t *Transfer) Import(ctx context.Context, userID string, data *ExportData) error {
	if userID == "" {
		return apperr.BadRequest("no userId provided")
	}
	if data == nil {
		return apperr.BadRequest("no data provided")
	}
	if data.Version != exportVersion {
		return apperr.BadRequest("unsupported export version")
	}

	existing, err := t.maint.ListTypes(ctx, userID)
	if err != nil {
		return err
	}
	typeIDByName := make(map[string]string, len(existing))
	for _, et := range existing {
		typeIDByName[et.Name] = et.ID
	}

	// 旧 id → 新 id
	typeIDs := make(map[string]string, len(data.ScheduledServiceTypes))
	for _, st := range data.ScheduledServiceTypes {
		if id, ok := typeIDByName[st.Name]; ok {
			typeIDs[st.ID] = id
			continue
		}
		created := &maintenance.ScheduledServiceType{
			ID:     uuid.NewString(),
			UserID: userID,
			Name:   st.Name,
		}
		if err := t.maint.CreateType(ctx, created); err != nil {
			return err
		}
		typeIDs[st.ID] = created.ID
		typeIDByName[st.Name] = created.ID
	}

	for _, ve := range data.Vehicles {
		v := ve.Vehicle
		v.ID = uuid.NewString()
		v.UserID = userID
		if err := t.vehicles.Create(ctx, &v); err != nil {
			return err
		}

		instanceIDs := make(map[string]string, len(ve.Instances))
		instances := make([]maintenance.ScheduledServiceInstance, 0, len(ve.Instances))
		for _, inst := range ve.Instances {
			typeID, ok := typeIDs[inst.ScheduledServiceTypeID]
			if !ok {
				t.log.Warnf("import: instance %s references unknown type %s, skipping", inst.ID, inst.ScheduledServiceTypeID)
				continue
			}
			newID := uuid.NewString()
			instanceIDs[inst.ID] = newID
			instances = append(instances, maintenance.ScheduledServiceInstance{
				ID:                     newID,
				UserID:                 userID,
				VehicleID:              v.ID,
				ScheduledServiceTypeID: typeID,
				MileInterval:           inst.MileInterval,
				TimeInterval:           inst.TimeInterval,
				TimeUnits:              inst.TimeUnits,
			})
		}
		if err := t.maint.CreateInstances(ctx, instances); err != nil {
			return err
		}

		for _, sl := range ve.ScheduledLogs {
			instanceID, ok := instanceIDs[sl.ScheduledServiceInstanceID]
			if !ok {
				t.log.Warnf("import: scheduled log %s references unknown instance %s, skipping", sl.ID, sl.ScheduledServiceInstanceID)
				continue
			}
			sl.ID = uuid.NewString()
			sl.UserID = userID
			sl.VehicleID = v.ID
			sl.ScheduledServiceInstanceID = instanceID
			if err := t.logs.CreateScheduledLog(ctx, &sl); err != nil {
				return err
			}
		}
		for _, rl := range ve.RepairLogs {
			rl.ID = uuid.NewString()
			rl.UserID = userID
			rl.VehicleID = v.ID
			if err := t.logs.CreateRepairLog(ctx, &rl); err != nil {
				return err
			}
		}
	}
	return nil
}
