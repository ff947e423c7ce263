package audit

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/AutoHub/AutoHub/internal/eventbus"
)

// ChangelogEvent 用户变更记录事件负载。
type ChangelogEvent struct {
	UserID      string
	Description string
}

// VehicleChangelogEvent 车辆变更记录事件负载。
type VehicleChangelogEvent struct {
	VehicleID   string
	UserID      string
	Description string
}

// AppLogEvent 应用日志事件负载。Data 在订阅方序列化。
type AppLogEvent struct {
	UserID   string
	Event    string
	Duration float64
	Level    string
	Data     interface{}
}

// Publisher 审计事件发布方。业务服务持有它并在动作完成后发布事件，
// HTTP 响应不等待审计写入（fire-and-forget）。
type Publisher struct {
	bus *eventbus.Bus
}

func NewPublisher(bus *eventbus.Bus) *Publisher {
	return &Publisher{bus: bus}
}

// --- 用户维度 ---

func (p *Publisher) RegistrationCompleted(userID string) {
	p.publishChangelog(userID, "Account registration completed")
}

func (p *Publisher) Login(userID, ipAddress string) {
	if ipAddress == "" {
		ipAddress = "<Could not be determined>"
	}
	p.publishChangelog(userID, fmt.Sprintf("Logged in successfully (IP: %s)", ipAddress))
}

func (p *Publisher) ServiceTypeCreated(userID, name string) {
	p.publishChangelog(userID, fmt.Sprintf("Created scheduled service type with name %s", name))
}

func (p *Publisher) ServiceTypeUpdated(userID, name string) {
	p.publishChangelog(userID, fmt.Sprintf("Updated scheduled service type to name %s", name))
}

func (p *Publisher) ServiceTypeDeleted(userID, name string) {
	p.publishChangelog(userID, fmt.Sprintf("Deleted scheduled service type %s", name))
}

func (p *Publisher) VehicleDeleted(userID, username, vehicleName string) {
	p.publishChangelog(userID, Format(Payload{
		Actor: username, Action: ActionDeleted,
		Subject: SubjectVehicle, SubjectName: vehicleName,
	}))
}

// --- 车辆维度 ---

func (p *Publisher) VehicleCreated(userID, username, vehicleID, vehicleName string) {
	p.publishVehicleChangelog(vehicleID, userID, Format(Payload{
		Actor: username, Action: ActionCreated,
		Subject: SubjectVehicle, SubjectName: vehicleName,
	}))
}

func (p *Publisher) VehicleUpdated(userID, username, vehicleID, vehicleName string, props []UpdatedProperty) {
	p.publishVehicleChangelog(vehicleID, userID, Format(Payload{
		Actor: username, Action: ActionUpdated,
		Subject: SubjectVehicle, SubjectName: vehicleName,
		UpdatedProperties: props,
	}))
}

func (p *Publisher) VehicleShared(userID, username, vehicleID, vehicleName, targetUsername string) {
	p.publishVehicleChangelog(vehicleID, userID, Format(Payload{
		Actor: username, Action: ActionShared,
		Subject: SubjectVehicle, SubjectName: vehicleName,
		TargetName: targetUsername,
	}))
}

func (p *Publisher) ServiceTypesApplied(userID, username, vehicleID, vehicleName string, typeNames []string) {
	p.publishVehicleChangelog(vehicleID, userID, Format(Payload{
		Actor: username, Action: ActionApplied,
		Subject: SubjectScheduledServiceType, SubjectName: strings.Join(typeNames, ","),
		TargetName: fmt.Sprintf("%s %s", SubjectVehicle, vehicleName),
	}))
}

func (p *Publisher) ServiceTypeUnapplied(userID, username, vehicleID, vehicleName string) {
	p.publishVehicleChangelog(vehicleID, userID,
		fmt.Sprintf("User %s unapplied a service type on vehicle %s", username, vehicleName))
}

func (p *Publisher) ScheduledLogCreated(userID, username, vehicleID, vehicleName, typeName string, mileage int) {
	if typeName == "" {
		typeName = "<Could not be determined>"
	}
	p.publishVehicleChangelog(vehicleID, userID,
		fmt.Sprintf("User %s created scheduled log %s on vehicle %s. Mileage performed: %d",
			username, typeName, vehicleName, mileage))
}

func (p *Publisher) ScheduledLogsUpdated(userID, username, vehicleID, vehicleName string, count int) {
	p.publishVehicleChangelog(vehicleID, userID,
		fmt.Sprintf("User %s updated %d scheduled logs on vehicle %s", username, count, vehicleName))
}

func (p *Publisher) ScheduledLogsDeleted(userID, username, vehicleID, vehicleName string, count int) {
	p.publishVehicleChangelog(vehicleID, userID,
		fmt.Sprintf("User %s deleted %d scheduled logs on vehicle %s", username, count, vehicleName))
}

func (p *Publisher) RepairLogCreated(userID, username, vehicleID, vehicleName, logName string) {
	p.publishVehicleChangelog(vehicleID, userID, Format(Payload{
		Actor: username, Action: ActionCreated,
		Subject: SubjectRepairLog, SubjectName: logName,
	}))
}

func (p *Publisher) RepairLogsDeleted(userID, username, vehicleID, vehicleName string, count int) {
	p.publishVehicleChangelog(vehicleID, userID,
		fmt.Sprintf("User %s deleted %d repair logs on vehicle %s", username, count, vehicleName))
}

// --- 应用日志 ---

// HTTPRequestLogged 把 HTTP 访问日志转成应用日志事件，
// 满足 common/server 的 AppLogSink 接口。
func (p *Publisher) HTTPRequestLogged(userID, event string, durationMs float64, status int, ip string) {
	level := LevelInfo
	if status >= http.StatusInternalServerError {
		level = LevelError
	}
	p.LogEvent(AppLogEvent{
		UserID:   userID,
		Event:    event,
		Duration: durationMs,
		Level:    level,
		Data: map[string]interface{}{
			"status": status,
			"ip":     ip,
		},
	})
}

func (p *Publisher) LogEvent(event AppLogEvent) {
	if p == nil || p.bus == nil {
		return
	}
	p.bus.Emit(eventbus.EventAppLogCreate, event)
}

func (p *Publisher) publishChangelog(userID, description string) {
	if p == nil || p.bus == nil {
		return
	}
	p.bus.Emit(eventbus.EventUserChangelogCreate, ChangelogEvent{
		UserID:      userID,
		Description: description,
	})
}

func (p *Publisher) publishVehicleChangelog(vehicleID, userID, description string) {
	if p == nil || p.bus == nil {
		return
	}
	p.bus.Emit(eventbus.EventVehicleChangelogCreate, VehicleChangelogEvent{
		VehicleID:   vehicleID,
		UserID:      userID,
		Description: description,
	})
}
