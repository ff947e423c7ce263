package audit

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/AutoHub/AutoHub/internal/common/logger"
	"github.com/AutoHub/AutoHub/internal/eventbus"
)

// Subscribers 审计事件订阅方。启动时注册一次，进程存活期间一直有效。
// 写入失败只记日志，不向发布方传播（尽力而为语义）。
type Subscribers struct {
	repo *Repo
	log  logger.Logger
	offs []func()
}

// Subscribe 把三类审计事件的处理函数挂到总线上。
func Subscribe(bus *eventbus.Bus, repo *Repo, log logger.Logger) *Subscribers {
	s := &Subscribers{repo: repo, log: log}

	s.offs = append(s.offs, bus.On(eventbus.EventUserChangelogCreate, func(payload interface{}) {
		evt, ok := payload.(ChangelogEvent)
		if !ok {
			s.warnf("unexpected payload type for %s: %T", eventbus.EventUserChangelogCreate, payload)
			return
		}
		if _, err := repo.CreateChangelog(context.Background(), evt.UserID, evt.Description); err != nil {
			s.warnf("createChangelog failed: %v", err)
		}
	}))

	s.offs = append(s.offs, bus.On(eventbus.EventVehicleChangelogCreate, func(payload interface{}) {
		evt, ok := payload.(VehicleChangelogEvent)
		if !ok {
			s.warnf("unexpected payload type for %s: %T", eventbus.EventVehicleChangelogCreate, payload)
			return
		}
		if _, err := repo.CreateVehicleChangelog(context.Background(), evt.VehicleID, evt.UserID, evt.Description); err != nil {
			s.warnf("createVehicleChangelog failed: %v", err)
		}
	}))

	s.offs = append(s.offs, bus.On(eventbus.EventAppLogCreate, func(payload interface{}) {
		evt, ok := payload.(AppLogEvent)
		if !ok {
			s.warnf("unexpected payload type for %s: %T", eventbus.EventAppLogCreate, payload)
			return
		}
		entry := &AppLog{
			UserID:   evt.UserID,
			Event:    evt.Event,
			Duration: evt.Duration,
			Level:    evt.Level,
			Data:     serializeData(evt.Data),
		}
		if err := repo.CreateAppLog(context.Background(), entry); err != nil {
			s.warnf("createAppLog failed: %v", err)
		}
	}))

	return s
}

// Unsubscribe 注销全部订阅（测试用；正常运行不会调用）。
func (s *Subscribers) Unsubscribe() {
	for _, off := range s.offs {
		off()
	}
	s.offs = nil
}

func (s *Subscribers) warnf(format string, args ...interface{}) {
	if s.log != nil {
		s.log.Warnf(format, args...)
	}
}

func serializeData(data interface{}) string {
	if data == nil {
		return ""
	}
	b, err := json.Marshal(data)
	if err != nil {
		return fmt.Sprint(data)
	}
	return string(b)
}
