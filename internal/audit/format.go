package audit

import (
	"fmt"
	"strings"
)

// Action 变更动作（持久化到描述文本里的动词）。
type Action string

const (
	ActionCreated Action = "created"
	ActionUpdated Action = "updated"
	ActionDeleted Action = "deleted"
	ActionShared  Action = "shared"
	ActionApplied Action = "applied"
)

// Subject 变更对象类型。
type Subject string

const (
	SubjectVehicle                  Subject = "vehicle"
	SubjectScheduledServiceType     Subject = "scheduled service type(s)"
	SubjectScheduledServiceInstance Subject = "scheduled service instance(s)"
	SubjectScheduledLog             Subject = "scheduled log"
	SubjectRepairLog                Subject = "repair log"
)

// UpdatedProperty 一次更新里的单个字段变化。
type UpdatedProperty struct {
	Property string
	Value    string
}

// Payload 变更描述的输入。TargetName 仅 SHARED/APPLIED 使用，
// UpdatedProperties 仅 UPDATED 使用，其余情况忽略。
type Payload struct {
	Actor             string
	Action            Action
	Subject           Subject
	SubjectName       string
	TargetName        string
	UpdatedProperties []UpdatedProperty
}

// Format 把变更事件渲染为人类可读的描述。纯函数，任何输入组合都不报错：
// 缺省的可选字段退化为基础描述。
func Format(p Payload) string {
	base := fmt.Sprintf("%s %s %s %s", p.Actor, p.Action, p.Subject, p.SubjectName)

	switch p.Action {
	case ActionShared:
		return fmt.Sprintf("%s with %s", base, p.TargetName)
	case ActionApplied:
		return fmt.Sprintf("%s to %s", base, p.TargetName)
	case ActionUpdated:
		parts := make([]string, 0, len(p.UpdatedProperties))
		for _, up := range p.UpdatedProperties {
			if up.Property == "" || up.Value == "" {
				continue
			}
			parts = append(parts, fmt.Sprintf("%s: %s", up.Property, up.Value))
		}
		if len(parts) == 0 {
			return base
		}
		return fmt.Sprintf("%s. Updated values = %s", base, strings.Join(parts, ", "))
	default:
		return base
	}
}
