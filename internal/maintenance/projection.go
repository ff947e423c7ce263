package maintenance

import "time"

// ProjectNextService 由上次保养的日期/里程和周期推算下次到期点。
// 纯函数；月份/年份相加采用 time.AddDate 的规整化规则
// （2024-01-31 + 1 个月 = 2024-03-02）。
// 负的周期不在这里校验，由调用方保证非负。
func ProjectNextService(lastDate time.Time, lastMileage, mileInterval, timeInterval int, unit TimeUnit) (nextDueDate time.Time, nextDueMileage int) {
	nextDueMileage = lastMileage + mileInterval

	switch unit {
	case UnitDay:
		nextDueDate = lastDate.AddDate(0, 0, timeInterval)
	case UnitWeek:
		nextDueDate = lastDate.AddDate(0, 0, 7*timeInterval)
	case UnitMonth:
		nextDueDate = lastDate.AddDate(0, timeInterval, 0)
	case UnitYear:
		nextDueDate = lastDate.AddDate(timeInterval, 0, 0)
	default:
		nextDueDate = lastDate
	}
	return nextDueDate, nextDueMileage
}

// OverdueReason 逾期原因。
type OverdueReason string

const (
	ReasonDateOverdue    OverdueReason = "DATE_OVERDUE"
	ReasonMileageOverdue OverdueReason = "MILEAGE_OVERDUE"
	ReasonOverdue        OverdueReason = "OVERDUE" // 日期与里程同时逾期
)

// Classification 逾期判定结果。未逾期时 Reason 为空。
type Classification struct {
	IsOverdue bool
	Reason    OverdueReason
}

// Classify 对比到期点与当前时间/里程。
// 相等不算逾期：只有严格超过才判定（"今天到期"不是逾期）。
func Classify(nextDueDate time.Time, nextDueMileage int, now time.Time, currentMileage int) Classification {
	dateOverdue := now.After(nextDueDate)
	mileageOverdue := currentMileage > nextDueMileage

	switch {
	case dateOverdue && mileageOverdue:
		return Classification{IsOverdue: true, Reason: ReasonOverdue}
	case dateOverdue:
		return Classification{IsOverdue: true, Reason: ReasonDateOverdue}
	case mileageOverdue:
		return Classification{IsOverdue: true, Reason: ReasonMileageOverdue}
	default:
		return Classification{}
	}
}
