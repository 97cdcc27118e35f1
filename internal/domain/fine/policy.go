package fine

import (
	"time"
)

// Policy 罚金策略（纯函数，无副作用）
// 由外部提供，借阅模块只依赖接口，便于替换计费规则
type Policy interface {
	// Calculate 根据应还日期和当前时间计算罚金（VND）
	Calculate(dueDate, now time.Time) int64
}

// PerDayPolicy 按逾期天数计费，不足一天按一天计
type PerDayPolicy struct {
	RatePerDay int64
}

// NewPerDayPolicy 创建按天计费策略
func NewPerDayPolicy(ratePerDay int64) *PerDayPolicy {
	return &PerDayPolicy{RatePerDay: ratePerDay}
}

// Calculate 实现Policy接口
func (p *PerDayPolicy) Calculate(dueDate, now time.Time) int64 {
	if p.RatePerDay <= 0 || !now.After(dueDate) {
		return 0
	}

	overdue := now.Sub(dueDate)
	days := int64(overdue / (24 * time.Hour))
	if overdue%(24*time.Hour) != 0 {
		days++
	}
	return days * p.RatePerDay
}

// PolicyFunc 函数适配器
type PolicyFunc func(dueDate, now time.Time) int64

// Calculate 实现Policy接口
func (f PolicyFunc) Calculate(dueDate, now time.Time) int64 {
	return f(dueDate, now)
}
