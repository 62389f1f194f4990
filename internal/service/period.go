package service

import (
	"fmt"
	"time"

	"habit_tracker_backend/internal/model"
)

// Period 表示某个周期性的单个义务窗口, Boundary 是该窗口的最后一天
type Period struct {
	Start    time.Time
	Boundary time.Time
}

// DateOnly 归一化为 UTC 零点, 所有周期运算都在日期粒度上进行
func DateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// PeriodContaining 返回包含 date 的周期窗口
// 周以 ISO 规则计算, 周一开始周日结束; 月的边界是当月最后一天
func PeriodContaining(date time.Time, periodicity model.Periodicity) (Period, error) {
	d := DateOnly(date)
	switch periodicity {
	case model.Daily:
		return Period{Start: d, Boundary: d}, nil
	case model.Weekly:
		weekday := int(d.Weekday())
		if weekday == 0 {
			weekday = 7
		}
		start := d.AddDate(0, 0, -(weekday - 1))
		return Period{Start: start, Boundary: start.AddDate(0, 0, 6)}, nil
	case model.Monthly:
		start := time.Date(d.Year(), d.Month(), 1, 0, 0, 0, 0, time.UTC)
		return Period{Start: start, Boundary: start.AddDate(0, 1, -1)}, nil
	default:
		return Period{}, fmt.Errorf("unknown periodicity %q", periodicity)
	}
}

// PreviousPeriod 返回 date 所在周期的前一个周期
func PreviousPeriod(date time.Time, periodicity model.Periodicity) (Period, error) {
	current, err := PeriodContaining(date, periodicity)
	if err != nil {
		return Period{}, err
	}
	return PeriodContaining(current.Start.AddDate(0, 0, -1), periodicity)
}

// ElapsedPeriods 枚举 [from, until) 之间所有已完整结束的周期, 按时间升序
// until 当天所在的周期尚未结束, 不包含在内
func ElapsedPeriods(from, until time.Time, periodicity model.Periodicity) ([]Period, error) {
	f := DateOnly(from)
	u := DateOnly(until)
	var periods []Period
	p, err := PeriodContaining(f, periodicity)
	if err != nil {
		return nil, err
	}
	for p.Boundary.Before(u) {
		periods = append(periods, p)
		next, err := PeriodContaining(p.Boundary.AddDate(0, 0, 1), periodicity)
		if err != nil {
			return nil, err
		}
		p = next
	}
	return periods, nil
}

// StreakRunStart 计算一段长度为 streak 的连击的起始日期
// boundary 是连击最后一个周期的边界日, 往回退 streak-1 个周期取其起点
func StreakRunStart(boundary time.Time, streak int, periodicity model.Periodicity) (time.Time, error) {
	if streak < 1 {
		streak = 1
	}
	p, err := PeriodContaining(boundary, periodicity)
	if err != nil {
		return time.Time{}, err
	}
	for i := 0; i < streak-1; i++ {
		p, err = PeriodContaining(p.Start.AddDate(0, 0, -1), periodicity)
		if err != nil {
			return time.Time{}, err
		}
	}
	return p.Start, nil
}

// SamePeriod 判断两个日期是否落在同一个周期窗口内
func SamePeriod(a, b time.Time, periodicity model.Periodicity) (bool, error) {
	pa, err := PeriodContaining(a, periodicity)
	if err != nil {
		return false, err
	}
	pb, err := PeriodContaining(b, periodicity)
	if err != nil {
		return false, err
	}
	return pa.Start.Equal(pb.Start), nil
}

// InPreviousPeriod 判断 candidate 是否落在 reference 所在周期的上一个周期内
func InPreviousPeriod(candidate, reference time.Time, periodicity model.Periodicity) (bool, error) {
	prev, err := PreviousPeriod(reference, periodicity)
	if err != nil {
		return false, err
	}
	c := DateOnly(candidate)
	return !c.Before(prev.Start) && !c.After(prev.Boundary), nil
}
