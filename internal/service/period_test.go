package service

import (
	"testing"
	"time"

	"habit_tracker_backend/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestDateOnly(t *testing.T) {
	loc, err := time.LoadLocation("Asia/Shanghai")
	require.NoError(t, err)

	in := time.Date(2025, 3, 14, 23, 45, 12, 0, loc)
	got := DateOnly(in)
	assert.Equal(t, date(2025, 3, 14), got)
	assert.Equal(t, time.UTC, got.Location())
}

func TestPeriodContaining_Daily(t *testing.T) {
	p, err := PeriodContaining(date(2025, 6, 15), model.Daily)
	require.NoError(t, err)
	assert.Equal(t, date(2025, 6, 15), p.Start)
	assert.Equal(t, date(2025, 6, 15), p.Boundary)
}

func TestPeriodContaining_Weekly(t *testing.T) {
	// 2025-06-11 是周三，ISO 周从周一 06-09 到周日 06-15
	p, err := PeriodContaining(date(2025, 6, 11), model.Weekly)
	require.NoError(t, err)
	assert.Equal(t, date(2025, 6, 9), p.Start)
	assert.Equal(t, date(2025, 6, 15), p.Boundary)

	// 周日属于同一周，不能滚到下一周
	sunday, err := PeriodContaining(date(2025, 6, 15), model.Weekly)
	require.NoError(t, err)
	assert.Equal(t, date(2025, 6, 9), sunday.Start)

	// 周一开启新的一周
	monday, err := PeriodContaining(date(2025, 6, 16), model.Weekly)
	require.NoError(t, err)
	assert.Equal(t, date(2025, 6, 16), monday.Start)
}

func TestPeriodContaining_Monthly(t *testing.T) {
	p, err := PeriodContaining(date(2025, 4, 10), model.Monthly)
	require.NoError(t, err)
	assert.Equal(t, date(2025, 4, 1), p.Start)
	assert.Equal(t, date(2025, 4, 30), p.Boundary)

	// 闰年二月
	feb, err := PeriodContaining(date(2024, 2, 5), model.Monthly)
	require.NoError(t, err)
	assert.Equal(t, date(2024, 2, 29), feb.Boundary)

	// 平年二月
	feb25, err := PeriodContaining(date(2025, 2, 28), model.Monthly)
	require.NoError(t, err)
	assert.Equal(t, date(2025, 2, 28), feb25.Boundary)
}

func TestPreviousPeriod(t *testing.T) {
	prev, err := PreviousPeriod(date(2025, 6, 16), model.Weekly)
	require.NoError(t, err)
	assert.Equal(t, date(2025, 6, 9), prev.Start)
	assert.Equal(t, date(2025, 6, 15), prev.Boundary)

	// 跨月边界：3月1日的上一个月周期是整个2月
	prevMonth, err := PreviousPeriod(date(2024, 3, 1), model.Monthly)
	require.NoError(t, err)
	assert.Equal(t, date(2024, 2, 1), prevMonth.Start)
	assert.Equal(t, date(2024, 2, 29), prevMonth.Boundary)
}

func TestElapsedPeriods_Daily(t *testing.T) {
	periods, err := ElapsedPeriods(date(2025, 6, 10), date(2025, 6, 13), model.Daily)
	require.NoError(t, err)
	require.Len(t, periods, 3)
	assert.Equal(t, date(2025, 6, 10), periods[0].Boundary)
	assert.Equal(t, date(2025, 6, 12), periods[2].Boundary)
}

func TestElapsedPeriods_ExcludesCurrentPeriod(t *testing.T) {
	// until 当天所在的周期尚未结束
	periods, err := ElapsedPeriods(date(2025, 6, 13), date(2025, 6, 13), model.Daily)
	require.NoError(t, err)
	assert.Empty(t, periods)

	// 本周还没过完，一周都不算
	weekly, err := ElapsedPeriods(date(2025, 6, 9), date(2025, 6, 13), model.Weekly)
	require.NoError(t, err)
	assert.Empty(t, weekly)

	// 下周一，上一周完整结束
	weekly, err = ElapsedPeriods(date(2025, 6, 9), date(2025, 6, 16), model.Weekly)
	require.NoError(t, err)
	require.Len(t, weekly, 1)
	assert.Equal(t, date(2025, 6, 15), weekly[0].Boundary)
}

func TestElapsedPeriods_Monthly(t *testing.T) {
	periods, err := ElapsedPeriods(date(2025, 1, 15), date(2025, 4, 2), model.Monthly)
	require.NoError(t, err)
	require.Len(t, periods, 3)
	assert.Equal(t, date(2025, 1, 31), periods[0].Boundary)
	assert.Equal(t, date(2025, 2, 28), periods[1].Boundary)
	assert.Equal(t, date(2025, 3, 31), periods[2].Boundary)
}

func TestStreakRunStart(t *testing.T) {
	start, err := StreakRunStart(date(2025, 6, 15), 3, model.Daily)
	require.NoError(t, err)
	assert.Equal(t, date(2025, 6, 13), start)

	// 周周期：3周连击从两周前的周一开始
	weekStart, err := StreakRunStart(date(2025, 6, 15), 3, model.Weekly)
	require.NoError(t, err)
	assert.Equal(t, date(2025, 5, 26), weekStart)

	// 月周期跨过短月，按真实月份回退
	monthStart, err := StreakRunStart(date(2024, 3, 31), 2, model.Monthly)
	require.NoError(t, err)
	assert.Equal(t, date(2024, 2, 1), monthStart)
}

func TestInPreviousPeriod(t *testing.T) {
	ok, err := InPreviousPeriod(date(2025, 6, 14), date(2025, 6, 15), model.Daily)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = InPreviousPeriod(date(2025, 6, 13), date(2025, 6, 15), model.Daily)
	require.NoError(t, err)
	assert.False(t, ok)

	// 上周任意一天都算上一个周周期
	ok, err = InPreviousPeriod(date(2025, 6, 10), date(2025, 6, 16), model.Weekly)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = InPreviousPeriod(date(2025, 6, 8), date(2025, 6, 16), model.Weekly)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSamePeriod(t *testing.T) {
	ok, err := SamePeriod(date(2025, 6, 9), date(2025, 6, 15), model.Weekly)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = SamePeriod(date(2025, 6, 15), date(2025, 6, 16), model.Weekly)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCompletionPoints(t *testing.T) {
	assert.Equal(t, 10, CompletionPoints(0))
	assert.Equal(t, 10, CompletionPoints(6))
	assert.Equal(t, 15, CompletionPoints(7))
	assert.Equal(t, 20, CompletionPoints(14))
	assert.Equal(t, 60, CompletionPoints(70))
	// 加成封顶 50
	assert.Equal(t, 60, CompletionPoints(365))
}

func TestLevelForPoints(t *testing.T) {
	assert.Equal(t, 1, model.LevelForPoints(0))
	assert.Equal(t, 1, model.LevelForPoints(999))
	assert.Equal(t, 2, model.LevelForPoints(1000))
	assert.Equal(t, 11, model.LevelForPoints(10000))
}
