package xquota

import (
	"time"
	_ "time/tzdata" // 容器镜像可能没有 zoneinfo
)

// DefaultTimezone 默认日界时区
const DefaultTimezone = "America/Sao_Paulo"

// DayLayout 日期键格式
const DayLayout = "2006-01-02"

// DayClock 在固定时区下计算日期键与下次重置时间。
//
// 时区在整个部署内只选定一次，不随请求或用户变化。
type DayClock struct {
	loc *time.Location
	now func() time.Time
}

// NewDayClock tz 为空时使用 DefaultTimezone；now 为 nil 时使用 time.Now。
func NewDayClock(tz string, now func() time.Time) (*DayClock, error) {
	if tz == "" {
		tz = DefaultTimezone
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, configError("timezone %q: %v", tz, err)
	}
	if now == nil {
		now = time.Now
	}
	return &DayClock{loc: loc, now: now}, nil
}

// Now 当前时间（位于时钟所在时区）
func (c *DayClock) Now() time.Time {
	return c.now().In(c.loc)
}

// Day 返回 t 在时钟时区下的日期键
func (c *DayClock) Day(t time.Time) string {
	return t.In(c.loc).Format(DayLayout)
}

// Today 当前日期键
func (c *DayClock) Today() string {
	return c.Day(c.now())
}

// NextReset 返回 t 之后的下一个本地零点
func (c *DayClock) NextReset(t time.Time) time.Time {
	y, m, d := t.In(c.loc).Date()
	return time.Date(y, m, d+1, 0, 0, 0, 0, c.loc)
}

// Location 时钟时区
func (c *DayClock) Location() *time.Location {
	return c.loc
}
