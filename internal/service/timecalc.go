package service

import (
	"fmt"
	"regexp"
	"time"
)

// ── 时间计算 ──────────────────────────────────────────────
//
// 试听课的时间三元组 (date, start_time, duration) 均以课程所在时区解释。
// end_time 始终以真实时间运算推导：跨午夜时结束钟点落在次日，仍以 HH:mm
// 返回（end < start 即为跨日信号），IsJoinable 按 +24h 处理该情形。
// ─────────────────────────────────────────────────────────────

const (
	dateLayout = "2006-01-02"
	timeLayout = "15:04"
)

var zoomMeetingIDRe = regexp.MustCompile(`/j/(\d{9,11})`)

// ParseDate 校验 YYYY-MM-DD 日期
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("无效的日期 %q: %w", s, err)
	}
	return t, nil
}

// ParseClock 校验 HH:mm 钟点
func ParseClock(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("无效的时间 %q: %w", s, err)
	}
	return t, nil
}

// startInstant 组合 date + start_time 为指定时区内的绝对时刻
func startInstant(date, start string, loc *time.Location) (time.Time, error) {
	d, err := ParseDate(date)
	if err != nil {
		return time.Time{}, err
	}
	c, err := ParseClock(start)
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(d.Year(), d.Month(), d.Day(), c.Hour(), c.Minute(), 0, 0, loc), nil
}

// ComputeEndTime 计算结束钟点：start + duration 分钟（课程时区内的真实运算）
func ComputeEndTime(date, start string, durationMinutes int, timezone string) (string, error) {
	if durationMinutes <= 0 {
		return "", fmt.Errorf("无效的课程时长 %d 分钟", durationMinutes)
	}
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return "", fmt.Errorf("无效的时区 %q: %w", timezone, err)
	}
	s, err := startInstant(date, start, loc)
	if err != nil {
		return "", err
	}
	return s.Add(time.Duration(durationMinutes) * time.Minute).Format(timeLayout), nil
}

// IsJoinable 判断 now 是否落在 [start − joinWindow, end] 闭区间内。
// end ≤ start 视为跨午夜，结束时刻顺延 24 小时。纯查询，无副作用。
func IsJoinable(date, start, end, timezone string, joinWindow time.Duration, now time.Time) (bool, error) {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return false, fmt.Errorf("无效的时区 %q: %w", timezone, err)
	}
	s, err := startInstant(date, start, loc)
	if err != nil {
		return false, err
	}
	e, err := startInstant(date, end, loc)
	if err != nil {
		return false, err
	}
	if !e.After(s) {
		e = e.Add(24 * time.Hour)
	}

	open := s.Add(-joinWindow)
	return !now.Before(open) && !now.After(e), nil
}

// ExtractMeetingID 从 zoom 风格链接中提取会议号（/j/<9-11位数字>）
// 提取不到时返回 nil，会议号本就是可选字段。
func ExtractMeetingID(link string) *string {
	m := zoomMeetingIDRe.FindStringSubmatch(link)
	if len(m) < 2 {
		return nil
	}
	return &m[1]
}
