package service

import (
	"fmt"
	"time"

	ics "github.com/arran4/golang-ical"

	"democall/backend/internal/model"
)

// BuildCallInvite 为试听课生成 RFC 5545 日历邀请。
// 用作排期/改期邮件附件，也由 /calls/:id/ics 直接下载。
func BuildCallInvite(call *model.DemoCall) ([]byte, error) {
	loc, err := time.LoadLocation(call.Timezone)
	if err != nil {
		return nil, fmt.Errorf("无效的时区 %q: %w", call.Timezone, err)
	}
	start, err := startInstant(call.Date, call.StartTime, loc)
	if err != nil {
		return nil, err
	}
	end := start.Add(time.Duration(call.DurationMinutes) * time.Minute)

	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodRequest)
	cal.SetProductId("-//democall//scheduler//CN")

	ev := cal.AddEvent(fmt.Sprintf("call-%s@democall", call.CallID))
	ev.SetCreatedTime(time.Now())
	ev.SetDtStampTime(time.Now())
	ev.SetStartAt(start)
	ev.SetEndAt(end)
	ev.SetSummary(fmt.Sprintf("试听课：%s", call.ClassType))
	ev.SetLocation(call.MeetingLink)
	if call.Passcode != nil && *call.Passcode != "" {
		ev.SetDescription(fmt.Sprintf("会议链接：%s\n入会密码：%s", call.MeetingLink, *call.Passcode))
	} else {
		ev.SetDescription(fmt.Sprintf("会议链接：%s", call.MeetingLink))
	}

	return []byte(cal.Serialize()), nil
}
