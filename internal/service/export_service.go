package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"democall/backend/internal/model"
	"democall/backend/internal/repository"
)

// ── 导出模块业务错误 ──

var (
	ErrExportNoCalls      = errors.New("暂无可导出的试听课")
	ErrExportGenerateFail = errors.New("生成 Excel 文件失败")
)

// ExportService 导出业务接口
//
// 设计说明：
//   - 管理员导出试听课清单为 Excel (.xlsx)，用于线下核对与归档
//   - 导出以 bytes.Buffer 返回，由 Handler 层设置 HTTP 响应头后写入 Response
type ExportService interface {
	// ExportCalls 导出试听课清单为 Excel
	ExportCalls(ctx context.Context, status string) (*bytes.Buffer, string, error)
}

type exportService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewExportService 创建 ExportService 实例
func NewExportService(repo *repository.Repository, logger *zap.Logger) ExportService {
	return &exportService{repo: repo, logger: logger}
}

const exportPageSize = 1000

var exportHeaders = []string{"课程类型", "日期", "开始", "结束", "时区", "时长(分)", "状态", "授课教师", "排课人", "学生邮箱", "会议链接"}

func (s *exportService) ExportCalls(ctx context.Context, status string) (*bytes.Buffer, string, error) {
	// 逐页拉取直至取尽，避免超过单页上限的记录被静默截断
	var calls []model.DemoCall
	for offset := 0; ; offset += exportPageSize {
		page, _, err := s.repo.Call.List(ctx, repository.CallFilter{
			Status: status,
			Offset: offset,
			Limit:  exportPageSize,
		})
		if err != nil {
			s.logger.Error("查询导出数据失败", zap.Error(err))
			return nil, "", err
		}
		calls = append(calls, page...)
		if len(page) < exportPageSize {
			break
		}
	}
	if len(calls) == 0 {
		return nil, "", ErrExportNoCalls
	}

	f := excelize.NewFile()
	defer f.Close()

	const sheet = "试听课"
	f.SetSheetName("Sheet1", sheet)

	for col, h := range exportHeaders {
		cell, _ := excelize.CoordinatesToCellName(col+1, 1)
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return nil, "", ErrExportGenerateFail
		}
	}

	for row, c := range calls {
		values := []interface{}{
			c.ClassType, c.Date, c.StartTime, c.EndTime, c.Timezone,
			c.DurationMinutes, c.Status,
			userName(c.Teacher), userName(c.ScheduledByUser),
			joinEmails(c.StudentEmails), c.MeetingLink,
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row+2)
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				return nil, "", ErrExportGenerateFail
			}
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		s.logger.Error("写入 Excel 缓冲失败", zap.Error(err))
		return nil, "", ErrExportGenerateFail
	}

	filename := fmt.Sprintf("demo-calls-%s.xlsx", time.Now().Format("20060102"))
	return buf, filename, nil
}

func userName(u *model.User) string {
	if u == nil {
		return ""
	}
	return u.Name
}

func joinEmails(emails model.StringArray) string {
	out := ""
	for i, e := range emails {
		if i > 0 {
			out += ", "
		}
		out += e
	}
	return out
}
