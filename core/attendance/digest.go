package attendance

import (
	"fmt"
	"net/mail"

	"github.com/trezcool/escuela/core"
	"github.com/trezcool/escuela/core/calendar"
)

const digestTemplate = "attendance_digest"

// DigestData is rendered by the attendance_digest email templates.
type DigestData struct {
	Grade         string
	Section       string
	Date          calendar.Date
	Summary       DaySummary
	Absent        []string
	WithoutRecord []string
}

func NewDigestData(report DayReport) DigestData {
	data := DigestData{
		Grade:   report.Section.Grade,
		Section: report.Section.Name,
		Date:    report.Summary.Date,
		Summary: report.Summary,
	}
	for _, d := range report.Students {
		if d.DayStatus == KindAbsent {
			data.Absent = append(data.Absent, d.StudentName)
		}
	}
	for _, e := range report.WithoutRecord {
		data.WithoutRecord = append(data.WithoutRecord, e.StudentName)
	}
	return data
}

func NewDigestMessage(report DayReport, to []mail.Address) *core.EmailMessage {
	return &core.EmailMessage{
		To:           to,
		Subject:      fmt.Sprintf("Attendance %s - %s", report.Section.Label(), report.Summary.Date),
		TemplateName: digestTemplate,
		TemplateData: NewDigestData(report),
	}
}
