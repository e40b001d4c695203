package api

import (
	"time"

	"github.com/djlord-it/birthday-reminder/internal/domain"
)

type CreateBirthdayRequest struct {
	Name string `json:"name"`
	// Date accepts YYYY-MM-DD, an RFC 3339 timestamp, or --MM-DD when the year is unknown.
	Date string `json:"date"`
}

type BirthdayResponse struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Date      string `json:"date"`
	CreatedAt string `json:"created_at,omitempty"`
}

type UpcomingResponse struct {
	BirthdayResponse
	NextOccurrence string `json:"next_occurrence"`
	DaysUntil      int    `json:"days_until"`
	Turning        int    `json:"turning,omitempty"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

type ReminderOutcomeResponse struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Status string `json:"status"`
	Reason string `json:"reason,omitempty"`
}

type ReminderReportResponse struct {
	Message    string                    `json:"message"`
	Trigger    string                    `json:"trigger"`
	TargetDate string                    `json:"target_date"`
	Due        int                       `json:"due"`
	Sent       int                       `json:"sent"`
	Failed     int                       `json:"failed"`
	Suppressed int                       `json:"suppressed"`
	Outcomes   []ReminderOutcomeResponse `json:"outcomes"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

func toBirthdayResponse(rec domain.BirthdayRecord) BirthdayResponse {
	resp := BirthdayResponse{
		ID:   rec.ID.String(),
		Name: rec.Name,
		Date: domain.FormatDate(rec.DateOfBirth),
	}
	if !rec.CreatedAt.IsZero() {
		resp.CreatedAt = formatTime(rec.CreatedAt)
	}
	return resp
}

func toReportResponse(report domain.Report) ReminderReportResponse {
	resp := ReminderReportResponse{
		Message:    "Manual check complete.",
		Trigger:    string(report.Trigger),
		TargetDate: report.Window.Target.Format(domain.DateLayout),
		Due:        len(report.Jobs),
		Sent:       report.Count(domain.OutcomeSent),
		Failed:     report.Count(domain.OutcomeFailed),
		Suppressed: report.Count(domain.OutcomeSuppressed),
		Outcomes:   make([]ReminderOutcomeResponse, 0, len(report.Outcomes)),
	}
	for _, o := range report.Outcomes {
		resp.Outcomes = append(resp.Outcomes, ReminderOutcomeResponse{
			ID:     o.Job.Record.ID.String(),
			Name:   o.Job.Record.Name,
			Status: string(o.Status),
			Reason: o.Reason,
		})
	}
	return resp
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}
