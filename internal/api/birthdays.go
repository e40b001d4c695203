package api

import (
	"net/http"
	"sort"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/djlord-it/birthday-reminder/internal/calendar"
	"github.com/djlord-it/birthday-reminder/internal/domain"
)

const maxUpcomingDays = 366

func (h *Handler) listBirthdays(c *gin.Context) {
	records, err := h.store.ListAll(c.Request.Context())
	if err != nil {
		h.storeError(c, "list birthdays", err)
		return
	}

	sortByName(records)

	resp := make([]BirthdayResponse, 0, len(records))
	for _, rec := range records {
		resp = append(resp, toBirthdayResponse(rec))
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) createBirthday(c *gin.Context) {
	var req CreateBirthdayRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid JSON body"})
		return
	}

	name, dob, err := validateCreateBirthday(req, h.clock().In(h.location))
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	rec := domain.BirthdayRecord{
		ID:          uuid.New(),
		Name:        name,
		DateOfBirth: dob,
		CreatedAt:   h.clock().UTC(),
	}

	if err := h.store.Create(c.Request.Context(), rec); err != nil {
		h.storeError(c, "create birthday", err)
		return
	}

	h.logger.Info("birthday created", "id", rec.ID, "name", rec.Name)
	c.JSON(http.StatusCreated, toBirthdayResponse(rec))
}

func (h *Handler) deleteBirthday(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid birthday ID"})
		return
	}

	if err := h.store.Delete(c.Request.Context(), id); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{Error: "birthday not found"})
			return
		}
		h.storeError(c, "delete birthday", err)
		return
	}

	h.logger.Info("birthday deleted", "id", id)
	c.JSON(http.StatusOK, MessageResponse{Message: "Birthday deleted successfully"})
}

// upcomingBirthdays lists next occurrences within ?days (default: the
// reminder horizon), soonest first.
func (h *Handler) upcomingBirthdays(c *gin.Context) {
	days := h.horizonDays
	if v := c.Query("days"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 || n > maxUpcomingDays {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "days must be an integer between 0 and 366"})
			return
		}
		days = n
	}

	records, err := h.store.ListAll(c.Request.Context())
	if err != nil {
		h.storeError(c, "list upcoming birthdays", err)
		return
	}

	now := h.clock().In(h.location)
	resp := make([]UpcomingResponse, 0)
	for _, rec := range records {
		next, until := h.matcher.NextOccurrence(rec.DateOfBirth, now)
		if until < 0 || until > days {
			continue
		}
		resp = append(resp, UpcomingResponse{
			BirthdayResponse: toBirthdayResponse(rec),
			NextOccurrence:   next.Format(domain.DateLayout),
			DaysUntil:        until,
			Turning:          rec.AgeOn(next),
		})
	}

	sort.SliceStable(resp, func(i, j int) bool {
		if resp[i].DaysUntil != resp[j].DaysUntil {
			return resp[i].DaysUntil < resp[j].DaysUntil
		}
		return strings.ToLower(resp[i].Name) < strings.ToLower(resp[j].Name)
	})
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) calendar(c *gin.Context) {
	records, err := h.store.ListAll(c.Request.Context())
	if err != nil {
		h.storeError(c, "render calendar", err)
		return
	}

	sortByName(records)

	body, err := calendar.Render(records, calendar.Options{
		Policy:    h.matcher.PolicyName(),
		AlarmDays: h.horizonDays,
		Now:       h.clock(),
	})
	if err != nil {
		h.logger.Error("render calendar failed", "error", err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "failed to render calendar"})
		return
	}

	c.Header("Content-Disposition", `attachment; filename="birthdays.ics"`)
	c.Data(http.StatusOK, "text/calendar; charset=utf-8", body)
}

func (h *Handler) testReminders(c *gin.Context) {
	report, err := h.trigger.TriggerNow(c.Request.Context())
	if err != nil {
		if errors.Is(err, domain.ErrStoreUnavailable) {
			h.logger.Error("manual check aborted", "error", err)
			c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: "birthday store unavailable"})
			return
		}
		h.logger.Error("manual check failed", "error", err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "manual check failed"})
		return
	}

	c.JSON(http.StatusOK, toReportResponse(report))
}

func (h *Handler) storeError(c *gin.Context, op string, err error) {
	_ = c.Error(err)
	h.logger.Error(op+" failed", "error", err)
	if errors.Is(err, domain.ErrStoreUnavailable) {
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: "birthday store unavailable"})
		return
	}
	c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal error"})
}

func sortByName(records []domain.BirthdayRecord) {
	sort.SliceStable(records, func(i, j int) bool {
		return strings.ToLower(records[i].Name) < strings.ToLower(records[j].Name)
	})
}
