package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/djlord-it/birthday-reminder/internal/domain"
	"github.com/djlord-it/birthday-reminder/internal/matcher"
)

//go:generate mockgen -destination=apimock/api.go -package=apimock . Store,Trigger,HealthChecker

type Store interface {
	ListAll(ctx context.Context) ([]domain.BirthdayRecord, error)
	Create(ctx context.Context, rec domain.BirthdayRecord) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// Trigger runs the reminder check on demand.
type Trigger interface {
	TriggerNow(ctx context.Context) (domain.Report, error)
}

// HealthChecker is a dependency reported by the verbose /health endpoint.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

type namedChecker struct {
	name    string
	checker HealthChecker
}

type Handler struct {
	store   Store
	trigger Trigger
	checks  []namedChecker

	matcher     matcher.Matcher
	horizonDays int
	location    *time.Location

	logger *slog.Logger
	clock  func() time.Time
}

func NewHandler(store Store, trigger Trigger) *Handler {
	return &Handler{
		store:       store,
		trigger:     trigger,
		horizonDays: matcher.DefaultHorizonDays,
		location:    time.Local,
		logger:      slog.Default().With("component", "api"),
		clock:       time.Now,
	}
}

// WithHealthCheck adds a named dependency to verbose /health responses.
func (h *Handler) WithHealthCheck(name string, c HealthChecker) *Handler {
	h.checks = append(h.checks, namedChecker{name: name, checker: c})
	return h
}

// WithReminderSettings aligns the calendar feed and upcoming list with the scheduler.
func (h *Handler) WithReminderSettings(m matcher.Matcher, horizonDays int, loc *time.Location) *Handler {
	h.matcher = m
	if horizonDays > 0 {
		h.horizonDays = horizonDays
	}
	if loc != nil {
		h.location = loc
	}
	return h
}

func (h *Handler) WithLogger(logger *slog.Logger) *Handler {
	h.logger = logger.With("component", "api")
	return h
}

// WithClock sets a custom clock function for testing.
func (h *Handler) WithClock(clock func() time.Time) *Handler {
	h.clock = clock
	return h
}

type RouterConfig struct {
	AllowOrigins []string
}

// Router builds the gin engine with every route mounted.
func (h *Handler) Router(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(recovery(h.logger), requestLogger(h.logger), corsMiddleware(cfg.AllowOrigins, h.logger))

	r.GET("/health", h.health)

	api := r.Group("/api")
	api.GET("/birthdays", h.listBirthdays)
	api.POST("/birthdays", h.createBirthday)
	api.GET("/birthdays/upcoming", h.upcomingBirthdays)
	api.GET("/birthdays/calendar.ics", h.calendar)
	api.DELETE("/birthdays/:id", h.deleteBirthday)
	api.GET("/test-reminders", h.testReminders)
	api.POST("/test-reminders", h.testReminders)

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "not found"})
	})

	return r
}

// HealthResponse represents the /health endpoint response.
type HealthResponse struct {
	Status     string            `json:"status"`
	Components map[string]string `json:"components,omitempty"`
}

func (h *Handler) health(c *gin.Context) {
	if c.Query("verbose") != "true" || len(h.checks) == 0 {
		c.JSON(http.StatusOK, HealthResponse{Status: "ok"})
		return
	}

	resp := HealthResponse{
		Status:     "ok",
		Components: make(map[string]string, len(h.checks)),
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()

	for _, nc := range h.checks {
		if err := nc.checker.Ping(ctx); err != nil {
			resp.Status = "degraded"
			resp.Components[nc.name] = "unhealthy: " + err.Error()
		} else {
			resp.Components[nc.name] = "healthy"
		}
	}

	statusCode := http.StatusOK
	if resp.Status == "degraded" {
		statusCode = http.StatusServiceUnavailable
	}
	c.JSON(statusCode, resp)
}
