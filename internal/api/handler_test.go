package api_test

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"github.com/djlord-it/birthday-reminder/internal/api"
	"github.com/djlord-it/birthday-reminder/internal/api/apimock"
	"github.com/djlord-it/birthday-reminder/internal/domain"
	"github.com/djlord-it/birthday-reminder/internal/matcher"
	"github.com/djlord-it/birthday-reminder/internal/testutil"
)

var fixedNow = time.Date(2026, time.March, 7, 12, 0, 0, 0, time.UTC)

type HandlerTestSuite struct {
	suite.Suite
	router      *gin.Engine
	mockCtrl    *gomock.Controller
	mockStore   *apimock.MockStore
	mockTrigger *apimock.MockTrigger
	mockHealth  *apimock.MockHealthChecker
}

func (s *HandlerTestSuite) SetupTest() {
	gin.SetMode(gin.TestMode)

	s.mockCtrl = gomock.NewController(s.T())
	s.mockStore = apimock.NewMockStore(s.mockCtrl)
	s.mockTrigger = apimock.NewMockTrigger(s.mockCtrl)
	s.mockHealth = apimock.NewMockHealthChecker(s.mockCtrl)

	h := api.NewHandler(s.mockStore, s.mockTrigger).
		WithHealthCheck("store", s.mockHealth).
		WithReminderSettings(matcher.New(matcher.LeapDayFeb28), 7, time.UTC).
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))).
		WithClock(func() time.Time { return fixedNow })

	s.router = h.Router(api.RouterConfig{AllowOrigins: []string{"*"}})
}

func (s *HandlerTestSuite) TearDownTest() {
	s.mockCtrl.Finish()
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerTestSuite))
}

func (s *HandlerTestSuite) do(method, url, body string) *httptest.ResponseRecorder {
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, url, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *HandlerTestSuite) decode(w *httptest.ResponseRecorder, v any) {
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), v), w.Body.String())
}

func record(name string, y int, m time.Month, d int) domain.BirthdayRecord {
	rec := testutil.Record(name, y, m, d)
	rec.CreatedAt = time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC)
	return rec
}

func (s *HandlerTestSuite) TestHealth() {
	w := s.do(http.MethodGet, "/health", "")
	s.Equal(http.StatusOK, w.Code)

	var resp api.HealthResponse
	s.decode(w, &resp)
	s.Equal("ok", resp.Status)
	s.Empty(resp.Components)
}

func (s *HandlerTestSuite) TestHealth_Verbose() {
	s.Run("healthy", func() {
		s.mockHealth.EXPECT().Ping(gomock.Any()).Return(nil)

		w := s.do(http.MethodGet, "/health?verbose=true", "")
		s.Equal(http.StatusOK, w.Code)

		var resp api.HealthResponse
		s.decode(w, &resp)
		s.Equal("healthy", resp.Components["store"])
	})

	s.Run("degraded", func() {
		s.mockHealth.EXPECT().Ping(gomock.Any()).Return(errors.New("connection refused"))

		w := s.do(http.MethodGet, "/health?verbose=true", "")
		s.Equal(http.StatusServiceUnavailable, w.Code)

		var resp api.HealthResponse
		s.decode(w, &resp)
		s.Equal("degraded", resp.Status)
		s.Contains(resp.Components["store"], "connection refused")
	})
}

func (s *HandlerTestSuite) TestListBirthdays_SortedByName() {
	bob := record("bob", 1985, time.March, 8)
	alice := record("Alice", 1990, time.March, 14)
	unknown := record("Carol", domain.YearUnknown, time.June, 1)
	s.mockStore.EXPECT().ListAll(gomock.Any()).Return([]domain.BirthdayRecord{bob, unknown, alice}, nil)

	w := s.do(http.MethodGet, "/api/birthdays", "")
	s.Require().Equal(http.StatusOK, w.Code)

	var resp []api.BirthdayResponse
	s.decode(w, &resp)
	s.Require().Len(resp, 3)
	s.Equal("Alice", resp[0].Name)
	s.Equal("1990-03-14", resp[0].Date)
	s.Equal(alice.ID.String(), resp[0].ID)
	s.Equal("bob", resp[1].Name)
	s.Equal("Carol", resp[2].Name)
	s.Equal("--06-01", resp[2].Date)
	s.Equal("2026-01-01T00:00:00Z", resp[0].CreatedAt)
}

func (s *HandlerTestSuite) TestListBirthdays_Empty() {
	s.mockStore.EXPECT().ListAll(gomock.Any()).Return(nil, nil)

	w := s.do(http.MethodGet, "/api/birthdays", "")
	s.Equal(http.StatusOK, w.Code)
	s.JSONEq(`[]`, w.Body.String())
}

func (s *HandlerTestSuite) TestListBirthdays_StoreUnavailable() {
	err := errors.Mark(errors.New("dial tcp: connection refused"), domain.ErrStoreUnavailable)
	s.mockStore.EXPECT().ListAll(gomock.Any()).Return(nil, err)

	w := s.do(http.MethodGet, "/api/birthdays", "")
	s.Equal(http.StatusServiceUnavailable, w.Code)
	s.JSONEq(`{"error":"birthday store unavailable"}`, w.Body.String())
}

func (s *HandlerTestSuite) TestCreateBirthday() {
	var stored domain.BirthdayRecord
	s.mockStore.EXPECT().Create(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ any, rec domain.BirthdayRecord) error {
			stored = rec
			return nil
		})

	w := s.do(http.MethodPost, "/api/birthdays", `{"name":"  Alice  ","date":"1990-03-14"}`)
	s.Require().Equal(http.StatusCreated, w.Code, w.Body.String())

	var resp api.BirthdayResponse
	s.decode(w, &resp)
	s.Equal("Alice", resp.Name)
	s.Equal("1990-03-14", resp.Date)
	s.Equal(stored.ID.String(), resp.ID)

	s.Equal("Alice", stored.Name)
	s.True(domain.NewDate(1990, time.March, 14).Equal(stored.DateOfBirth))
	s.True(fixedNow.Equal(stored.CreatedAt))
}

func (s *HandlerTestSuite) TestCreateBirthday_YearUnknown() {
	s.mockStore.EXPECT().Create(gomock.Any(), gomock.Any()).Return(nil)

	w := s.do(http.MethodPost, "/api/birthdays", `{"name":"Dana","date":"--02-29"}`)
	s.Require().Equal(http.StatusCreated, w.Code, w.Body.String())

	var resp api.BirthdayResponse
	s.decode(w, &resp)
	s.Equal("--02-29", resp.Date)
}

func (s *HandlerTestSuite) TestCreateBirthday_ValidationErrors() {
	tests := []struct {
		name      string
		body      string
		wantError string
	}{
		{"invalid json", `{"name":`, "invalid JSON body"},
		{"missing name", `{"date":"1990-03-14"}`, "name is required"},
		{"blank name", `{"name":"   ","date":"1990-03-14"}`, "name is required"},
		{"long name", `{"name":"` + strings.Repeat("x", 201) + `","date":"1990-03-14"}`, "name must be at most 200 characters"},
		{"missing date", `{"name":"Alice"}`, "date is required"},
		{"bad date", `{"name":"Alice","date":"14/03/1990"}`, "invalid date"},
		{"impossible date", `{"name":"Alice","date":"1990-02-30"}`, "invalid date"},
		{"future date", `{"name":"Alice","date":"2026-03-08"}`, "date must not be in the future"},
	}

	for _, tt := range tests {
		s.Run(tt.name, func() {
			w := s.do(http.MethodPost, "/api/birthdays", tt.body)
			s.Equal(http.StatusBadRequest, w.Code)

			var resp api.ErrorResponse
			s.decode(w, &resp)
			s.Contains(resp.Error, tt.wantError)
		})
	}
}

func (s *HandlerTestSuite) TestCreateBirthday_Today() {
	s.mockStore.EXPECT().Create(gomock.Any(), gomock.Any()).Return(nil)

	w := s.do(http.MethodPost, "/api/birthdays", `{"name":"Newborn","date":"2026-03-07"}`)
	s.Equal(http.StatusCreated, w.Code, w.Body.String())
}

func (s *HandlerTestSuite) TestCreateBirthday_StoreError() {
	s.mockStore.EXPECT().Create(gomock.Any(), gomock.Any()).Return(errors.New("duplicate key"))

	w := s.do(http.MethodPost, "/api/birthdays", `{"name":"Alice","date":"1990-03-14"}`)
	s.Equal(http.StatusInternalServerError, w.Code)
}

func (s *HandlerTestSuite) TestDeleteBirthday() {
	id := uuid.New()

	s.Run("deleted", func() {
		s.mockStore.EXPECT().Delete(gomock.Any(), id).Return(nil)

		w := s.do(http.MethodDelete, "/api/birthdays/"+id.String(), "")
		s.Equal(http.StatusOK, w.Code)
		s.JSONEq(`{"message":"Birthday deleted successfully"}`, w.Body.String())
	})

	s.Run("not found", func() {
		s.mockStore.EXPECT().Delete(gomock.Any(), id).Return(errors.Wrap(domain.ErrNotFound, "delete birthday"))

		w := s.do(http.MethodDelete, "/api/birthdays/"+id.String(), "")
		s.Equal(http.StatusNotFound, w.Code)
	})

	s.Run("invalid id", func() {
		w := s.do(http.MethodDelete, "/api/birthdays/not-a-uuid", "")
		s.Equal(http.StatusBadRequest, w.Code)
	})
}

func (s *HandlerTestSuite) TestUpcomingBirthdays() {
	alice := record("Alice", 1990, time.March, 14)
	bob := record("Bob", 1985, time.March, 8)
	carol := record("Carol", domain.YearUnknown, time.June, 1)
	today := record("Dave", 2000, time.March, 7)
	records := []domain.BirthdayRecord{alice, bob, carol, today}

	s.Run("default horizon", func() {
		s.mockStore.EXPECT().ListAll(gomock.Any()).Return(records, nil)

		w := s.do(http.MethodGet, "/api/birthdays/upcoming", "")
		s.Require().Equal(http.StatusOK, w.Code)

		var resp []api.UpcomingResponse
		s.decode(w, &resp)
		s.Require().Len(resp, 3)

		s.Equal("Dave", resp[0].Name)
		s.Equal(0, resp[0].DaysUntil)
		s.Equal(26, resp[0].Turning)

		s.Equal("Bob", resp[1].Name)
		s.Equal(1, resp[1].DaysUntil)
		s.Equal("2026-03-08", resp[1].NextOccurrence)

		s.Equal("Alice", resp[2].Name)
		s.Equal(7, resp[2].DaysUntil)
		s.Equal(36, resp[2].Turning)
	})

	s.Run("custom days", func() {
		s.mockStore.EXPECT().ListAll(gomock.Any()).Return(records, nil)

		w := s.do(http.MethodGet, "/api/birthdays/upcoming?days=100", "")
		s.Require().Equal(http.StatusOK, w.Code)

		var resp []api.UpcomingResponse
		s.decode(w, &resp)
		s.Require().Len(resp, 4)
		s.Equal("Carol", resp[3].Name)
		s.Equal(86, resp[3].DaysUntil)
		s.Zero(resp[3].Turning)
	})

	s.Run("invalid days", func() {
		for _, q := range []string{"abc", "-1", "400"} {
			w := s.do(http.MethodGet, "/api/birthdays/upcoming?days="+q, "")
			s.Equal(http.StatusBadRequest, w.Code, q)
		}
	})
}

func (s *HandlerTestSuite) TestCalendar() {
	alice := record("Alice", 1990, time.March, 14)
	s.mockStore.EXPECT().ListAll(gomock.Any()).Return([]domain.BirthdayRecord{alice}, nil)

	w := s.do(http.MethodGet, "/api/birthdays/calendar.ics", "")
	s.Require().Equal(http.StatusOK, w.Code)
	s.Equal("text/calendar; charset=utf-8", w.Header().Get("Content-Type"))
	s.Contains(w.Header().Get("Content-Disposition"), "birthdays.ics")

	body := w.Body.String()
	s.Contains(body, "BEGIN:VCALENDAR")
	s.Contains(body, "UID:"+alice.ID.String()+"@birthday-reminder")
	s.Contains(body, "RRULE:FREQ=YEARLY")
}

func (s *HandlerTestSuite) TestTestReminders() {
	alice := record("Alice", 1990, time.March, 14)
	bob := record("Bob", 1990, time.March, 14)
	target := domain.NewDate(2026, time.March, 14)
	report := domain.Report{
		Trigger: domain.TriggerManual,
		Window:  domain.ReminderWindow{ReferenceInstant: fixedNow, HorizonDays: 7, Target: target},
		Jobs: []domain.NotificationJob{
			{Record: alice, TargetDate: target},
			{Record: bob, TargetDate: target},
		},
		Outcomes: []domain.Outcome{
			{Job: domain.NotificationJob{Record: alice, TargetDate: target}, Status: domain.OutcomeSent},
			{Job: domain.NotificationJob{Record: bob, TargetDate: target}, Status: domain.OutcomeFailed, Reason: "relay responded 502"},
		},
	}
	s.mockTrigger.EXPECT().TriggerNow(gomock.Any()).Return(report, nil)

	w := s.do(http.MethodGet, "/api/test-reminders", "")
	s.Require().Equal(http.StatusOK, w.Code)

	var resp api.ReminderReportResponse
	s.decode(w, &resp)
	s.Equal("Manual check complete.", resp.Message)
	s.Equal("manual", resp.Trigger)
	s.Equal("2026-03-14", resp.TargetDate)
	s.Equal(2, resp.Due)
	s.Equal(1, resp.Sent)
	s.Equal(1, resp.Failed)
	s.Require().Len(resp.Outcomes, 2)
	s.Equal("Bob", resp.Outcomes[1].Name)
	s.Equal("relay responded 502", resp.Outcomes[1].Reason)
}

func (s *HandlerTestSuite) TestTestReminders_Errors() {
	s.Run("store unavailable", func() {
		err := errors.Mark(errors.New("timeout"), domain.ErrStoreUnavailable)
		s.mockTrigger.EXPECT().TriggerNow(gomock.Any()).Return(domain.Report{}, err)

		w := s.do(http.MethodPost, "/api/test-reminders", "")
		s.Equal(http.StatusServiceUnavailable, w.Code)
	})

	s.Run("other failure", func() {
		s.mockTrigger.EXPECT().TriggerNow(gomock.Any()).Return(domain.Report{}, errors.New("boom"))

		w := s.do(http.MethodGet, "/api/test-reminders", "")
		s.Equal(http.StatusInternalServerError, w.Code)
	})
}

func (s *HandlerTestSuite) TestUnknownRoute() {
	w := s.do(http.MethodGet, "/api/nope", "")
	s.Equal(http.StatusNotFound, w.Code)
	s.JSONEq(`{"error":"not found"}`, w.Body.String())
}

func (s *HandlerTestSuite) TestRequestID() {
	s.mockStore.EXPECT().ListAll(gomock.Any()).Return(nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/birthdays", nil)
	req.Header.Set("X-Request-ID", "abc123")
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	s.Equal("abc123", w.Header().Get("X-Request-ID"))
}

func (s *HandlerTestSuite) TestCORSPreflight() {
	req := httptest.NewRequest(http.MethodOptions, "/api/birthdays", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	s.Equal(http.StatusNoContent, w.Code)
	s.Equal("*", w.Header().Get("Access-Control-Allow-Origin"))
}
