package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"campuscoin/internal/models"
	"campuscoin/internal/services"
	"campuscoin/internal/weeks"
)

func TestMarkAttendanceBulk(t *testing.T) {
	var gotMarker, gotDate string
	var gotMarks []services.AttendanceMark
	handler := newTestHandler(Deps{
		AttendanceService: stubAttendanceService{
			markBulkFn: func(_ context.Context, markerID, date string, marks []services.AttendanceMark) (services.BulkResult, error) {
				gotMarker, gotDate, gotMarks = markerID, date, marks
				return services.BulkResult{Date: date, Marked: 1, Updated: 1}, nil
			},
		},
	})
	body := `{"date":"2024-03-04","records":[{"user_id":"u1","status":"present"},{"user_id":"u2","status":"late"}]}`
	rr := httptest.NewRecorder()
	handler.MarkAttendanceBulk(rr, newRequest(http.MethodPost, "/attendance/mark-bulk", body, "admin-1", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if gotMarker != "admin-1" || gotDate != "2024-03-04" || len(gotMarks) != 2 {
		t.Fatalf("unexpected call marker=%q date=%q marks=%v", gotMarker, gotDate, gotMarks)
	}
	if gotMarks[1].UserID != "u2" || gotMarks[1].Status != models.AttendanceLate {
		t.Fatalf("unexpected second mark %+v", gotMarks[1])
	}
}

func TestMarkAttendanceErrors(t *testing.T) {
	cases := []struct {
		name string
		body string
		err  error
		want int
	}{
		{name: "missing user", body: `{"date":"2024-03-04","status":"present"}`, want: http.StatusBadRequest},
		{name: "bad status", body: `{"user_id":"u1","date":"2024-03-04","status":"sleeping"}`, err: services.ErrInvalidAttendanceStatus, want: http.StatusBadRequest},
		{name: "bad date", body: `{"user_id":"u1","date":"04/03/2024","status":"present"}`, err: services.ErrInvalidDateRange, want: http.StatusBadRequest},
		{name: "unknown user", body: `{"user_id":"ghost","date":"2024-03-04","status":"present"}`, err: services.ErrNotFound, want: http.StatusNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			handler := newTestHandler(Deps{
				AttendanceService: stubAttendanceService{
					markBulkFn: func(context.Context, string, string, []services.AttendanceMark) (services.BulkResult, error) {
						return services.BulkResult{}, tc.err
					},
				},
			})
			rr := httptest.NewRecorder()
			handler.MarkAttendance(rr, newRequest(http.MethodPost, "/attendance/mark", tc.body, "admin-1", nil))
			if rr.Code != tc.want {
				t.Fatalf("expected %d, got %d", tc.want, rr.Code)
			}
		})
	}
}

func TestDeleteAttendance(t *testing.T) {
	handler := newTestHandler(Deps{
		AttendanceService: stubAttendanceService{
			deleteFn: func(_ context.Context, _, id string) error {
				if id != "att-1" {
					return services.ErrNotFound
				}
				return nil
			},
		},
	})
	rr := httptest.NewRecorder()
	handler.DeleteAttendance(rr, newRequest(http.MethodDelete, "/attendance/att-1", "", "admin-1", map[string]string{"id": "att-1"}))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	rr = httptest.NewRecorder()
	handler.DeleteAttendance(rr, newRequest(http.MethodDelete, "/attendance/att-2", "", "admin-1", map[string]string{"id": "att-2"}))
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rr.Code)
	}
}

func TestMyAttendanceDateRange(t *testing.T) {
	var gotFrom, gotTo string
	handler := newTestHandler(Deps{
		Attendance: stubAttendanceStore{
			listByUserFn: func(_ context.Context, _, from, to string, _ int) ([]models.Attendance, error) {
				gotFrom, gotTo = from, to
				return nil, nil
			},
		},
	})
	rr := httptest.NewRecorder()
	handler.MyAttendance(rr, newRequest(http.MethodGet, "/attendance/me?start_date=2024-03-04&end_date=2024-03-10", "", "user-1", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if gotFrom != "2024-03-04" || gotTo != "2024-03-10" {
		t.Fatalf("unexpected range %s..%s", gotFrom, gotTo)
	}

	rr = httptest.NewRecorder()
	handler.MyAttendance(rr, newRequest(http.MethodGet, "/attendance/me?start_date=2024-03-04", "", "user-1", nil))
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for half-open range, got %d", rr.Code)
	}
}

func TestAttendanceByDateRejectsBadDate(t *testing.T) {
	handler := newTestHandler(Deps{})
	rr := httptest.NewRecorder()
	handler.AttendanceByDate(rr, newRequest(http.MethodGet, "/attendance/date/yesterday", "", "admin-1", map[string]string{"date": "yesterday"}))
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
}

func TestRunWeeklyCreditDefaultsToPreviousWeek(t *testing.T) {
	var gotStart, gotEnd, gotActor string
	handler := newTestHandler(Deps{
		WeeklyCreditService: stubWeeklyService{
			processFn: func(_ context.Context, start, end, actor string) (services.WeekSummary, error) {
				gotStart, gotEnd, gotActor = start, end, actor
				return services.WeekSummary{WeekStart: start, WeekEnd: end, Processed: 3}, nil
			},
		},
	})
	rr := httptest.NewRecorder()
	handler.RunWeeklyCredit(rr, newRequest(http.MethodPost, "/attendance/weekly-credit", "", "admin-1", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	want := weeks.Previous(time.Now().UTC())
	if gotStart != want.Start || gotEnd != want.End || gotActor != "admin-1" {
		t.Fatalf("unexpected week %s..%s by %s", gotStart, gotEnd, gotActor)
	}
	var summary services.WeekSummary
	if err := json.NewDecoder(rr.Body).Decode(&summary); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if summary.Processed != 3 {
		t.Fatalf("unexpected summary %+v", summary)
	}
}

func TestRunWeeklyCreditExplicitWeek(t *testing.T) {
	handler := newTestHandler(Deps{
		WeeklyCreditService: stubWeeklyService{
			processFn: func(_ context.Context, start, end, _ string) (services.WeekSummary, error) {
				if start == "2024-03-10" {
					return services.WeekSummary{}, services.ErrInvalidDateRange
				}
				return services.WeekSummary{WeekStart: start, WeekEnd: end}, nil
			},
		},
	})
	rr := httptest.NewRecorder()
	handler.RunWeeklyCredit(rr, newRequest(http.MethodPost, "/attendance/weekly-credit",
		`{"week_start":"2024-03-04","week_end":"2024-03-10"}`, "admin-1", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	rr = httptest.NewRecorder()
	handler.RunWeeklyCredit(rr, newRequest(http.MethodPost, "/attendance/weekly-credit",
		`{"week_start":"2024-03-10","week_end":"2024-03-04"}`, "admin-1", nil))
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
}
