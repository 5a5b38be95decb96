package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"campuscoin/internal/db"
	"campuscoin/internal/middleware"
	"campuscoin/internal/services"
	"campuscoin/internal/weeks"
)

// dateRange reads optional start_date/end_date. Both or neither must be set.
func dateRange(r *http.Request) (string, string, bool) {
	from, to := r.URL.Query().Get("start_date"), r.URL.Query().Get("end_date")
	if from == "" && to == "" {
		return "", "", true
	}
	week, err := weeks.ParseRange(from, to)
	if err != nil {
		return "", "", false
	}
	return week.Start, week.End, true
}

func (h *Handler) MyAttendance(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	h.listAttendance(w, r, userID)
}

func (h *Handler) UserAttendance(w http.ResponseWriter, r *http.Request) {
	h.listAttendance(w, r, chi.URLParam(r, "id"))
}

func (h *Handler) listAttendance(w http.ResponseWriter, r *http.Request, userID string) {
	from, to, ok := dateRange(r)
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid_date_range")
		return
	}
	rows, err := h.attendance.ListByUser(r.Context(), userID, from, to, parseInt(r.URL.Query().Get("limit"), 100))
	if err != nil {
		if db.IsInvalidText(err) {
			respondError(w, http.StatusNotFound, "not_found")
			return
		}
		respondError(w, http.StatusInternalServerError, "unable to load attendance")
		return
	}
	respondJSON(w, http.StatusOK, rows)
}

func (h *Handler) MyAttendanceStats(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	from, to, ok := dateRange(r)
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid_date_range")
		return
	}
	stats, err := h.attendance.Stats(r.Context(), userID, from, to)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to load attendance stats")
		return
	}
	respondJSON(w, http.StatusOK, stats)
}

func (h *Handler) MyWeeklyCredits(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	rows, err := h.weeklyCredits.List(r.Context(), userID, parseInt(r.URL.Query().Get("limit"), 20))
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to load weekly credits")
		return
	}
	respondJSON(w, http.StatusOK, rows)
}

func (h *Handler) ListWeeklyCredits(w http.ResponseWriter, r *http.Request) {
	rows, err := h.weeklyCredits.List(r.Context(), r.URL.Query().Get("user_id"), parseInt(r.URL.Query().Get("limit"), 100))
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to load weekly credits")
		return
	}
	respondJSON(w, http.StatusOK, rows)
}

func (h *Handler) AttendanceByDate(w http.ResponseWriter, r *http.Request) {
	date := chi.URLParam(r, "date")
	if _, err := weeks.Parse(date); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_date")
		return
	}
	rows, err := h.attendance.ListByDate(r.Context(), date)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to load attendance")
		return
	}
	respondJSON(w, http.StatusOK, rows)
}

type markRequest struct {
	UserID string `json:"user_id"`
	Date   string `json:"date"`
	Status string `json:"status"`
}

func (h *Handler) MarkAttendance(w http.ResponseWriter, r *http.Request) {
	adminID, _ := middleware.UserIDFromContext(r.Context())
	var req markRequest
	if err := decodeJSON(w, r, &req); err != nil || req.UserID == "" {
		respondError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	result, err := h.attendanceService.MarkBulk(r.Context(), adminID, req.Date, []services.AttendanceMark{
		{UserID: req.UserID, Status: req.Status},
	})
	if err != nil {
		h.respondServiceError(w, r, err, "attendance_failed")
		return
	}
	respondJSON(w, http.StatusOK, result)
}

type markBulkRequest struct {
	Date    string                    `json:"date"`
	Records []services.AttendanceMark `json:"records"`
}

func (h *Handler) MarkAttendanceBulk(w http.ResponseWriter, r *http.Request) {
	adminID, _ := middleware.UserIDFromContext(r.Context())
	var req markBulkRequest
	if err := decodeJSON(w, r, &req); err != nil || len(req.Records) == 0 {
		respondError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	result, err := h.attendanceService.MarkBulk(r.Context(), adminID, req.Date, req.Records)
	if err != nil {
		h.respondServiceError(w, r, err, "attendance_failed")
		return
	}
	respondJSON(w, http.StatusOK, result)
}

func (h *Handler) DeleteAttendance(w http.ResponseWriter, r *http.Request) {
	adminID, _ := middleware.UserIDFromContext(r.Context())
	if err := h.attendanceService.Delete(r.Context(), adminID, chi.URLParam(r, "id")); err != nil {
		h.respondServiceError(w, r, err, "attendance_delete_failed")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

type weeklyCreditRequest struct {
	WeekStart string `json:"week_start"`
	WeekEnd   string `json:"week_end"`
}

// RunWeeklyCredit processes the given week, or the previous full week when
// the body names none.
func (h *Handler) RunWeeklyCredit(w http.ResponseWriter, r *http.Request) {
	adminID, _ := middleware.UserIDFromContext(r.Context())
	var req weeklyCreditRequest
	if r.ContentLength != 0 {
		if err := decodeJSON(w, r, &req); err != nil {
			respondError(w, http.StatusBadRequest, "invalid payload")
			return
		}
	}
	if req.WeekStart == "" && req.WeekEnd == "" {
		previous := weeks.Previous(time.Now().UTC())
		req.WeekStart, req.WeekEnd = previous.Start, previous.End
	}
	summary, err := h.weeklyService.ProcessWeek(r.Context(), req.WeekStart, req.WeekEnd, adminID)
	if err != nil {
		h.respondServiceError(w, r, err, "weekly_credit_failed")
		return
	}
	respondJSON(w, http.StatusOK, summary)
}
