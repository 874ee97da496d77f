package handlers

import (
	"net/http"
	"time"

	"todoTracker/internal/logger"
	"todoTracker/internal/models/task"
	"todoTracker/internal/service"

	"go.uber.org/zap"
)

// RecentNotifications: ?page=0&size=20&after=<RFC3339>&minutesFallback=60
func (h *Handler) RecentNotifications(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := ownerFromRequest(w, r)
	if !ok {
		return
	}

	q := r.URL.Query()
	query := service.RecentQuery{}

	var err error
	if query.Page, err = intParam(q.Get("page"), 0); err != nil {
		responseWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	if query.Size, err = intParam(q.Get("size"), task.DefaultPageSize); err != nil {
		responseWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	if query.MinutesFallback, err = intParam(q.Get("minutesFallback"), service.DefaultMinutesFallback); err != nil {
		responseWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	if raw := q.Get("after"); raw != "" {
		after, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			logger.Warn("HTTP: Неверный параметр after", zap.String("after", raw))
			responseWithError(w, http.StatusBadRequest, errBadParam("after").Error())
			return
		}
		query.After = &after
	}

	writeJSON(w, http.StatusOK, h.notifications.Recent(ownerID, query))
}
