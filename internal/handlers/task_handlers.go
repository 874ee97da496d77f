package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"todoTracker/internal/handlers/dto"
	"todoTracker/internal/logger"
	"todoTracker/internal/models/task"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

func (h *Handler) CreateTask(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := ownerFromRequest(w, r)
	if !ok {
		return
	}

	var request dto.CreateTaskRequest
	if !decodeJSON(w, r, &request) {
		return
	}

	created, err := h.tasks.Create(r.Context(), ownerID, request.ToInput())
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	logger.HttpRequestInfo(r, "HTTP: Задача создана", logger.TaskID(created.UUID))
	writeJSON(w, http.StatusCreated, dto.FromTask(created))
}

func (h *Handler) ListTasks(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := ownerFromRequest(w, r)
	if !ok {
		return
	}

	filter, err := parseFilter(r)
	if err != nil {
		logger.Warn("HTTP: Неверный параметр фильтра", zap.Error(err), zap.String("client_ip", r.RemoteAddr))
		responseWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	tasks, err := h.tasks.List(r.Context(), ownerID, filter)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.FromTaskList(tasks))
}

func (h *Handler) GetTask(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := ownerFromRequest(w, r)
	if !ok {
		return
	}
	id, ok := taskIDFromPath(w, r)
	if !ok {
		return
	}

	t, err := h.tasks.Get(r.Context(), ownerID, id)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.FromTask(t))
}

func (h *Handler) UpdateTask(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := ownerFromRequest(w, r)
	if !ok {
		return
	}
	id, ok := taskIDFromPath(w, r)
	if !ok {
		return
	}

	var request dto.UpdateTaskRequest
	if !decodeJSON(w, r, &request) {
		return
	}

	result, err := h.tasks.Update(r.Context(), ownerID, id, request.ToOptions()...)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.FromCompletion(result))
}

// ToggleTask переключает done; переход в done у повторяющейся задачи создаёт следующий экземпляр
func (h *Handler) ToggleTask(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := ownerFromRequest(w, r)
	if !ok {
		return
	}
	id, ok := taskIDFromPath(w, r)
	if !ok {
		return
	}

	result, err := h.tasks.ToggleDone(r.Context(), ownerID, id)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	if result.Degraded() {
		logger.Warn("HTTP: Ответ без следующего повтора", logger.TaskID(id))
	}
	writeJSON(w, http.StatusOK, dto.FromCompletion(result))
}

func (h *Handler) DeleteTask(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := ownerFromRequest(w, r)
	if !ok {
		return
	}
	id, ok := taskIDFromPath(w, r)
	if !ok {
		return
	}

	if err := h.tasks.Delete(r.Context(), ownerID, id); err != nil {
		handleServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func taskIDFromPath(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	raw := chi.URLParam(r, "id")
	id, err := uuid.Parse(raw)
	if err != nil {
		logger.Warn("HTTP: Неверный id задачи", zap.String("id", raw), zap.String("client_ip", r.RemoteAddr))
		responseWithError(w, http.StatusBadRequest, "неверный формат id")
		return uuid.Nil, false
	}
	return id, true
}

func parseFilter(r *http.Request) (task.Filter, error) {
	q := r.URL.Query()
	filter := task.Filter{Keyword: strings.TrimSpace(q.Get("keyword"))}

	var err error
	if filter.Page, err = intParam(q.Get("page"), 0); err != nil {
		return filter, err
	}
	if filter.Size, err = intParam(q.Get("size"), task.DefaultPageSize); err != nil {
		return filter, err
	}

	if raw := q.Get("done"); raw != "" {
		done, err := strconv.ParseBool(raw)
		if err != nil {
			return filter, errBadParam("done")
		}
		filter.Done = &done
	}
	if raw := q.Get("category"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return filter, errBadParam("category")
		}
		filter.CategoryID = &id
	}
	if raw := q.Get("tags"); raw != "" {
		for _, part := range strings.Split(raw, ",") {
			id, err := uuid.Parse(strings.TrimSpace(part))
			if err != nil {
				return filter, errBadParam("tags")
			}
			filter.TagIDs = append(filter.TagIDs, id)
		}
	}
	return filter, nil
}
