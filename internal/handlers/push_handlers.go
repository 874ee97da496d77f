package handlers

import (
	"net/http"

	"todoTracker/internal/handlers/dto"
	"todoTracker/internal/service"
)

func (h *Handler) PublicKey(w http.ResponseWriter, r *http.Request) {
	key := h.push.PublicKey()
	writeJSON(w, http.StatusOK, dto.PublicKeyResponse{PublicKey: key, Enabled: key != ""})
}

func (h *Handler) Subscribe(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := ownerFromRequest(w, r)
	if !ok {
		return
	}

	var request dto.SubscribeRequest
	if !decodeJSON(w, r, &request) {
		return
	}

	sub, err := h.push.Subscribe(r.Context(), ownerID, service.SubscribeInput{
		Endpoint:  request.Endpoint,
		P256dh:    request.Keys.P256dh,
		Auth:      request.Keys.Auth,
		UserAgent: r.UserAgent(),
	})
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, sub)
}

func (h *Handler) Unsubscribe(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := ownerFromRequest(w, r)
	if !ok {
		return
	}

	if err := h.push.Unsubscribe(r.Context(), ownerID, r.URL.Query().Get("endpoint")); err != nil {
		handleServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
