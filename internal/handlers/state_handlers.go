package handlers

import (
	"net/http"
	"time"

	"questTracker/internal/handlers/dto"
	"questTracker/internal/logger"
	"questTracker/internal/models/quest"

	"go.uber.org/zap"
)

func (h *QuestHandler) GetState(w http.ResponseWriter, r *http.Request) {
	logger.HttpRequestInfo(r, "HTTP_IN:")
	snap, err := h.State.Snapshot(r.Context())
	if err != nil {
		handleError(w, r, err, "state")
		return
	}
	responseWithBody(w, http.StatusOK, dto.FromSnapshot(snap))
}

func (h *QuestHandler) SetStateFilter(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logger.HttpRequestInfo(r, "HTTP_IN:")

	var request dto.FilterRequest
	if !decodeJSON(w, r, &request) {
		return
	}
	snap, err := h.State.SetFilter(r.Context(), request.Filter())
	if err != nil {
		handleError(w, r, err, "state_filter")
		return
	}

	logger.Info("HTTP_OUT: Filter applied",
		zap.Int("results", len(snap.Results)),
		zap.Duration("ms", time.Since(start)),
		zap.Int("http_status", http.StatusOK))

	responseWithBody(w, http.StatusOK, dto.FromSnapshot(snap))
}

// SetStateSearch answers at once; the refreshed list shows up in a later
// GET /state once the debounce delay has passed.
func (h *QuestHandler) SetStateSearch(w http.ResponseWriter, r *http.Request) {
	logger.HttpRequestInfo(r, "HTTP_IN:")

	var request dto.SearchRequest
	if !decodeJSON(w, r, &request) {
		return
	}
	snap, err := h.State.SetSearch(r.Context(), request.Text, quest.SearchField(request.Field))
	if err != nil {
		handleError(w, r, err, "state_search")
		return
	}
	responseWithBody(w, http.StatusAccepted, dto.FromSnapshot(snap))
}

func (h *QuestHandler) SetStateSelection(w http.ResponseWriter, r *http.Request) {
	logger.HttpRequestInfo(r, "HTTP_IN:")

	var request dto.SelectionRequest
	if !decodeJSON(w, r, &request) {
		return
	}
	snap, err := h.State.Select(r.Context(), request.IDs)
	if err != nil {
		handleError(w, r, err, "state_selection")
		return
	}
	responseWithBody(w, http.StatusOK, dto.FromSnapshot(snap))
}

func (h *QuestHandler) ApplySelectionStatus(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logger.HttpRequestInfo(r, "HTTP_IN:")

	var request dto.StatusRequest
	if !decodeJSON(w, r, &request) {
		return
	}
	if request.Status == nil {
		responseWithError(w, http.StatusBadRequest, "status is required")
		return
	}
	out, err := h.State.ApplyStatus(r.Context(), request.Status.Status())
	if err != nil {
		handleError(w, r, err, "selection_status")
		return
	}

	logger.Info("HTTP_OUT: Selection status applied",
		zap.Bool("applied", out.Applied),
		zap.Duration("ms", time.Since(start)),
		zap.Int("http_status", http.StatusOK))

	responseWithBody(w, http.StatusOK, dto.FromOutcome(out))
}

func (h *QuestHandler) SaveSelectionNote(w http.ResponseWriter, r *http.Request) {
	logger.HttpRequestInfo(r, "HTTP_IN:")

	var request dto.NoteRequest
	if !decodeJSON(w, r, &request) {
		return
	}
	out, err := h.State.SaveNote(r.Context(), request.Note)
	if err != nil {
		handleError(w, r, err, "selection_note")
		return
	}
	responseWithBody(w, http.StatusOK, dto.FromOutcome(out))
}
