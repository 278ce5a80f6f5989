package handlers

import (
	"bytes"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"questTracker/internal/handlers/dto"
	"questTracker/internal/logger"
	"questTracker/internal/models/quest"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

const serviceName = "quest-tracker"

type QuestHandler struct {
	QuestService QuestService
	State        AppState
}

func NewQuestHandler(questService QuestService, state AppState) *QuestHandler {
	return &QuestHandler{
		QuestService: questService,
		State:        state,
	}
}

func (h *QuestHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	logger.HttpRequestInfo(r, "HTTP: Health check")

	if err := h.QuestService.HealthCheck(r.Context()); err != nil {
		logger.Warn("HTTP: Health check failed", zap.Error(err))
		responseWithJSON(w, http.StatusServiceUnavailable,
			toPayload("status", "unavailable"),
			toPayload("service", serviceName),
			toPayload("error", err.Error()),
		)
		return
	}
	responseWithJSON(w, http.StatusOK,
		toPayload("status", "ok"),
		toPayload("service", serviceName),
	)
}

// filterFromQuery reads status, life, location, search, field, tag, sort and
// desc from the query string.
func filterFromQuery(r *http.Request) (quest.Filter, error) {
	q := r.URL.Query()
	f := quest.Filter{
		Life:        q.Get("life"),
		Location:    q.Get("location"),
		Search:      q.Get("search"),
		SearchField: quest.SearchField(q.Get("field")),
		Tag:         q.Get("tag"),
		SortBy:      quest.SortKey(q.Get("sort")),
	}
	if raw := q.Get("status"); raw != "" {
		st, err := quest.ParseStatus(raw)
		if err != nil {
			return f, err
		}
		f = f.WithStatus(st)
	}
	desc, err := dto.ParseBool(q.Get("desc"))
	if err != nil {
		return f, err
	}
	f.Desc = desc
	return f, nil
}

func (h *QuestHandler) ListQuests(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logger.HttpRequestInfo(r, "HTTP_IN:")

	filter, err := filterFromQuery(r)
	if err != nil {
		logger.Warn("HTTP: Invalid query parameter",
			zap.Error(err),
			zap.String("client_ip", r.RemoteAddr))

		responseWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	quests, err := h.QuestService.Query(r.Context(), filter)
	if err != nil {
		handleError(w, r, err, "list_quests")
		return
	}

	logger.Info("HTTP_OUT: Quests listed",
		zap.Int("count", len(quests)),
		zap.Duration("ms", time.Since(start)),
		zap.Int("http_status", http.StatusOK))

	responseWithBody(w, http.StatusOK, dto.FromQuestList(quests))
}

func (h *QuestHandler) GetQuest(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logger.HttpRequestInfo(r, "HTTP_IN:")

	id, ok := questID(w, r)
	if !ok {
		return
	}

	q, err := h.QuestService.GetQuest(r.Context(), id)
	if err != nil {
		handleError(w, r, err, "get_quest")
		return
	}

	logger.Info("HTTP_OUT: Quest found",
		zap.Int64("quest_id", id),
		zap.Duration("ms", time.Since(start)),
		zap.Int("http_status", http.StatusOK))

	responseWithBody(w, http.StatusOK, dto.FromQuest(q))
}

func (h *QuestHandler) SetStatus(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logger.HttpRequestInfo(r, "HTTP_IN:")

	id, ok := questID(w, r)
	if !ok {
		return
	}
	var request dto.StatusRequest
	if !decodeJSON(w, r, &request) {
		return
	}
	if request.Status == nil {
		logger.Warn("HTTP: Validation failed",
			zap.String("field", "status"),
			zap.String("error", "empty_field"),
			zap.String("client_ip", r.RemoteAddr))

		responseWithError(w, http.StatusBadRequest, "status is required")
		return
	}

	q, err := h.QuestService.SetStatus(r.Context(), id, request.Status.Status())
	if err != nil {
		handleError(w, r, err, "set_status")
		return
	}

	logger.Info("HTTP_OUT: Quest status changed",
		zap.Int64("quest_id", id),
		zap.Duration("ms", time.Since(start)),
		zap.Int("http_status", http.StatusOK))

	responseWithBody(w, http.StatusOK, dto.FromQuest(q))
}

func (h *QuestHandler) BulkSetStatus(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logger.HttpRequestInfo(r, "HTTP_IN:")

	var request dto.BulkStatusRequest
	if !decodeJSON(w, r, &request) {
		return
	}
	if request.Status == nil {
		responseWithError(w, http.StatusBadRequest, "status is required")
		return
	}

	res, err := h.QuestService.BulkSetStatus(r.Context(), request.IDs, request.Status.Status())
	if err != nil {
		handleError(w, r, err, "bulk_set_status")
		return
	}

	logger.Info("HTTP_OUT: Bulk status changed",
		zap.Int("updated", len(res.Updated)),
		zap.Duration("ms", time.Since(start)),
		zap.Int("http_status", http.StatusOK))

	responseWithBody(w, http.StatusOK, res)
}

func (h *QuestHandler) SetNote(w http.ResponseWriter, r *http.Request) {
	id, ok := questID(w, r)
	if !ok {
		return
	}
	logger.HttpRequestInfo(r, "HTTP_IN:")

	var request dto.NoteRequest
	if !decodeJSON(w, r, &request) {
		return
	}
	if err := h.QuestService.SetNote(r.Context(), id, request.Note); err != nil {
		handleError(w, r, err, "set_note")
		return
	}
	h.respondQuest(w, r, id)
}

func (h *QuestHandler) AddTag(w http.ResponseWriter, r *http.Request) {
	id, ok := questID(w, r)
	if !ok {
		return
	}
	logger.HttpRequestInfo(r, "HTTP_IN:")

	var request dto.TagRequest
	if !decodeJSON(w, r, &request) {
		return
	}
	if err := h.QuestService.AddTag(r.Context(), id, request.Tag); err != nil {
		handleError(w, r, err, "add_tag")
		return
	}
	h.respondQuest(w, r, id)
}

func (h *QuestHandler) RemoveTag(w http.ResponseWriter, r *http.Request) {
	id, ok := questID(w, r)
	if !ok {
		return
	}
	logger.HttpRequestInfo(r, "HTTP_IN:")

	tag, err := url.PathUnescape(chi.URLParam(r, "tag"))
	if err != nil {
		responseWithError(w, http.StatusBadRequest, "invalid tag: "+err.Error())
		return
	}
	if err := h.QuestService.RemoveTag(r.Context(), id, tag); err != nil {
		handleError(w, r, err, "remove_tag")
		return
	}
	h.respondQuest(w, r, id)
}

// respondQuest answers a mutation with the quest as stored afterwards.
func (h *QuestHandler) respondQuest(w http.ResponseWriter, r *http.Request, id int64) {
	q, err := h.QuestService.GetQuest(r.Context(), id)
	if err != nil {
		handleError(w, r, err, "get_quest")
		return
	}
	responseWithBody(w, http.StatusOK, dto.FromQuest(q))
}

func (h *QuestHandler) Tags(w http.ResponseWriter, r *http.Request) {
	logger.HttpRequestInfo(r, "HTTP_IN:")
	tags, err := h.QuestService.Tags(r.Context())
	if err != nil {
		handleError(w, r, err, "tags")
		return
	}
	responseWithBody(w, http.StatusOK, tags)
}

func (h *QuestHandler) Locations(w http.ResponseWriter, r *http.Request) {
	logger.HttpRequestInfo(r, "HTTP_IN:")
	locations, err := h.QuestService.Locations(r.Context())
	if err != nil {
		handleError(w, r, err, "locations")
		return
	}
	responseWithBody(w, http.StatusOK, locations)
}

func (h *QuestHandler) Lives(w http.ResponseWriter, r *http.Request) {
	logger.HttpRequestInfo(r, "HTTP_IN:")
	lives, err := h.QuestService.Lives(r.Context())
	if err != nil {
		handleError(w, r, err, "lives")
		return
	}
	responseWithBody(w, http.StatusOK, lives)
}

func (h *QuestHandler) LocationSummary(w http.ResponseWriter, r *http.Request) {
	logger.HttpRequestInfo(r, "HTTP_IN:")
	summary, err := h.QuestService.LocationSummary(r.Context())
	if err != nil {
		handleError(w, r, err, "location_summary")
		return
	}
	responseWithBody(w, http.StatusOK, summary)
}

func (h *QuestHandler) AllProgress(w http.ResponseWriter, r *http.Request) {
	logger.HttpRequestInfo(r, "HTTP_IN:")
	progress, err := h.QuestService.AllProgress(r.Context())
	if err != nil {
		handleError(w, r, err, "all_progress")
		return
	}
	responseWithBody(w, http.StatusOK, progress)
}

func (h *QuestHandler) LifeProgress(w http.ResponseWriter, r *http.Request) {
	logger.HttpRequestInfo(r, "HTTP_IN:")
	progress, err := h.QuestService.LifeProgress(r.Context(), chi.URLParam(r, "life"))
	if err != nil {
		handleError(w, r, err, "life_progress")
		return
	}
	responseWithBody(w, http.StatusOK, progress)
}

func (h *QuestHandler) Statistics(w http.ResponseWriter, r *http.Request) {
	logger.HttpRequestInfo(r, "HTTP_IN:")
	stats, err := h.QuestService.Statistics(r.Context())
	if err != nil {
		handleError(w, r, err, "statistics")
		return
	}
	responseWithBody(w, http.StatusOK, stats)
}

// Export streams the JSON export as a download. The body is built in memory
// first so a store error still gets a proper status code.
func (h *QuestHandler) Export(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logger.HttpRequestInfo(r, "HTTP_IN:")

	var buf bytes.Buffer
	n, err := h.QuestService.Export(r.Context(), &buf)
	if err != nil {
		handleError(w, r, err, "export")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf(`attachment; filename="quests-%s.json"`, time.Now().Format("20060102-150405")))
	w.WriteHeader(http.StatusOK)
	if _, err := buf.WriteTo(w); err != nil {
		logger.Error("HTTP: Could not write export", err)
		return
	}

	logger.Info("HTTP_OUT: Export sent",
		zap.Int("quests", n),
		zap.Duration("ms", time.Since(start)),
		zap.Int("http_status", http.StatusOK))
}

func (h *QuestHandler) Restore(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logger.HttpRequestInfo(r, "HTTP_IN:")

	if !checkContentType(r, "application/json") {
		responseWithError(w, http.StatusUnsupportedMediaType, "Content-Type must be application/json")
		return
	}

	n, err := h.QuestService.Restore(r.Context(), http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		handleError(w, r, err, "restore")
		return
	}

	logger.Info("HTTP_OUT: Export restored",
		zap.Int("quests", n),
		zap.Duration("ms", time.Since(start)),
		zap.Int("http_status", http.StatusOK))

	responseWithJSON(w, http.StatusOK, toPayload("restored", n))
}
