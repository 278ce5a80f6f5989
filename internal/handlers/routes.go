package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// NewRouter mounts every quest and state endpoint behind the given middleware.
func NewRouter(h *QuestHandler, middlewares ...func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(middlewares...)

	r.Get("/health", h.HealthCheck)

	r.Route("/quests", func(r chi.Router) {
		r.Get("/", h.ListQuests)
		r.Post("/status", h.BulkSetStatus)

		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.GetQuest)
			r.Put("/status", h.SetStatus)
			r.Put("/note", h.SetNote)
			r.Post("/tags", h.AddTag)
			r.Delete("/tags/{tag}", h.RemoveTag)
		})
	})

	r.Get("/tags", h.Tags)
	r.Get("/lives", h.Lives)
	r.Get("/locations", h.Locations)
	r.Get("/locations/summary", h.LocationSummary)
	r.Get("/progress", h.AllProgress)
	r.Get("/progress/{life}", h.LifeProgress)
	r.Get("/statistics", h.Statistics)
	r.Get("/export", h.Export)
	r.Post("/import/json", h.Restore)

	r.Route("/state", func(r chi.Router) {
		r.Get("/", h.GetState)
		r.Put("/filter", h.SetStateFilter)
		r.Put("/search", h.SetStateSearch)
		r.Put("/selection", h.SetStateSelection)
		r.Post("/selection/status", h.ApplySelectionStatus)
		r.Put("/selection/note", h.SaveSelectionNote)
	})

	return r
}
