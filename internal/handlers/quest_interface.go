package handlers

import (
	"context"
	"io"

	"questTracker/internal/appstate"
	"questTracker/internal/models/quest"
	"questTracker/internal/service"
)

type QuestService interface {
	HealthCheck(ctx context.Context) error
	Query(ctx context.Context, filter quest.Filter) ([]*quest.Quest, error)
	GetQuest(ctx context.Context, id int64) (*quest.Quest, error)
	SetStatus(ctx context.Context, id int64, status quest.Status) (*quest.Quest, error)
	BulkSetStatus(ctx context.Context, ids []int64, status quest.Status) (service.BulkResult, error)
	SetNote(ctx context.Context, id int64, text string) error
	AddTag(ctx context.Context, id int64, tag string) error
	RemoveTag(ctx context.Context, id int64, tag string) error
	Tags(ctx context.Context) ([]string, error)
	Locations(ctx context.Context) ([]string, error)
	Lives(ctx context.Context) ([]string, error)
	LocationSummary(ctx context.Context) ([]quest.LocationCount, error)
	LifeProgress(ctx context.Context, life string) (quest.LifeProgress, error)
	AllProgress(ctx context.Context) ([]quest.LifeProgress, error)
	Statistics(ctx context.Context) (quest.Statistics, error)
	Export(ctx context.Context, w io.Writer) (int, error)
	Restore(ctx context.Context, r io.Reader) (int, error)
}

// AppState is the shared filter and selection the /state endpoints drive.
type AppState interface {
	Snapshot(ctx context.Context) (appstate.Snapshot, error)
	SetFilter(ctx context.Context, f quest.Filter) (appstate.Snapshot, error)
	SetSearch(ctx context.Context, text string, field quest.SearchField) (appstate.Snapshot, error)
	Select(ctx context.Context, ids []int64) (appstate.Snapshot, error)
	ApplyStatus(ctx context.Context, status quest.Status) (appstate.Outcome, error)
	SaveNote(ctx context.Context, text string) (appstate.Outcome, error)
}
