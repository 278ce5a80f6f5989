package service

import (
	"context"
	"time"

	"questTracker/internal/models/quest"
)

type QuestRepository interface {
	HealthCheck(ctx context.Context) error
	Query(ctx context.Context, filter quest.Filter) ([]*quest.Quest, error)
	GetByID(ctx context.Context, id int64) (*quest.Quest, error)
	Upsert(ctx context.Context, q *quest.Quest) error
	UpsertAll(ctx context.Context, quests []*quest.Quest) error
	SetStatus(ctx context.Context, ids []int64, status quest.Status, at time.Time) ([]int64, error)
	SetNote(ctx context.Context, id int64, text string, at time.Time) error
	AddTag(ctx context.Context, id int64, tag string, at time.Time) error
	RemoveTag(ctx context.Context, id int64, tag string, at time.Time) error
	Tags(ctx context.Context) ([]string, error)
	Locations(ctx context.Context) ([]string, error)
	Lives(ctx context.Context) ([]string, error)
	RankCounts(ctx context.Context, life string) ([]quest.RankCount, error)
	StatusCounts(ctx context.Context) (map[quest.Status]int, error)
}
