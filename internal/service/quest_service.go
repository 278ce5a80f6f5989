package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"
	"time"

	"questTracker/internal/config"
	"questTracker/internal/export"
	"questTracker/internal/legacy"
	"questTracker/internal/logger"
	"questTracker/internal/models/quest"
	"questTracker/internal/progress"
	rep "questTracker/internal/repository"

	"go.uber.org/zap"
)

// BulkResult reports which of the requested quests were updated.
type BulkResult struct {
	Status  quest.Status `json:"status"`
	Updated []int64      `json:"updated"`
	Missing []int64      `json:"missing"`
}

type ImportReport struct {
	Imported  int                        `json:"imported"`
	Skipped   []legacy.MalformedRowError `json:"skipped"`
	Locations []string                   `json:"locations"`
}

type QuestService struct {
	repo     QuestRepository
	progress *progress.Tracker
	importer *legacy.Importer
	now      func() time.Time
	cacheTTL time.Duration
}

func NewQuestService(repo QuestRepository, opts ...Option) *QuestService {
	s := &QuestService{
		repo:     repo,
		importer: legacy.NewImporter(config.Default().Import),
		now:      time.Now,
		cacheTTL: progress.DefaultTTL,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.progress = progress.NewTracker(repo, progress.WithTTL(s.cacheTTL), progress.WithClock(s.now))
	return s
}

func (s *QuestService) HealthCheck(ctx context.Context) error {
	if err := s.repo.HealthCheck(ctx); err != nil {
		return fmt.Errorf("service health check: %w", err)
	}
	return nil
}

func (s *QuestService) Query(ctx context.Context, filter quest.Filter) ([]*quest.Quest, error) {
	f, err := filter.Normalize()
	if err != nil {
		return nil, NewValidationError("filter", err.Error())
	}
	quests, err := s.repo.Query(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("query quests: %w", err)
	}
	return quests, nil
}

func (s *QuestService) GetQuest(ctx context.Context, id int64) (*quest.Quest, error) {
	q, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, rep.ErrNotFound) {
			logger.Info("Service: Quest not found", zap.Int64("quest_id", id))
			return nil, NewNotFound("quest", id)
		}
		return nil, fmt.Errorf("get quest: %w", err)
	}
	return q, nil
}

func (s *QuestService) SetStatus(ctx context.Context, id int64, status quest.Status) (*quest.Quest, error) {
	if !status.Valid() {
		return nil, NewValidationError("status", fmt.Sprintf("%d is not a quest status", int(status)))
	}

	updated, err := s.repo.SetStatus(ctx, []int64{id}, status, s.now())
	if len(updated) > 0 {
		s.progress.Invalidate()
	}
	if err != nil {
		return nil, fmt.Errorf("set status: %w", err)
	}
	if len(updated) == 0 {
		logger.Info("Service: Quest not found", zap.Int64("quest_id", id))
		return nil, NewNotFound("quest", id)
	}

	logger.Info("Service: Quest status changed", zap.Int64("quest_id", id), zap.String("status", status.String()))
	return s.GetQuest(ctx, id)
}

// BulkSetStatus applies one status to every id. Unknown ids do not fail the
// call; they come back in BulkResult.Missing.
func (s *QuestService) BulkSetStatus(ctx context.Context, ids []int64, status quest.Status) (BulkResult, error) {
	if len(ids) == 0 {
		return BulkResult{}, NewNoSelection("bulk status update")
	}
	if !status.Valid() {
		return BulkResult{}, NewValidationError("status", fmt.Sprintf("%d is not a quest status", int(status)))
	}

	unique := make([]int64, 0, len(ids))
	for _, id := range ids {
		if !slices.Contains(unique, id) {
			unique = append(unique, id)
		}
	}

	updated, err := s.repo.SetStatus(ctx, unique, status, s.now())
	if len(updated) > 0 {
		s.progress.Invalidate()
	}
	if err != nil {
		return BulkResult{}, fmt.Errorf("bulk set status: %w", err)
	}

	res := BulkResult{Status: status, Updated: updated, Missing: []int64{}}
	for _, id := range unique {
		if !slices.Contains(updated, id) {
			res.Missing = append(res.Missing, id)
		}
	}

	logger.Info("Service: Bulk status change",
		zap.String("status", status.String()),
		zap.Int("updated", len(res.Updated)),
		zap.Int("missing", len(res.Missing)),
	)
	return res, nil
}

// SetNote stores text as the quest's note; blank text removes it.
func (s *QuestService) SetNote(ctx context.Context, id int64, text string) error {
	if strings.TrimSpace(text) == "" {
		text = ""
	}
	return s.notFoundAware(id, "set note", s.repo.SetNote(ctx, id, text, s.now()))
}

func (s *QuestService) AddTag(ctx context.Context, id int64, tag string) error {
	tag, err := cleanTag(tag)
	if err != nil {
		return err
	}
	return s.notFoundAware(id, "add tag", s.repo.AddTag(ctx, id, tag, s.now()))
}

func (s *QuestService) RemoveTag(ctx context.Context, id int64, tag string) error {
	tag, err := cleanTag(tag)
	if err != nil {
		return err
	}
	return s.notFoundAware(id, "remove tag", s.repo.RemoveTag(ctx, id, tag, s.now()))
}

func cleanTag(tag string) (string, error) {
	tag = strings.TrimSpace(tag)
	if tag == "" {
		return "", NewValidationError("tag", "must not be empty")
	}
	return tag, nil
}

func (s *QuestService) notFoundAware(id int64, op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, rep.ErrNotFound) {
		logger.Info("Service: Quest not found", zap.Int64("quest_id", id), zap.String("op", op))
		return NewNotFound("quest", id)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func (s *QuestService) Tags(ctx context.Context) ([]string, error) {
	return s.repo.Tags(ctx)
}

func (s *QuestService) Locations(ctx context.Context) ([]string, error) {
	return s.repo.Locations(ctx)
}

func (s *QuestService) Lives(ctx context.Context) ([]string, error) {
	return s.repo.Lives(ctx)
}

func (s *QuestService) LifeProgress(ctx context.Context, life string) (quest.LifeProgress, error) {
	life = strings.TrimSpace(life)
	if life == "" {
		return quest.LifeProgress{}, NewValidationError("life", "must not be empty")
	}
	return s.progress.LifeProgress(ctx, life)
}

func (s *QuestService) AllProgress(ctx context.Context) ([]quest.LifeProgress, error) {
	return s.progress.AllProgress(ctx)
}

func (s *QuestService) Statistics(ctx context.Context) (quest.Statistics, error) {
	return s.progress.Statistics(ctx)
}

func (s *QuestService) LocationSummary(ctx context.Context) ([]quest.LocationCount, error) {
	return s.progress.LocationSummary(ctx)
}

// Import loads the legacy status file and spreadsheet and upserts every
// well-formed quest. Notes and tags already in the store are kept.
func (s *QuestService) Import(ctx context.Context, statusPath, sheetPath string) (ImportReport, error) {
	res, err := s.importer.Load(statusPath, sheetPath)
	if err != nil {
		if errors.Is(err, legacy.ErrMissingFile) {
			logger.Warn("Service: Import refused, input missing", zap.Error(err))
			return ImportReport{}, NewMissingFile(err)
		}
		return ImportReport{}, fmt.Errorf("import: %w", err)
	}

	at := s.now()
	for _, q := range res.Quests {
		q.LastModified = at
	}
	if err := s.upsertAll(ctx, res.Quests); err != nil {
		return ImportReport{}, fmt.Errorf("import: %w", err)
	}

	logger.Info("Service: Legacy import finished",
		zap.Int("imported", len(res.Quests)),
		zap.Int("skipped", len(res.Skipped)),
	)
	return ImportReport{
		Imported:  len(res.Quests),
		Skipped:   res.Skipped,
		Locations: res.Locations,
	}, nil
}

// Export writes every quest, in row order, as JSON.
func (s *QuestService) Export(ctx context.Context, w io.Writer) (int, error) {
	quests, err := s.repo.Query(ctx, quest.Filter{SortBy: quest.SortDefault})
	if err != nil {
		return 0, fmt.Errorf("export: %w", err)
	}
	if err := export.Encode(w, quests); err != nil {
		return 0, err
	}
	logger.Info("Service: Export written", zap.Int("quests", len(quests)))
	return len(quests), nil
}

// Restore reads a JSON export and upserts each record, notes and tags
// included. Nothing is written when any record is invalid or the store
// rejects one of them.
func (s *QuestService) Restore(ctx context.Context, r io.Reader) (int, error) {
	quests, err := export.Decode(r)
	if err != nil {
		return 0, NewValidationError("export", err.Error())
	}
	if err := s.upsertAll(ctx, quests); err != nil {
		if errors.Is(err, legacy.ErrRowOutOfRange) {
			return 0, NewValidationError("export", err.Error())
		}
		return 0, fmt.Errorf("restore: %w", err)
	}
	logger.Info("Service: Export restored", zap.Int("quests", len(quests)))
	return len(quests), nil
}

func (s *QuestService) upsertAll(ctx context.Context, quests []*quest.Quest) error {
	defer s.progress.Invalidate()
	return s.repo.UpsertAll(ctx, quests)
}
