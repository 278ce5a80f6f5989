package inmemory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"questTracker/internal/logger"
	"questTracker/internal/models/quest"
	repo "questTracker/internal/repository"

	"go.uber.org/zap"
)

// StatusSaver receives every quest status after a status mutation. The legacy
// status file implements it.
type StatusSaver interface {
	Save(statuses map[int64]quest.Status) error
}

type Option func(*QuestStorage)

func WithStatusSaver(saver StatusSaver) Option {
	return func(s *QuestStorage) {
		s.saver = saver
	}
}

type QuestStorage struct {
	storage map[int64]*quest.Quest
	mtx     *sync.RWMutex
	ids     []int64 // ascending
	saver   StatusSaver
}

func NewQuestStorage(opts ...Option) *QuestStorage {
	s := &QuestStorage{
		storage: make(map[int64]*quest.Quest),
		mtx:     &sync.RWMutex{},
		ids:     []int64{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *QuestStorage) HealthCheck(ctx context.Context) error {
	return nil
}

func (s *QuestStorage) Close() error {
	return nil
}

func (s *QuestStorage) Upsert(ctx context.Context, q *quest.Quest) error {
	return s.UpsertAll(ctx, []*quest.Quest{q})
}

// UpsertAll stores every quest or none of them. Stored notes and tags are kept
// when the incoming quest has none. New quests and status changes go through
// the status saver before memory changes.
func (s *QuestStorage) UpsertAll(ctx context.Context, quests []*quest.Quest) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	staged := make(map[int64]*quest.Quest, len(quests))
	statuses := make(map[int64]quest.Status)
	for _, q := range quests {
		stored := q.Clone()
		existing, ok := s.storage[q.ID]
		if ok {
			if stored.Note == "" {
				stored.Note = existing.Note
			}
			if len(stored.Tags) == 0 {
				stored.Tags = append([]string(nil), existing.Tags...)
			}
		}
		if !ok || existing.Status != stored.Status {
			statuses[q.ID] = stored.Status
		}
		staged[q.ID] = stored
	}

	if len(statuses) > 0 {
		if err := s.persist(statuses); err != nil {
			return err
		}
	}

	for id, q := range staged {
		if _, ok := s.storage[id]; !ok {
			i := sort.Search(len(s.ids), func(i int) bool { return s.ids[i] >= id })
			s.ids = append(s.ids, 0)
			copy(s.ids[i+1:], s.ids[i:])
			s.ids[i] = id
		}
		s.storage[id] = q
	}
	return nil
}

// persist hands every stored status, with changed applied on top, to the
// saver. Callers hold the write lock and update memory only on success.
func (s *QuestStorage) persist(changed map[int64]quest.Status) error {
	if s.saver == nil {
		return nil
	}
	statuses := make(map[int64]quest.Status, len(s.storage)+len(changed))
	for id, q := range s.storage {
		statuses[id] = q.Status
	}
	for id, st := range changed {
		statuses[id] = st
	}
	if err := s.saver.Save(statuses); err != nil {
		logger.Error("Repository: Could not write status file", err, zap.Int("changed", len(changed)))
		return fmt.Errorf("save statuses: %w", err)
	}
	return nil
}

func (s *QuestStorage) GetByID(ctx context.Context, id int64) (*quest.Quest, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	q, ok := s.storage[id]
	if !ok {
		return nil, repo.ErrNotFound
	}
	return q.Clone(), nil
}

func (s *QuestStorage) Query(ctx context.Context, filter quest.Filter) ([]*quest.Quest, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	res := []*quest.Quest{}
	for _, id := range s.ids {
		q := s.storage[id]
		if filter.Matches(q) {
			res = append(res, q.Clone())
		}
	}
	filter.Sort(res)
	return res, nil
}

func (s *QuestStorage) SetStatus(ctx context.Context, ids []int64, status quest.Status, at time.Time) ([]int64, error) {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	updated := make([]int64, 0, len(ids))
	changed := make(map[int64]quest.Status, len(ids))
	for _, id := range ids {
		if _, ok := s.storage[id]; !ok {
			continue
		}
		updated = append(updated, id)
		changed[id] = status
	}
	if len(updated) == 0 {
		return updated, nil
	}

	if err := s.persist(changed); err != nil {
		return nil, err
	}
	for _, id := range updated {
		q := s.storage[id]
		q.Status = status
		q.LastModified = at
	}
	return updated, nil
}

func (s *QuestStorage) SetNote(ctx context.Context, id int64, text string, at time.Time) error {
	return s.mutate(id, at, func(q *quest.Quest) {
		q.Note = text
	})
}

func (s *QuestStorage) AddTag(ctx context.Context, id int64, tag string, at time.Time) error {
	return s.mutate(id, at, func(q *quest.Quest) {
		if !q.HasTag(tag) {
			q.Tags = append(q.Tags, tag)
		}
	})
}

func (s *QuestStorage) RemoveTag(ctx context.Context, id int64, tag string, at time.Time) error {
	return s.mutate(id, at, func(q *quest.Quest) {
		kept := q.Tags[:0]
		for _, t := range q.Tags {
			if t != tag {
				kept = append(kept, t)
			}
		}
		q.Tags = kept
	})
}

func (s *QuestStorage) mutate(id int64, at time.Time, fn func(*quest.Quest)) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	q, ok := s.storage[id]
	if !ok {
		return repo.ErrNotFound
	}
	fn(q)
	q.LastModified = at
	return nil
}

func (s *QuestStorage) Tags(ctx context.Context) ([]string, error) {
	return s.distinct(func(q *quest.Quest) []string { return q.Tags }), nil
}

func (s *QuestStorage) Locations(ctx context.Context) ([]string, error) {
	return s.distinct(func(q *quest.Quest) []string { return q.Locations }), nil
}

func (s *QuestStorage) Lives(ctx context.Context) ([]string, error) {
	return s.distinct(func(q *quest.Quest) []string {
		if q.Life == "" {
			return nil
		}
		return []string{q.Life}
	}), nil
}

func (s *QuestStorage) distinct(values func(*quest.Quest) []string) []string {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	seen := map[string]struct{}{}
	for _, q := range s.storage {
		for _, v := range values(q) {
			seen[v] = struct{}{}
		}
	}
	res := make([]string, 0, len(seen))
	for v := range seen {
		res = append(res, v)
	}
	sort.Strings(res)
	return res
}

func (s *QuestStorage) RankCounts(ctx context.Context, life string) ([]quest.RankCount, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	byRank := map[string]*quest.RankCount{}
	var order []string
	for _, id := range s.ids {
		q := s.storage[id]
		if q.Life != life {
			continue
		}
		rc, ok := byRank[q.Rank]
		if !ok {
			rc = &quest.RankCount{Rank: q.Rank}
			byRank[q.Rank] = rc
			order = append(order, q.Rank)
		}
		rc.Total++
		if q.Status.IsDone() {
			rc.Completed++
		}
	}

	res := make([]quest.RankCount, 0, len(order))
	for _, r := range order {
		res = append(res, *byRank[r])
	}
	return res, nil
}

func (s *QuestStorage) StatusCounts(ctx context.Context) (map[quest.Status]int, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	counts := make(map[quest.Status]int, 4)
	for _, q := range s.storage {
		counts[q.Status]++
	}
	return counts, nil
}
