package progress

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"questTracker/internal/logger"
	"questTracker/internal/models/quest"

	"go.uber.org/zap"
)

const DefaultTTL = time.Second

// Source is the part of the quest store the tracker aggregates over.
type Source interface {
	RankCounts(ctx context.Context, life string) ([]quest.RankCount, error)
	StatusCounts(ctx context.Context) (map[quest.Status]int, error)
	Query(ctx context.Context, filter quest.Filter) ([]*quest.Quest, error)
}

type Option func(*Tracker)

func WithTTL(ttl time.Duration) Option {
	return func(t *Tracker) {
		t.ttl = ttl
	}
}

func WithClock(now func() time.Time) Option {
	return func(t *Tracker) {
		t.now = now
	}
}

type entry struct {
	value    any
	computed time.Time
}

// Tracker computes progress aggregates and caches each one for ttl, counted
// from the computation that filled the entry. Invalidate drops everything.
type Tracker struct {
	source Source
	ttl    time.Duration
	now    func() time.Time

	mu    sync.Mutex
	cache map[string]entry
	gen   uint64 // bumped by Invalidate
}

func NewTracker(source Source, opts ...Option) *Tracker {
	t := &Tracker{
		source: source,
		ttl:    DefaultTTL,
		now:    time.Now,
		cache:  make(map[string]entry),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

func (t *Tracker) Invalidate() {
	t.mu.Lock()
	defer t.mu.Unlock()
	clear(t.cache)
	t.gen++
	logger.Debug("Progress: Cache invalidated")
}

func (t *Tracker) cached(key string, compute func() (any, error)) (any, error) {
	t.mu.Lock()
	if e, ok := t.cache[key]; ok && t.now().Sub(e.computed) < t.ttl {
		t.mu.Unlock()
		return e.value, nil
	}
	gen := t.gen
	t.mu.Unlock()

	value, err := compute()
	if err != nil {
		return nil, err
	}

	t.mu.Lock()
	// a result computed across an Invalidate may be stale
	if gen == t.gen {
		t.cache[key] = entry{value: value, computed: t.now()}
	}
	t.mu.Unlock()
	return value, nil
}

func (t *Tracker) LifeProgress(ctx context.Context, life string) (quest.LifeProgress, error) {
	v, err := t.cached("life:"+life, func() (any, error) {
		return t.computeLife(ctx, life)
	})
	if err != nil {
		return quest.LifeProgress{}, err
	}
	return cloneLife(v.(quest.LifeProgress)), nil
}

func (t *Tracker) computeLife(ctx context.Context, life string) (quest.LifeProgress, error) {
	counts, err := t.source.RankCounts(ctx, life)
	if err != nil {
		logger.Error("Progress: Could not count ranks", err, zap.String("life", life))
		return quest.LifeProgress{}, fmt.Errorf("life progress %s: %w", life, err)
	}

	lp := quest.LifeProgress{Life: life, Ranks: []quest.RankProgress{}}
	for _, c := range counts {
		lp.Total += c.Total
		lp.Completed += c.Completed
		if c.Rank != "" {
			lp.Ranks = append(lp.Ranks, c)
		}
	}
	sortRanks(lp.Ranks)
	lp.Percentage = quest.Percent(lp.Completed, lp.Total)
	return lp, nil
}

// sortRanks orders by the fixed progression; ranks outside it follow in
// lexical order.
func sortRanks(ranks []quest.RankProgress) {
	sort.SliceStable(ranks, func(i, j int) bool {
		a, b := quest.RankIndex(ranks[i].Rank), quest.RankIndex(ranks[j].Rank)
		if a != b {
			return a < b
		}
		return ranks[i].Rank < ranks[j].Rank
	})
}

func (t *Tracker) AllProgress(ctx context.Context) ([]quest.LifeProgress, error) {
	out := make([]quest.LifeProgress, 0, len(quest.Lives))
	for _, life := range quest.LifeNames() {
		lp, err := t.LifeProgress(ctx, life)
		if err != nil {
			return nil, err
		}
		out = append(out, lp)
	}
	return out, nil
}

func (t *Tracker) Statistics(ctx context.Context) (quest.Statistics, error) {
	v, err := t.cached("statistics", func() (any, error) {
		counts, err := t.source.StatusCounts(ctx)
		if err != nil {
			logger.Error("Progress: Could not count statuses", err)
			return nil, fmt.Errorf("statistics: %w", err)
		}
		return statisticsFrom(counts), nil
	})
	if err != nil {
		return quest.Statistics{}, err
	}
	return v.(quest.Statistics), nil
}

func statisticsFrom(counts map[quest.Status]int) quest.Statistics {
	s := quest.Statistics{
		Unobtained: counts[quest.StatusUnobtained],
		Obtained:   counts[quest.StatusObtained],
		Completed:  counts[quest.StatusCompleted],
		TurnedIn:   counts[quest.StatusTurnedIn],
	}
	s.Total = s.Unobtained + s.Obtained + s.Completed + s.TurnedIn
	s.Done = s.Completed + s.TurnedIn
	s.Percentage = quest.Percent(s.Done, s.Total)
	return s
}

// LocationSummary counts quests per location. Obtained quests count at every
// location they are available in; quests in any other status count at their
// turn-in location. "All" counts every quest, "Lives" every quest with a life.
func (t *Tracker) LocationSummary(ctx context.Context) ([]quest.LocationCount, error) {
	v, err := t.cached("locations", func() (any, error) {
		quests, err := t.source.Query(ctx, quest.Filter{SortBy: quest.SortDefault})
		if err != nil {
			logger.Error("Progress: Could not load quests for location summary", err)
			return nil, fmt.Errorf("location summary: %w", err)
		}
		return summarize(quests), nil
	})
	if err != nil {
		return nil, err
	}
	src := v.([]quest.LocationCount)
	return append([]quest.LocationCount(nil), src...), nil
}

func summarize(quests []*quest.Quest) []quest.LocationCount {
	all := quest.LocationCount{Location: quest.LocationAll, Region: quest.RegionOf(quest.LocationAll)}
	lives := quest.LocationCount{Location: quest.LocationLives}
	byLocation := map[string]*quest.LocationCount{}

	add := func(location string, st quest.Status) {
		if location == "" {
			return
		}
		c, ok := byLocation[location]
		if !ok {
			c = &quest.LocationCount{Location: location, Region: quest.RegionOf(location)}
			byLocation[location] = c
		}
		c.Counts[st]++
	}

	for _, q := range quests {
		if !q.Status.Valid() {
			continue
		}
		all.Counts[q.Status]++
		if q.Life != "" {
			lives.Counts[q.Status]++
		}
		if q.Status == quest.StatusObtained {
			for _, l := range q.Locations {
				add(l, q.Status)
			}
			continue
		}
		add(q.TurnIn, q.Status)
	}

	out := []quest.LocationCount{all, lives}
	for _, region := range quest.Regions {
		for _, l := range quest.RegionLocations[region] {
			if c, ok := byLocation[l]; ok {
				out = append(out, *c)
				delete(byLocation, l)
			}
		}
	}
	rest := make([]string, 0, len(byLocation))
	for l := range byLocation {
		rest = append(rest, l)
	}
	sort.Strings(rest)
	for _, l := range rest {
		out = append(out, *byLocation[l])
	}
	return out
}

func cloneLife(lp quest.LifeProgress) quest.LifeProgress {
	lp.Ranks = append([]quest.RankProgress{}, lp.Ranks...)
	return lp
}
