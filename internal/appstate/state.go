package appstate

import (
	"context"
	"errors"
	"slices"
	"time"

	"questTracker/internal/logger"
	"questTracker/internal/models/quest"
	"questTracker/internal/service"

	"go.uber.org/zap"
)

const DefaultDebounce = 300 * time.Millisecond

// ErrEventAborted is returned when a state event panicked before producing a
// result.
var ErrEventAborted = errors.New("state event aborted")

// QuestService is what State needs from the service layer.
type QuestService interface {
	Query(ctx context.Context, filter quest.Filter) ([]*quest.Quest, error)
	BulkSetStatus(ctx context.Context, ids []int64, status quest.Status) (service.BulkResult, error)
	SetNote(ctx context.Context, id int64, text string) error
}

// Snapshot is an immutable copy of the state handed to callers.
type Snapshot struct {
	Filter        quest.Filter   `json:"filter"`
	Selection     []int64        `json:"selection"`
	Results       []*quest.Quest `json:"results"`
	Revision      uint64         `json:"revision"`
	SearchPending bool           `json:"search_pending"`
	Error         string         `json:"error,omitempty"`
}

// Outcome describes a selection-scoped operation. Applied is false when the
// operation needed a selection and there was none.
type Outcome struct {
	Applied  bool                `json:"applied"`
	Reason   string              `json:"reason,omitempty"`
	Bulk     *service.BulkResult `json:"bulk,omitempty"`
	Snapshot Snapshot            `json:"snapshot"`
}

type Option func(*State)

func WithDebounce(delay time.Duration) Option {
	return func(s *State) {
		s.debounceDelay = delay
	}
}

// State holds the current filter, selection and result list. Its fields are
// only touched from loop events; the exported methods may be called from any
// goroutine except the loop itself.
type State struct {
	loop          *Loop
	svc           QuestService
	debounceDelay time.Duration
	search        *Debouncer

	filter    quest.Filter
	selection []int64
	results   []*quest.Quest
	revision  uint64
	lastErr   error
}

func NewState(loop *Loop, svc QuestService, opts ...Option) *State {
	s := &State{
		loop:          loop,
		svc:           svc,
		debounceDelay: DefaultDebounce,
		filter:        quest.Filter{SearchField: quest.SearchName, SortBy: quest.SortDefault},
		selection:     []int64{},
		results:       []*quest.Quest{},
	}
	for _, opt := range opts {
		opt(s)
	}
	s.search = NewDebouncer(loop, s.debounceDelay)
	return s
}

func (s *State) snapshot() Snapshot {
	snap := Snapshot{
		Filter:        s.filter,
		Selection:     slices.Clone(s.selection),
		Results:       slices.Clone(s.results),
		Revision:      s.revision,
		SearchPending: s.search.Pending(),
	}
	if s.filter.Status != nil {
		st := *s.filter.Status
		snap.Filter.Status = &st
	}
	if s.lastErr != nil {
		snap.Error = s.lastErr.Error()
	}
	return snap
}

// refresh re-runs the query for the current filter. Runs on the loop.
func (s *State) refresh(ctx context.Context) {
	results, err := s.svc.Query(ctx, s.filter)
	if err != nil {
		logger.Error("State: Could not refresh quest list", err)
		s.lastErr = err
		return
	}
	s.lastErr = nil
	s.results = results
	s.revision++
	logger.Debug("State: Quest list refreshed", zap.Int("quests", len(results)), zap.Uint64("revision", s.revision))
}

// call runs fn on the loop and returns the snapshot taken right after it. The
// snapshot comes back over a channel: a caller that gave up on ctx never reads
// a value the loop may still be writing.
func (s *State) call(ctx context.Context, fn func()) (Snapshot, error) {
	snaps := make(chan Snapshot, 1)
	if err := s.loop.Call(ctx, func() {
		fn()
		snaps <- s.snapshot()
	}); err != nil {
		return Snapshot{}, err
	}
	select {
	case snap := <-snaps:
		return snap, nil
	default:
		return Snapshot{}, ErrEventAborted
	}
}

type outcomeResult struct {
	out Outcome
	err error
}

// apply is call for selection-scoped operations.
func (s *State) apply(ctx context.Context, fn func() (Outcome, error)) (Outcome, error) {
	results := make(chan outcomeResult, 1)
	if err := s.loop.Call(ctx, func() {
		out, err := fn()
		results <- outcomeResult{out: out, err: err}
	}); err != nil {
		return Outcome{}, err
	}
	select {
	case r := <-results:
		return r.out, r.err
	default:
		return Outcome{}, ErrEventAborted
	}
}

func (s *State) Snapshot(ctx context.Context) (Snapshot, error) {
	return s.call(ctx, func() {})
}

func (s *State) Refresh(ctx context.Context) (Snapshot, error) {
	return s.call(ctx, func() { s.refresh(ctx) })
}

// SetFilter replaces the status, life, location, tag and sort selections and
// refreshes at once. Search text and field are left to SetSearch.
func (s *State) SetFilter(ctx context.Context, f quest.Filter) (Snapshot, error) {
	f.Search = ""
	f.SearchField = ""
	normalized, err := f.Normalize()
	if err != nil {
		return Snapshot{}, service.NewValidationError("filter", err.Error())
	}
	return s.call(ctx, func() {
		normalized.Search = s.filter.Search
		normalized.SearchField = s.filter.SearchField
		s.filter = normalized
		s.refresh(ctx)
	})
}

// SetSearch records the search text and field now and refreshes once typing
// has paused for the debounce delay.
func (s *State) SetSearch(ctx context.Context, text string, field quest.SearchField) (Snapshot, error) {
	parsed, err := quest.ParseSearchField(string(field))
	if err != nil {
		return Snapshot{}, service.NewValidationError("search_field", err.Error())
	}
	return s.call(ctx, func() {
		s.filter.Search = text
		s.filter.SearchField = parsed
		s.search.Trigger(func() {
			s.refresh(context.Background())
		})
	})
}

// Select replaces the selection with a copy of ids.
func (s *State) Select(ctx context.Context, ids []int64) (Snapshot, error) {
	selection := make([]int64, 0, len(ids))
	for _, id := range ids {
		if !slices.Contains(selection, id) {
			selection = append(selection, id)
		}
	}
	return s.call(ctx, func() { s.selection = selection })
}

func (s *State) ClearSelection(ctx context.Context) (Snapshot, error) {
	return s.call(ctx, func() { s.selection = []int64{} })
}

// ApplyStatus sets status on every selected quest.
func (s *State) ApplyStatus(ctx context.Context, status quest.Status) (Outcome, error) {
	return s.apply(ctx, func() (Outcome, error) {
		if len(s.selection) == 0 {
			return Outcome{Applied: false, Reason: "no quest selected", Snapshot: s.snapshot()}, nil
		}
		res, err := s.svc.BulkSetStatus(ctx, slices.Clone(s.selection), status)
		if err != nil {
			return Outcome{}, err
		}
		s.refresh(ctx)
		return Outcome{Applied: true, Bulk: &res, Snapshot: s.snapshot()}, nil
	})
}

// SaveNote writes the note of the single selected quest.
func (s *State) SaveNote(ctx context.Context, text string) (Outcome, error) {
	return s.apply(ctx, func() (Outcome, error) {
		switch len(s.selection) {
		case 0:
			return Outcome{Applied: false, Reason: "no quest selected", Snapshot: s.snapshot()}, nil
		case 1:
		default:
			return Outcome{Applied: false, Reason: "notes are saved for exactly one quest", Snapshot: s.snapshot()}, nil
		}
		if err := s.svc.SetNote(ctx, s.selection[0], text); err != nil {
			return Outcome{}, err
		}
		s.refresh(ctx)
		return Outcome{Applied: true, Snapshot: s.snapshot()}, nil
	})
}
