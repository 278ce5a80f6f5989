package quest

import "strings"

type QuestOption func(*Quest)

// New builds a quest from its row id and name. Options that receive an empty
// value are skipped, so spreadsheet cells can be passed straight through.
func New(id int64, name string, options ...QuestOption) *Quest {
	q := &Quest{
		ID:     id,
		Name:   strings.TrimSpace(name),
		Status: StatusUnobtained,
	}
	for _, opt := range options {
		if opt != nil {
			opt(q)
		}
	}
	return q
}

func WithStatus(status Status) QuestOption {
	return func(q *Quest) {
		q.Status = status
	}
}

func WithLife(life string) QuestOption {
	return text(life, func(q *Quest, v string) { q.Life = v })
}

func WithRank(rank string) QuestOption {
	return text(rank, func(q *Quest, v string) { q.Rank = v })
}

func WithGiver(giver string) QuestOption {
	return text(giver, func(q *Quest, v string) { q.Giver = v })
}

func WithDescription(description string) QuestOption {
	return text(description, func(q *Quest, v string) { q.Description = v })
}

func WithTurnIn(turnIn string) QuestOption {
	return text(turnIn, func(q *Quest, v string) { q.TurnIn = v })
}

func WithURL(url string) QuestOption {
	return text(url, func(q *Quest, v string) { q.URL = v })
}

func WithLocations(locations ...string) QuestOption {
	if len(locations) == 0 {
		return nil
	}
	return func(q *Quest) {
		for _, l := range locations {
			l = strings.TrimSpace(l)
			if l != "" && !q.HasLocation(l) {
				q.Locations = append(q.Locations, l)
			}
		}
	}
}

func WithNote(note string) QuestOption {
	return text(note, func(q *Quest, v string) { q.Note = v })
}

func WithTags(tags ...string) QuestOption {
	if len(tags) == 0 {
		return nil
	}
	return func(q *Quest) {
		for _, t := range tags {
			t = strings.TrimSpace(t)
			if t != "" && !q.HasTag(t) {
				q.Tags = append(q.Tags, t)
			}
		}
	}
}

func text(value string, set func(*Quest, string)) QuestOption {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	return func(q *Quest) {
		set(q, value)
	}
}
