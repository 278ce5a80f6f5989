package export

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"questTracker/internal/models/quest"
)

var ErrInvalidRecord = errors.New("invalid export record")

// Record is one quest in the JSON export.
type Record struct {
	ID           int64     `json:"id"`
	Status       int       `json:"status"`
	StatusName   string    `json:"status_name"`
	Name         string    `json:"name"`
	Life         string    `json:"life"`
	Rank         string    `json:"rank"`
	Giver        string    `json:"giver"`
	Description  string    `json:"description"`
	TurnIn       string    `json:"turn_in"`
	URL          string    `json:"url"`
	LastModified time.Time `json:"last_modified"`
	Locations    []string  `json:"locations"`
	Note         string    `json:"note"`
	Tags         []string  `json:"tags"`
}

func FromQuest(q *quest.Quest) Record {
	r := Record{
		ID:           q.ID,
		Status:       int(q.Status),
		StatusName:   q.Status.String(),
		Name:         q.Name,
		Life:         q.Life,
		Rank:         q.Rank,
		Giver:        q.Giver,
		Description:  q.Description,
		TurnIn:       q.TurnIn,
		URL:          q.URL,
		LastModified: q.LastModified,
		Locations:    append([]string{}, q.Locations...),
		Note:         q.Note,
		Tags:         append([]string{}, q.Tags...),
	}
	return r
}

// ToQuest validates r and converts it back. The status name is informational
// and ignored.
func (r Record) ToQuest() (*quest.Quest, error) {
	if r.ID <= 0 {
		return nil, fmt.Errorf("%w: id %d", ErrInvalidRecord, r.ID)
	}
	status := quest.Status(r.Status)
	if !status.Valid() {
		return nil, fmt.Errorf("%w: quest %d has status %d", ErrInvalidRecord, r.ID, r.Status)
	}
	q := quest.New(r.ID, r.Name,
		quest.WithStatus(status),
		quest.WithLife(r.Life),
		quest.WithRank(r.Rank),
		quest.WithGiver(r.Giver),
		quest.WithDescription(r.Description),
		quest.WithTurnIn(r.TurnIn),
		quest.WithURL(r.URL),
		quest.WithLocations(r.Locations...),
		quest.WithNote(r.Note),
		quest.WithTags(r.Tags...),
	)
	q.LastModified = r.LastModified
	return q, nil
}

// Encode writes quests as one indented JSON array.
func Encode(w io.Writer, quests []*quest.Quest) error {
	records := make([]Record, len(quests))
	for i, q := range quests {
		records[i] = FromQuest(q)
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(records); err != nil {
		return fmt.Errorf("encode export: %w", err)
	}
	return nil
}

// Decode reads an array written by Encode. Any invalid record fails the
// whole decode.
func Decode(r io.Reader) ([]*quest.Quest, error) {
	var records []Record
	if err := json.NewDecoder(r).Decode(&records); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRecord, err)
	}

	seen := make(map[int64]struct{}, len(records))
	quests := make([]*quest.Quest, 0, len(records))
	for _, rec := range records {
		if _, dup := seen[rec.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate id %d", ErrInvalidRecord, rec.ID)
		}
		seen[rec.ID] = struct{}{}

		q, err := rec.ToQuest()
		if err != nil {
			return nil, err
		}
		quests = append(quests, q)
	}
	return quests, nil
}
