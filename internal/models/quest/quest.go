package quest

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Quest is one row of the quest sheet. Optional text fields are empty when absent.
type Quest struct {
	ID           int64     `json:"id" db:"row_id"`
	Status       Status    `json:"status" db:"status"`
	Name         string    `json:"name" db:"name"`
	Life         string    `json:"life,omitempty" db:"life"`
	Rank         string    `json:"rank,omitempty" db:"rank"`
	Giver        string    `json:"giver,omitempty" db:"giver"`
	Description  string    `json:"description,omitempty" db:"description"`
	TurnIn       string    `json:"turn_in,omitempty" db:"turn_in"`
	URL          string    `json:"url,omitempty" db:"url"`
	LastModified time.Time `json:"last_modified" db:"last_modified"`

	Locations []string `json:"locations,omitempty"`
	Note      string   `json:"note,omitempty"`
	Tags      []string `json:"tags,omitempty"`
}

// Clone returns a deep copy so callers never share slices with a store.
func (q *Quest) Clone() *Quest {
	c := *q
	c.Locations = append([]string(nil), q.Locations...)
	c.Tags = append([]string(nil), q.Tags...)
	return &c
}

func (q *Quest) HasLocation(location string) bool {
	for _, l := range q.Locations {
		if l == location {
			return true
		}
	}
	return false
}

func (q *Quest) HasTag(tag string) bool {
	for _, t := range q.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

type Status int

const (
	StatusUnobtained Status = 0
	StatusObtained   Status = 1
	StatusCompleted  Status = 2
	StatusTurnedIn   Status = 3
)

var statusNames = [...]string{"Unobtained", "Obtained", "Completed", "Turned In"}

func Statuses() []Status {
	return []Status{StatusUnobtained, StatusObtained, StatusCompleted, StatusTurnedIn}
}

func (s Status) Valid() bool {
	return s >= StatusUnobtained && s <= StatusTurnedIn
}

// IsDone reports whether the quest counts towards completion progress.
func (s Status) IsDone() bool {
	return s >= StatusCompleted
}

func (s Status) String() string {
	if !s.Valid() {
		return fmt.Sprintf("Status(%d)", int(s))
	}
	return statusNames[s]
}

// ParseStatus accepts "2", "Completed", "turned_in" and "Turned In".
func ParseStatus(raw string) (Status, error) {
	raw = strings.TrimSpace(raw)
	if n, err := strconv.Atoi(raw); err == nil {
		s := Status(n)
		if !s.Valid() {
			return 0, fmt.Errorf("status %d out of range", n)
		}
		return s, nil
	}

	normalized := strings.ToLower(strings.NewReplacer("_", " ", "-", " ").Replace(raw))
	for i, name := range statusNames {
		if strings.ToLower(name) == normalized || strings.ReplaceAll(strings.ToLower(name), " ", "") == normalized {
			return Status(i), nil
		}
	}
	return 0, fmt.Errorf("unknown status %q", raw)
}
