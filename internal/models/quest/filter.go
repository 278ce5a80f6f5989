package quest

import (
	"fmt"
	"sort"
	"strings"
)

type SearchField string

const (
	SearchName        SearchField = "Name"
	SearchLife        SearchField = "Life"
	SearchGiver       SearchField = "Giver"
	SearchDescription SearchField = "Description"
	SearchTurnIn      SearchField = "TurnIn"
	SearchAll         SearchField = "All"
)

type SortKey string

const (
	SortDefault      SortKey = "default"
	SortName         SortKey = "name"
	SortLife         SortKey = "life"
	SortRank         SortKey = "rank"
	SortStatus       SortKey = "status"
	SortLastModified SortKey = "last_modified"
)

// Filter is the set of selections a quest list is built from. Zero values mean
// "no restriction"; a nil Status means "all".
type Filter struct {
	Status      *Status     `json:"status,omitempty"`
	Life        string      `json:"life,omitempty"`
	Location    string      `json:"location,omitempty"`
	Search      string      `json:"search,omitempty"`
	SearchField SearchField `json:"search_field,omitempty"`
	Tag         string      `json:"tag,omitempty"`
	SortBy      SortKey     `json:"sort_by,omitempty"`
	Desc        bool        `json:"desc,omitempty"`
}

func ParseSearchField(raw string) (SearchField, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "name":
		return SearchName, nil
	case "life":
		return SearchLife, nil
	case "giver", "npc":
		return SearchGiver, nil
	case "description":
		return SearchDescription, nil
	case "turnin", "turn_in", "turn in":
		return SearchTurnIn, nil
	case "all":
		return SearchAll, nil
	}
	return "", fmt.Errorf("unknown search field %q", raw)
}

func ParseSortKey(raw string) (SortKey, error) {
	switch k := SortKey(strings.ToLower(strings.TrimSpace(raw))); k {
	case "":
		return SortDefault, nil
	case SortDefault, SortName, SortLife, SortRank, SortStatus, SortLastModified:
		return k, nil
	case "last modified", "lastmodified", "modified":
		return SortLastModified, nil
	}
	return "", fmt.Errorf("unknown sort key %q", raw)
}

// Normalize fills defaults and rejects values no store could answer.
func (f Filter) Normalize() (Filter, error) {
	if f.Status != nil && !f.Status.Valid() {
		return f, fmt.Errorf("status %d out of range", int(*f.Status))
	}
	field, err := ParseSearchField(string(f.SearchField))
	if err != nil {
		return f, err
	}
	f.SearchField = field
	key, err := ParseSortKey(string(f.SortBy))
	if err != nil {
		return f, err
	}
	f.SortBy = key
	f.Search = strings.TrimSpace(f.Search)
	f.Life = strings.TrimSpace(f.Life)
	f.Location = strings.TrimSpace(f.Location)
	f.Tag = strings.TrimSpace(f.Tag)
	return f, nil
}

// WithStatus returns a copy of f restricted to s.
func (f Filter) WithStatus(s Status) Filter {
	f.Status = &s
	return f
}

// Columns lists the quest fields a search field covers, in store column names.
func (f SearchField) Columns() []string {
	switch f {
	case SearchLife:
		return []string{"life"}
	case SearchGiver:
		return []string{"giver"}
	case SearchDescription:
		return []string{"description"}
	case SearchTurnIn:
		return []string{"turn_in"}
	case SearchAll:
		return []string{"name", "life", "giver", "description", "turn_in"}
	}
	return []string{"name"}
}

func (f SearchField) values(q *Quest) []string {
	switch f {
	case SearchLife:
		return []string{q.Life}
	case SearchGiver:
		return []string{q.Giver}
	case SearchDescription:
		return []string{q.Description}
	case SearchTurnIn:
		return []string{q.TurnIn}
	case SearchAll:
		return []string{q.Name, q.Life, q.Giver, q.Description, q.TurnIn}
	}
	return []string{q.Name}
}

// Matches reports whether q passes every restriction of a normalized filter.
func (f Filter) Matches(q *Quest) bool {
	if f.Status != nil && q.Status != *f.Status {
		return false
	}
	if f.Life != "" && q.Life != f.Life {
		return false
	}
	if f.Location != "" && !q.HasLocation(f.Location) {
		return false
	}
	if f.Tag != "" && !q.HasTag(f.Tag) {
		return false
	}
	if f.Search != "" {
		needle := strings.ToLower(f.Search)
		found := false
		for _, v := range f.SearchField.values(q) {
			if strings.Contains(strings.ToLower(v), needle) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// Sort orders quests in place by the filter's sort key, ties broken by id.
// Sorting by rank keeps unranked quests last in both directions.
func (f Filter) Sort(quests []*Quest) {
	sort.SliceStable(quests, func(i, j int) bool {
		a, b := quests[i], quests[j]
		if f.SortBy == SortRank {
			if ka, kb := IsKnownRank(a.Rank), IsKnownRank(b.Rank); ka != kb {
				return ka
			}
		}
		c := compare(f.SortBy, a, b)
		if f.Desc {
			c = -c
		}
		if c != 0 {
			return c < 0
		}
		return a.ID < b.ID
	})
}

func compare(key SortKey, a, b *Quest) int {
	switch key {
	case SortName:
		return strings.Compare(a.Name, b.Name)
	case SortLife:
		return strings.Compare(a.Life, b.Life)
	case SortRank:
		return RankIndex(a.Rank) - RankIndex(b.Rank)
	case SortStatus:
		return int(a.Status) - int(b.Status)
	case SortLastModified:
		return a.LastModified.Compare(b.LastModified)
	}
	switch {
	case a.ID < b.ID:
		return -1
	case a.ID > b.ID:
		return 1
	}
	return 0
}
