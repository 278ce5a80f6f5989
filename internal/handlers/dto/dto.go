package dto

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"questTracker/internal/appstate"
	"questTracker/internal/models/quest"
	"questTracker/internal/service"
)

// StatusValue accepts a status as a JSON number or as a name like "Turned In".
type StatusValue quest.Status

func (s *StatusValue) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	var raw string
	if len(data) > 0 && data[0] == '"' {
		if err := json.Unmarshal(data, &raw); err != nil {
			return err
		}
	} else {
		raw = string(data)
	}
	st, err := quest.ParseStatus(raw)
	if err != nil {
		return err
	}
	*s = StatusValue(st)
	return nil
}

func (s StatusValue) Status() quest.Status {
	return quest.Status(s)
}

type StatusRequest struct {
	Status *StatusValue `json:"status"`
}

type BulkStatusRequest struct {
	IDs    []int64      `json:"ids"`
	Status *StatusValue `json:"status"`
}

type NoteRequest struct {
	Note string `json:"note"`
}

type TagRequest struct {
	Tag string `json:"tag"`
}

type FilterRequest struct {
	Status   *StatusValue `json:"status,omitempty"`
	Life     string       `json:"life,omitempty"`
	Location string       `json:"location,omitempty"`
	Tag      string       `json:"tag,omitempty"`
	Sort     string       `json:"sort,omitempty"`
	Desc     bool         `json:"desc,omitempty"`
}

func (f FilterRequest) Filter() quest.Filter {
	filter := quest.Filter{
		Life:     f.Life,
		Location: f.Location,
		Tag:      f.Tag,
		SortBy:   quest.SortKey(f.Sort),
		Desc:     f.Desc,
	}
	if f.Status != nil {
		filter = filter.WithStatus(f.Status.Status())
	}
	return filter
}

type SearchRequest struct {
	Text  string `json:"text"`
	Field string `json:"field,omitempty"`
}

type SelectionRequest struct {
	IDs []int64 `json:"ids"`
}

type QuestResponse struct {
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

func FromQuest(q *quest.Quest) QuestResponse {
	resp := QuestResponse{
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
		Locations:    q.Locations,
		Note:         q.Note,
		Tags:         q.Tags,
	}
	if resp.Locations == nil {
		resp.Locations = []string{}
	}
	if resp.Tags == nil {
		resp.Tags = []string{}
	}
	return resp
}

func FromQuestList(quests []*quest.Quest) []QuestResponse {
	result := make([]QuestResponse, len(quests))
	for i, q := range quests {
		result[i] = FromQuest(q)
	}
	return result
}

// ParseBool reads the desc query flag; empty means false.
func ParseBool(raw string) (bool, error) {
	if raw == "" {
		return false, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("invalid boolean %q", raw)
	}
	return v, nil
}

type StateResponse struct {
	Filter        quest.Filter    `json:"filter"`
	Selection     []int64         `json:"selection"`
	Results       []QuestResponse `json:"results"`
	Revision      uint64          `json:"revision"`
	SearchPending bool            `json:"search_pending"`
	Error         string          `json:"error,omitempty"`
}

func FromSnapshot(s appstate.Snapshot) StateResponse {
	return StateResponse{
		Filter:        s.Filter,
		Selection:     s.Selection,
		Results:       FromQuestList(s.Results),
		Revision:      s.Revision,
		SearchPending: s.SearchPending,
		Error:         s.Error,
	}
}

type OutcomeResponse struct {
	Applied bool                `json:"applied"`
	Reason  string              `json:"reason,omitempty"`
	Bulk    *service.BulkResult `json:"bulk,omitempty"`
	State   StateResponse       `json:"state"`
}

func FromOutcome(o appstate.Outcome) OutcomeResponse {
	return OutcomeResponse{
		Applied: o.Applied,
		Reason:  o.Reason,
		Bulk:    o.Bulk,
		State:   FromSnapshot(o.Snapshot),
	}
}
