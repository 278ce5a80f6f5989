package quest

// RankCount is one GROUP BY rank row of a life's quests.
type RankCount struct {
	Rank      string `json:"rank"`
	Total     int    `json:"total"`
	Completed int    `json:"completed"`
}

type RankProgress = RankCount

type LifeProgress struct {
	Life       string         `json:"life"`
	Total      int            `json:"total"`
	Completed  int            `json:"completed"`
	Percentage float64        `json:"percentage"`
	Ranks      []RankProgress `json:"ranks"`
}

type Statistics struct {
	Total      int     `json:"total"`
	Unobtained int     `json:"unobtained"`
	Obtained   int     `json:"obtained"`
	Completed  int     `json:"completed"`
	TurnedIn   int     `json:"turned_in"`
	Done       int     `json:"done"`
	Percentage float64 `json:"percentage"`
}

// LocationCount holds per-status quest counts for one location, indexed by Status.
type LocationCount struct {
	Location string `json:"location"`
	Region   string `json:"region,omitempty"`
	Counts   [4]int `json:"counts"`
}

func (c LocationCount) Total() int {
	return c.Counts[0] + c.Counts[1] + c.Counts[2] + c.Counts[3]
}

// Percent returns part/total*100, or 0 when total is 0.
func Percent(part, total int) float64 {
	if total <= 0 {
		return 0
	}
	return float64(part) / float64(total) * 100
}
