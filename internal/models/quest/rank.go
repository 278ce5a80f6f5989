package quest

// RankOrder is the progression of Life ranks, lowest first.
var RankOrder = []string{
	"Novice",
	"Fledgling",
	"Apprentice",
	"Adept",
	"Expert",
	"Master",
	"Hero",
	"Legend",
	"Demi-Creator",
	"Creator",
}

var rankIndex = func() map[string]int {
	idx := make(map[string]int, len(RankOrder))
	for i, r := range RankOrder {
		idx[r] = i
	}
	return idx
}()

// RankIndex returns the position of rank in RankOrder. Unranked and unknown
// ranks get len(RankOrder) so they sort after Creator.
func RankIndex(rank string) int {
	if i, ok := rankIndex[rank]; ok {
		return i
	}
	return len(RankOrder)
}

func IsKnownRank(rank string) bool {
	_, ok := rankIndex[rank]
	return ok
}
