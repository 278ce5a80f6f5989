package repository_test

import (
	"strings"
	"testing"

	"questTracker/internal/models/quest"
	"questTracker/internal/repository"

	"github.com/stretchr/testify/assert"
)

func TestLikePattern(t *testing.T) {
	assert.Equal(t, "%castele%", repository.LikePattern("Castele"))
	assert.Equal(t, `%100\%%`, repository.LikePattern("100%"))
	assert.Equal(t, `%a\_b%`, repository.LikePattern("a_b"))
	assert.Equal(t, `%c:\\dir%`, repository.LikePattern(`C:\dir`))
}

func TestOrderClause(t *testing.T) {
	tests := []struct {
		name   string
		filter quest.Filter
		want   string
	}{
		{name: "default", filter: quest.Filter{}, want: "row_id ASC"},
		{name: "default desc", filter: quest.Filter{Desc: true}, want: "row_id DESC"},
		{name: "name", filter: quest.Filter{SortBy: quest.SortName}, want: "name ASC, row_id ASC"},
		{name: "status desc", filter: quest.Filter{SortBy: quest.SortStatus, Desc: true}, want: "status DESC, row_id ASC"},
		{name: "last modified", filter: quest.Filter{SortBy: quest.SortLastModified}, want: "last_modified ASC, row_id ASC"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, repository.OrderClause(tt.filter, ""))
		})
	}

	assert.Equal(t, `life COLLATE "C" ASC, row_id ASC`,
		repository.OrderClause(quest.Filter{SortBy: quest.SortLife}, ` COLLATE "C"`))
}

func TestOrderClause_RankKeepsUnrankedLast(t *testing.T) {
	for _, desc := range []bool{false, true} {
		clause := repository.OrderClause(quest.Filter{SortBy: quest.SortRank, Desc: desc}, "")
		assert.True(t, strings.HasPrefix(clause, "CASE WHEN rank IN ('Novice', 'Fledgling', "), clause)
		assert.Contains(t, clause, "'Creator') THEN 0 ELSE 1 END ASC, CASE rank")
	}
	assert.True(t, strings.HasSuffix(repository.OrderClause(quest.Filter{SortBy: quest.SortRank}, ""), "ELSE 10 END ASC, row_id ASC"))
	assert.True(t, strings.HasSuffix(repository.OrderClause(quest.Filter{SortBy: quest.SortRank, Desc: true}, ""), "ELSE 10 END DESC, row_id ASC"))
}

func TestRankCase(t *testing.T) {
	expr := repository.RankCase()
	assert.Contains(t, expr, "WHEN 'Novice' THEN 0")
	assert.Contains(t, expr, "WHEN 'Demi-Creator' THEN 8")
	assert.Contains(t, expr, "ELSE 10 END")
}
