package repository

import (
	"fmt"
	"strings"

	"questTracker/internal/models/quest"
)

// LikePattern turns user search text into a lower-cased substring pattern for
// LIKE ... ESCAPE '\'. Wildcards typed by the user match literally.
func LikePattern(text string) string {
	escaped := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(strings.ToLower(text))
	return "%" + escaped + "%"
}

// RankCase is a SQL expression mapping rank names to their progression index;
// unranked rows get len(quest.RankOrder).
func RankCase() string {
	var b strings.Builder
	b.WriteString("CASE rank")
	for i, r := range quest.RankOrder {
		fmt.Fprintf(&b, " WHEN '%s' THEN %d", strings.ReplaceAll(r, "'", "''"), i)
	}
	fmt.Fprintf(&b, " ELSE %d END", len(quest.RankOrder))
	return b.String()
}

// rankedFirst is a SQL sort key putting rows with a known rank before the rest.
func rankedFirst() string {
	names := make([]string, len(quest.RankOrder))
	for i, r := range quest.RankOrder {
		names[i] = "'" + strings.ReplaceAll(r, "'", "''") + "'"
	}
	return "CASE WHEN rank IN (" + strings.Join(names, ", ") + ") THEN 0 ELSE 1 END"
}

// OrderClause renders the ORDER BY list for a filter. collate is appended to
// text columns so databases with locale collations sort like Go does.
func OrderClause(f quest.Filter, collate string) string {
	dir := "ASC"
	if f.Desc {
		dir = "DESC"
	}

	var expr string
	switch f.SortBy {
	case quest.SortName:
		expr = "name" + collate
	case quest.SortLife:
		expr = "life" + collate
	case quest.SortRank:
		expr = rankedFirst() + " ASC, " + RankCase()
	case quest.SortStatus:
		expr = "status"
	case quest.SortLastModified:
		expr = "last_modified"
	default:
		return "row_id " + dir
	}
	return expr + " " + dir + ", row_id ASC"
}
