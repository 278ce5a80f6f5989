package postgres

import (
	"fmt"
	"strings"

	"questTracker/internal/models/quest"
	repo "questTracker/internal/repository"
)

const questColumns = `row_id, status, name, life, rank, giver, description, turn_in, url, last_modified`

// buildQuery renders the SELECT for a normalized filter with $n placeholders.
// Text ordering uses the "C" collation so results match the other stores.
func buildQuery(f quest.Filter) (string, []any) {
	var (
		conds []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if f.Status != nil {
		conds = append(conds, "status = "+arg(int(*f.Status)))
	}
	if f.Life != "" {
		conds = append(conds, "life = "+arg(f.Life))
	}
	if f.Location != "" {
		conds = append(conds, "row_id IN (SELECT quest_id FROM quest_locations WHERE location = "+arg(f.Location)+")")
	}
	if f.Tag != "" {
		conds = append(conds, "row_id IN (SELECT quest_id FROM quest_tags WHERE tag = "+arg(f.Tag)+")")
	}
	if f.Search != "" {
		p := arg(repo.LikePattern(f.Search))
		cols := f.SearchField.Columns()
		ors := make([]string, len(cols))
		for i, c := range cols {
			ors[i] = fmt.Sprintf(`%s ILIKE %s ESCAPE '\'`, c, p)
		}
		conds = append(conds, "("+strings.Join(ors, " OR ")+")")
	}

	var b strings.Builder
	b.WriteString("SELECT " + questColumns + " FROM quests")
	if len(conds) > 0 {
		b.WriteString(" WHERE " + strings.Join(conds, " AND "))
	}
	b.WriteString(" ORDER BY " + repo.OrderClause(f, ` COLLATE "C"`))
	return b.String(), args
}
