package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"questTracker/internal/logger"
	"questTracker/internal/models/quest"
	repo "questTracker/internal/repository"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

type Option func(*pgxpool.Config)

// WithPoolLimits sizes the connection pool. Zero values keep pgx defaults.
func WithPoolLimits(maxConns, minConns int, idle time.Duration) Option {
	return func(c *pgxpool.Config) {
		if maxConns > 0 {
			c.MaxConns = int32(maxConns)
		}
		if minConns > 0 {
			c.MinConns = int32(minConns)
		}
		if idle > 0 {
			c.MaxConnIdleTime = idle
		}
	}
}

type Storage struct {
	pool *pgxpool.Pool
}

// New connects to connString, checks the connection and migrates the schema.
func New(ctx context.Context, connString string, opts ...Option) (*Storage, error) {
	config, err := pgxpool.ParseConfig(connString)
	if err != nil {
		logger.Error("Repository: Could not parse PostgreSQL config", err)
		return nil, fmt.Errorf("parse config: %w", err)
	}

	config.MaxConns = 10
	config.MinConns = 2
	config.MaxConnIdleTime = time.Minute * 5
	for _, opt := range opts {
		opt(config)
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		logger.Error("Repository: Could not create pool", err)
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		logger.Error("Repository: Ping failed", err)
		return nil, fmt.Errorf("ping: %w", err)
	}

	if err := migrateUp(pool); err != nil {
		pool.Close()
		logger.Error("Repository: PostgreSQL migrations failed", err)
		return nil, err
	}

	logger.Info("Repository: Connected to PostgreSQL", zap.Int32("max_conns", config.MaxConns))
	return &Storage{pool: pool}, nil
}

func (s *Storage) Close() error {
	s.pool.Close()
	logger.Info("Repository: Closed all PostgreSQL connections")
	return nil
}

func (s *Storage) HealthCheck(ctx context.Context) error {
	if err := s.pool.Ping(ctx); err != nil {
		logger.Error("Repository: Ping failed", err)
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

func (s *Storage) Upsert(ctx context.Context, q *quest.Quest) error {
	start := time.Now()
	defer repo.WarnIfSlow("upsert", start)

	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		return upsertTx(ctx, tx, q)
	})
	if err != nil {
		logger.Error("Repository: Could not upsert quest", err, zap.Int64("quest_id", q.ID))
		return fmt.Errorf("upsert quest %d: %w", q.ID, err)
	}
	return nil
}

// UpsertAll stores quests in one transaction: all of them or none.
func (s *Storage) UpsertAll(ctx context.Context, quests []*quest.Quest) error {
	start := time.Now()
	defer repo.WarnIfSlow("upsert all", start)

	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		for _, q := range quests {
			if err := upsertTx(ctx, tx, q); err != nil {
				return fmt.Errorf("quest %d: %w", q.ID, err)
			}
		}
		return nil
	})
	if err != nil {
		logger.Error("Repository: Could not upsert quests", err, zap.Int("quests", len(quests)))
		return fmt.Errorf("upsert quests: %w", err)
	}
	return nil
}

func upsertTx(ctx context.Context, tx pgx.Tx, q *quest.Quest) error {
	_, err := tx.Exec(ctx, `INSERT INTO quests
			(row_id, status, name, life, rank, giver, description, turn_in, url, last_modified)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (row_id) DO UPDATE SET
			status = EXCLUDED.status,
			name = EXCLUDED.name,
			life = EXCLUDED.life,
			rank = EXCLUDED.rank,
			giver = EXCLUDED.giver,
			description = EXCLUDED.description,
			turn_in = EXCLUDED.turn_in,
			url = EXCLUDED.url,
			last_modified = EXCLUDED.last_modified`,
		q.ID, int(q.Status), q.Name, q.Life, q.Rank, q.Giver, q.Description, q.TurnIn, q.URL, q.LastModified.UTC(),
	)
	if err != nil {
		return err
	}

	batch := &pgx.Batch{}
	batch.Queue(`DELETE FROM quest_locations WHERE quest_id = $1`, q.ID)
	for _, l := range q.Locations {
		batch.Queue(`INSERT INTO quest_locations (quest_id, location) VALUES ($1, $2) ON CONFLICT DO NOTHING`, q.ID, l)
	}
	if q.Note != "" {
		batch.Queue(`INSERT INTO quest_notes (quest_id, note) VALUES ($1, $2)
			ON CONFLICT (quest_id) DO UPDATE SET note = EXCLUDED.note`, q.ID, q.Note)
	}
	if len(q.Tags) > 0 {
		batch.Queue(`DELETE FROM quest_tags WHERE quest_id = $1`, q.ID)
		for _, t := range q.Tags {
			batch.Queue(`INSERT INTO quest_tags (quest_id, tag) VALUES ($1, $2) ON CONFLICT DO NOTHING`, q.ID, t)
		}
	}
	return tx.SendBatch(ctx, batch).Close()
}

func (s *Storage) GetByID(ctx context.Context, id int64) (*quest.Quest, error) {
	start := time.Now()
	defer repo.WarnIfSlow("get by id", start)

	rows, err := s.pool.Query(ctx, `SELECT `+questColumns+` FROM quests WHERE row_id = $1`, id)
	if err != nil {
		logger.Error("Repository: Could not get quest", err, zap.Int64("quest_id", id))
		return nil, fmt.Errorf("get quest %d: %w", id, err)
	}
	q, err := pgx.CollectExactlyOneRow(rows, pgx.RowToAddrOfStructByNameLax[quest.Quest])
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repo.ErrNotFound
		}
		logger.Error("Repository: Could not scan quest", err, zap.Int64("quest_id", id))
		return nil, fmt.Errorf("get quest %d: %w", id, err)
	}

	if err := s.attach(ctx, []*quest.Quest{q}); err != nil {
		return nil, err
	}
	return q, nil
}

func (s *Storage) Query(ctx context.Context, filter quest.Filter) ([]*quest.Quest, error) {
	start := time.Now()
	defer repo.WarnIfSlow("query", start)

	sql, args := buildQuery(filter)
	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		logger.Error("Repository: Could not query quests", err, zap.Duration("ms", time.Since(start)))
		return nil, fmt.Errorf("query quests: %w", err)
	}
	quests, err := pgx.CollectRows(rows, pgx.RowToAddrOfStructByNameLax[quest.Quest])
	if err != nil {
		logger.Error("Repository: Could not scan quests", err)
		return nil, fmt.Errorf("query quests: %w", err)
	}
	if err := s.attach(ctx, quests); err != nil {
		return nil, err
	}
	return quests, nil
}

// attach loads locations, notes and tags for quests in place.
func (s *Storage) attach(ctx context.Context, quests []*quest.Quest) error {
	if len(quests) == 0 {
		return nil
	}
	byID := make(map[int64]*quest.Quest, len(quests))
	ids := make([]int64, len(quests))
	for i, q := range quests {
		byID[q.ID] = q
		ids[i] = q.ID
	}

	err := s.each(ctx, `SELECT quest_id, location FROM quest_locations WHERE quest_id = ANY($1) ORDER BY id`, ids,
		func(id int64, v string) { byID[id].Locations = append(byID[id].Locations, v) })
	if err != nil {
		return fmt.Errorf("load locations: %w", err)
	}
	err = s.each(ctx, `SELECT quest_id, note FROM quest_notes WHERE quest_id = ANY($1)`, ids,
		func(id int64, v string) { byID[id].Note = v })
	if err != nil {
		return fmt.Errorf("load notes: %w", err)
	}
	err = s.each(ctx, `SELECT quest_id, tag FROM quest_tags WHERE quest_id = ANY($1) ORDER BY id`, ids,
		func(id int64, v string) { byID[id].Tags = append(byID[id].Tags, v) })
	if err != nil {
		return fmt.Errorf("load tags: %w", err)
	}
	return nil
}

// each runs a (quest_id, text) query and hands every row to fn.
func (s *Storage) each(ctx context.Context, sql string, ids []int64, fn func(int64, string)) error {
	rows, err := s.pool.Query(ctx, sql, ids)
	if err != nil {
		logger.Error("Repository: Could not load quest details", err)
		return err
	}
	var (
		id int64
		v  string
	)
	_, err = pgx.ForEachRow(rows, []any{&id, &v}, func() error {
		fn(id, v)
		return nil
	})
	return err
}

func (s *Storage) SetStatus(ctx context.Context, ids []int64, status quest.Status, at time.Time) ([]int64, error) {
	start := time.Now()
	defer repo.WarnIfSlow("set status", start)

	if len(ids) == 0 {
		return []int64{}, nil
	}

	rows, err := s.pool.Query(ctx, `UPDATE quests
			SET status = $1, last_modified = $2
			WHERE row_id = ANY($3)
			RETURNING row_id`, int(status), at.UTC(), ids)
	if err != nil {
		logger.Error("Repository: Could not update quest status", err, zap.Int("ids", len(ids)))
		return nil, fmt.Errorf("set status: %w", err)
	}
	existing, err := pgx.CollectRows(rows, pgx.RowTo[int64])
	if err != nil {
		logger.Error("Repository: Could not update quest status", err, zap.Int("ids", len(ids)))
		return nil, fmt.Errorf("set status: %w", err)
	}

	found := make(map[int64]struct{}, len(existing))
	for _, id := range existing {
		found[id] = struct{}{}
	}
	updated := make([]int64, 0, len(existing))
	for _, id := range ids {
		if _, ok := found[id]; ok {
			updated = append(updated, id)
			delete(found, id)
		}
	}
	return updated, nil
}

func (s *Storage) SetNote(ctx context.Context, id int64, text string, at time.Time) error {
	return s.mutate(ctx, "set note", id, at, func(tx pgx.Tx) error {
		if text == "" {
			_, err := tx.Exec(ctx, `DELETE FROM quest_notes WHERE quest_id = $1`, id)
			return err
		}
		_, err := tx.Exec(ctx, `INSERT INTO quest_notes (quest_id, note) VALUES ($1, $2)
			ON CONFLICT (quest_id) DO UPDATE SET note = EXCLUDED.note`, id, text)
		return err
	})
}

func (s *Storage) AddTag(ctx context.Context, id int64, tag string, at time.Time) error {
	return s.mutate(ctx, "add tag", id, at, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `INSERT INTO quest_tags (quest_id, tag) VALUES ($1, $2) ON CONFLICT DO NOTHING`, id, tag)
		return err
	})
}

func (s *Storage) RemoveTag(ctx context.Context, id int64, tag string, at time.Time) error {
	return s.mutate(ctx, "remove tag", id, at, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `DELETE FROM quest_tags WHERE quest_id = $1 AND tag = $2`, id, tag)
		return err
	})
}

// mutate touches the quest's last-modified time and runs fn in the same
// transaction. A missing quest yields repo.ErrNotFound.
func (s *Storage) mutate(ctx context.Context, op string, id int64, at time.Time, fn func(tx pgx.Tx) error) error {
	start := time.Now()
	defer repo.WarnIfSlow(op, start)

	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `UPDATE quests SET last_modified = $1 WHERE row_id = $2`, at.UTC(), id)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return repo.ErrNotFound
		}
		return fn(tx)
	})
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return err
		}
		logger.Error("Repository: Quest mutation failed", err, zap.String("op", op), zap.Int64("quest_id", id))
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (s *Storage) Tags(ctx context.Context) ([]string, error) {
	return s.distinct(ctx, "quest_tags", "tag")
}

func (s *Storage) Locations(ctx context.Context) ([]string, error) {
	return s.distinct(ctx, "quest_locations", "location")
}

func (s *Storage) Lives(ctx context.Context) ([]string, error) {
	return s.distinct(ctx, "quests", "life")
}

func (s *Storage) distinct(ctx context.Context, table, column string) ([]string, error) {
	rows, err := s.pool.Query(ctx, fmt.Sprintf(
		`SELECT DISTINCT %[2]s COLLATE "C" FROM %[1]s WHERE %[2]s <> '' ORDER BY 1`, table, column))
	if err != nil {
		logger.Error("Repository: Could not list distinct values", err, zap.String("column", column))
		return nil, fmt.Errorf("distinct %s: %w", column, err)
	}
	out, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("distinct %s: %w", column, err)
	}
	if out == nil {
		out = []string{}
	}
	return out, nil
}

func (s *Storage) RankCounts(ctx context.Context, life string) ([]quest.RankCount, error) {
	start := time.Now()
	defer repo.WarnIfSlow("rank counts", start)

	rows, err := s.pool.Query(ctx, `SELECT rank,
			COUNT(*) AS total,
			SUM(CASE WHEN status >= $1 THEN 1 ELSE 0 END) AS completed
		FROM quests
		WHERE life = $2
		GROUP BY rank
		ORDER BY MIN(row_id)`, int(quest.StatusCompleted), life)
	if err != nil {
		logger.Error("Repository: Could not count ranks", err, zap.String("life", life))
		return nil, fmt.Errorf("rank counts: %w", err)
	}
	out, err := pgx.CollectRows(rows, pgx.RowToStructByName[quest.RankCount])
	if err != nil {
		return nil, fmt.Errorf("rank counts: %w", err)
	}
	if out == nil {
		out = []quest.RankCount{}
	}
	return out, nil
}

func (s *Storage) StatusCounts(ctx context.Context) (map[quest.Status]int, error) {
	rows, err := s.pool.Query(ctx, `SELECT status, COUNT(*) FROM quests GROUP BY status`)
	if err != nil {
		logger.Error("Repository: Could not count statuses", err)
		return nil, fmt.Errorf("status counts: %w", err)
	}

	counts := make(map[quest.Status]int)
	var status, count int
	_, err = pgx.ForEachRow(rows, []any{&status, &count}, func() error {
		counts[quest.Status(status)] = count
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("status counts: %w", err)
	}
	return counts, nil
}
