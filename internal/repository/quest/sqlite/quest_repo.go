package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"questTracker/internal/logger"
	"questTracker/internal/models/quest"
	repo "questTracker/internal/repository"

	sqlite3 "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"
)

// attachChunk bounds the number of ids bound into one IN (...) list.
const attachChunk = 500

// driverName is go-sqlite3 with a fold(text) SQL function that lower-cases the
// way strings.ToLower does. SQLite's own LOWER only folds ASCII.
const driverName = "sqlite3_quests"

func init() {
	sql.Register(driverName, &sqlite3.SQLiteDriver{
		ConnectHook: func(conn *sqlite3.SQLiteConn) error {
			return conn.RegisterFunc("fold", strings.ToLower, true)
		},
	})
}

type questRow struct {
	RowID        int64     `gorm:"column:row_id;primaryKey;autoIncrement:false"`
	Status       int       `gorm:"column:status"`
	Name         string    `gorm:"column:name"`
	Life         string    `gorm:"column:life"`
	Rank         string    `gorm:"column:rank"`
	Giver        string    `gorm:"column:giver"`
	Description  string    `gorm:"column:description"`
	TurnIn       string    `gorm:"column:turn_in"`
	URL          string    `gorm:"column:url"`
	LastModified time.Time `gorm:"column:last_modified"`
}

func (questRow) TableName() string { return "quests" }

type locationRow struct {
	ID       int64  `gorm:"column:id;primaryKey"`
	QuestID  int64  `gorm:"column:quest_id"`
	Location string `gorm:"column:location"`
}

func (locationRow) TableName() string { return "quest_locations" }

type noteRow struct {
	QuestID int64  `gorm:"column:quest_id;primaryKey;autoIncrement:false"`
	Note    string `gorm:"column:note"`
}

func (noteRow) TableName() string { return "quest_notes" }

type tagRow struct {
	ID      int64  `gorm:"column:id;primaryKey"`
	QuestID int64  `gorm:"column:quest_id"`
	Tag     string `gorm:"column:tag"`
}

func (tagRow) TableName() string { return "quest_tags" }

func toRow(q *quest.Quest) questRow {
	return questRow{
		RowID:        q.ID,
		Status:       int(q.Status),
		Name:         q.Name,
		Life:         q.Life,
		Rank:         q.Rank,
		Giver:        q.Giver,
		Description:  q.Description,
		TurnIn:       q.TurnIn,
		URL:          q.URL,
		LastModified: q.LastModified.UTC(),
	}
}

func (r questRow) toQuest() *quest.Quest {
	return &quest.Quest{
		ID:           r.RowID,
		Status:       quest.Status(r.Status),
		Name:         r.Name,
		Life:         r.Life,
		Rank:         r.Rank,
		Giver:        r.Giver,
		Description:  r.Description,
		TurnIn:       r.TurnIn,
		URL:          r.URL,
		LastModified: r.LastModified,
	}
}

type Storage struct {
	db *gorm.DB
}

// New opens (creating if needed) the database file at path and migrates it.
func New(path string) (*Storage, error) {
	db, err := gorm.Open(sqlite.New(sqlite.Config{DriverName: driverName, DSN: path}), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		logger.Error("Repository: Could not open SQLite database", err, zap.String("path", path))
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("sqlite handle: %w", err)
	}
	// one writer; concurrent HTTP requests queue on the pool
	sqlDB.SetMaxOpenConns(1)

	if err := migrateUp(sqlDB); err != nil {
		logger.Error("Repository: SQLite migrations failed", err)
		sqlDB.Close()
		return nil, err
	}

	logger.Info("Repository: SQLite database opened", zap.String("path", path))
	return &Storage{db: db}, nil
}

func (s *Storage) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	logger.Info("Repository: Closing SQLite database")
	return sqlDB.Close()
}

func (s *Storage) HealthCheck(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		logger.Error("Repository: SQLite ping failed", err)
		return fmt.Errorf("ping sqlite: %w", err)
	}
	return nil
}

func (s *Storage) Upsert(ctx context.Context, q *quest.Quest) error {
	start := time.Now()
	defer repo.WarnIfSlow("upsert", start)

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return upsertTx(tx, q)
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

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, q := range quests {
			if err := upsertTx(tx, q); err != nil {
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

func upsertTx(tx *gorm.DB, q *quest.Quest) error {
	row := toRow(q)
	if err := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "row_id"}},
		UpdateAll: true,
	}).Create(&row).Error; err != nil {
		return err
	}

	if err := tx.Where("quest_id = ?", q.ID).Delete(&locationRow{}).Error; err != nil {
		return err
	}
	if len(q.Locations) > 0 {
		locs := make([]locationRow, len(q.Locations))
		for i, l := range q.Locations {
			locs[i] = locationRow{QuestID: q.ID, Location: l}
		}
		if err := tx.Create(&locs).Error; err != nil {
			return err
		}
	}

	if q.Note != "" {
		if err := upsertNote(tx, q.ID, q.Note); err != nil {
			return err
		}
	}
	if len(q.Tags) > 0 {
		if err := tx.Where("quest_id = ?", q.ID).Delete(&tagRow{}).Error; err != nil {
			return err
		}
		tags := make([]tagRow, len(q.Tags))
		for i, t := range q.Tags {
			tags[i] = tagRow{QuestID: q.ID, Tag: t}
		}
		if err := tx.Create(&tags).Error; err != nil {
			return err
		}
	}
	return nil
}

func (s *Storage) GetByID(ctx context.Context, id int64) (*quest.Quest, error) {
	start := time.Now()
	defer repo.WarnIfSlow("get by id", start)

	var row questRow
	if err := s.db.WithContext(ctx).First(&row, "row_id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repo.ErrNotFound
		}
		logger.Error("Repository: Could not get quest", err, zap.Int64("quest_id", id))
		return nil, fmt.Errorf("get quest %d: %w", id, err)
	}

	quests, err := s.attach(ctx, []questRow{row})
	if err != nil {
		return nil, err
	}
	return quests[0], nil
}

func (s *Storage) Query(ctx context.Context, filter quest.Filter) ([]*quest.Quest, error) {
	start := time.Now()
	defer repo.WarnIfSlow("query", start)

	var rows []questRow
	tx := applyFilter(s.db.WithContext(ctx).Model(&questRow{}), filter)
	if err := tx.Order(repo.OrderClause(filter, "")).Find(&rows).Error; err != nil {
		logger.Error("Repository: Could not query quests", err, zap.Duration("ms", time.Since(start)))
		return nil, fmt.Errorf("query quests: %w", err)
	}
	return s.attach(ctx, rows)
}

func applyFilter(tx *gorm.DB, f quest.Filter) *gorm.DB {
	if f.Status != nil {
		tx = tx.Where("status = ?", int(*f.Status))
	}
	if f.Life != "" {
		tx = tx.Where("life = ?", f.Life)
	}
	if f.Location != "" {
		tx = tx.Where("row_id IN (SELECT quest_id FROM quest_locations WHERE location = ?)", f.Location)
	}
	if f.Tag != "" {
		tx = tx.Where("row_id IN (SELECT quest_id FROM quest_tags WHERE tag = ?)", f.Tag)
	}
	if f.Search != "" {
		cols := f.SearchField.Columns()
		conds := make([]string, len(cols))
		args := make([]interface{}, len(cols))
		pattern := repo.LikePattern(f.Search)
		for i, c := range cols {
			conds[i] = fmt.Sprintf(`fold(%s) LIKE ? ESCAPE '\'`, c)
			args[i] = pattern
		}
		tx = tx.Where("("+strings.Join(conds, " OR ")+")", args...)
	}
	return tx
}

// attach loads locations, notes and tags for rows, preserving row order.
func (s *Storage) attach(ctx context.Context, rows []questRow) ([]*quest.Quest, error) {
	quests := make([]*quest.Quest, len(rows))
	byID := make(map[int64]*quest.Quest, len(rows))
	ids := make([]int64, len(rows))
	for i, r := range rows {
		quests[i] = r.toQuest()
		byID[r.RowID] = quests[i]
		ids[i] = r.RowID
	}

	db := s.db.WithContext(ctx)
	for lo := 0; lo < len(ids); lo += attachChunk {
		hi := min(lo+attachChunk, len(ids))
		chunk := ids[lo:hi]

		var locs []locationRow
		if err := db.Where("quest_id IN ?", chunk).Order("id").Find(&locs).Error; err != nil {
			logger.Error("Repository: Could not load quest locations", err)
			return nil, fmt.Errorf("load locations: %w", err)
		}
		for _, l := range locs {
			q := byID[l.QuestID]
			q.Locations = append(q.Locations, l.Location)
		}

		var notes []noteRow
		if err := db.Where("quest_id IN ?", chunk).Find(&notes).Error; err != nil {
			logger.Error("Repository: Could not load quest notes", err)
			return nil, fmt.Errorf("load notes: %w", err)
		}
		for _, n := range notes {
			byID[n.QuestID].Note = n.Note
		}

		var tags []tagRow
		if err := db.Where("quest_id IN ?", chunk).Order("id").Find(&tags).Error; err != nil {
			logger.Error("Repository: Could not load quest tags", err)
			return nil, fmt.Errorf("load tags: %w", err)
		}
		for _, t := range tags {
			q := byID[t.QuestID]
			q.Tags = append(q.Tags, t.Tag)
		}
	}
	return quests, nil
}

func (s *Storage) SetStatus(ctx context.Context, ids []int64, status quest.Status, at time.Time) ([]int64, error) {
	start := time.Now()
	defer repo.WarnIfSlow("set status", start)

	if len(ids) == 0 {
		return []int64{}, nil
	}

	var existing []int64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&questRow{}).Where("row_id IN ?", ids).Pluck("row_id", &existing).Error; err != nil {
			return err
		}
		if len(existing) == 0 {
			return nil
		}
		return tx.Model(&questRow{}).Where("row_id IN ?", existing).Updates(map[string]interface{}{
			"status":        int(status),
			"last_modified": at.UTC(),
		}).Error
	})
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
	return s.mutate(ctx, "set note", id, at, func(tx *gorm.DB) error {
		if text == "" {
			return tx.Where("quest_id = ?", id).Delete(&noteRow{}).Error
		}
		return upsertNote(tx, id, text)
	})
}

func (s *Storage) AddTag(ctx context.Context, id int64, tag string, at time.Time) error {
	return s.mutate(ctx, "add tag", id, at, func(tx *gorm.DB) error {
		return tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&tagRow{QuestID: id, Tag: tag}).Error
	})
}

func (s *Storage) RemoveTag(ctx context.Context, id int64, tag string, at time.Time) error {
	return s.mutate(ctx, "remove tag", id, at, func(tx *gorm.DB) error {
		return tx.Where("quest_id = ? AND tag = ?", id, tag).Delete(&tagRow{}).Error
	})
}

// mutate touches the quest's last-modified time and runs fn in the same
// transaction. A missing quest yields repo.ErrNotFound.
func (s *Storage) mutate(ctx context.Context, op string, id int64, at time.Time, fn func(tx *gorm.DB) error) error {
	start := time.Now()
	defer repo.WarnIfSlow(op, start)

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&questRow{}).Where("row_id = ?", id).Update("last_modified", at.UTC())
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
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

func upsertNote(tx *gorm.DB, id int64, text string) error {
	return tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "quest_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"note"}),
	}).Create(&noteRow{QuestID: id, Note: text}).Error
}

func (s *Storage) Tags(ctx context.Context) ([]string, error) {
	return s.distinct(ctx, &tagRow{}, "tag")
}

func (s *Storage) Locations(ctx context.Context) ([]string, error) {
	return s.distinct(ctx, &locationRow{}, "location")
}

func (s *Storage) Lives(ctx context.Context) ([]string, error) {
	return s.distinct(ctx, &questRow{}, "life")
}

func (s *Storage) distinct(ctx context.Context, model interface{}, column string) ([]string, error) {
	out := []string{}
	err := s.db.WithContext(ctx).Model(model).
		Where(column+" <> ''").
		Distinct(column).
		Order(column).
		Pluck(column, &out).Error
	if err != nil {
		logger.Error("Repository: Could not list distinct values", err, zap.String("column", column))
		return nil, fmt.Errorf("distinct %s: %w", column, err)
	}
	return out, nil
}

func (s *Storage) RankCounts(ctx context.Context, life string) ([]quest.RankCount, error) {
	start := time.Now()
	defer repo.WarnIfSlow("rank counts", start)

	out := []quest.RankCount{}
	err := s.db.WithContext(ctx).Raw(`SELECT rank,
			COUNT(*) AS total,
			SUM(CASE WHEN status >= ? THEN 1 ELSE 0 END) AS completed
		FROM quests
		WHERE life = ?
		GROUP BY rank
		ORDER BY MIN(row_id)`, int(quest.StatusCompleted), life).Scan(&out).Error
	if err != nil {
		logger.Error("Repository: Could not count ranks", err, zap.String("life", life))
		return nil, fmt.Errorf("rank counts: %w", err)
	}
	return out, nil
}

type statusCount struct {
	Status int
	Count  int
}

func (s *Storage) StatusCounts(ctx context.Context) (map[quest.Status]int, error) {
	var rows []statusCount
	err := s.db.WithContext(ctx).Raw(`SELECT status, COUNT(*) AS count FROM quests GROUP BY status`).Scan(&rows).Error
	if err != nil {
		logger.Error("Repository: Could not count statuses", err)
		return nil, fmt.Errorf("status counts: %w", err)
	}

	counts := make(map[quest.Status]int, len(rows))
	for _, r := range rows {
		counts[quest.Status(r.Status)] = r.Count
	}
	return counts, nil
}
