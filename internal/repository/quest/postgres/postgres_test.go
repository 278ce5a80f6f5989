package postgres_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"questTracker/internal/models/quest"
	"questTracker/internal/repository"
	"questTracker/internal/repository/quest/postgres"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

var seededAt = time.Date(2025, 1, 10, 8, 0, 0, 0, time.UTC)

// PostgresTestSuite runs the store against a throwaway PostgreSQL container.
type PostgresTestSuite struct {
	suite.Suite
	container  testcontainers.Container
	connString string
	storage    *postgres.Storage
	ctx        context.Context
}

func (s *PostgresTestSuite) SetupSuite() {
	s.ctx = context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "postgres:15-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "test",
			"POSTGRES_PASSWORD": "test",
			"POSTGRES_DB":       "testdb",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}

	container, err := testcontainers.GenericContainer(s.ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	s.Require().NoError(err)
	s.container = container

	host, err := container.Host(s.ctx)
	s.Require().NoError(err)
	port, err := container.MappedPort(s.ctx, "5432")
	s.Require().NoError(err)
	s.connString = fmt.Sprintf("postgres://test:test@%s:%s/testdb?sslmode=disable", host, port.Port())

	s.storage, err = postgres.New(s.ctx, s.connString, postgres.WithPoolLimits(4, 1, time.Minute))
	s.Require().NoError(err)
}

func (s *PostgresTestSuite) TearDownSuite() {
	if s.storage != nil {
		s.storage.Close()
	}
	if s.container != nil {
		_ = s.container.Terminate(s.ctx)
	}
}

// SetupTest empties the tables and seeds four quests.
func (s *PostgresTestSuite) SetupTest() {
	conn, err := pgx.Connect(s.ctx, s.connString)
	s.Require().NoError(err)
	defer conn.Close(s.ctx)

	_, err = conn.Exec(s.ctx, `TRUNCATE quests, quest_locations, quest_notes, quest_tags`)
	s.Require().NoError(err)

	for _, q := range []*quest.Quest{
		quest.New(2, "Sword Basics", quest.WithLife("Paladin"), quest.WithRank("Novice"),
			quest.WithGiver("Guild Master"), quest.WithTurnIn("Castele Square"), quest.WithLocations("Castele Square")),
		quest.New(3, "Big Catch", quest.WithLife("Angler"), quest.WithRank("Fledgling"),
			quest.WithStatus(quest.StatusCompleted), quest.WithLocations("Port Puerto", "Elderwood")),
		quest.New(4, "Shield Wall", quest.WithLife("Paladin"), quest.WithRank("Master"),
			quest.WithStatus(quest.StatusTurnedIn), quest.WithDescription("100% block rate")),
		quest.New(5, "errand", quest.WithGiver("Shopkeeper"), quest.WithStatus(quest.StatusObtained)),
	} {
		q.LastModified = seededAt
		s.Require().NoError(s.storage.Upsert(s.ctx, q))
	}
}

func TestPostgresTestSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration tests in short mode")
	}
	suite.Run(t, new(PostgresTestSuite))
}

func ids(qs []*quest.Quest) []int64 {
	out := make([]int64, len(qs))
	for i, q := range qs {
		out[i] = q.ID
	}
	return out
}

func (s *PostgresTestSuite) TestHealthCheck() {
	s.NoError(s.storage.HealthCheck(s.ctx))
}

func (s *PostgresTestSuite) TestNewIsIdempotent() {
	again, err := postgres.New(s.ctx, s.connString)
	s.Require().NoError(err)
	defer again.Close()

	q, err := again.GetByID(s.ctx, 2)
	s.Require().NoError(err)
	s.Equal("Sword Basics", q.Name)
}

func (s *PostgresTestSuite) TestGetByID() {
	q, err := s.storage.GetByID(s.ctx, 3)
	s.Require().NoError(err)
	s.Equal("Big Catch", q.Name)
	s.Equal(quest.StatusCompleted, q.Status)
	s.Equal([]string{"Port Puerto", "Elderwood"}, q.Locations)
	s.True(seededAt.Equal(q.LastModified))

	_, err = s.storage.GetByID(s.ctx, 99)
	s.ErrorIs(err, repository.ErrNotFound)
}

func (s *PostgresTestSuite) TestQuery() {
	tests := []struct {
		name   string
		filter quest.Filter
		want   []int64
	}{
		{"all", quest.Filter{}, []int64{2, 3, 4, 5}},
		{"status", quest.Filter{}.WithStatus(quest.StatusCompleted), []int64{3}},
		{"life", quest.Filter{Life: "Paladin"}, []int64{2, 4}},
		{"location", quest.Filter{Location: "Elderwood"}, []int64{3}},
		{"search name ignores case", quest.Filter{Search: "SHIELD"}, []int64{4}},
		{"search giver", quest.Filter{Search: "keeper", SearchField: quest.SearchGiver}, []int64{5}},
		{"search all", quest.Filter{Search: "castele", SearchField: quest.SearchAll}, []int64{2}},
		{"literal percent", quest.Filter{Search: "100%", SearchField: quest.SearchDescription}, []int64{4}},
		{"percent is not a wildcard", quest.Filter{Search: "1%0", SearchField: quest.SearchDescription}, []int64{}},
		{"sort by name is byte order", quest.Filter{SortBy: quest.SortName}, []int64{3, 4, 2, 5}},
		{"sort by rank", quest.Filter{SortBy: quest.SortRank}, []int64{2, 3, 4, 5}},
		{"sort by rank desc keeps unranked last", quest.Filter{SortBy: quest.SortRank, Desc: true}, []int64{4, 3, 2, 5}},
		{"sort by status desc", quest.Filter{SortBy: quest.SortStatus, Desc: true}, []int64{4, 3, 5, 2}},
		{"default desc", quest.Filter{Desc: true}, []int64{5, 4, 3, 2}},
	}

	for _, tt := range tests {
		s.Run(tt.name, func() {
			f, err := tt.filter.Normalize()
			s.Require().NoError(err)
			got, err := s.storage.Query(s.ctx, f)
			s.Require().NoError(err)
			s.Equal(tt.want, ids(got))
		})
	}
}

func (s *PostgresTestSuite) TestSetStatus() {
	at := seededAt.Add(time.Hour)
	updated, err := s.storage.SetStatus(s.ctx, []int64{5, 99, 2}, quest.StatusTurnedIn, at)
	s.Require().NoError(err)
	s.Equal([]int64{5, 2}, updated)

	q, err := s.storage.GetByID(s.ctx, 5)
	s.Require().NoError(err)
	s.Equal(quest.StatusTurnedIn, q.Status)
	s.True(at.Equal(q.LastModified))

	got, err := s.storage.Query(s.ctx, quest.Filter{SortBy: quest.SortLastModified, Desc: true})
	s.Require().NoError(err)
	s.Equal([]int64{2, 5, 3, 4}, ids(got))
}

func (s *PostgresTestSuite) TestNotesAndTags() {
	at := seededAt.Add(time.Minute)
	s.Require().NoError(s.storage.SetNote(s.ctx, 2, "ask about the sword", at))
	s.Require().NoError(s.storage.AddTag(s.ctx, 2, "todo", at))
	s.Require().NoError(s.storage.AddTag(s.ctx, 2, "todo", at))
	s.Require().NoError(s.storage.AddTag(s.ctx, 3, "fishing", at))

	q, err := s.storage.GetByID(s.ctx, 2)
	s.Require().NoError(err)
	s.Equal("ask about the sword", q.Note)
	s.Equal([]string{"todo"}, q.Tags)

	tags, err := s.storage.Tags(s.ctx)
	s.Require().NoError(err)
	s.Equal([]string{"fishing", "todo"}, tags)

	got, err := s.storage.Query(s.ctx, quest.Filter{Tag: "todo"})
	s.Require().NoError(err)
	s.Equal([]int64{2}, ids(got))

	s.Require().NoError(s.storage.SetNote(s.ctx, 2, "", at))
	s.Require().NoError(s.storage.RemoveTag(s.ctx, 2, "todo", at))
	q, err = s.storage.GetByID(s.ctx, 2)
	s.Require().NoError(err)
	s.Empty(q.Note)
	s.Empty(q.Tags)

	s.ErrorIs(s.storage.SetNote(s.ctx, 99, "x", at), repository.ErrNotFound)
	s.ErrorIs(s.storage.AddTag(s.ctx, 99, "x", at), repository.ErrNotFound)
}

func (s *PostgresTestSuite) TestUpsertKeepsNoteAndTags() {
	s.Require().NoError(s.storage.SetNote(s.ctx, 4, "keep me", seededAt))
	s.Require().NoError(s.storage.AddTag(s.ctx, 4, "done", seededAt))

	s.Require().NoError(s.storage.Upsert(s.ctx, quest.New(4, "Shield Wall II", quest.WithLife("Paladin"))))

	q, err := s.storage.GetByID(s.ctx, 4)
	s.Require().NoError(err)
	s.Equal("Shield Wall II", q.Name)
	s.Equal(quest.StatusUnobtained, q.Status)
	s.Equal("keep me", q.Note)
	s.Equal([]string{"done"}, q.Tags)
	s.Empty(q.Locations)
}

func (s *PostgresTestSuite) TestUpsertAllIsAtomic() {
	err := s.storage.UpsertAll(s.ctx, []*quest.Quest{
		quest.New(6, "Fresh", quest.WithLocations("Elderwood")),
		{ID: 7, Name: "Broken", Status: quest.Status(9)},
	})
	s.Require().Error(err)

	_, err = s.storage.GetByID(s.ctx, 6)
	s.ErrorIs(err, repository.ErrNotFound)

	s.Require().NoError(s.storage.UpsertAll(s.ctx, []*quest.Quest{
		quest.New(6, "Fresh", quest.WithLocations("Elderwood")),
		quest.New(7, "Fixed", quest.WithStatus(quest.StatusObtained)),
	}))
	q, err := s.storage.GetByID(s.ctx, 7)
	s.Require().NoError(err)
	s.Equal(quest.StatusObtained, q.Status)
}

func (s *PostgresTestSuite) TestAggregates() {
	lives, err := s.storage.Lives(s.ctx)
	s.Require().NoError(err)
	s.Equal([]string{"Angler", "Paladin"}, lives)

	locations, err := s.storage.Locations(s.ctx)
	s.Require().NoError(err)
	s.Equal([]string{"Castele Square", "Elderwood", "Port Puerto"}, locations)

	ranks, err := s.storage.RankCounts(s.ctx, "Paladin")
	s.Require().NoError(err)
	s.Equal([]quest.RankCount{
		{Rank: "Novice", Total: 1, Completed: 0},
		{Rank: "Master", Total: 1, Completed: 1},
	}, ranks)

	counts, err := s.storage.StatusCounts(s.ctx)
	s.Require().NoError(err)
	s.Equal(map[quest.Status]int{
		quest.StatusUnobtained: 1,
		quest.StatusObtained:   1,
		quest.StatusCompleted:  1,
		quest.StatusTurnedIn:   1,
	}, counts)
}

func TestPostgresStorage_BadConnString(t *testing.T) {
	_, err := postgres.New(context.Background(), "postgres://%zz")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse config")
}
