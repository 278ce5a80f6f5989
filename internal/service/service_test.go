package service_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"questTracker/internal/legacy"
	"questTracker/internal/models/quest"
	"questTracker/internal/repository"
	"questTracker/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockQuestRepository - quest store mock
type MockQuestRepository struct {
	mock.Mock
}

func (m *MockQuestRepository) HealthCheck(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockQuestRepository) Query(ctx context.Context, filter quest.Filter) ([]*quest.Quest, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*quest.Quest), args.Error(1)
}

func (m *MockQuestRepository) GetByID(ctx context.Context, id int64) (*quest.Quest, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*quest.Quest), args.Error(1)
}

func (m *MockQuestRepository) Upsert(ctx context.Context, q *quest.Quest) error {
	args := m.Called(ctx, q)
	return args.Error(0)
}

func (m *MockQuestRepository) UpsertAll(ctx context.Context, quests []*quest.Quest) error {
	args := m.Called(ctx, quests)
	return args.Error(0)
}

func (m *MockQuestRepository) SetStatus(ctx context.Context, ids []int64, status quest.Status, at time.Time) ([]int64, error) {
	args := m.Called(ctx, ids, status, at)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]int64), args.Error(1)
}

func (m *MockQuestRepository) SetNote(ctx context.Context, id int64, text string, at time.Time) error {
	args := m.Called(ctx, id, text, at)
	return args.Error(0)
}

func (m *MockQuestRepository) AddTag(ctx context.Context, id int64, tag string, at time.Time) error {
	args := m.Called(ctx, id, tag, at)
	return args.Error(0)
}

func (m *MockQuestRepository) RemoveTag(ctx context.Context, id int64, tag string, at time.Time) error {
	args := m.Called(ctx, id, tag, at)
	return args.Error(0)
}

func (m *MockQuestRepository) Tags(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockQuestRepository) Locations(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockQuestRepository) Lives(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockQuestRepository) RankCounts(ctx context.Context, life string) ([]quest.RankCount, error) {
	args := m.Called(ctx, life)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]quest.RankCount), args.Error(1)
}

func (m *MockQuestRepository) StatusCounts(ctx context.Context) (map[quest.Status]int, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[quest.Status]int), args.Error(1)
}

var _ service.QuestRepository = (*MockQuestRepository)(nil)

var fixedNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func newService(m *MockQuestRepository) *service.QuestService {
	return service.NewQuestService(m, service.WithClock(func() time.Time { return fixedNow }))
}

func requireBusinessCode(t *testing.T, err error, code string) {
	t.Helper()
	var busErr *service.BusinessError
	require.ErrorAs(t, err, &busErr)
	assert.Equal(t, code, busErr.Code)
}

func TestQuestService_HealthCheck(t *testing.T) {
	tests := []struct {
		name        string
		setupMock   func(*MockQuestRepository)
		expectError bool
	}{
		{
			name: "success - health check passes",
			setupMock: func(m *MockQuestRepository) {
				m.On("HealthCheck", mock.Anything).Return(nil)
			},
		},
		{
			name: "error - health check fails",
			setupMock: func(m *MockQuestRepository) {
				m.On("HealthCheck", mock.Anything).Return(errors.New("db connection failed"))
			},
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockRepo := new(MockQuestRepository)
			tt.setupMock(mockRepo)

			err := newService(mockRepo).HealthCheck(context.Background())
			if tt.expectError {
				assert.Error(t, err)
				assert.Contains(t, err.Error(), "service health check")
			} else {
				assert.NoError(t, err)
			}
			mockRepo.AssertExpectations(t)
		})
	}
}

func TestQuestService_QueryNormalizesFilter(t *testing.T) {
	mockRepo := new(MockQuestRepository)
	mockRepo.On("Query", mock.Anything, mock.MatchedBy(func(f quest.Filter) bool {
		return f.SearchField == quest.SearchGiver && f.SortBy == quest.SortRank && f.Search == "guard"
	})).Return([]*quest.Quest{quest.New(4, "Lost Cat")}, nil)

	got, err := newService(mockRepo).Query(context.Background(), quest.Filter{
		Search: "  guard ", SearchField: "npc", SortBy: "rank",
	})
	require.NoError(t, err)
	assert.Len(t, got, 1)
	mockRepo.AssertExpectations(t)
}

func TestQuestService_QueryRejectsBadFilter(t *testing.T) {
	mockRepo := new(MockQuestRepository)

	_, err := newService(mockRepo).Query(context.Background(), quest.Filter{SortBy: "colour"})
	requireBusinessCode(t, err, service.CodeValidation)
	mockRepo.AssertNotCalled(t, "Query", mock.Anything, mock.Anything)
}

func TestQuestService_GetQuest(t *testing.T) {
	mockRepo := new(MockQuestRepository)
	mockRepo.On("GetByID", mock.Anything, int64(2)).Return(quest.New(2, "Found"), nil)
	mockRepo.On("GetByID", mock.Anything, int64(3)).Return(nil, repository.ErrNotFound)
	mockRepo.On("GetByID", mock.Anything, int64(4)).Return(nil, errors.New("disk I/O error"))
	svc := newService(mockRepo)

	q, err := svc.GetQuest(context.Background(), 2)
	require.NoError(t, err)
	assert.Equal(t, "Found", q.Name)

	_, err = svc.GetQuest(context.Background(), 3)
	requireBusinessCode(t, err, service.CodeNotFound)

	_, err = svc.GetQuest(context.Background(), 4)
	require.Error(t, err)
	var busErr *service.BusinessError
	assert.False(t, errors.As(err, &busErr))
}

func TestQuestService_SetStatus(t *testing.T) {
	tests := []struct {
		name      string
		status    quest.Status
		setupMock func(*MockQuestRepository)
		wantCode  string
	}{
		{
			name:   "success",
			status: quest.StatusCompleted,
			setupMock: func(m *MockQuestRepository) {
				m.On("SetStatus", mock.Anything, []int64{2}, quest.StatusCompleted, fixedNow).Return([]int64{2}, nil)
				m.On("GetByID", mock.Anything, int64(2)).
					Return(quest.New(2, "x", quest.WithStatus(quest.StatusCompleted)), nil)
			},
		},
		{
			name:      "invalid status never reaches the store",
			status:    quest.Status(4),
			setupMock: func(m *MockQuestRepository) {},
			wantCode:  service.CodeValidation,
		},
		{
			name:   "missing quest",
			status: quest.StatusObtained,
			setupMock: func(m *MockQuestRepository) {
				m.On("SetStatus", mock.Anything, []int64{2}, quest.StatusObtained, fixedNow).Return([]int64{}, nil)
			},
			wantCode: service.CodeNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockRepo := new(MockQuestRepository)
			tt.setupMock(mockRepo)

			q, err := newService(mockRepo).SetStatus(context.Background(), 2, tt.status)
			if tt.wantCode != "" {
				requireBusinessCode(t, err, tt.wantCode)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.status, q.Status)
			}
			mockRepo.AssertExpectations(t)
		})
	}
}

func TestQuestService_BulkSetStatus(t *testing.T) {
	mockRepo := new(MockQuestRepository)
	mockRepo.On("SetStatus", mock.Anything, []int64{2, 3, 99}, quest.StatusTurnedIn, fixedNow).
		Return([]int64{2, 3}, nil)

	res, err := newService(mockRepo).BulkSetStatus(context.Background(), []int64{2, 3, 2, 99}, quest.StatusTurnedIn)
	require.NoError(t, err)
	assert.Equal(t, []int64{2, 3}, res.Updated)
	assert.Equal(t, []int64{99}, res.Missing)
	assert.Equal(t, quest.StatusTurnedIn, res.Status)
	mockRepo.AssertExpectations(t)
}

func TestQuestService_BulkSetStatus_NoSelection(t *testing.T) {
	mockRepo := new(MockQuestRepository)

	_, err := newService(mockRepo).BulkSetStatus(context.Background(), nil, quest.StatusCompleted)
	requireBusinessCode(t, err, service.CodeNoSelection)
	mockRepo.AssertNotCalled(t, "SetStatus", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestQuestService_StatusChangeInvalidatesProgress(t *testing.T) {
	ctx := context.Background()
	mockRepo := new(MockQuestRepository)
	mockRepo.On("StatusCounts", mock.Anything).Return(map[quest.Status]int{quest.StatusUnobtained: 2}, nil).Once()
	mockRepo.On("StatusCounts", mock.Anything).Return(map[quest.Status]int{
		quest.StatusUnobtained: 1, quest.StatusCompleted: 1,
	}, nil).Once()
	mockRepo.On("SetStatus", mock.Anything, []int64{2}, quest.StatusCompleted, fixedNow).Return([]int64{2}, nil)
	mockRepo.On("GetByID", mock.Anything, int64(2)).Return(quest.New(2, "x"), nil)

	// the clock is frozen, so only invalidation can refresh the cache
	svc := newService(mockRepo)

	before, err := svc.Statistics(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, before.Done)

	again, err := svc.Statistics(ctx)
	require.NoError(t, err)
	assert.Equal(t, before, again)

	_, err = svc.SetStatus(ctx, 2, quest.StatusCompleted)
	require.NoError(t, err)

	after, err := svc.Statistics(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, after.Done)
	assert.InDelta(t, 50.0, after.Percentage, 0.001)
	mockRepo.AssertExpectations(t)
}

func TestQuestService_NotesAndTags(t *testing.T) {
	ctx := context.Background()
	mockRepo := new(MockQuestRepository)
	mockRepo.On("SetNote", mock.Anything, int64(2), "", fixedNow).Return(nil)
	mockRepo.On("SetNote", mock.Anything, int64(9), "hi", fixedNow).Return(repository.ErrNotFound)
	mockRepo.On("AddTag", mock.Anything, int64(2), "daily", fixedNow).Return(nil)
	mockRepo.On("RemoveTag", mock.Anything, int64(2), "daily", fixedNow).Return(nil)
	svc := newService(mockRepo)

	require.NoError(t, svc.SetNote(ctx, 2, "   "))
	requireBusinessCode(t, svc.SetNote(ctx, 9, "hi"), service.CodeNotFound)
	require.NoError(t, svc.AddTag(ctx, 2, " daily "))
	require.NoError(t, svc.RemoveTag(ctx, 2, "daily"))
	requireBusinessCode(t, svc.AddTag(ctx, 2, " "), service.CodeValidation)

	mockRepo.AssertExpectations(t)
}

func TestQuestService_LifeProgressUnknownLifeIsEmpty(t *testing.T) {
	mockRepo := new(MockQuestRepository)
	mockRepo.On("RankCounts", mock.Anything, "Astronaut").Return([]quest.RankCount{}, nil).Once()

	p, err := newService(mockRepo).LifeProgress(context.Background(), "Astronaut")
	require.NoError(t, err)
	assert.Equal(t, "Astronaut", p.Life)
	assert.Zero(t, p.Total)
	assert.Zero(t, p.Percentage)
	mockRepo.AssertExpectations(t)
}

func TestQuestService_LifeProgressRejectsBlankLife(t *testing.T) {
	mockRepo := new(MockQuestRepository)

	_, err := newService(mockRepo).LifeProgress(context.Background(), "  ")
	requireBusinessCode(t, err, service.CodeValidation)
	mockRepo.AssertNotCalled(t, "RankCounts", mock.Anything, mock.Anything)
}

func TestQuestService_ImportMissingFile(t *testing.T) {
	mockRepo := new(MockQuestRepository)
	dir := t.TempDir()

	_, err := newService(mockRepo).Import(context.Background(),
		filepath.Join(dir, "currentprogress.txt"), filepath.Join(dir, "FLData.csv"))
	requireBusinessCode(t, err, service.CodeMissingFile)
	mockRepo.AssertNotCalled(t, "UpsertAll", mock.Anything, mock.Anything)
}

func TestQuestService_Import(t *testing.T) {
	dir := t.TempDir()
	statusPath := filepath.Join(dir, "currentprogress.txt")
	sheetPath := filepath.Join(dir, "FLData.csv")
	require.NoError(t, os.WriteFile(statusPath, []byte("0\n0\n1\nbad\n"), 0o644))
	require.NoError(t, os.WriteFile(sheetPath, []byte(
		",,URL,Giver,Life,Rank,Name,Description,Turn In,Elderwood\n"+
			",,,Woodsman,Woodcutter,Novice,Chop,,Elderwood,1\n"+
			",,,Woodsman,Woodcutter,Novice,Chop More,,Elderwood,\n"), 0o644))

	mockRepo := new(MockQuestRepository)
	mockRepo.On("UpsertAll", mock.Anything, mock.MatchedBy(func(qs []*quest.Quest) bool {
		if len(qs) != 1 {
			return false
		}
		q := qs[0]
		return q.ID == 2 && q.Name == "Chop" && q.Status == quest.StatusObtained && q.LastModified.Equal(fixedNow)
	})).Return(nil).Once()

	report, err := newService(mockRepo).Import(context.Background(), statusPath, sheetPath)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Imported)
	require.Len(t, report.Skipped, 1)
	assert.Equal(t, int64(3), report.Skipped[0].Row)
	assert.Equal(t, []string{"Elderwood"}, report.Locations)
	mockRepo.AssertExpectations(t)
}

func TestQuestService_ExportAndRestore(t *testing.T) {
	ctx := context.Background()
	stored := []*quest.Quest{
		quest.New(2, "One", quest.WithNote("n"), quest.WithTags("t")),
		quest.New(3, "Two", quest.WithStatus(quest.StatusCompleted)),
	}

	mockRepo := new(MockQuestRepository)
	mockRepo.On("Query", mock.Anything, quest.Filter{SortBy: quest.SortDefault}).Return(stored, nil)
	mockRepo.On("UpsertAll", mock.Anything, mock.MatchedBy(func(qs []*quest.Quest) bool {
		return len(qs) == 2 && qs[0].Note == "n" && qs[1].Status == quest.StatusCompleted
	})).Return(nil).Once()
	svc := newService(mockRepo)

	var buf bytes.Buffer
	n, err := svc.Export(ctx, &buf)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Contains(t, buf.String(), `"status_name": "Completed"`)

	n, err = svc.Restore(ctx, &buf)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	mockRepo.AssertExpectations(t)
}

func TestQuestService_RestoreRejectsInvalidExport(t *testing.T) {
	mockRepo := new(MockQuestRepository)

	_, err := newService(mockRepo).Restore(context.Background(), strings.NewReader(`[{"id": 2, "status": 9}]`))
	requireBusinessCode(t, err, service.CodeValidation)
	mockRepo.AssertNotCalled(t, "UpsertAll", mock.Anything, mock.Anything)
}

func TestQuestService_RestoreRowPastStatusFile(t *testing.T) {
	mockRepo := new(MockQuestRepository)
	mockRepo.On("UpsertAll", mock.Anything, mock.Anything).
		Return(fmt.Errorf("save statuses: %w", legacy.ErrRowOutOfRange)).Once()

	_, err := newService(mockRepo).Restore(context.Background(),
		strings.NewReader(`[{"id": 9000000000000000000, "status": 3}]`))
	requireBusinessCode(t, err, service.CodeValidation)
	mockRepo.AssertExpectations(t)
}
