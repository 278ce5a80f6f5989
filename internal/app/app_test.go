package app_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"questTracker/internal/app"
	"questTracker/internal/config"
	"questTracker/internal/models/quest"
	"questTracker/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func legacyFiles(t *testing.T) (status, sheet string) {
	t.Helper()
	dir := t.TempDir()
	status = filepath.Join(dir, "currentprogress.txt")
	sheet = filepath.Join(dir, "FLData.csv")
	require.NoError(t, os.WriteFile(status, []byte("0\n0\n1\n0\n"), 0o644))
	require.NoError(t, os.WriteFile(sheet, []byte(
		",,URL,Giver,Life,Rank,Name,Description,Turn In,Castele\n"+
			",,,Guild Master,Paladin,Novice,Sword Basics,,Castele,1\n"+
			",,,Old Angler,Angler,Novice,Big Catch,,Castele,\n"), 0o644))
	return status, sheet
}

func TestApp_MemoryRepositoryWritesStatusFile(t *testing.T) {
	status, sheet := legacyFiles(t)
	cfg := config.Default()
	cfg.Logging.Development = false
	cfg.Logging.Level = "error"
	cfg.Repository.Type = config.RepositoryMemory
	cfg.Import.StatusFile = status
	cfg.Import.Spreadsheet = sheet

	a := app.New(cfg)
	require.NoError(t, a.Init(context.Background()))
	defer a.Close()

	ctx := context.Background()
	quests, err := a.Service().Query(ctx, quest.Filter{})
	require.NoError(t, err)
	require.Len(t, quests, 2)
	assert.Equal(t, quest.StatusObtained, quests[0].Status)

	_, err = a.Service().SetStatus(ctx, 3, quest.StatusTurnedIn)
	require.NoError(t, err)

	data, err := os.ReadFile(status)
	require.NoError(t, err)
	assert.Equal(t, "0\n0\n1\n3\n", string(data))
}

func TestApp_MemoryRepositoryRestoreWritesStatusFile(t *testing.T) {
	status, sheet := legacyFiles(t)
	cfg := config.Default()
	cfg.Logging.Development = false
	cfg.Logging.Level = "error"
	cfg.Repository.Type = config.RepositoryMemory
	cfg.Import.StatusFile = status
	cfg.Import.Spreadsheet = sheet

	a := app.New(cfg)
	require.NoError(t, a.Init(context.Background()))
	defer a.Close()
	ctx := context.Background()

	n, err := a.Service().Restore(ctx, strings.NewReader(
		`[{"id": 2, "status": 2, "name": "Sword Basics"}, {"id": 3, "status": 3, "name": "Big Catch"}]`))
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	data, err := os.ReadFile(status)
	require.NoError(t, err)
	assert.Equal(t, "0\n0\n2\n3\n", string(data))

	_, err = a.Service().Restore(ctx, strings.NewReader(
		`[{"id": 9000000000000000000, "status": 3, "name": "Far Away"}]`))
	var busErr *service.BusinessError
	require.ErrorAs(t, err, &busErr)
	assert.Equal(t, service.CodeValidation, busErr.Code)

	q, err := a.Service().SetStatus(ctx, 2, quest.StatusObtained)
	require.NoError(t, err)
	assert.Equal(t, quest.StatusObtained, q.Status)

	data, err = os.ReadFile(status)
	require.NoError(t, err)
	assert.Equal(t, "0\n0\n1\n3\n", string(data))
}

func TestApp_SQLiteHandler(t *testing.T) {
	cfg := config.Default()
	cfg.Logging.Development = false
	cfg.Logging.Level = "error"
	cfg.Database.Path = filepath.Join(t.TempDir(), "quests.db")

	a := app.New(cfg)
	require.NoError(t, a.Init(context.Background()))
	defer a.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	h := a.Handler(ctx)

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))

	w = httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/state", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"results":[]`)
}

func TestApp_MemoryRepositoryNeedsLegacyFiles(t *testing.T) {
	cfg := config.Default()
	cfg.Logging.Development = false
	cfg.Repository.Type = config.RepositoryMemory
	cfg.Import.StatusFile = filepath.Join(t.TempDir(), "missing.txt")

	a := app.New(cfg)
	defer a.Close()
	assert.Error(t, a.Init(context.Background()))
}
