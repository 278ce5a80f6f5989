package export_test

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"questTracker/internal/export"
	"questTracker/internal/models/quest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncode_WritesFlatIndentedArray(t *testing.T) {
	at := time.Date(2025, 2, 3, 4, 5, 6, 0, time.UTC)
	q := quest.New(12, "Tree Trouble",
		quest.WithStatus(quest.StatusTurnedIn),
		quest.WithLife("Woodcutter"),
		quest.WithRank("Adept"),
		quest.WithLocations("Elderwood"),
		quest.WithNote("needs a silver axe"),
		quest.WithTags("logs"),
	)
	q.LastModified = at

	var buf bytes.Buffer
	require.NoError(t, export.Encode(&buf, []*quest.Quest{q, quest.New(13, "Bare")}))

	assert.True(t, strings.HasPrefix(buf.String(), "[\n  {"))

	var raw []map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &raw))
	require.Len(t, raw, 2)
	assert.Equal(t, float64(12), raw[0]["id"])
	assert.Equal(t, float64(3), raw[0]["status"])
	assert.Equal(t, "Turned In", raw[0]["status_name"])
	assert.Equal(t, "needs a silver axe", raw[0]["note"])
	assert.Equal(t, []any{"logs"}, raw[0]["tags"])
	assert.Equal(t, "2025-02-03T04:05:06Z", raw[0]["last_modified"])

	// absent values are still present as empty
	assert.Equal(t, "", raw[1]["life"])
	assert.Equal(t, []any{}, raw[1]["locations"])
}

func TestDecode_RestoresWhatEncodeWrote(t *testing.T) {
	q := quest.New(12, "Tree Trouble", quest.WithStatus(quest.StatusObtained),
		quest.WithLocations("Elderwood", "Lava Cave"), quest.WithNote("n"), quest.WithTags("a", "b"))
	q.LastModified = time.Date(2025, 2, 3, 4, 5, 6, 0, time.UTC)

	var buf bytes.Buffer
	require.NoError(t, export.Encode(&buf, []*quest.Quest{q}))

	got, err := export.Decode(&buf)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, q, got[0])
}

func TestDecode_RejectsBadInput(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{name: "not json", input: "{{"},
		{name: "object instead of array", input: `{"id": 1}`},
		{name: "status out of range", input: `[{"id": 2, "status": 4, "name": "x"}]`},
		{name: "missing id", input: `[{"status": 1, "name": "x"}]`},
		{name: "duplicate id", input: `[{"id": 2, "name": "x"}, {"id": 2, "name": "y"}]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := export.Decode(strings.NewReader(tt.input))
			assert.ErrorIs(t, err, export.ErrInvalidRecord)
		})
	}
}
