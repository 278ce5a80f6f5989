package legacy

import (
	"fmt"
	"strconv"
	"time"

	"questTracker/internal/config"
	"questTracker/internal/logger"
	"questTracker/internal/models/quest"

	"go.uber.org/zap"
)

// MalformedRowError describes a row the importer skipped.
type MalformedRowError struct {
	Row    int64  `json:"row"`
	Reason string `json:"reason"`
}

func (e MalformedRowError) Error() string {
	return fmt.Sprintf("row %d: %s", e.Row, e.Reason)
}

type Result struct {
	Quests    []*quest.Quest      `json:"-"`
	Skipped   []MalformedRowError `json:"skipped"`
	Locations []string            `json:"locations"`
}

type Importer struct {
	columns config.ColumnMapping
	sheet   string
}

func NewImporter(cfg config.ImportConfig) *Importer {
	return &Importer{
		columns: cfg.Columns,
		sheet:   cfg.Sheet,
	}
}

// Load reads the status file and the spreadsheet. A missing input is fatal and
// nothing is returned; malformed rows are skipped and reported.
func (im *Importer) Load(statusPath, sheetPath string) (*Result, error) {
	sf, err := OpenStatusFile(statusPath)
	if err != nil {
		return nil, err
	}
	return im.LoadFrom(sf, sheetPath)
}

func (im *Importer) LoadFrom(sf *StatusFile, sheetPath string) (*Result, error) {
	start := time.Now()

	rows, err := readRows(sheetPath, im.sheet)
	if err != nil {
		return nil, err
	}

	var header []string
	if len(rows) > 0 {
		header = rows[0]
	}
	locations := im.locationNames(header)

	res := &Result{
		Quests:    make([]*quest.Quest, 0, sf.Len()),
		Skipped:   []MalformedRowError{},
		Locations: locations.names(),
	}

	for row := FirstQuestRow; row < sf.Len(); row++ {
		raw, _ := sf.Raw(row)
		q, skip := im.parseRow(int64(row), raw, rows, locations)
		if skip != nil {
			logger.Warn("Import: Skipping malformed row",
				zap.Int64("row", skip.Row),
				zap.String("reason", skip.Reason),
			)
			res.Skipped = append(res.Skipped, *skip)
			continue
		}
		res.Quests = append(res.Quests, q)
	}

	logger.Info("Import: Legacy data loaded",
		zap.String("status_file", sf.Path()),
		zap.String("spreadsheet", sheetPath),
		zap.Int("quests", len(res.Quests)),
		zap.Int("skipped", len(res.Skipped)),
		zap.Duration("duration", time.Since(start)),
	)
	return res, nil
}

func (im *Importer) parseRow(row int64, raw string, rows [][]string, locations locationColumns) (*quest.Quest, *MalformedRowError) {
	n, err := strconv.Atoi(raw)
	if err != nil {
		return nil, &MalformedRowError{Row: row, Reason: fmt.Sprintf("status %q is not an integer", raw)}
	}
	status := quest.Status(n)
	if !status.Valid() {
		return nil, &MalformedRowError{Row: row, Reason: fmt.Sprintf("status %d out of range", n)}
	}

	// spreadsheet row r lives at rows[r-1]
	if int(row) > len(rows) {
		return nil, &MalformedRowError{Row: row, Reason: "row missing from spreadsheet"}
	}
	cells := rows[row-1]
	name := cell(cells, im.columns.Name)
	if name == "" {
		return nil, &MalformedRowError{Row: row, Reason: "quest has no name"}
	}

	var available []string
	for _, lc := range locations {
		if isFlagSet(cell(cells, lc.column)) {
			available = append(available, lc.name)
		}
	}

	return quest.New(row, name,
		quest.WithStatus(status),
		quest.WithLife(cell(cells, im.columns.Life)),
		quest.WithRank(cell(cells, im.columns.Rank)),
		quest.WithGiver(cell(cells, im.columns.Giver)),
		quest.WithDescription(cell(cells, im.columns.Description)),
		quest.WithTurnIn(cell(cells, im.columns.TurnIn)),
		quest.WithURL(cell(cells, im.columns.URL)),
		quest.WithLocations(available...),
	), nil
}

type locationColumn struct {
	column int
	name   string
}

type locationColumns []locationColumn

func (lc locationColumns) names() []string {
	out := make([]string, len(lc))
	for i, c := range lc {
		out[i] = c.name
	}
	return out
}

// locationNames maps each location column with a header to its name. Columns
// without a header are ignored.
func (im *Importer) locationNames(header []string) locationColumns {
	var out locationColumns
	for col := im.columns.LocationStart; col <= im.columns.LocationEnd; col++ {
		if name := cell(header, col); name != "" {
			out = append(out, locationColumn{column: col, name: name})
		}
	}
	return out
}

func isFlagSet(v string) bool {
	f, err := strconv.ParseFloat(v, 64)
	return err == nil && f == 1
}
