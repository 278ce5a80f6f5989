package legacy

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"questTracker/internal/models/quest"
)

var (
	ErrMissingFile   = errors.New("legacy input file is missing")
	ErrRowOutOfRange = errors.New("quest row out of status file range")
)

// MaxRow is the highest spreadsheet row the status file grows to.
const MaxRow = 100_000

// FirstQuestRow is the first line of the status file that describes a quest.
// Lines 0 and 1 line up with the spreadsheet's unused row 0 and its header.
const FirstQuestRow = 2

// StatusFile is the legacy progress file: one integer status per line, the
// line index being the spreadsheet row of the quest.
type StatusFile struct {
	path  string
	mu    sync.Mutex
	lines []string
}

func OpenStatusFile(path string) (*StatusFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrMissingFile, path)
		}
		return nil, fmt.Errorf("read status file: %w", err)
	}

	text := strings.ReplaceAll(string(data), "\r\n", "\n")
	text = strings.TrimSuffix(text, "\n")
	var lines []string
	if text != "" {
		lines = strings.Split(text, "\n")
	}
	return &StatusFile{path: path, lines: lines}, nil
}

func (f *StatusFile) Path() string {
	return f.path
}

// Len is the number of lines, placeholders included.
func (f *StatusFile) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.lines)
}

// Raw returns the trimmed text of line row.
func (f *StatusFile) Raw(row int) (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if row < 0 || row >= len(f.lines) {
		return "", false
	}
	return strings.TrimSpace(f.lines[row]), true
}

// Save rewrites the file with the given statuses. Lines of rows absent from
// statuses keep their previous content; the file grows when a quest row lies
// past its end. The write goes through a temporary file and a rename.
func (f *StatusFile) Save(statuses map[int64]quest.Status) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	size := len(f.lines)
	for id := range statuses {
		if id > MaxRow {
			return fmt.Errorf("%w: row %d, limit %d", ErrRowOutOfRange, id, MaxRow)
		}
		if int(id)+1 > size {
			size = int(id) + 1
		}
	}
	lines := make([]string, size)
	copy(lines, f.lines)
	for i := range lines {
		if i >= len(f.lines) {
			lines[i] = "0"
		}
	}
	for id, st := range statuses {
		if id < FirstQuestRow {
			continue
		}
		lines[id] = strconv.Itoa(int(st))
	}

	tmp, err := os.CreateTemp(filepath.Dir(f.path), filepath.Base(f.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp status file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.WriteString(strings.Join(lines, "\n") + "\n"); err != nil {
		tmp.Close()
		return fmt.Errorf("write status file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write status file: %w", err)
	}
	if err := os.Rename(tmp.Name(), f.path); err != nil {
		return fmt.Errorf("replace status file: %w", err)
	}

	f.lines = lines
	return nil
}
