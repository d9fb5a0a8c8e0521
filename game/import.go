package game

import (
	"encoding/csv"
	"strings"

	"github.com/google/uuid"
	"github.com/samber/lo"

	apperrors "github.com/QQHKX/rollcall-module/errors"
)

// nameHeaders are the column labels recognized in tabular imports.
var nameHeaders = []string{"name", "姓名"}

// ImportMode selects how parsed names are applied to the roster.
type ImportMode string

const (
	// ImportAppend adds the parsed names to the existing roster.
	ImportAppend ImportMode = "append"
	// ImportReplace swaps the roster wholesale and resets the pool.
	ImportReplace ImportMode = "replace"
)

// ParseNames extracts student names from an import payload: either
// line-delimited plain text (blank lines ignored) or CSV/TSV with a name
// column (a "name"/"姓名" header, else the first column). Zero parsed
// names is an error and the caller must leave the roster untouched.
func ParseNames(data string) ([]string, error) {
	data = strings.TrimPrefix(data, "\uFEFF")
	var names []string
	if looksTabular(data) {
		names = parseTabular(data)
	} else {
		names = parseLines(data)
	}
	if len(names) == 0 {
		return nil, apperrors.New(apperrors.ErrNoImportableEntries, "no importable entries")
	}
	return names, nil
}

func looksTabular(data string) bool {
	for _, line := range strings.Split(data, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		return strings.ContainsAny(line, ",\t")
	}
	return false
}

func parseLines(data string) []string {
	lines := strings.Split(data, "\n")
	return lo.FilterMap(lines, func(line string, _ int) (string, bool) {
		name := strings.TrimSpace(strings.TrimSuffix(line, "\r"))
		return name, name != ""
	})
}

func parseTabular(data string) []string {
	comma := ','
	if firstDelimiter(data) == '\t' {
		comma = '\t'
	}

	reader := csv.NewReader(strings.NewReader(data))
	reader.Comma = comma
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	rows, err := reader.ReadAll()
	if err != nil || len(rows) == 0 {
		return nil
	}

	col, skipHeader := nameColumn(rows[0])
	start := 0
	if skipHeader {
		start = 1
	}

	var names []string
	for _, row := range rows[start:] {
		if col >= len(row) {
			continue
		}
		name := strings.TrimSpace(row[col])
		if name != "" {
			names = append(names, name)
		}
	}
	return names
}

func firstDelimiter(data string) rune {
	for _, r := range data {
		if r == ',' || r == '\t' {
			return r
		}
		if r == '\n' {
			break
		}
	}
	return ','
}

// nameColumn locates the labeled name column in a header row. When no
// label matches, the first column is used and the row is treated as data.
func nameColumn(header []string) (int, bool) {
	for i, cell := range header {
		cell = strings.ToLower(strings.TrimSpace(cell))
		if lo.Contains(nameHeaders, cell) {
			return i, true
		}
	}
	return 0, false
}

// ApplyImport merges parsed names into the roster according to the import
// mode and returns the number of imported entries. Replace rebuilds the
// pool; append leaves existing pool entries in place (new ids join the
// pool under no-repeat via AddStudent).
func ApplyImport(rp *RosterPool, names []string, mode ImportMode) int {
	if mode == ImportReplace {
		students := lo.Map(names, func(name string, _ int) Student {
			return Student{ID: uuid.New().String(), Name: name}
		})
		rp.ReplaceRoster(students)
		return len(students)
	}
	for _, name := range names {
		rp.AddStudent(name, "")
	}
	return len(names)
}
