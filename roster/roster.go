// Package roster loads participant names from spreadsheet files.
package roster

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"
)

// DefaultColumn is the header of the column holding participant names,
// matching the field the certificate template exposes.
const DefaultColumn = "nomeParticipante"

// Load reads participant names from the default column of the first sheet.
func Load(r io.Reader) ([]string, error) {
	return LoadColumn(r, DefaultColumn)
}

// LoadColumn reads the named column from the first sheet. The header row
// locates the column, blank cells are skipped and order is preserved.
func LoadColumn(r io.Reader, column string) ([]string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open spreadsheet: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, errors.New("spreadsheet has no sheets")
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheets[0], err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("sheet %q is empty", sheets[0])
	}

	column_index := -1
	for i, header := range rows[0] {
		if strings.EqualFold(strings.TrimSpace(header), column) {
			column_index = i
			break
		}
	}
	if column_index < 0 {
		return nil, fmt.Errorf("sheet %q has no column %q", sheets[0], column)
	}

	var names []string
	for _, row := range rows[1:] {
		if column_index >= len(row) {
			continue
		}
		name := strings.TrimSpace(row[column_index])
		if name == "" {
			continue
		}
		names = append(names, name)
	}

	return names, nil
}
