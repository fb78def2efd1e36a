// Package xlsx reads student rosters from Excel workbooks. Only the first
// sheet is read; its first row is the header.
package xlsx

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/couchcryptid/student-map/internal/domain"
	tealeg "github.com/tealeg/xlsx/v2"
)

// ErrMissingColumns means the header has no student or no city column.
var ErrMissingColumns = errors.New("required columns not found")

// Layout records which header cells were recognised. Absent fields are empty.
type Layout struct {
	Sheet      string
	Header     []string
	Student    string
	Surname    string
	GivenName  string
	City       string
	HighSchool string
}

// Roster is the result of reading a workbook.
type Roster struct {
	Layout  Layout
	Records []domain.RawRecord
}

// EmptyCities counts records that will be skipped for lack of a city.
func (r Roster) EmptyCities() int {
	n := 0
	for _, rec := range r.Records {
		if !rec.HasCity() {
			n++
		}
	}
	return n
}

// Extractor turns workbook rows into domain records.
type Extractor struct {
	columns Columns
	logger  *slog.Logger
}

// NewExtractor creates an Extractor recognising the given column aliases.
func NewExtractor(columns Columns, logger *slog.Logger) *Extractor {
	return &Extractor{columns: columns, logger: logger}
}

// ExtractFile reads the workbook at path.
func (e *Extractor) ExtractFile(path string) (Roster, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Roster{}, fmt.Errorf("read workbook: %w", err)
	}
	return e.Extract(data)
}

// Extract reads a workbook held in memory. Blank rows are dropped; rows with
// a student but no city are kept and later skipped by the pipeline. A sheet
// without data rows fails with domain.ErrEmptyInput.
func (e *Extractor) Extract(data []byte) (Roster, error) {
	f, err := tealeg.OpenBinary(data)
	if err != nil {
		return Roster{}, fmt.Errorf("open workbook: %w", err)
	}
	if len(f.Sheets) == 0 {
		return Roster{}, fmt.Errorf("workbook has no sheets: %w", domain.ErrEmptyInput)
	}

	sheet := f.Sheets[0]
	rows := nonBlankRows(sheet)
	if len(rows) == 0 {
		return Roster{}, fmt.Errorf("sheet %q: %w", sheet.Name, domain.ErrEmptyInput)
	}

	m, err := e.mapHeader(rows[0])
	if err != nil {
		return Roster{}, fmt.Errorf("sheet %q: %w", sheet.Name, err)
	}
	m.layout.Sheet = sheet.Name

	records := make([]domain.RawRecord, 0, len(rows)-1)
	for _, row := range rows[1:] {
		records = append(records, m.record(row))
	}
	if len(records) == 0 {
		return Roster{}, fmt.Errorf("sheet %q: %w", sheet.Name, domain.ErrEmptyInput)
	}

	e.logger.Debug("roster extracted", "sheet", sheet.Name, "records", len(records),
		"student_column", m.layout.Student, "city_column", m.layout.City)

	return Roster{Layout: m.layout, Records: records}, nil
}

type mapping struct {
	layout Layout

	// Column indexes, -1 when absent.
	student, surname, given, city, highSchool int
}

func (e *Extractor) mapHeader(header []string) (mapping, error) {
	m := mapping{
		layout:     Layout{Header: header},
		student:    indexOf(header, e.columns.Student),
		surname:    -1,
		given:      -1,
		city:       indexOf(header, e.columns.City),
		highSchool: indexOf(header, e.columns.HighSchool),
	}
	if m.student < 0 {
		m.surname = indexOf(header, e.columns.Surname)
		m.given = indexOf(header, e.columns.GivenName)
	}

	hasStudent := m.student >= 0 || m.surname >= 0
	if !hasStudent || m.city < 0 {
		return mapping{}, fmt.Errorf("%w: need a student and a city column, header is %q", ErrMissingColumns, header)
	}

	m.layout.Student = cellAt(header, m.student)
	m.layout.Surname = cellAt(header, m.surname)
	m.layout.GivenName = cellAt(header, m.given)
	m.layout.City = cellAt(header, m.city)
	m.layout.HighSchool = cellAt(header, m.highSchool)
	return m, nil
}

func (m mapping) record(row []string) domain.RawRecord {
	name := strings.TrimSpace(cellAt(row, m.student))
	if m.student < 0 {
		name = strings.TrimSpace(strings.TrimSpace(cellAt(row, m.surname)) + " " + strings.TrimSpace(cellAt(row, m.given)))
	}
	return domain.RawRecord{
		Student:    name,
		City:       cellAt(row, m.city),
		HighSchool: strings.TrimSpace(cellAt(row, m.highSchool)),
	}
}

func nonBlankRows(sheet *tealeg.Sheet) [][]string {
	rows := make([][]string, 0, len(sheet.Rows))
	for _, row := range sheet.Rows {
		if row == nil {
			continue
		}
		cells := rowToStrings(row)
		if isBlank(cells) {
			continue
		}
		rows = append(rows, cells)
	}
	return rows
}

func rowToStrings(row *tealeg.Row) []string {
	cells := make([]string, len(row.Cells))
	for j, cell := range row.Cells {
		if cell != nil {
			cells[j] = cell.String()
		}
	}
	return cells
}

func isBlank(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

func cellAt(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return row[i]
}
