// Package roster reads the companies spreadsheet and expands each row into
// individual recipients.
package roster

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode"
)

// Required column names
const (
	ColumnCompany = "Company"
	ColumnName    = "Name"
	ColumnEmail   = "Email"
	ColumnType    = "Type"
)

var (
	// ErrCountMismatch is returned when a row lists a different number of names and emails
	ErrCountMismatch = errors.New("name and email counts differ")
	// ErrEmptyAddress is returned when an email token is empty after sanitizing
	ErrEmptyAddress = errors.New("empty email address")
	// ErrMissingType is returned when a row has no template kind
	ErrMissingType = errors.New("missing " + ColumnType)
	// ErrMissingColumn is returned when the header lacks a required column
	ErrMissingColumn = errors.New("missing required column")
)

// Row is one company record
type Row struct {
	Line    int // 1-based line in the source file, header is line 1
	Company string
	Name    string // Comma separated names
	Email   string // Comma separated addresses
	Type    string // Template kind
}

// Recipient is a single name/address pair derived from a row
type Recipient struct {
	Name  string
	Email string
}

// Names returns the sanitized name tokens
func (r Row) Names() []string {
	return SanitizeSplit(r.Name)
}

// Emails returns the sanitized email tokens
func (r Row) Emails() []string {
	return SanitizeSplit(r.Email)
}

// Recipients pairs names with emails positionally
func (r Row) Recipients() ([]Recipient, error) {
	names := r.Names()
	emails := r.Emails()

	if len(names) != len(emails) {
		return nil, fmt.Errorf("%w: %d names, %d emails", ErrCountMismatch, len(names), len(emails))
	}
	if r.Type == "" {
		return nil, ErrMissingType
	}

	recipients := make([]Recipient, len(names))
	for i := range names {
		if emails[i] == "" {
			return nil, fmt.Errorf("%w at position %d", ErrEmptyAddress, i+1)
		}
		recipients[i] = Recipient{Name: names[i], Email: emails[i]}
	}
	return recipients, nil
}

// SanitizeSplit removes every whitespace character, then splits on commas
func SanitizeSplit(field string) []string {
	stripped := strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, field)
	return strings.Split(stripped, ",")
}

// ReadFile reads rows from a CSV file
func ReadFile(path string) ([]Row, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open roster: %w", err)
	}
	defer f.Close()

	return Read(f)
}

// Read parses CSV data with a header row. Rows with an empty required
// cell are dropped.
func Read(r io.Reader) ([]Row, error) {
	csvReader := csv.NewReader(r)
	csvReader.FieldsPerRecord = -1

	// Read header
	header, err := csvReader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}

	// Find column indices
	idx := map[string]int{}
	for i, col := range header {
		col = strings.TrimSpace(strings.TrimPrefix(col, "\ufeff"))
		if _, seen := idx[col]; !seen {
			idx[col] = i
		}
	}
	for _, col := range []string{ColumnCompany, ColumnName, ColumnEmail, ColumnType} {
		if _, ok := idx[col]; !ok {
			return nil, fmt.Errorf("%w %q", ErrMissingColumn, col)
		}
	}

	cell := func(record []string, col string) string {
		i := idx[col]
		if i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	var rows []Row
	for {
		record, err := csvReader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read CSV: %w", err)
		}

		line, _ := csvReader.FieldPos(0)
		row := Row{
			Line:    line,
			Company: cell(record, ColumnCompany),
			Name:    cell(record, ColumnName),
			Email:   cell(record, ColumnEmail),
			Type:    cell(record, ColumnType),
		}

		if row.Company == "" || row.Name == "" || row.Email == "" || row.Type == "" {
			continue
		}

		rows = append(rows, row)
	}

	return rows, nil
}
