package table

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
)

var (
	// ErrEmpty is returned for blank input.
	ErrEmpty = errors.New("CSV file is empty")
	// ErrNoHeader is returned when no header row could be read.
	ErrNoHeader = errors.New("No column headers found in CSV")
	// ErrNoRows is returned when the header is not followed by any data.
	ErrNoRows = errors.New("No data rows found in CSV")
)

// GuessDelimiters are tried in order when Options.Delimiter is zero.
var GuessDelimiters = []rune{',', '\t', '|', ';'}

// Options controls tokenizing and type inference.
type Options struct {
	// Delimiter separates fields; zero guesses from GuessDelimiters.
	Delimiter rune
	// DynamicTyping turns numeric and boolean cells into typed values.
	DynamicTyping bool
	// SkipEmptyLines drops records whose cells are all blank.
	SkipEmptyLines bool
}

// DefaultOptions mirrors how notes are usually imported: guess the
// delimiter, infer types, ignore blank lines.
func DefaultOptions() Options {
	return Options{DynamicTyping: true, SkipEmptyLines: true}
}

const guessSampleRecords = 10

// Parse reads delimited text with a header row. Malformed records are
// reported as issues and parsing continues with the next record.
func Parse(text string, opts Options) (*Table, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmpty
	}
	text = strings.TrimPrefix(text, "\ufeff")

	delim := opts.Delimiter
	if delim == 0 {
		delim = guessDelimiter(text)
	}

	r := newReader(strings.NewReader(text), delim)
	header, err := r.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, ErrNoHeader
		}
		return nil, fmt.Errorf("reading header: %w", err)
	}

	var records [][]string
	var issues []Issue
	for {
		record, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var perr *csv.ParseError
			if errors.As(err, &perr) {
				issues = append(issues, Issue{Row: len(records) + 1, Line: perr.Line, Message: perr.Err.Error()})
				continue
			}
			return nil, fmt.Errorf("reading records: %w", err)
		}
		records = append(records, append([]string(nil), record...))
	}

	tbl, err := FromRecords(header, records, opts)
	if err != nil {
		return nil, err
	}
	tbl.Issues = append(issues, tbl.Issues...)
	return tbl, nil
}

// FromRecords builds a table from a raw header and string records. It is
// shared by the CSV and xlsx readers.
func FromRecords(header []string, records [][]string, opts Options) (*Table, error) {
	columns := make([]string, len(header))
	for i, h := range header {
		columns[i] = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
	}
	if len(columns) == 0 || (len(columns) == 1 && columns[0] == "" && len(records) == 0) {
		return nil, ErrNoHeader
	}

	tbl := &Table{Columns: columns}
	for _, record := range records {
		if opts.SkipEmptyLines && blankRecord(record) {
			continue
		}
		rowNum := len(tbl.Rows) + 1
		switch {
		case len(record) < len(columns):
			tbl.Issues = append(tbl.Issues, Issue{
				Row:     rowNum,
				Message: fmt.Sprintf("Too few fields: expected %d fields but parsed %d", len(columns), len(record)),
			})
		case len(record) > len(columns):
			tbl.Issues = append(tbl.Issues, Issue{
				Row:     rowNum,
				Message: fmt.Sprintf("Too many fields: expected %d fields but parsed %d", len(columns), len(record)),
			})
		}

		cells := make([]Value, len(record))
		for i, raw := range record {
			if opts.DynamicTyping {
				cells[i] = Infer(raw)
			} else {
				cells[i] = String(raw)
			}
		}
		tbl.Rows = append(tbl.Rows, NewRow(columns, cells))
	}

	if len(tbl.Rows) == 0 {
		return nil, ErrNoRows
	}
	return tbl, nil
}

func newReader(r io.Reader, delim rune) *csv.Reader {
	cr := csv.NewReader(r)
	cr.Comma = delim
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	return cr
}

func blankRecord(record []string) bool {
	for _, cell := range record {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

// guessDelimiter picks the candidate whose header splits into more than one
// field and whose sampled records most often match the header width.
func guessDelimiter(text string) rune {
	best := GuessDelimiters[0]
	bestScore := -1
	for _, delim := range GuessDelimiters {
		r := newReader(strings.NewReader(text), delim)
		header, err := r.Read()
		if err != nil || len(header) < 2 {
			continue
		}
		score := 0
		for i := 0; i < guessSampleRecords; i++ {
			record, err := r.Read()
			if errors.Is(err, io.EOF) {
				break
			}
			if err != nil {
				continue
			}
			if len(record) == len(header) {
				score++
			}
		}
		if score > bestScore {
			best = delim
			bestScore = score
		}
	}
	return best
}
