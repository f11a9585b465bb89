package dataset

import (
	"encoding/csv"
	"io"
	"os"
	"strconv"

	"github.com/pkg/errors"

	"github.com/ayusman/fingerspell/internal/features"
)

// Reader reads rows back from a dataset file, checking the header and the
// field count of every line.
type Reader struct {
	csv  *csv.Reader
	line int
}

// NewReader reads and validates the header.
func NewReader(r io.Reader) (*Reader, error) {
	cr := csv.NewReader(r)
	// Field count is checked here so a short line reports ErrSchemaViolation.
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err == io.EOF {
		return nil, errors.Wrap(ErrSchemaViolation, "missing header")
	}
	if err != nil {
		return nil, errors.Wrap(err, "read header")
	}

	want := Columns()
	if len(header) != len(want) {
		return nil, errors.Wrapf(ErrSchemaViolation, "header has %d columns, want %d", len(header), len(want))
	}
	for i := range want {
		if header[i] != want[i] {
			return nil, errors.Wrapf(ErrSchemaViolation, "header column %d is %q, want %q", i, header[i], want[i])
		}
	}

	return &Reader{csv: cr, line: 1}, nil
}

// Read returns the next row, or io.EOF after the last one.
func (r *Reader) Read() (Row, error) {
	rec, err := r.csv.Read()
	if err != nil {
		if err == io.EOF {
			return Row{}, io.EOF
		}
		return Row{}, errors.Wrapf(err, "read line %d", r.line+1)
	}
	r.line++

	if len(rec) != NumColumns {
		return Row{}, errors.Wrapf(ErrSchemaViolation, "line %d has %d fields, want %d", r.line, len(rec), NumColumns)
	}

	row := Row{
		Label:    rec[0],
		Features: make(features.Vector, features.Width),
	}
	for i, field := range rec[1:] {
		f, err := strconv.ParseFloat(field, 64)
		if err != nil {
			return Row{}, errors.Wrapf(ErrSchemaViolation, "line %d column %d: %v", r.line, i+1, err)
		}
		row.Features[i] = f
	}
	if err := row.Validate(); err != nil {
		return Row{}, errors.Wrapf(err, "line %d", r.line)
	}
	return row, nil
}

// ReadAll reads every remaining row.
func (r *Reader) ReadAll() ([]Row, error) {
	var rows []Row
	for {
		row, err := r.Read()
		if err == io.EOF {
			return rows, nil
		}
		if err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}
}

// ReadFile reads a whole dataset file.
func ReadFile(path string) ([]Row, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r, err := NewReader(f)
	if err != nil {
		return nil, errors.Wrap(err, path)
	}
	rows, err := r.ReadAll()
	if err != nil {
		return nil, errors.Wrap(err, path)
	}
	return rows, nil
}
