package dataset

import (
	"encoding/csv"
	"io"
	"sync"

	"github.com/pkg/errors"
)

// Writer appends rows to a dataset file. The header is written by
// NewWriter, so it always precedes the first row. Writer is safe for
// concurrent use; rows are never interleaved.
type Writer struct {
	mu   sync.Mutex
	csv  *csv.Writer
	rows int
}

// NewWriter writes the header to w and returns a Writer for the rows.
func NewWriter(w io.Writer) (*Writer, error) {
	cw := csv.NewWriter(w)
	if err := cw.Write(Columns()); err != nil {
		return nil, errors.Wrap(err, "write header")
	}
	return &Writer{csv: cw}, nil
}

// Write validates and appends one row. A row that breaks the column
// contract returns ErrSchemaViolation and nothing is written.
func (w *Writer) Write(r Row) error {
	if err := r.Validate(); err != nil {
		return err
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.csv.Write(r.record()); err != nil {
		return errors.Wrapf(err, "write row %d", w.rows+1)
	}
	w.rows++
	return nil
}

// Flush writes any buffered rows to the underlying writer.
func (w *Writer) Flush() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.csv.Flush()
	return errors.Wrap(w.csv.Error(), "flush dataset")
}

// Rows returns the number of rows written so far, excluding the header.
func (w *Writer) Rows() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.rows
}
