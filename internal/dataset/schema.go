// Package dataset builds and reads the labeled landmark CSV used to train
// the fingerspelling classifier.
package dataset

import (
	"math"
	"strconv"

	"github.com/pkg/errors"

	"github.com/ayusman/fingerspell/internal/detector"
	"github.com/ayusman/fingerspell/internal/features"
)

// LabelColumn is the name of the first column.
const LabelColumn = "label"

// NumColumns is the field count of every line in a dataset file.
const NumColumns = 1 + features.Width

// ErrSchemaViolation is returned when a row or header does not have the
// label column followed by exactly features.Width finite coordinates. It
// aborts a dataset build.
var ErrSchemaViolation = errors.New("dataset schema violation")

// Row is one labeled feature vector.
type Row struct {
	Label    string
	Features features.Vector
}

// Columns returns the header: label, x0, y0, ..., x20, y20.
func Columns() []string {
	cols := make([]string, 0, NumColumns)
	cols = append(cols, LabelColumn)
	for i := 0; i < detector.NumLandmarks; i++ {
		n := strconv.Itoa(i)
		cols = append(cols, "x"+n, "y"+n)
	}
	return cols
}

// Validate checks the row against the fixed column contract.
func (r Row) Validate() error {
	if r.Label == "" {
		return errors.Wrap(ErrSchemaViolation, "empty label")
	}
	if len(r.Features) != features.Width {
		return errors.Wrapf(ErrSchemaViolation, "label %q has %d features, want %d", r.Label, len(r.Features), features.Width)
	}
	for i, f := range r.Features {
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return errors.Wrapf(ErrSchemaViolation, "label %q column %s is %v", r.Label, Columns()[1+i], f)
		}
	}
	return nil
}

func (r Row) record() []string {
	rec := make([]string, 0, NumColumns)
	rec = append(rec, r.Label)
	for _, f := range r.Features {
		rec = append(rec, strconv.FormatFloat(f, 'g', -1, 64))
	}
	return rec
}
