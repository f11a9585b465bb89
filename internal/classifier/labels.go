package classifier

import (
	"bufio"
	"os"
	"strings"

	"github.com/pkg/errors"
)

// Labels is the ordered list of class names a model was trained on.
// Index i of every Distribution refers to Labels.Name(i). A Labels value
// is fixed once built.
type Labels struct {
	names []string
	index map[string]int
}

// NewLabels registers names in order. Names must be non-empty and unique.
func NewLabels(names ...string) (Labels, error) {
	if len(names) == 0 {
		return Labels{}, errors.New("no labels")
	}
	l := Labels{
		names: make([]string, len(names)),
		index: make(map[string]int, len(names)),
	}
	for i, n := range names {
		n = strings.TrimSpace(n)
		if n == "" {
			return Labels{}, errors.Errorf("label %d is empty", i)
		}
		if prev, ok := l.index[n]; ok {
			return Labels{}, errors.Errorf("label %q registered twice (%d and %d)", n, prev, i)
		}
		l.names[i] = n
		l.index[n] = i
	}
	return l, nil
}

// LoadLabels reads a labels file: one label per line. A file with a single
// line is split on commas, or on spaces when it has no commas.
func LoadLabels(path string) (Labels, error) {
	f, err := os.Open(path)
	if err != nil {
		return Labels{}, errors.Wrap(err, "open labels")
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			lines = append(lines, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return Labels{}, errors.Wrap(err, "read labels")
	}

	if len(lines) == 1 {
		if strings.Contains(lines[0], ",") {
			lines = strings.Split(lines[0], ",")
		} else {
			lines = strings.Fields(lines[0])
		}
	}

	l, err := NewLabels(lines...)
	if err != nil {
		return Labels{}, errors.Wrap(err, path)
	}
	return l, nil
}

// Len returns the number of classes.
func (l Labels) Len() int { return len(l.names) }

// Name returns the label at index i, or "" when i is out of range.
func (l Labels) Name(i int) string {
	if i < 0 || i >= len(l.names) {
		return ""
	}
	return l.names[i]
}

// Index returns the position of name.
func (l Labels) Index(name string) (int, bool) {
	i, ok := l.index[name]
	return i, ok
}

// Names returns a copy of the registered names in order.
func (l Labels) Names() []string {
	out := make([]string, len(l.names))
	copy(out, l.names)
	return out
}
