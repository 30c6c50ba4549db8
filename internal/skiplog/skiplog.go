// Package skiplog records rows that a lenient import skipped, as a CSV file
// with the columns reason, line_number, detail and raw_line.
package skiplog

import (
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"sync"

	"sheetmap/pkg/rowcodec"
)

// Header is the first row of every skip log.
var Header = []string{"reason", "line_number", "detail", "raw_line"}

// Log appends skipped rows to a CSV file and counts them per reason. It is
// safe for concurrent use.
type Log struct {
	mu      sync.Mutex
	f       *os.File
	w       *csv.Writer
	reasons map[string]int
	total   int
}

// Create makes the parent directories, truncates path and writes the header.
func Create(path string) (*Log, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create dir %s: %w", filepath.Dir(path), err)
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	w := csv.NewWriter(f)
	if err := w.Write(Header); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("write header %s: %w", path, err)
	}
	return &Log{f: f, w: w, reasons: make(map[string]int)}, nil
}

// Add records one skipped row with an empty detail.
func (l *Log) Add(reason string, line int, raw string) {
	l.add(reason, line, "", raw)
}

// Skip adapts Add to the reader's skip hook. Rows are grouped by Reason(err)
// and the full error text goes to the detail column.
func (l *Log) Skip(line int, raw string, err error) {
	l.add(Reason(err), line, err.Error(), raw)
}

func (l *Log) add(reason string, line int, detail, raw string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.reasons[reason]++
	l.total++
	_ = l.w.Write([]string{reason, strconv.Itoa(line), detail, raw})
}

// Reason maps a row error to a stable category that does not carry the
// offending cell, so equal failures aggregate in Top.
func Reason(err error) string {
	var (
		pe *rowcodec.ParseError
		fc *rowcodec.FieldCountError
		fa *rowcodec.FieldAccessError
	)
	switch {
	case errors.As(err, &pe):
		return "parse " + pe.Field
	case errors.As(err, &fc):
		return "field count"
	case errors.As(err, &fa):
		return "field access"
	case err == nil:
		return "unknown"
	}
	return err.Error()
}

// Total returns the number of rows recorded so far.
func (l *Log) Total() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.total
}

// Reason is a skip reason with its count.
type Reason struct {
	Reason string
	Count  int
}

// Top returns up to n reasons, most frequent first.
func (l *Log) Top(n int) []Reason {
	l.mu.Lock()
	out := make([]Reason, 0, len(l.reasons))
	for r, c := range l.reasons {
		out = append(out, Reason{r, c})
	}
	l.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Reason < out[j].Reason
	})
	if n >= 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

// Close flushes and closes the file.
func (l *Log) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.w.Flush()
	ferr := l.w.Error()
	cerr := l.f.Close()
	if ferr != nil {
		return ferr
	}
	return cerr
}
