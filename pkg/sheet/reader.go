package sheet

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"sheetmap/pkg/column"
	"sheetmap/pkg/rowcodec"
)

// ReadOptions mirrors the layout a sheet was written with.
type ReadOptions struct {
	// RowStartIndex is the 1-based row of the first record; RowStartIndex-2
	// padding lines are skipped.
	RowStartIndex int

	// HasHeader expects a display-name row right before the data.
	HasHeader bool

	// RowLimit caps the number of records returned. Negative means no limit.
	RowLimit int

	// OnSkip, when set, receives rows that fail to parse and reading
	// continues. When nil the first bad row aborts the read.
	OnSkip func(line int, raw string, err error)
}

// ReadOptionsFor returns the options matching a fresh sheet written with
// rowStartIndex.
func ReadOptionsFor(rowStartIndex int) ReadOptions {
	return ReadOptions{
		RowStartIndex: rowStartIndex,
		HasHeader:     rowStartIndex > 1,
		RowLimit:      NoLimit,
	}
}

// HeaderMismatchError reports a header row that does not match the mapping.
type HeaderMismatchError struct {
	Line int
	Got  []string
	Want []string
}

func (e *HeaderMismatchError) Error() string {
	return fmt.Sprintf("sheet: line %d: header %q does not match columns %q", e.Line, e.Got, e.Want)
}

// Read parses the records in r. A leading BOM is dropped, as are blank
// lines in the data section.
func Read[T any](r io.Reader, m *column.Mapping, opt ReadOptions) ([]T, error) {
	br := bufio.NewReader(transform.NewReader(r, unicode.BOMOverride(encoding.Nop.NewDecoder())))

	line := 0
	next := func() (string, bool, error) {
		s, err := br.ReadString('\n')
		if errors.Is(err, io.EOF) {
			if s == "" {
				return "", false, nil
			}
			err = nil
		}
		if err != nil {
			return "", false, fmt.Errorf("sheet: read line %d: %w", line+1, err)
		}
		line++
		return s, true, nil
	}

	for i := opt.RowStartIndex; i > 2; i-- {
		if _, ok, err := next(); err != nil || !ok {
			return nil, err
		}
	}

	if opt.HasHeader {
		h, ok, err := next()
		if err != nil || !ok {
			return nil, err
		}
		if err := checkHeader(line, h, m); err != nil {
			return nil, err
		}
	}

	var out []T
	for opt.RowLimit < 0 || len(out) < opt.RowLimit {
		raw, ok, err := next()
		if err != nil {
			return out, err
		}
		if !ok {
			break
		}
		// Padding written by appends shows up between record blocks.
		if strings.TrimRight(raw, "\r\n") == "" {
			continue
		}
		var rec T
		if err := rowcodec.ParseRowInto(raw, m, &rec); err != nil {
			if opt.OnSkip != nil {
				opt.OnSkip(line, strings.TrimRight(raw, "\r\n"), err)
				continue
			}
			return out, fmt.Errorf("sheet: line %d: %w", line, err)
		}
		out = append(out, rec)
	}
	return out, nil
}

// ReadFile opens path and reads it with the mapping of T from r
// (column.Default() when nil).
func ReadFile[T any](path string, opt ReadOptions, r *column.Resolver) ([]T, error) {
	if r == nil {
		r = column.Default()
	}
	m, err := column.For[T](r)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return Read[T](f, m, opt)
}

func checkHeader(line int, raw string, m *column.Mapping) error {
	raw = strings.TrimRight(raw, "\r\n")
	got := strings.Split(raw, rowcodec.Separator)
	want := m.Names()
	if len(got) != len(want) {
		return &HeaderMismatchError{Line: line, Got: got, Want: want}
	}
	for i := range got {
		if norm.NFC.String(strings.TrimSpace(got[i])) != norm.NFC.String(want[i]) {
			return &HeaderMismatchError{Line: line, Got: got, Want: want}
		}
	}
	return nil
}
