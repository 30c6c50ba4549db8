// Package sheet writes records to, and reads them from, flat CSV sheets laid
// out by a column.Mapping.
//
// A freshly created sheet starts with a UTF-8 byte-order mark. Data is meant
// to begin at a 1-based row start index: the writer emits rowStart-2 blank
// lines and then, for new files with rowStart > 1, a header row holding the
// display names, so the first record lands on row rowStart. Appending to an
// existing sheet never writes a BOM or a header.
package sheet

import (
	"bufio"
	"fmt"
	"io"

	"github.com/zeebo/xxh3"

	"sheetmap/pkg/column"
	"sheetmap/pkg/rowcodec"
)

// BOM is the UTF-8 byte-order mark written at the start of new sheets.
var BOM = []byte{0xEF, 0xBB, 0xBF}

// NoLimit disables the row limit of a job.
const NoLimit = -1

// Job is a single write request. It is owned by the Write call it is passed
// to.
type Job[T any] struct {
	Records []T

	// RowLimit caps the number of records written. Negative means no limit;
	// records past the limit are dropped silently.
	RowLimit int

	// RowStartIndex is the 1-based row at which data begins.
	RowStartIndex int

	// TargetExists selects append mode (no BOM, no header).
	TargetExists bool

	// EmitHeader writes the display-name row before the data.
	EmitHeader bool
}

// NewJob builds a Job and derives EmitHeader: a header is written only into a
// new target whose data starts below row 1.
func NewJob[T any](records []T, rowLimit, rowStartIndex int, targetExists bool) Job[T] {
	return Job[T]{
		Records:       records,
		RowLimit:      rowLimit,
		RowStartIndex: rowStartIndex,
		TargetExists:  targetExists,
		EmitHeader:    !targetExists && rowStartIndex > 1,
	}
}

// Phase names the step of a write in which an I/O error happened.
type Phase string

const (
	PhaseOpen     Phase = "open"
	PhasePreamble Phase = "preamble"
	PhasePadding  Phase = "padding"
	PhaseHeader   Phase = "header"
	PhaseRows     Phase = "rows"
	PhaseFlush    Phase = "flush"
	PhaseClose    Phase = "close"
)

// WriteFailure wraps an I/O error raised while writing a job. Output flushed
// before the failure stays in the sink.
type WriteFailure struct {
	Phase Phase
	Err   error
}

func (e *WriteFailure) Error() string {
	return fmt.Sprintf("sheet: write failed during %s: %v", e.Phase, e.Err)
}

func (e *WriteFailure) Unwrap() error { return e.Err }

// Result summarises a completed write.
type Result struct {
	Rows   int    // data rows written
	Bytes  int64  // bytes handed to the sink
	Digest uint64 // xxh3 of those bytes
}

// Write runs job against sink using mapping m. The sink is flushed and closed
// on every path. I/O errors come back as *WriteFailure; a record that cannot
// be rendered aborts the job with the rowcodec error.
func Write[T any](job Job[T], m *column.Mapping, sink Sink) (res Result, err error) {
	out, err := sink.Open(job.TargetExists)
	if err != nil {
		return res, &WriteFailure{Phase: PhaseOpen, Err: err}
	}

	mw := &meter{w: out, h: xxh3.New()}
	bw := bufio.NewWriter(mw)
	defer func() {
		ferr := bw.Flush()
		cerr := out.Close()
		switch {
		case err != nil:
		case ferr != nil:
			err = &WriteFailure{Phase: PhaseFlush, Err: ferr}
		case cerr != nil:
			err = &WriteFailure{Phase: PhaseClose, Err: cerr}
		}
		res.Bytes = mw.n
		res.Digest = mw.h.Sum64()
	}()

	if !job.TargetExists {
		if _, err := bw.Write(BOM); err != nil {
			return res, &WriteFailure{Phase: PhasePreamble, Err: err}
		}
	}

	for i := job.RowStartIndex; i > 2; i-- {
		if err := bw.WriteByte('\n'); err != nil {
			return res, &WriteFailure{Phase: PhasePadding, Err: err}
		}
	}

	if job.EmitHeader {
		if _, err := bw.WriteString(rowcodec.RenderHeader(m)); err != nil {
			return res, &WriteFailure{Phase: PhaseHeader, Err: err}
		}
	}

	n := len(job.Records)
	if job.RowLimit >= 0 && job.RowLimit < n {
		n = job.RowLimit
	}
	for _, rec := range job.Records[:n] {
		row, err := rowcodec.RenderRow(rec, m)
		if err != nil {
			return res, err
		}
		if _, err := bw.WriteString(row); err != nil {
			return res, &WriteFailure{Phase: PhaseRows, Err: err}
		}
		res.Rows++
	}
	return res, nil
}

// Options configures WriteFile.
type Options struct {
	RowStartIndex int
	RowLimit      int // negative means no limit
	Lock          bool

	// Resolver supplies the mapping; column.Default() when nil.
	Resolver *column.Resolver
}

// WriteFile writes records to path, appending when the file already exists.
// The mapping is resolved before the file is touched, so type errors never
// leave a partial file behind.
func WriteFile[T any](path string, records []T, opt Options) (Result, error) {
	r := opt.Resolver
	if r == nil {
		r = column.Default()
	}
	m, err := column.For[T](r)
	if err != nil {
		return Result{}, err
	}
	sink := &FileSink{Path: path, Lock: opt.Lock}
	exists, err := sink.Exists()
	if err != nil {
		return Result{}, &WriteFailure{Phase: PhaseOpen, Err: err}
	}
	return Write(NewJob(records, opt.RowLimit, opt.RowStartIndex, exists), m, sink)
}

// meter counts and hashes the bytes that reach the sink.
type meter struct {
	w io.Writer
	h *xxh3.Hasher
	n int64
}

func (m *meter) Write(p []byte) (int, error) {
	n, err := m.w.Write(p)
	m.n += int64(n)
	_, _ = m.h.Write(p[:n])
	return n, err
}
