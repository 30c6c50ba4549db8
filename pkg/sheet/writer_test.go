package sheet

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zeebo/xxh3"

	"sheetmap/pkg/adapter"
	"sheetmap/pkg/column"
	"sheetmap/pkg/rowcodec"
)

type person struct {
	Name string `sheet:"1,name=name"`
	Age  int    `sheet:"0,name=age"`
}

type opaque struct{ X int }

type broken struct {
	Name string `sheet:"0"`
	O    opaque `sheet:"1"`
}

var people = []person{{Name: "Ann", Age: 30}, {Name: "Bo", Age: 41}}

func personMapping(t *testing.T) *column.Mapping {
	t.Helper()
	m, err := column.For[person](column.NewResolver(nil))
	require.NoError(t, err)
	return m
}

func TestWrite_NewFileWithPaddingAndHeader(t *testing.T) {
	m := personMapping(t)
	sink := &BufferSink{}

	job := NewJob(people, 10, 3, false)
	require.True(t, job.EmitHeader)

	res, err := Write(job, m, sink)
	require.NoError(t, err)

	want := "\xEF\xBB\xBF" + "\n" + "age,name\n" + "30,Ann\n" + "41,Bo\n"
	assert.Equal(t, want, string(sink.Bytes()))
	assert.Equal(t, 2, res.Rows)
	assert.Equal(t, int64(len(want)), res.Bytes)
	assert.Equal(t, xxh3.HashString(want), res.Digest)
}

func TestWrite_AppendToExisting(t *testing.T) {
	m := personMapping(t)
	sink := NewBufferSink([]byte("old\n"))

	exists, err := sink.Exists()
	require.NoError(t, err)
	job := NewJob(people, 10, 1, exists)
	require.False(t, job.EmitHeader)

	_, err = Write(job, m, sink)
	require.NoError(t, err)
	assert.Equal(t, "old\n30,Ann\n41,Bo\n", string(sink.Bytes()))
}

func TestWrite_PaddingLaw(t *testing.T) {
	m := personMapping(t)
	for k := -1; k <= 6; k++ {
		sink := &BufferSink{}
		job := Job[person]{RowStartIndex: k, RowLimit: NoLimit}
		_, err := Write(job, m, sink)
		require.NoError(t, err)

		body := strings.TrimPrefix(string(sink.Bytes()), string(BOM))
		want := 0
		if k >= 2 {
			want = k - 2
		}
		assert.Equal(t, strings.Repeat("\n", want), body, "rowStartIndex=%d", k)
	}
}

func TestWrite_HeaderLaw(t *testing.T) {
	cases := []struct {
		exists   bool
		rowStart int
		want     bool
	}{
		{false, 0, false},
		{false, 1, false},
		{false, 2, true},
		{false, 9, true},
		{true, 1, false},
		{true, 2, false},
		{true, 9, false},
	}
	m := personMapping(t)
	for _, tc := range cases {
		job := NewJob(people, NoLimit, tc.rowStart, tc.exists)
		assert.Equal(t, tc.want, job.EmitHeader, "%+v", tc)

		var sink *BufferSink
		if tc.exists {
			sink = NewBufferSink(nil)
		} else {
			sink = &BufferSink{}
		}
		_, err := Write(job, m, sink)
		require.NoError(t, err)
		assert.Equal(t, tc.want, bytes.Contains(sink.Bytes(), []byte("age,name\n")), "%+v", tc)
		assert.Equal(t, !tc.exists, bytes.HasPrefix(sink.Bytes(), BOM), "%+v", tc)
	}
}

func TestWrite_RowLimitLaw(t *testing.T) {
	m := personMapping(t)
	recs := make([]person, 5)
	for i := range recs {
		recs[i] = person{Name: "p", Age: i}
	}
	for _, limit := range []int{NoLimit, 0, 1, 3, 5, 8} {
		sink := NewBufferSink(nil)
		res, err := Write(NewJob(recs, limit, 1, true), m, sink)
		require.NoError(t, err)

		want := len(recs)
		if limit >= 0 && limit < want {
			want = limit
		}
		assert.Equal(t, want, res.Rows, "limit=%d", limit)
		assert.Equal(t, want, strings.Count(string(sink.Bytes()), "\n"), "limit=%d", limit)
	}
}

// failingSink fails writes after budget bytes and records closes.
type failingSink struct {
	openErr error
	budget  int
	closed  int
	written bytes.Buffer
}

func (s *failingSink) Exists() (bool, error) { return false, nil }

func (s *failingSink) Open(bool) (io.WriteCloser, error) {
	if s.openErr != nil {
		return nil, s.openErr
	}
	return s, nil
}

func (s *failingSink) Write(p []byte) (int, error) {
	if s.written.Len()+len(p) > s.budget {
		return 0, errors.New("disk full")
	}
	return s.written.Write(p)
}

func (s *failingSink) Close() error { s.closed++; return nil }

func TestWrite_OpenFailure(t *testing.T) {
	sink := &failingSink{openErr: os.ErrPermission}
	_, err := Write(NewJob(people, NoLimit, 1, false), personMapping(t), sink)

	var wf *WriteFailure
	require.ErrorAs(t, err, &wf)
	assert.Equal(t, PhaseOpen, wf.Phase)
	assert.ErrorIs(t, err, os.ErrPermission)
}

func TestWrite_IOFailureClosesSink(t *testing.T) {
	// bufio only reaches the sink on flush, so the failure surfaces there.
	sink := &failingSink{budget: 2}
	_, err := Write(NewJob(people, NoLimit, 3, false), personMapping(t), sink)

	var wf *WriteFailure
	require.ErrorAs(t, err, &wf)
	assert.Equal(t, PhaseFlush, wf.Phase)
	assert.EqualError(t, wf.Err, "disk full")
	assert.Equal(t, 1, sink.closed)
}

func TestWrite_RenderFailureStillCloses(t *testing.T) {
	m := personMapping(t)
	sink := &failingSink{budget: 1 << 20}

	// A record of the wrong type cannot be rendered.
	job := Job[any]{Records: []any{people[0], struct{}{}}, RowLimit: NoLimit, RowStartIndex: 1}
	_, err := Write(job, m, sink)

	var fae *rowcodec.FieldAccessError
	require.ErrorAs(t, err, &fae)
	assert.Equal(t, 1, sink.closed)
	// The first row was flushed before the failure and stays.
	assert.Equal(t, "\xEF\xBB\xBF30,Ann\n", sink.written.String())
}

func TestWriteFile_CreateThenAppend(t *testing.T) {
	path := filepath.Join(t.TempDir(), "people.csv")
	opt := Options{RowStartIndex: 3, RowLimit: NoLimit, Lock: true}

	_, err := WriteFile(path, people[:1], opt)
	require.NoError(t, err)
	_, err = WriteFile(path, people[1:], opt)
	require.NoError(t, err)

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "\xEF\xBB\xBF\nage,name\n30,Ann\n\n41,Bo\n", string(got))
}

func TestWriteFile_UnsupportedTypeWritesNothing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.csv")
	_, err := WriteFile(path, []broken{{Name: "x"}}, Options{RowStartIndex: 1, Resolver: column.NewResolver(nil)})

	var ute *adapter.UnsupportedTypeError
	require.ErrorAs(t, err, &ute)
	_, statErr := os.Stat(path)
	assert.True(t, errors.Is(statErr, os.ErrNotExist))
}

func TestFileSink_TruncateAndAppend(t *testing.T) {
	path := filepath.Join(t.TempDir(), "s.csv")
	require.NoError(t, os.WriteFile(path, []byte("previous content\n"), 0o644))
	s := &FileSink{Path: path}

	ok, err := s.Exists()
	require.NoError(t, err)
	require.True(t, ok)

	w, err := s.Open(true)
	require.NoError(t, err)
	_, _ = io.WriteString(w, "more\n")
	require.NoError(t, w.Close())

	got, _ := os.ReadFile(path)
	assert.Equal(t, "previous content\nmore\n", string(got))

	w, err = s.Open(false)
	require.NoError(t, err)
	_, _ = io.WriteString(w, "fresh\n")
	require.NoError(t, w.Close())

	got, _ = os.ReadFile(path)
	assert.Equal(t, "fresh\n", string(got))
}
