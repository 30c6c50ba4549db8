package rowcodec

import (
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sheetmap/pkg/adapter"
	"sheetmap/pkg/column"
)

type person struct {
	Name string `sheet:"1,name=name"`
	Age  int    `sheet:"0,name=age"`
}

type vehicle struct {
	PCV      int        `sheet:"0,name=pcv"`
	Owner    *string    `sheet:"1,name=owner"`
	Weight   *float64   `sheet:"2,name=weight"`
	Active   bool       `sheet:"3,name=active,adapter=bool.digit"`
	Since    *time.Time `sheet:"4,name=since,adapter=date.dmy"`
	Internal string
}

type Meta struct {
	Source string `sheet:"9,name=source"`
}

type tagged struct {
	*Meta
	ID int `sheet:"0,name=id"`
}

type level int

type levelAdapter struct{}

func (levelAdapter) Parse(s string) (any, error) {
	n, err := strconv.Atoi(s[1:])
	return level(n), err
}

func (levelAdapter) Format(v any) (string, error) { return "L" + strconv.Itoa(int(v.(level))), nil }

type ranked struct {
	Name  string `sheet:"0"`
	Level level  `sheet:"1,adapter=level"`
}

func mapping[T any](t *testing.T) *column.Mapping {
	t.Helper()
	m, err := column.For[T](column.NewResolver(nil))
	require.NoError(t, err)
	return m
}

func TestRenderHeaderAndRow(t *testing.T) {
	m := mapping[person](t)

	assert.Equal(t, "age,name\n", RenderHeader(m))

	row, err := RenderRow(person{Name: "Ann", Age: 30}, m)
	require.NoError(t, err)
	assert.Equal(t, "30,Ann\n", row)

	row, err = RenderRow(&person{Name: "Bo", Age: 41}, m)
	require.NoError(t, err)
	assert.Equal(t, "41,Bo\n", row)
}

func TestRenderRow_AbsentValuesAreEmpty(t *testing.T) {
	m := mapping[vehicle](t)

	row, err := RenderRow(vehicle{PCV: 7, Active: true, Internal: "x"}, m)
	require.NoError(t, err)
	assert.Equal(t, "7,,,1,\n", row)
}

func TestRenderRow_NoEscaping(t *testing.T) {
	m := mapping[person](t)
	row, err := RenderRow(person{Name: "Doe, John", Age: 1}, m)
	require.NoError(t, err)
	assert.Equal(t, "1,Doe, John\n", row)

	// Reading it back sees one cell too many.
	_, err = ParseRow[person](row, m)
	var fce *FieldCountError
	require.ErrorAs(t, err, &fce)
	assert.Equal(t, 3, fce.Got)
}

func TestRoundTrip(t *testing.T) {
	m := mapping[vehicle](t)
	owner := "Jana Nováková"
	weight := 1234.5
	since := time.Date(2019, 4, 30, 0, 0, 0, 0, time.UTC)

	cases := []vehicle{
		{PCV: 1},
		{PCV: 2, Owner: &owner, Weight: &weight, Active: true, Since: &since},
		{PCV: -3, Weight: new(float64)},
	}
	for _, in := range cases {
		row, err := RenderRow(in, m)
		require.NoError(t, err)

		out, err := ParseRow[vehicle](row, m)
		require.NoError(t, err, row)
		assert.Equal(t, in, out, row)
	}
}

func TestRoundTrip_CustomAdapterForNamedType(t *testing.T) {
	reg := adapter.NewRegistry()
	reg.MustRegister("level", func() adapter.Adapter { return levelAdapter{} })
	m, err := column.For[ranked](column.NewResolver(reg))
	require.NoError(t, err)

	row, err := RenderRow(ranked{Name: "x", Level: 4}, m)
	require.NoError(t, err)
	assert.Equal(t, "x,L4\n", row)

	back, err := ParseRow[ranked](row, m)
	require.NoError(t, err)
	assert.Equal(t, ranked{Name: "x", Level: 4}, back)
}

func TestParseRow_ShortRowAndCRLF(t *testing.T) {
	m := mapping[vehicle](t)

	v, err := ParseRow[vehicle]("12,Eva\r\n", m)
	require.NoError(t, err)
	require.NotNil(t, v.Owner)
	assert.Equal(t, "Eva", *v.Owner)
	assert.Equal(t, 12, v.PCV)
	assert.Nil(t, v.Weight)
	assert.Nil(t, v.Since)
}

func TestParseRow_AdapterFailure(t *testing.T) {
	m := mapping[person](t)
	_, err := ParseRow[person]("thirty,Ann\n", m)

	var pe *ParseError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, 0, pe.Column)
	assert.Equal(t, "Age", pe.Field)
	assert.Equal(t, "thirty", pe.Cell)
}

func TestEmbeddedPointer(t *testing.T) {
	m := mapping[tagged](t)
	assert.Equal(t, []string{"id", "source"}, m.Names())

	_, err := RenderRow(tagged{ID: 1}, m)
	var fae *FieldAccessError
	require.ErrorAs(t, err, &fae)
	assert.Equal(t, "Source", fae.Field)

	got, err := ParseRow[tagged]("1,registry\n", m)
	require.NoError(t, err)
	require.NotNil(t, got.Meta)
	assert.Equal(t, "registry", got.Source)
}

func TestRender_BadRecords(t *testing.T) {
	m := mapping[person](t)

	var nilRec *person
	_, err := RenderRow(nilRec, m)
	var fae *FieldAccessError
	assert.ErrorAs(t, err, &fae)

	_, err = RenderRow(vehicle{}, m)
	assert.ErrorAs(t, err, &fae)

	_, err = RenderRow(nil, m)
	assert.ErrorAs(t, err, &fae)

	assert.Error(t, ParseRowInto("1,a", m, person{}))
}

func TestAssign_DriverValues(t *testing.T) {
	m := mapping[vehicle](t)
	since := time.Date(2020, 1, 2, 0, 0, 0, 0, time.UTC)

	var v vehicle
	err := Assign(&v, m, []any{int64(42), []byte("Petr"), "7.5", int64(1), since})
	require.NoError(t, err)

	assert.Equal(t, 42, v.PCV)
	assert.Equal(t, "Petr", *v.Owner)
	assert.Equal(t, 7.5, *v.Weight)
	assert.True(t, v.Active)
	assert.Equal(t, since, *v.Since)

	err = Assign(&v, m, []any{struct{}{}})
	var fae *FieldAccessError
	assert.ErrorAs(t, err, &fae)
}

func TestValues(t *testing.T) {
	m := mapping[vehicle](t)
	owner := "Ann"

	got, err := Values(vehicle{PCV: 5, Owner: &owner}, m)
	require.NoError(t, err)
	assert.Equal(t, []any{5, "Ann", nil, false, nil}, got)
}
