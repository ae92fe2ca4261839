package batch

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBatchAddColumnAndRows(t *testing.T) {
	b := New()
	require.NoError(t, b.AddColumn("id", Int, []Value{IntValue(1), IntValue(2)}))
	require.NoError(t, b.AddColumn("name", String, []Value{StringValue("a"), StringValue("b")}))
	assert.Equal(t, 2, b.NumRows())
	assert.Equal(t, []string{"id", "name"}, b.ColumnNames())

	err := b.AddColumn("bad", Int, []Value{IntValue(1)})
	assert.Error(t, err)
}

func TestDropDuplicatesKeepFirstVsLast(t *testing.T) {
	b := New()
	require.NoError(t, b.AddColumn("id", Int, []Value{IntValue(1), IntValue(1), IntValue(2)}))
	require.NoError(t, b.AddColumn("v", String, []Value{StringValue("first"), StringValue("second"), StringValue("only")}))

	first, err := b.DropDuplicates([]string{"id"}, false)
	require.NoError(t, err)
	assert.Equal(t, 2, first.NumRows())
	assert.Equal(t, "first", first.Column("v").Values[0].S)

	last, err := b.DropDuplicates([]string{"id"}, true)
	require.NoError(t, err)
	assert.Equal(t, 2, last.NumRows())
	assert.Equal(t, "second", last.Column("v").Values[0].S)
}

func TestDropDuplicatesIsIdempotent(t *testing.T) {
	b := New()
	require.NoError(t, b.AddColumn("id", Int, []Value{IntValue(1), IntValue(1), IntValue(2)}))
	once, err := b.DropDuplicates(nil, false)
	require.NoError(t, err)
	twice, err := once.DropDuplicates(nil, false)
	require.NoError(t, err)
	assert.Equal(t, once.NumRows(), twice.NumRows())
}

func TestDropNaTwiceEqualsOnce(t *testing.T) {
	b := New()
	require.NoError(t, b.AddColumn("id", Int, []Value{IntValue(1), NullValue(Int), IntValue(3)}))
	once, err := b.DropNA([]string{"id"})
	require.NoError(t, err)
	twice, err := once.DropNA([]string{"id"})
	require.NoError(t, err)
	assert.Equal(t, 2, once.NumRows())
	assert.Equal(t, once.NumRows(), twice.NumRows())
}

func TestConcatPreservesOrderAndRowCounts(t *testing.T) {
	a := New()
	require.NoError(t, a.AddColumn("id", Int, []Value{IntValue(1)}))
	c := New()
	require.NoError(t, c.AddColumn("id", Int, []Value{IntValue(2), IntValue(3)}))

	out, err := Concat(a, New(), c)
	require.NoError(t, err)
	assert.Equal(t, 3, out.NumRows())
	assert.Equal(t, int64(1), out.Column("id").Values[0].I)
	assert.Equal(t, int64(2), out.Column("id").Values[1].I)
	assert.Equal(t, int64(3), out.Column("id").Values[2].I)
}

func TestMergeLeftFillsNullOnMiss(t *testing.T) {
	left := New()
	require.NoError(t, left.AddColumn("ticker", String, []Value{StringValue("AAA"), StringValue("BBB")}))
	right := New()
	require.NoError(t, right.AddColumn("ticker", String, []Value{StringValue("AAA")}))
	require.NoError(t, right.AddColumn("sector", String, []Value{StringValue("Tech")}))

	merged, err := left.MergeLeft(right, "ticker")
	require.NoError(t, err)
	sector := merged.Column("sector")
	assert.Equal(t, "Tech", sector.Values[0].S)
	assert.True(t, sector.Values[1].Null)
}
