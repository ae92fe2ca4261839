package coerce

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"ingestor/internal/batch"
)

func TestToIntFromNumericString(t *testing.T) {
	v := To("40", batch.Int, DefaultFallback())
	assert.False(t, v.Null)
	assert.Equal(t, int64(40), v.I)
}

func TestToFloatFromNestedLikeString(t *testing.T) {
	v := To("40.1", batch.Float, DefaultFallback())
	assert.False(t, v.Null)
	assert.InDelta(t, 40.1, v.F, 1e-9)
}

func TestToStringFoldsNullTokens(t *testing.T) {
	for _, tok := range []string{"None", "NAN", "null", "Nil"} {
		v := To(tok, batch.String, DefaultFallback())
		assert.True(t, v.Null, "expected %q to fold to null", tok)
	}
}

func TestToFallsBackOnFailure(t *testing.T) {
	v := To("not-a-number", batch.Int, DefaultFallback())
	assert.True(t, v.Null)

	fallback := int64(-1)
	v = To("not-a-number", batch.Int, Fallback{Int: &fallback})
	assert.False(t, v.Null)
	assert.Equal(t, int64(-1), v.I)
}

func TestToBoolDefaultsFalseNotNull(t *testing.T) {
	v := To("garbage", batch.Bool, DefaultFallback())
	assert.False(t, v.Null)
	assert.False(t, v.B)
}

func TestToNilRawIsCoercionFailure(t *testing.T) {
	v := To(nil, batch.Int, DefaultFallback())
	assert.True(t, v.Null)
}

func TestCastWithFormatUnparseableIsNull(t *testing.T) {
	v := CastWithFormat(batch.StringValue("not-a-date"), "2006-01-02")
	assert.True(t, v.Null)

	v = CastWithFormat(batch.StringValue("2021-04-19"), "2006-01-02")
	assert.False(t, v.Null)
	assert.Equal(t, 2021, v.T.Year())
}
