package riskheader

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleDescriptor = "uuid=964d54b7-0821-413a-a4d6-8131770ec8d5;requestid=135a5cdc;status=0;score=50;" +
	"risk=unp:432/H|ugp:ie/M;trust=utp:weekday_1|udfp:be44fff67b66ec7b;general=aci:T;allow=0;action=none"

func TestParse_ScalarAndNested(t *testing.T) {
	d := Parse("k1=v1;k2=a:1|b:2")

	require.Equal(t, 2, d.Len())
	v, ok := d.Scalar("k1")
	require.True(t, ok)
	assert.Equal(t, "v1", v)

	nested, ok := d.Nested("k2")
	require.True(t, ok)
	assert.Equal(t, map[string]string{"a": "1", "b": "2"}, nested)
}

func TestParse_EmptyInput(t *testing.T) {
	for _, raw := range []string{"", "   "} {
		d := Parse(raw)
		assert.Equal(t, 0, d.Len())
		assert.Empty(t, d.Fields())
		_, ok := d.Get(FieldScore)
		assert.False(t, ok)
	}

	var zero Descriptor
	_, ok := zero.Scalar(FieldScore)
	assert.False(t, ok)
}

func TestParse_SampleDescriptor(t *testing.T) {
	d := Parse(sampleDescriptor)

	keys := make([]string, 0, d.Len())
	for _, f := range d.Fields() {
		keys = append(keys, f.Key)
	}
	assert.Equal(t, []string{
		FieldUUID, FieldRequestID, FieldStatus, FieldScore, FieldRisk,
		FieldTrust, FieldGeneral, FieldAllow, FieldAction,
	}, keys)

	risk, ok := d.Nested(FieldRisk)
	require.True(t, ok)
	assert.Equal(t, map[string]string{"unp": "432/H", "ugp": "ie/M"}, risk)

	// a single sub-clause without "|" stays scalar
	general, ok := d.Scalar(FieldGeneral)
	require.True(t, ok)
	assert.Equal(t, "aci:T", general)

	score, ok := d.Score()
	require.True(t, ok)
	assert.Equal(t, 50.0, score)
}

func TestParse_MalformedClauses(t *testing.T) {
	t.Run("clause without separator is dropped", func(t *testing.T) {
		d := Parse("orphan;score=10;;=nokey")
		assert.Equal(t, 1, d.Len())
		_, ok := d.Get("orphan")
		assert.False(t, ok)
	})

	t.Run("value split on first separator only", func(t *testing.T) {
		d := Parse("action=a=b")
		v, ok := d.Scalar(FieldAction)
		require.True(t, ok)
		assert.Equal(t, "a=b", v)
	})

	t.Run("sub-clause without separator is dropped", func(t *testing.T) {
		d := Parse("trust=utp:x|junk|udfp:a:b")
		nested, ok := d.Nested(FieldTrust)
		require.True(t, ok)
		assert.Equal(t, map[string]string{"utp": "x", "udfp": "a:b"}, nested)
	})

	t.Run("repeated key keeps position and takes last value", func(t *testing.T) {
		d := Parse("score=10;allow=1;score=90")
		require.Equal(t, 2, d.Len())
		assert.Equal(t, FieldScore, d.Fields()[0].Key)
		score, ok := d.Score()
		require.True(t, ok)
		assert.Equal(t, 90.0, score)
	})

	t.Run("unknown keys pass through", func(t *testing.T) {
		d := Parse("vendor=x")
		v, ok := d.Scalar("vendor")
		require.True(t, ok)
		assert.Equal(t, "x", v)
	})
}

func TestDescriptor_Score(t *testing.T) {
	tests := []struct {
		raw  string
		want float64
		ok   bool
	}{
		{"score=85", 85, true},
		{"score= 30 ", 30, true},
		{"score=12.5", 12.5, true},
		{"score=high", 0, false},
		{"score=a:1|b:2", 0, false},
		{"status=0", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, ok := Parse(tt.raw).Score()
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestField_Map(t *testing.T) {
	assert.Nil(t, Field{Key: "k", Scalar: "v"}.Map())
	assert.Equal(t, map[string]string{"a": "1"}, Field{Key: "k", Nested: []Pair{{Key: "a", Value: "1"}}}.Map())
}
