package vecmath

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/codeassist/internal/core/domain"
)

func TestNormalize(t *testing.T) {
	v := Normalize([]float32{3, 4})
	assert.InDelta(t, 0.6, v[0], 1e-6)
	assert.InDelta(t, 0.8, v[1], 1e-6)
	assert.InDelta(t, 1.0, Dot(v, v), 1e-6)
}

func TestNormalize_ZeroVector(t *testing.T) {
	v := Normalize([]float32{0, 0, 0})
	for _, x := range v {
		assert.False(t, math.IsNaN(float64(x)))
		assert.Zero(t, x)
	}
}

func TestNormalize_DoesNotMutateInput(t *testing.T) {
	in := []float32{2, 0}
	_ = Normalize(in)
	assert.Equal(t, []float32{2, 0}, in)
}

func TestValidateBatch(t *testing.T) {
	meta := []map[string]any{{}}

	tests := []struct {
		name    string
		ids     []string
		vectors [][]float32
		texts   []string
		metas   []map[string]any
		dim     int
		wantDim int
		wantErr error
	}{
		{"adopts first width", []string{"a"}, [][]float32{{1, 2, 3}}, []string{"t"}, meta, 0, 3, nil},
		{"matching width", []string{"a"}, [][]float32{{1, 2}}, []string{"t"}, meta, 2, 2, nil},
		{"wrong width", []string{"a"}, [][]float32{{1, 2}}, []string{"t"}, meta, 3, 3, domain.ErrDimensionMismatch},
		{"length mismatch", []string{"a", "b"}, [][]float32{{1}}, []string{"t"}, meta, 0, 0, domain.ErrInvalidInput},
		{"empty id", []string{""}, [][]float32{{1}}, []string{"t"}, meta, 0, 0, domain.ErrInvalidInput},
		{"empty vector", []string{"a"}, [][]float32{{}}, []string{"t"}, meta, 0, 0, domain.ErrInvalidInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dim, err := ValidateBatch(tt.ids, tt.vectors, tt.texts, tt.metas, tt.dim)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantDim, dim)
		})
	}
}

func TestValidateBatch_MixedWidths(t *testing.T) {
	_, err := ValidateBatch(
		[]string{"a", "b"},
		[][]float32{{1, 0}, {1, 0, 0}},
		[]string{"x", "y"},
		[]map[string]any{nil, nil},
		0,
	)
	assert.ErrorIs(t, err, domain.ErrDimensionMismatch)
}

func TestCheckQuery(t *testing.T) {
	assert.NoError(t, CheckQuery([]float32{1}, 0))
	assert.NoError(t, CheckQuery([]float32{1, 2}, 2))
	assert.ErrorIs(t, CheckQuery([]float32{1}, 2), domain.ErrDimensionMismatch)
	assert.ErrorIs(t, CheckQuery(nil, 2), domain.ErrInvalidInput)
}

func TestValidField(t *testing.T) {
	for _, ok := range []string{"doc_id", "path", "chunk_index", "_x", "Type2"} {
		assert.True(t, ValidField(ok), ok)
	}
	for _, bad := range []string{"", "1abc", "doc-id", "a.b", "x'; DROP TABLE", "$.path"} {
		assert.False(t, ValidField(bad), bad)
	}
}

func TestTopK(t *testing.T) {
	got := TopK([]Scored{{0, 0.1}, {1, 0.9}, {2, 0.5}, {3, 0.9}}, 3)
	require.Len(t, got, 3)
	assert.Equal(t, 1, got[0].Pos)
	assert.Equal(t, 3, got[1].Pos, "ties keep insertion order")
	assert.Equal(t, 2, got[2].Pos)

	assert.Len(t, TopK([]Scored{{0, 1}}, 10), 1)
}

func TestMatches(t *testing.T) {
	meta := map[string]any{
		"doc_id":      "abc",
		"chunk_index": float64(3),
		"flag":        true,
	}

	tests := []struct {
		name  string
		field string
		value any
		want  bool
	}{
		{"string equal", "doc_id", "abc", true},
		{"string differs", "doc_id", "abd", false},
		{"int matches float", "chunk_index", 3, true},
		{"number vs string", "chunk_index", "3", false},
		{"missing field", "path", "abc", false},
		{"bool", "flag", true, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Matches(meta, tt.field, tt.value))
		})
	}
}

func TestCopyMetadata(t *testing.T) {
	src := map[string]any{"a": 1}
	dst := CopyMetadata(src)
	dst["b"] = 2
	assert.NotContains(t, src, "b")
	assert.NotNil(t, CopyMetadata(nil))
}
