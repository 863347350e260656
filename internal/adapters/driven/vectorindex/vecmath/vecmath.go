// Package vecmath holds the exact similarity arithmetic and batch validation
// shared by the vector index backends and the embedding adapters.
package vecmath

import (
	"fmt"
	"math"
	"regexp"
	"sort"

	"github.com/custodia-labs/codeassist/internal/core/domain"
)

// normEpsilon keeps Normalize finite for zero vectors.
const normEpsilon = 1e-12

var fieldPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Normalize returns a copy of v scaled to unit L2 norm.
func Normalize(v []float32) []float32 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	norm := math.Sqrt(sum) + normEpsilon

	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = float32(float64(x) / norm)
	}
	return out
}

// Dot returns the dot product of a and b. Both must have the same length.
func Dot(a, b []float32) float64 {
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}

// ValidateBatch checks that the parallel slices of an AddMany call line up and
// that every vector has the index dimensionality. A dim of zero adopts the
// width of the first vector. It returns the resulting dimensionality.
func ValidateBatch(ids []string, vectors [][]float32, texts []string, metadatas []map[string]any, dim int) (int, error) {
	n := len(ids)
	if len(vectors) != n || len(texts) != n || len(metadatas) != n {
		return dim, fmt.Errorf("%w: %d ids, %d vectors, %d texts, %d metadatas",
			domain.ErrInvalidInput, n, len(vectors), len(texts), len(metadatas))
	}
	for i, v := range vectors {
		if ids[i] == "" {
			return dim, fmt.Errorf("%w: empty id at position %d", domain.ErrInvalidInput, i)
		}
		if len(v) == 0 {
			return dim, fmt.Errorf("%w: empty vector for %s", domain.ErrInvalidInput, ids[i])
		}
		if dim == 0 {
			dim = len(v)
		}
		if len(v) != dim {
			return dim, fmt.Errorf("%w: %s has %d dimensions, index has %d",
				domain.ErrDimensionMismatch, ids[i], len(v), dim)
		}
	}
	return dim, nil
}

// CheckQuery validates a query vector against the index dimensionality.
// An index that has not seen a vector yet accepts any width.
func CheckQuery(query []float32, dim int) error {
	if len(query) == 0 {
		return fmt.Errorf("%w: empty query vector", domain.ErrInvalidInput)
	}
	if dim != 0 && len(query) != dim {
		return fmt.Errorf("%w: query has %d dimensions, index has %d",
			domain.ErrDimensionMismatch, len(query), dim)
	}
	return nil
}

// ValidField reports whether name is safe to splice into a metadata path or expression.
func ValidField(name string) bool {
	return fieldPattern.MatchString(name)
}

// Scored is a candidate position with its similarity.
type Scored struct {
	Pos   int
	Score float64
}

// TopK orders candidates by descending score and keeps at most k.
// Equal scores keep their insertion order.
func TopK(candidates []Scored, k int) []Scored {
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Score > candidates[j].Score
	})
	if k < len(candidates) {
		candidates = candidates[:k]
	}
	return candidates
}

// Matches reports whether metadata[field] equals value. Numbers compare by
// value so that an int survives a JSON round trip as float64.
func Matches(metadata map[string]any, field string, value any) bool {
	got, ok := metadata[field]
	if !ok {
		return false
	}
	if a, aok := toFloat(got); aok {
		if b, bok := toFloat(value); bok {
			return a == b
		}
		return false
	}
	if s, ok := got.(string); ok {
		v, vok := value.(string)
		return vok && s == v
	}
	return fmt.Sprint(got) == fmt.Sprint(value)
}

// CopyMetadata returns a shallow copy of m, never nil.
func CopyMetadata(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}
