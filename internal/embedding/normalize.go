package embedding

import (
	"fmt"
	"math"

	appErr "github.com/clipdex/clipdex/internal/pkg/errors"
)

// Normalize scales v to Euclidean norm 1 in place and returns it. Every
// vector handed to the index must pass through here; a zero-norm vector is
// an invariant violation from the model and is rejected rather than divided.
func Normalize(v []float32) ([]float32, error) {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	norm := math.Sqrt(sum)
	if norm == 0 {
		return nil, fmt.Errorf("normalize %d-dim vector: %w", len(v), appErr.ErrZeroVector)
	}
	inv := float32(1 / norm)
	for i := range v {
		v[i] *= inv
	}
	return v, nil
}
