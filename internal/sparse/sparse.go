// Package sparse provides the sparse feature vector shared by the vectorizer and the linear model.
package sparse

// Vector is a sparse vector of fixed dimension. Indices are strictly increasing
// and each index has a matching entry in Values.
type Vector struct {
	Dim     int
	Indices []int
	Values  []float64
}

// Dot returns the dot product of v with a dense weight slice.
// Indices beyond len(w) are ignored.
func (v Vector) Dot(w []float64) float64 {
	var sum float64
	for i, idx := range v.Indices {
		if idx < len(w) {
			sum += v.Values[i] * w[idx]
		}
	}
	return sum
}

// AddScaledTo adds alpha*v into the dense slice dst.
func (v Vector) AddScaledTo(dst []float64, alpha float64) {
	for i, idx := range v.Indices {
		if idx < len(dst) {
			dst[idx] += alpha * v.Values[i]
		}
	}
}

// NNZ returns the number of stored entries.
func (v Vector) NNZ() int {
	return len(v.Indices)
}
