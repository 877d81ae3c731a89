package sparse

import "testing"

func TestVectorDot(t *testing.T) {
	v := Vector{Dim: 4, Indices: []int{0, 2}, Values: []float64{1.5, -2}}

	tests := []struct {
		name string
		w    []float64
		want float64
	}{
		{"zero weights", []float64{0, 0, 0, 0}, 0},
		{"unit weights", []float64{1, 1, 1, 1}, -0.5},
		{"short weights ignore tail", []float64{2}, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := v.Dot(tt.w); got != tt.want {
				t.Errorf("Dot() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestVectorAddScaledTo(t *testing.T) {
	v := Vector{Dim: 3, Indices: []int{1, 2}, Values: []float64{1, 2}}
	dst := []float64{1, 1, 1}

	v.AddScaledTo(dst, 0.5)

	want := []float64{1, 1.5, 2}
	for i := range want {
		if dst[i] != want[i] {
			t.Errorf("dst[%d] = %v, want %v", i, dst[i], want[i])
		}
	}
}

func TestVectorNNZ(t *testing.T) {
	v := Vector{Dim: 3, Indices: []int{2}, Values: []float64{7}}
	if v.NNZ() != 1 {
		t.Errorf("NNZ() = %d, want 1", v.NNZ())
	}
}
