package embed

import "math"

func norm(v []float32) float64 {
	return math.Sqrt(dot(v, v))
}

func dot(a, b []float32) float64 {
	var s float64
	for i := range min(len(a), len(b)) {
		s += float64(a[i]) * float64(b[i])
	}
	return s
}

// similarity is the cosine of two vectors, 0 when either is zero.
func similarity(a, b []float32) float64 {
	na, nb := norm(a), norm(b)
	if len(a) != len(b) || na == 0 || nb == 0 {
		return 0
	}
	return dot(a, b) / (na * nb)
}
