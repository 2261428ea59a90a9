package utils

import "math"

// Norm returns the Euclidean length of v
func Norm(v []float32) float64 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return math.Sqrt(sum)
}

// Cosine returns the cosine similarity of a and b given their norms. It is 0
// for zero vectors or mismatched lengths.
func Cosine(a []float32, normA float64, b []float32, normB float64) float64 {
	if len(a) != len(b) || normA == 0 || normB == 0 {
		return 0
	}
	var dot float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}
	sim := dot / (normA * normB)
	if math.IsNaN(sim) {
		return 0
	}
	return sim
}

// Similarity maps cosine similarity onto [0,1] by clamping; opposite and
// orthogonal vectors both score 0.
func Similarity(cosine float64) float64 {
	return math.Min(math.Max(cosine, 0), 1)
}
