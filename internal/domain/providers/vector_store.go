package providers

// VectorStore is read-only access to precomputed keyword embeddings
type VectorStore interface {
	Len() int
	Dimensions() int
	Keyword(i int) string
	// Vector returns the i-th embedding and its Euclidean norm. The slice
	// must not be modified.
	Vector(i int) ([]float32, float64)
}
