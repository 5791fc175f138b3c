package domain

// Embedding представляет эмбеддинг одного изображения каталога.
// Vector имеет фиксированную размерность, единую для всей таблицы векторов.
type Embedding struct {
	ProductID string
	Vector    []float32
}

func NewEmbedding(productID string, vector []float32) *Embedding {
	return &Embedding{
		ProductID: productID,
		Vector:    vector,
	}
}
