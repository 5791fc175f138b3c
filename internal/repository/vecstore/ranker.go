package vecstore

import (
	"math"
	"sort"

	"github.com/DRSN-tech/visual-search/internal/usecase"
	"github.com/DRSN-tech/visual-search/pkg/e"
)

// Search считает косинусную близость запроса к каждой записи снимка,
// отбрасывает записи ниже порога и возвращает topK лучших.
//
// Порог — сырое значение косинуса в [-1, 1]; значения вне диапазона
// молча приводятся к границе. Равные близости сохраняют порядок каталога
// (стабильная сортировка), поэтому результат детерминирован.
func (snap *Snapshot) Search(query []float32, threshold float64, topK int) ([]usecase.RankedProduct, error) {
	const op = "Snapshot.Search"

	if len(query) == 0 {
		return nil, e.Wrap(op, e.ErrEmptyVector)
	}
	if len(query) != snap.dim {
		return nil, e.Wrap(op, e.ErrDimensionMismatch)
	}

	threshold = clamp(threshold, -1, 1)

	// Записи снимка единичной длины, запрос нормализуется здесь:
	// косинус сводится к скалярному произведению.
	q := L2Normalize(query)

	matches := make([]usecase.RankedProduct, 0, len(snap.records))
	for i, rec := range snap.records {
		// Нулевой вектор (запроса или записи) даёт произведение 0 —
		// деления на нулевую норму не возникает
		sim := float64(Dot(q, rec.vector))
		if sim < threshold {
			continue
		}

		matches = append(matches, usecase.RankedProduct{
			Product:    snap.products[i],
			Similarity: sim,
		})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Similarity > matches[j].Similarity
	})

	if topK > 0 && len(matches) > topK {
		matches = matches[:topK]
	}

	return matches, nil
}

// Dot возвращает скалярное произведение векторов одинаковой длины.
func Dot(a, b []float32) float32 {
	var sum float32
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}

// Norm возвращает евклидову норму вектора.
func Norm(v []float32) float32 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return float32(math.Sqrt(sum))
}

// L2Normalize возвращает вектор единичной длины.
// Нулевой вектор возвращается копией без изменений.
func L2Normalize(v []float32) []float32 {
	out := make([]float32, len(v))
	norm := Norm(v)
	if norm == 0 {
		copy(out, v)
		return out
	}

	for i, x := range v {
		out[i] = x / norm
	}
	return out
}

func clamp(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}
