package vecstore

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/DRSN-tech/visual-search/internal/cfg"
	"github.com/DRSN-tech/visual-search/internal/domain"
	"github.com/DRSN-tech/visual-search/internal/repository/vecstore/artifact"
	"github.com/DRSN-tech/visual-search/pkg/e"
	"github.com/DRSN-tech/visual-search/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeArtifacts(t *testing.T, dir string, embeddings []domain.Embedding, products []domain.Product) *cfg.StoreCfg {
	t.Helper()

	storeCfg := &cfg.StoreCfg{
		VectorsPath:  filepath.Join(dir, "embeddings.vec"),
		ProductsPath: filepath.Join(dir, "products.csv"),
	}
	require.NoError(t, artifact.WriteVectors(storeCfg.VectorsPath, len(embeddings[0].Vector), embeddings))
	require.NoError(t, artifact.WriteProducts(storeCfg.ProductsPath, products))
	return storeCfg
}

func testProduct(id string) domain.Product {
	return *domain.NewProduct(id, "product "+id, "shoes", "acme", 100, "RUB", true, "", id+".jpg")
}

func TestStoreLoadAndSearch(t *testing.T) {
	storeCfg := writeArtifacts(t, t.TempDir(),
		[]domain.Embedding{
			*domain.NewEmbedding("p1", []float32{1, 0}),
			*domain.NewEmbedding("p2", []float32{0, 1}),
		},
		[]domain.Product{testProduct("p1"), testProduct("p2")},
	)

	store := NewStore(storeCfg, logger.NewSlogLogger())
	assert.False(t, store.Ready())
	assert.Zero(t, store.Len())

	require.NoError(t, store.Load())
	assert.True(t, store.Ready())
	assert.Equal(t, 2, store.Len())

	dim, err := store.Dim()
	require.NoError(t, err)
	assert.Equal(t, 2, dim)

	matches, err := store.Search([]float32{1, 0}, 0.5, 10)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "p1", matches[0].Product.ID)

	products, err := store.Products()
	require.NoError(t, err)
	assert.Len(t, products, 2)
}

func TestStoreBeforeLoadReturnsUnavailable(t *testing.T) {
	store := NewStore(&cfg.StoreCfg{}, logger.NewSlogLogger())

	_, err := store.Search([]float32{1, 0}, 0, 0)
	assert.ErrorIs(t, err, e.ErrStoreUnavailable)

	_, err = store.Products()
	assert.ErrorIs(t, err, e.ErrStoreUnavailable)

	_, err = store.Dim()
	assert.ErrorIs(t, err, e.ErrStoreUnavailable)
}

func TestStoreLoadNormalizesVectors(t *testing.T) {
	// Артефакты старого индексатора могли хранить ненормализованные векторы
	storeCfg := writeArtifacts(t, t.TempDir(),
		[]domain.Embedding{*domain.NewEmbedding("p1", []float32{3, 4})},
		[]domain.Product{testProduct("p1")},
	)

	store := NewStore(storeCfg, logger.NewSlogLogger())
	require.NoError(t, store.Load())

	matches, err := store.Search([]float32{3, 4}, -1, 0)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.InDelta(t, 1.0, matches[0].Similarity, 1e-6)
}

func TestStoreLoadRejectsDriftedArtifacts(t *testing.T) {
	t.Run("count mismatch", func(t *testing.T) {
		dir := t.TempDir()
		storeCfg := writeArtifacts(t, dir,
			[]domain.Embedding{
				*domain.NewEmbedding("p1", []float32{1, 0}),
				*domain.NewEmbedding("p2", []float32{0, 1}),
			},
			[]domain.Product{testProduct("p1"), testProduct("p2")},
		)
		require.NoError(t, artifact.WriteProducts(storeCfg.ProductsPath, []domain.Product{testProduct("p1")}))

		store := NewStore(storeCfg, logger.NewSlogLogger())
		assert.ErrorIs(t, store.Load(), e.ErrVectorProductDrift)
	})

	t.Run("id mismatch", func(t *testing.T) {
		storeCfg := writeArtifacts(t, t.TempDir(),
			[]domain.Embedding{*domain.NewEmbedding("p1", []float32{1, 0})},
			[]domain.Product{testProduct("other")},
		)

		store := NewStore(storeCfg, logger.NewSlogLogger())
		assert.ErrorIs(t, store.Load(), e.ErrVectorProductDrift)
	})

	t.Run("duplicate id", func(t *testing.T) {
		storeCfg := writeArtifacts(t, t.TempDir(),
			[]domain.Embedding{
				*domain.NewEmbedding("p1", []float32{1, 0}),
				*domain.NewEmbedding("p1", []float32{0, 1}),
			},
			[]domain.Product{testProduct("p1"), testProduct("p1")},
		)

		store := NewStore(storeCfg, logger.NewSlogLogger())
		assert.ErrorIs(t, store.Load(), e.ErrVectorProductDrift)
	})
}

func TestStoreReloadKeepsLastGoodSnapshot(t *testing.T) {
	dir := t.TempDir()
	storeCfg := writeArtifacts(t, dir,
		[]domain.Embedding{*domain.NewEmbedding("p1", []float32{1, 0})},
		[]domain.Product{testProduct("p1")},
	)

	store := NewStore(storeCfg, logger.NewSlogLogger())
	require.NoError(t, store.Load())

	// Порча артефакта не должна ронять уже загруженный индекс
	require.NoError(t, os.WriteFile(storeCfg.VectorsPath, []byte("garbage"), 0o644))
	require.Error(t, store.Load())

	assert.True(t, store.Ready())
	matches, err := store.Search([]float32{1, 0}, 0.5, 1)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "p1", matches[0].Product.ID)

	// Починенный артефакт подхватывается следующим Load
	require.NoError(t, artifact.WriteVectors(storeCfg.VectorsPath, 2, []domain.Embedding{
		*domain.NewEmbedding("p1", []float32{1, 0}),
		*domain.NewEmbedding("p2", []float32{0, 1}),
	}))
	require.NoError(t, artifact.WriteProducts(storeCfg.ProductsPath, []domain.Product{testProduct("p1"), testProduct("p2")}))
	require.NoError(t, store.Load())
	assert.Equal(t, 2, store.Len())
}
