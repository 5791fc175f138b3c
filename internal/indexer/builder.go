// Package indexer собирает артефакты поиска из каталога товаров:
// прогоняет изображения через энкодер и пишет согласованную пару
// таблица векторов + отфильтрованный каталог.
package indexer

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/DRSN-tech/visual-search/internal/domain"
	"github.com/DRSN-tech/visual-search/internal/repository/vecstore"
	"github.com/DRSN-tech/visual-search/internal/repository/vecstore/artifact"
	"github.com/DRSN-tech/visual-search/internal/usecase"
	"github.com/DRSN-tech/visual-search/pkg/e"
	"github.com/DRSN-tech/visual-search/pkg/logger"
)

// BuildReq — параметры офлайн-сборки индекса.
type BuildReq struct {
	CatalogPath  string // исходный каталог (CSV)
	ImagesDir    string // корень, относительно которого разрешается image_path
	VectorsPath  string
	ProductsPath string
}

// BuildRes — итог сборки. Skipped — товары, исключённые из артефактов
// из-за ошибок чтения, декодирования или векторизации.
type BuildRes struct {
	Total   int
	Built   int
	Skipped int
}

type Builder struct {
	normalizer usecase.NormalizerInfra
	encoder    usecase.EncoderInfra
	logger     logger.Logger
	workers    int
}

func NewBuilder(normalizer usecase.NormalizerInfra, encoder usecase.EncoderInfra, logger logger.Logger, workers int) *Builder {
	if workers <= 0 {
		workers = 1
	}

	return &Builder{
		normalizer: normalizer,
		encoder:    encoder,
		logger:     logger,
		workers:    workers,
	}
}

// Build векторизует каталог и пишет артефакты. Товары обрабатываются
// параллельно, но порядок каталога в артефактах сохраняется: результаты
// раскладываются по индексу исходной строки. Сбой отдельного товара
// не прерывает сборку, товар исключается из обеих таблиц с предупреждением.
func (b *Builder) Build(ctx context.Context, req *BuildReq) (*BuildRes, error) {
	const op = "Builder.Build"

	products, err := artifact.ReadProducts(req.CatalogPath)
	if err != nil {
		return nil, e.Wrap(op, err)
	}
	if len(products) == 0 {
		return nil, e.Wrap(op, fmt.Errorf("catalog %s is empty", req.CatalogPath))
	}

	b.logger.Infof("building index: %d products, %d workers", len(products), b.workers)

	// Слот на каждый индекс каталога: nil — товар пропущен
	vectors := make([][]float32, len(products))

	sem := make(chan struct{}, b.workers)
	var wg sync.WaitGroup

	for i := range products {
		select {
		case <-ctx.Done():
			wg.Wait()
			return nil, e.Wrap(op, ctx.Err())
		case sem <- struct{}{}:
		}

		wg.Add(1)
		go func(i int, p domain.Product) {
			defer wg.Done()
			defer func() { <-sem }()

			vector, err := b.embedProduct(ctx, req.ImagesDir, &p)
			if err != nil {
				b.logger.Warnf("product %s skipped: %v", p.ID, err)
				return
			}
			vectors[i] = vector
		}(i, products[i])
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, e.Wrap(op, err)
	}

	// Сжатие с сохранением порядка каталога
	dim := b.encoder.Dim()
	kept := make([]domain.Product, 0, len(products))
	embeddings := make([]domain.Embedding, 0, len(products))
	for i, v := range vectors {
		if v == nil {
			continue
		}
		kept = append(kept, products[i])
		embeddings = append(embeddings, *domain.NewEmbedding(products[i].ID, v))
	}

	if len(embeddings) == 0 {
		return nil, e.Wrap(op, fmt.Errorf("no product survived vectorization"))
	}

	if err := artifact.WriteVectors(req.VectorsPath, dim, embeddings); err != nil {
		return nil, e.Wrap(op, err)
	}
	if err := artifact.WriteProducts(req.ProductsPath, kept); err != nil {
		return nil, e.Wrap(op, err)
	}

	res := &BuildRes{
		Total:   len(products),
		Built:   len(embeddings),
		Skipped: len(products) - len(embeddings),
	}

	b.logger.Infof("index built: %d/%d products, %d skipped, dim %d (model %s)",
		res.Built, res.Total, res.Skipped, dim, b.encoder.ModelVersion())

	return res, nil
}

// embedProduct читает изображение товара, нормализует и векторизует его.
// Вектор сразу приводится к единичной длине, чтобы поиск свёлся
// к скалярному произведению.
func (b *Builder) embedProduct(ctx context.Context, imagesDir string, p *domain.Product) ([]float32, error) {
	if p.ImagePath == "" {
		return nil, fmt.Errorf("empty image path")
	}

	data, err := os.ReadFile(filepath.Join(imagesDir, p.ImagePath))
	if err != nil {
		return nil, err
	}

	tensor, err := b.normalizer.Normalize(data)
	if err != nil {
		return nil, err
	}

	res, err := b.encoder.EmbedTensor(ctx, tensor)
	if err != nil {
		return nil, err
	}

	if vecstore.Norm(res.Vector) == 0 {
		return nil, e.ErrEmptyVector
	}

	return vecstore.L2Normalize(res.Vector), nil
}
