// Индексатор — офлайн-сборка артефактов поиска.
// Векторизует изображения каталога через энкодер и пишет пару
// таблица векторов + отфильтрованный каталог, которую читает сервис.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	config "github.com/DRSN-tech/visual-search/internal/cfg"
	"github.com/DRSN-tech/visual-search/internal/imaging"
	"github.com/DRSN-tech/visual-search/internal/indexer"
	"github.com/DRSN-tech/visual-search/internal/infrastructure/encoder"
	"github.com/DRSN-tech/visual-search/pkg/logger"
)

func main() {
	log := logger.NewSlogLogger()

	catalogPath := flag.String("catalog", "data/products.csv", "исходный каталог товаров (CSV)")
	imagesDir := flag.String("images", "static", "корень изображений каталога")
	vectorsPath := flag.String("out-vectors", "data/embeddings.vec", "путь таблицы векторов")
	productsPath := flag.String("out-products", "data/valid_products.csv", "путь отфильтрованного каталога")
	workers := flag.Int("workers", 0, "число параллельных векторизаций (0 — из конфигурации энкодера)")
	flag.Parse()

	cfg, err := config.Load(log)
	if err != nil {
		log.Errorf(err, "failed to load config")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	enc := encoder.NewEncoder(cfg.Encoder, log)
	encCtx, encCancel := context.WithTimeout(ctx, 10*time.Second)
	if err := enc.Init(encCtx); err != nil {
		encCancel()
		log.Errorf(err, "failed to connect to encoder")
		os.Exit(1)
	}
	encCancel()

	if *workers <= 0 {
		*workers = cfg.Encoder.MaxConcurrent
	}

	builder := indexer.NewBuilder(imaging.NewNormalizer(), enc, log, *workers)
	res, err := builder.Build(ctx, &indexer.BuildReq{
		CatalogPath:  *catalogPath,
		ImagesDir:    *imagesDir,
		VectorsPath:  *vectorsPath,
		ProductsPath: *productsPath,
	})
	if err != nil {
		log.Errorf(err, "index build failed")
		os.Exit(1)
	}

	// Частичная сборка — артефакты пригодны, но код возврата сигналит
	// оператору о пропущенных товарах
	if res.Skipped > 0 {
		log.Warnf("index built with %d of %d products skipped", res.Skipped, res.Total)
		os.Exit(1)
	}
}
