package minio

import (
	"bytes"
	"context"

	"github.com/DRSN-tech/visual-search/internal/cfg"
	"github.com/DRSN-tech/visual-search/internal/domain"
	"github.com/DRSN-tech/visual-search/pkg/e"
	"github.com/jimlawless/whereami"
	"github.com/minio/minio-go/v7"
)

// QueryImageRepo хранит изображения-запросы в MinIO.
type QueryImageRepo struct {
	mc  *minio.Client
	cfg *cfg.MinIOCfg
}

func NewQueryImageRepo(mc *minio.Client, cfg *cfg.MinIOCfg) *QueryImageRepo {
	return &QueryImageRepo{
		mc:  mc,
		cfg: cfg,
	}
}

// Upload загружает изображение-запрос в MinIO и возвращает ключ объекта.
func (r *QueryImageRepo) Upload(ctx context.Context, image *domain.QueryImage) (string, error) {
	reader := bytes.NewReader(image.Data)

	info, err := r.mc.PutObject(ctx, r.cfg.BucketName, image.ObjectKey, reader, image.Size, minio.PutObjectOptions{
		ContentType: image.MimeType,
	})
	if err != nil {
		return "", e.Wrap(whereami.WhereAmI(), err)
	}

	return info.Key, nil
}
