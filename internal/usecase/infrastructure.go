package usecase

import (
	"context"

	"github.com/DRSN-tech/visual-search/internal/domain"
)

// EncoderInfra — клиент внешней модели-энкодера: нормализованный тензор → вектор.
type EncoderInfra interface {
	EmbedTensor(ctx context.Context, tensor *domain.Tensor) (*EmbedRes, error)
	Dim() int
	ModelVersion() string
}

// FetcherInfra загружает изображение по внешнему URL.
type FetcherInfra interface {
	FetchImage(ctx context.Context, rawURL string) ([]byte, error)
}

// NormalizerInfra приводит байты изображения к тензору входа модели.
type NormalizerInfra interface {
	Normalize(data []byte) (*domain.Tensor, error)
}

// AnalyticsInfra публикует события поиска. Вызов не блокирует запрос.
type AnalyticsInfra interface {
	PublishSearchEvent(event *SearchEvent)
}

// AuditInfra сохраняет изображение-запрос для аудита. Вызов не блокирует запрос.
type AuditInfra interface {
	SaveQueryImage(queryID string, data []byte)
}
