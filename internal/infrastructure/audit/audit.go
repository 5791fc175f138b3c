// Package audit сохраняет изображения-запросы для разбора качества поиска.
package audit

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/DRSN-tech/visual-search/internal/domain"
	"github.com/DRSN-tech/visual-search/internal/infrastructure"
	"github.com/DRSN-tech/visual-search/internal/usecase"
	"github.com/DRSN-tech/visual-search/pkg/logger"
)

// AuditInfrastructure загружает изображения-запросы в S3 в фоне:
// запрос поиска не ждёт загрузки, ошибка аудита только логируется.
type AuditInfrastructure struct {
	repo        usecase.QueryImageRepository
	logger      logger.Logger
	shutdownCtx context.Context
	wg          sync.WaitGroup
}

func NewAuditInfrastructure(repo usecase.QueryImageRepository, logger logger.Logger, shutdownCtx context.Context) *AuditInfrastructure {
	return &AuditInfrastructure{
		repo:        repo,
		logger:      logger,
		shutdownCtx: shutdownCtx,
	}
}

// SaveQueryImage сохраняет копию изображения-запроса под ключом queries/<query_id>.<ext>.
func (a *AuditInfrastructure) SaveQueryImage(queryID string, data []byte) {
	if len(data) == 0 {
		return
	}

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()

		mimeType := http.DetectContentType(data[:min(len(data), 512)])
		ext, err := infrastructure.GetExtensionFromMIME(mimeType)
		if err != nil {
			// Запрос уже прошёл нормализацию, сюда попадать не должен
			a.logger.Warnf("query %s: unexpected mime type %s", queryID, mimeType)
		}

		objKey := fmt.Sprintf("queries/%s.%s", queryID, ext)
		image := domain.NewQueryImage(queryID, objKey, data, mimeType)

		ctx, cancel := context.WithTimeout(a.shutdownCtx, 30*time.Second)
		defer cancel()

		if _, err := a.repo.Upload(ctx, image); err != nil {
			a.logger.Warnf("query %s: audit upload failed: %v", queryID, err)
		}
	}()
}

// Wait дожидается завершения фоновых загрузок (используется при остановке сервиса).
func (a *AuditInfrastructure) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		a.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
