package usecase

import (
	"context"
	"crypto/sha256"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/DRSN-tech/visual-search/internal/cfg"
	"github.com/DRSN-tech/visual-search/pkg/e"
	"github.com/DRSN-tech/visual-search/pkg/logger"
	"github.com/google/uuid"
)

// SearchUseCase реализует полный цикл запроса поиска:
// валидация → получение байтов → нормализация → векторизация → ранжирование → сборка ответа.
// Кэш, аудит и аналитика опциональны (nil — компонент выключен конфигурацией).
type SearchUseCase struct {
	index      VectorIndexRepository
	normalizer NormalizerInfra
	encoder    EncoderInfra
	fetcher    FetcherInfra
	cache      SearchCacheRepository
	audit      AuditInfra
	analytics  AnalyticsInfra
	cfg        *cfg.SearchCfg
	logger     logger.Logger
}

func NewSearchUC(
	index VectorIndexRepository,
	normalizer NormalizerInfra,
	encoder EncoderInfra,
	fetcher FetcherInfra,
	cache SearchCacheRepository,
	audit AuditInfra,
	analytics AnalyticsInfra,
	cfg *cfg.SearchCfg,
	logger logger.Logger,
) *SearchUseCase {
	return &SearchUseCase{
		index:      index,
		normalizer: normalizer,
		encoder:    encoder,
		fetcher:    fetcher,
		cache:      cache,
		audit:      audit,
		analytics:  analytics,
		cfg:        cfg,
		logger:     logger,
	}
}

// Search обрабатывает один запрос поиска похожих товаров.
func (s *SearchUseCase) Search(ctx context.Context, req *SearchReq) (*SearchRes, error) {
	const op = "SearchUseCase.Search"

	started := time.Now()

	if !s.index.Ready() {
		return nil, e.Wrap(op, e.ErrStoreUnavailable)
	}

	inputType, data, err := s.resolveInput(ctx, req)
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	topK := s.normalizeTopK(req.TopK)
	queryID := uuid.NewString()

	cacheKey := searchCacheKey(data, req.Threshold, topK)
	if cached := s.fromCache(ctx, cacheKey); cached != nil {
		res := *cached
		res.QueryID = queryID
		res.Timestamp = time.Now().UTC()
		res.TookMs = time.Since(started).Milliseconds()

		s.afterSearch(queryID, inputType, req.Threshold, topK, data, &res, true)
		return &res, nil
	}

	tensor, err := s.normalizer.Normalize(data)
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	embed, err := s.encoder.EmbedTensor(ctx, tensor)
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	matches, err := s.index.Search(embed.Vector, req.Threshold, topK)
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	res := &SearchRes{
		QueryID:   queryID,
		Results:   assembleResults(matches),
		Total:     len(matches),
		TookMs:    time.Since(started).Milliseconds(),
		Timestamp: time.Now().UTC(),
	}

	s.toCache(ctx, cacheKey, res)
	s.afterSearch(queryID, inputType, req.Threshold, topK, data, res, false)

	return res, nil
}

// resolveInput возвращает байты изображения-запроса и тип источника.
// Оба источника отсутствуют — ошибка валидации; оба присутствуют — приоритет у файла.
func (s *SearchUseCase) resolveInput(ctx context.Context, req *SearchReq) (string, []byte, error) {
	hasFile := len(req.FileData) > 0
	hasURL := strings.TrimSpace(req.ImageURL) != ""

	if !hasFile && !hasURL {
		return "", nil, e.ErrNoImageProvided
	}

	if hasFile {
		if hasURL {
			s.logger.Debugf("both file and image_url provided, using file %q", req.FileName)
		}
		return InputTypeFile, req.FileData, nil
	}

	data, err := s.fetcher.FetchImage(ctx, strings.TrimSpace(req.ImageURL))
	if err != nil {
		return "", nil, err
	}

	return InputTypeURL, data, nil
}

func (s *SearchUseCase) normalizeTopK(topK int) int {
	if topK <= 0 {
		return s.cfg.DefaultTopK
	}
	if topK > s.cfg.MaxTopK {
		return s.cfg.MaxTopK
	}
	return topK
}

func (s *SearchUseCase) fromCache(ctx context.Context, key string) *SearchRes {
	if s.cache == nil {
		return nil
	}

	res, err := s.cache.Get(ctx, key)
	if err != nil {
		s.logger.Warnf("search cache get failed: %v", err)
		return nil
	}

	return res
}

func (s *SearchUseCase) toCache(ctx context.Context, key string, res *SearchRes) {
	if s.cache == nil {
		return
	}

	s.cache.Set(ctx, key, res)
}

// afterSearch запускает побочные эффекты, не влияющие на ответ:
// аудит изображения-запроса и аналитическое событие.
func (s *SearchUseCase) afterSearch(queryID, inputType string, threshold float64, topK int,
	data []byte, res *SearchRes, cacheHit bool) {
	if s.audit != nil {
		s.audit.SaveQueryImage(queryID, data)
	}

	if s.analytics != nil {
		s.analytics.PublishSearchEvent(&SearchEvent{
			QueryID:      queryID,
			InputType:    inputType,
			TopK:         topK,
			Threshold:    threshold,
			ResultsCount: res.Total,
			CacheHit:     cacheHit,
			TookMs:       res.TookMs,
			Timestamp:    res.Timestamp,
		})
	}
}

func assembleResults(matches []RankedProduct) []SearchResult {
	results := make([]SearchResult, 0, len(matches))
	for _, m := range matches {
		results = append(results, SearchResult{
			Product:              NewProductInfo(m.Product),
			Similarity:           roundTo(m.Similarity, 4),
			SimilarityPercentage: roundTo(m.Similarity*100, 2),
		})
	}
	return results
}

func roundTo(v float64, digits int) float64 {
	pow := math.Pow(10, float64(digits))
	return math.Round(v*pow) / pow
}

// searchCacheKey строит ключ кэша из дайджеста байтов запроса и параметров поиска.
func searchCacheKey(data []byte, threshold float64, topK int) string {
	sum := sha256.Sum256(data)
	return fmt.Sprintf("search:%x:%.4f:%d", sum, threshold, topK)
}
