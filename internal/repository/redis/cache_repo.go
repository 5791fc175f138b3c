package redis

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/DRSN-tech/visual-search/internal/cfg"
	"github.com/DRSN-tech/visual-search/internal/usecase"
	"github.com/DRSN-tech/visual-search/pkg/clients"
	"github.com/DRSN-tech/visual-search/pkg/e"
	"github.com/DRSN-tech/visual-search/pkg/logger"
	"github.com/jimlawless/whereami"
	r "github.com/redis/go-redis/v9"
)

// Модели кэша отделены от DTO usecase, чтобы формат хранения
// не менялся незаметно вместе с внутренними структурами.
type productModel struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Category    string `json:"category"`
	Brand       string `json:"brand"`
	Price       int64  `json:"price_cents"`
	Currency    string `json:"currency"`
	Available   bool   `json:"available"`
	Description string `json:"description"`
	ImagePath   string `json:"image_path"`
}

type searchResultModel struct {
	Product              productModel `json:"product"`
	Similarity           float64      `json:"similarity"`
	SimilarityPercentage float64      `json:"similarity_percentage"`
}

type searchResModel struct {
	QueryID   string              `json:"query_id"`
	Results   []searchResultModel `json:"results"`
	Total     int                 `json:"total"`
	TookMs    int64               `json:"took_ms"`
	Timestamp time.Time           `json:"timestamp"`
}

// SearchCacheRepo кэширует готовые ответы поиска в Redis.
type SearchCacheRepo struct {
	client *clients.RedisClient
	cfg    *cfg.RedisCfg
	logger logger.Logger
}

func NewSearchCacheRepo(client *clients.RedisClient, cfg *cfg.RedisCfg, logger logger.Logger) *SearchCacheRepo {
	return &SearchCacheRepo{
		client: client,
		cfg:    cfg,
		logger: logger,
	}
}

// Get возвращает закэшированный ответ поиска или (nil, nil) при промахе.
// Повреждённая запись удаляется и считается промахом.
func (c *SearchCacheRepo) Get(ctx context.Context, key string) (*usecase.SearchRes, error) {
	data, err := c.client.Client.Get(ctx, key).Bytes()
	if errors.Is(err, r.Nil) {
		return nil, nil // cache miss
	}
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	var model searchResModel
	if err := json.Unmarshal(data, &model); err != nil {
		c.logger.Warnf("search cache unmarshal failed for %s: %v", key, err)
		if delErr := c.client.Client.Del(context.Background(), key).Err(); delErr != nil {
			c.logger.Warnf("search cache del failed: %v", delErr)
		}
		return nil, nil // cache miss
	}

	return toUseCase(&model), nil
}

// Set кэширует ответ поиска с TTL из конфигурации.
// Ошибки сериализации и записи игнорируются с логированием.
func (c *SearchCacheRepo) Set(ctx context.Context, key string, res *usecase.SearchRes) {
	data, err := json.Marshal(toModel(res))
	if err != nil {
		c.logger.Warnf("failed to marshal search response for caching (%s): %v", res.QueryID, err)
		return
	}

	if err := c.client.Client.Set(ctx, key, data, c.cfg.SearchTTL).Err(); err != nil {
		c.logger.Warnf("search cache set failed for %s: %v", key, err)
	}
}

func toModel(res *usecase.SearchRes) *searchResModel {
	results := make([]searchResultModel, 0, len(res.Results))
	for _, item := range res.Results {
		results = append(results, searchResultModel{
			Product: productModel{
				ID:          item.Product.ID,
				Name:        item.Product.Name,
				Category:    item.Product.Category,
				Brand:       item.Product.Brand,
				Price:       item.Product.Price,
				Currency:    item.Product.Currency,
				Available:   item.Product.Available,
				Description: item.Product.Description,
				ImagePath:   item.Product.ImagePath,
			},
			Similarity:           item.Similarity,
			SimilarityPercentage: item.SimilarityPercentage,
		})
	}

	return &searchResModel{
		QueryID:   res.QueryID,
		Results:   results,
		Total:     res.Total,
		TookMs:    res.TookMs,
		Timestamp: res.Timestamp,
	}
}

func toUseCase(model *searchResModel) *usecase.SearchRes {
	results := make([]usecase.SearchResult, 0, len(model.Results))
	for _, item := range model.Results {
		results = append(results, usecase.SearchResult{
			Product: usecase.ProductInfo{
				ID:          item.Product.ID,
				Name:        item.Product.Name,
				Category:    item.Product.Category,
				Brand:       item.Product.Brand,
				Price:       item.Product.Price,
				Currency:    item.Product.Currency,
				Available:   item.Product.Available,
				Description: item.Product.Description,
				ImagePath:   item.Product.ImagePath,
			},
			Similarity:           item.Similarity,
			SimilarityPercentage: item.SimilarityPercentage,
		})
	}

	return &usecase.SearchRes{
		QueryID:   model.QueryID,
		Results:   results,
		Total:     model.Total,
		TookMs:    model.TookMs,
		Timestamp: model.Timestamp,
	}
}
