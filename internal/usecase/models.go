package usecase

import (
	"time"

	"github.com/DRSN-tech/visual-search/internal/domain"
)

// SEARCH USECASE

// Типы источника изображения-запроса.
const (
	InputTypeFile = "file"
	InputTypeURL  = "url"
)

// SearchReq — запрос поиска похожих товаров. Передаётся либо файл, либо URL;
// при одновременной передаче приоритет у файла.
type SearchReq struct {
	FileData  []byte
	FileName  string // оригинальное имя файла (для логов)
	ImageURL  string
	TopK      int     // 0 — значение по умолчанию из конфигурации
	Threshold float64 // косинусная близость в [-1, 1], по умолчанию 0
}

// SearchRes — упорядоченный список результатов с метаданными запроса.
type SearchRes struct {
	QueryID   string
	Results   []SearchResult
	Total     int
	TookMs    int64
	Timestamp time.Time
}

// SearchResult — один результат поиска, близость округлена для выдачи.
type SearchResult struct {
	Product              ProductInfo
	Similarity           float64 // 4 знака после запятой
	SimilarityPercentage float64 // 2 знака после запятой
}

// RankedProduct — сырой результат ранжирования до округления и сборки ответа.
type RankedProduct struct {
	Product    domain.Product
	Similarity float64
}

// SearchEvent — аналитическое событие выполненного поиска.
type SearchEvent struct {
	QueryID      string
	InputType    string
	TopK         int
	Threshold    float64
	ResultsCount int
	CacheHit     bool
	TookMs       int64
	Timestamp    time.Time
}

// CATALOG USECASE

// GetProductsReq — фильтры листинга каталога.
type GetProductsReq struct {
	Category  string // пустая строка или "all" — без фильтра
	Available *bool
	Limit     int // 0 — без ограничения
}

type GetProductsRes struct {
	Products []ProductInfo
	Total    int
}

type GetCategoriesRes struct {
	Categories []string
}

type HealthRes struct {
	Status       string
	StoreLoaded  bool
	EncoderReady bool
	Products     int
	Timestamp    time.Time
}

// ProductInfo — DTO с информацией о товаре для внешнего использования.
type ProductInfo struct {
	ID          string
	Name        string
	Category    string
	Brand       string
	Price       int64 // копейки
	Currency    string
	Available   bool
	Description string
	ImagePath   string
}

// INFRASTRUCTURE

// EmbedRes — результат векторизации одного изображения.
type EmbedRes struct {
	Vector       []float32
	ModelVersion string
}

// MAPPERS

func NewProductInfo(p domain.Product) ProductInfo {
	return ProductInfo{
		ID:          p.ID,
		Name:        p.Name,
		Category:    p.Category,
		Brand:       p.Brand,
		Price:       p.Price,
		Currency:    p.Currency,
		Available:   p.Available,
		Description: p.Description,
		ImagePath:   p.ImagePath,
	}
}

func NewEmbedRes(vector []float32, modelVersion string) *EmbedRes {
	return &EmbedRes{
		Vector:       vector,
		ModelVersion: modelVersion,
	}
}

func NewSearchReq(fileData []byte, fileName string, imageURL string, topK int, threshold float64) *SearchReq {
	return &SearchReq{
		FileData:  fileData,
		FileName:  fileName,
		ImageURL:  imageURL,
		TopK:      topK,
		Threshold: threshold,
	}
}

func NewGetProductsReq(category string, available *bool, limit int) *GetProductsReq {
	return &GetProductsReq{
		Category:  category,
		Available: available,
		Limit:     limit,
	}
}
