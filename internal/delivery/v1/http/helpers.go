package http

import (
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/DRSN-tech/visual-search/internal/usecase"
	"github.com/DRSN-tech/visual-search/pkg/e"
	"github.com/jimlawless/whereami"
	"github.com/shopspring/decimal"
)

type ErrorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// SearchParams — параметры поиска из multipart-формы.
type SearchParams struct {
	ImageURL  string
	TopK      int
	Threshold float64
}

// ProductResponse — товар в выдаче API. Цена — строка с двумя знаками,
// чтобы не гонять деньги через float.
type ProductResponse struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Category    string `json:"category"`
	Brand       string `json:"brand"`
	Price       string `json:"price"`
	Currency    string `json:"currency"`
	Available   bool   `json:"available"`
	Description string `json:"description"`
	ImagePath   string `json:"image_path"`
}

type SearchResultResponse struct {
	Product              ProductResponse `json:"product"`
	Similarity           float64         `json:"similarity"`
	SimilarityPercentage float64         `json:"similarity_percentage"`
}

type SearchResponse struct {
	QueryID      string                 `json:"query_id"`
	Results      []SearchResultResponse `json:"results"`
	TotalResults int                    `json:"total_results"`
	TookMs       int64                  `json:"took_ms"`
	Timestamp    time.Time              `json:"timestamp"`
}

type ProductsResponse struct {
	Products []ProductResponse `json:"products"`
	Total    int               `json:"total"`
}

type CategoriesResponse struct {
	Categories []string `json:"categories"`
}

type HealthResponse struct {
	Status       string    `json:"status"`
	StoreLoaded  bool      `json:"store_loaded"`
	EncoderReady bool      `json:"encoder_ready"`
	Products     int       `json:"products"`
	Timestamp    time.Time `json:"timestamp"`
}

func NewErrorResponse(code int, message string) *ErrorResponse {
	return &ErrorResponse{
		Code:    code,
		Message: message,
	}
}

func ToHTTPResponse(err error) (int, string) {
	switch {
	case errors.Is(err, e.ErrStatusBadRequest):
		return http.StatusBadRequest, e.ErrStatusBadRequest.Error()
	case errors.Is(err, e.ErrExpectedMultipart):
		return http.StatusBadRequest, e.ErrExpectedMultipart.Error()
	case errors.Is(err, e.ErrNoImageProvided):
		return http.StatusBadRequest, e.ErrNoImageProvided.Error()
	case errors.Is(err, e.ErrUnsupportedMediaType):
		return http.StatusBadRequest, e.ErrUnsupportedMediaType.Error()
	case errors.Is(err, e.ErrDecodeFailed):
		return http.StatusBadRequest, e.ErrDecodeFailed.Error()
	case errors.Is(err, e.ErrInvalidURL):
		return http.StatusBadRequest, e.ErrInvalidURL.Error()
	case errors.Is(err, e.ErrInvalidTopK):
		return http.StatusBadRequest, e.ErrInvalidTopK.Error()
	case errors.Is(err, e.ErrInvalidThreshold):
		return http.StatusBadRequest, e.ErrInvalidThreshold.Error()
	case errors.Is(err, e.ErrFileTooLarge):
		return http.StatusBadRequest, e.ErrFileTooLarge.Error()
	case errors.Is(err, e.ErrFetchFailed):
		return http.StatusUnprocessableEntity, e.ErrFetchFailed.Error()
	case errors.Is(err, e.ErrStoreUnavailable):
		return http.StatusServiceUnavailable, e.ErrStoreUnavailable.Error()
	case errors.Is(err, e.ErrEncodingFailed):
		return http.StatusServiceUnavailable, e.ErrEncodingFailed.Error()
	default:
		return http.StatusInternalServerError, e.ErrInternalServerError.Error()
	}
}

func WriteError(w http.ResponseWriter, err error) {
	code, msg := ToHTTPResponse(err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(NewErrorResponse(code, msg))
}

func WriteSuccess(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func ensureMultipartForm(r *http.Request, maxMemory int64) error {
	if !strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		return e.Wrap(whereami.WhereAmI(), e.ErrExpectedMultipart)
	}
	return r.ParseMultipartForm(maxMemory)
}

// parseSearchForm читает параметры поиска из формы.
// top_k и similarity_threshold опциональны: 0 у top_k означает
// значение по умолчанию, порог по умолчанию 0.
func parseSearchForm(r *http.Request) (*SearchParams, error) {
	params := &SearchParams{
		ImageURL: strings.TrimSpace(r.FormValue("image_url")),
	}

	if v := strings.TrimSpace(r.FormValue("top_k")); v != "" {
		topK, err := strconv.Atoi(v)
		if err != nil || topK < 0 {
			return nil, e.Wrap(v, e.ErrInvalidTopK)
		}
		params.TopK = topK
	}

	if v := strings.TrimSpace(r.FormValue("similarity_threshold")); v != "" {
		threshold, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, e.Wrap(v, e.ErrInvalidThreshold)
		}
		params.Threshold = threshold
	}

	return params, nil
}

func readFile(fh *multipart.FileHeader, maxSize int64) ([]byte, error) {
	src, err := fh.Open()
	if err != nil {
		return nil, e.ErrInternalServerError
	}
	defer src.Close()

	data, err := io.ReadAll(src)
	if err != nil {
		return nil, e.ErrInternalServerError
	}
	if int64(len(data)) > maxSize {
		return nil, e.Wrap(fh.Filename, e.ErrFileTooLarge)
	}

	return data, nil
}

func toProductResponse(p usecase.ProductInfo) ProductResponse {
	return ProductResponse{
		ID:          p.ID,
		Name:        p.Name,
		Category:    p.Category,
		Brand:       p.Brand,
		Price:       decimal.New(p.Price, -2).StringFixed(2),
		Currency:    p.Currency,
		Available:   p.Available,
		Description: p.Description,
		ImagePath:   p.ImagePath,
	}
}

func toSearchResponse(res *usecase.SearchRes) *SearchResponse {
	results := make([]SearchResultResponse, 0, len(res.Results))
	for _, item := range res.Results {
		results = append(results, SearchResultResponse{
			Product:              toProductResponse(item.Product),
			Similarity:           item.Similarity,
			SimilarityPercentage: item.SimilarityPercentage,
		})
	}

	return &SearchResponse{
		QueryID:      res.QueryID,
		Results:      results,
		TotalResults: res.Total,
		TookMs:       res.TookMs,
		Timestamp:    res.Timestamp,
	}
}

func toProductsResponse(res *usecase.GetProductsRes) *ProductsResponse {
	products := make([]ProductResponse, 0, len(res.Products))
	for _, p := range res.Products {
		products = append(products, toProductResponse(p))
	}

	return &ProductsResponse{
		Products: products,
		Total:    res.Total,
	}
}

func toHealthResponse(res *usecase.HealthRes) *HealthResponse {
	return &HealthResponse{
		Status:       res.Status,
		StoreLoaded:  res.StoreLoaded,
		EncoderReady: res.EncoderReady,
		Products:     res.Products,
		Timestamp:    res.Timestamp,
	}
}
