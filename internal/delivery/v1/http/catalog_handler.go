package http

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/DRSN-tech/visual-search/internal/usecase"
	"github.com/DRSN-tech/visual-search/pkg/e"
	"github.com/DRSN-tech/visual-search/pkg/logger"
)

type CatalogHandler struct {
	catalogUsecase usecase.CatalogUC
	logger         logger.Logger
}

func NewCatalogHandler(catalogUsecase usecase.CatalogUC, logger logger.Logger) *CatalogHandler {
	return &CatalogHandler{catalogUsecase: catalogUsecase, logger: logger}
}

// getProducts
//
//	@Summary		Листинг каталога
//	@Description	Возвращает товары проиндексированного каталога с необязательными фильтрами
//	@Tags			catalog
//	@Produce		json
//	@Param			category	query		string				false	"Категория (all — без фильтра)"
//	@Param			available	query		boolean				false	"Только доступные/недоступные"
//	@Param			limit		query		integer				false	"Максимум товаров в ответе"
//	@Success		200			{object}	ProductsResponse	"Товары"
//	@Failure		400			{object}	ErrorResponse		"Ошибка валидации"
//	@Failure		503			{object}	ErrorResponse		"Индекс не загружен"
//	@Router			/products [get]
func (h *CatalogHandler) getProducts(w http.ResponseWriter, r *http.Request) {
	var available *bool
	if v := strings.TrimSpace(r.URL.Query().Get("available")); v != "" {
		parsed, err := strconv.ParseBool(v)
		if err != nil {
			h.logger.Warnf("%d %s: available=%s", http.StatusBadRequest, e.ErrStatusBadRequest.Error(), v)
			WriteError(w, e.Wrap(v, e.ErrStatusBadRequest))
			return
		}
		available = &parsed
	}

	var limit int
	if v := strings.TrimSpace(r.URL.Query().Get("limit")); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed < 0 {
			h.logger.Warnf("%d %s: limit=%s", http.StatusBadRequest, e.ErrStatusBadRequest.Error(), v)
			WriteError(w, e.Wrap(v, e.ErrStatusBadRequest))
			return
		}
		limit = parsed
	}

	res, err := h.catalogUsecase.GetProducts(r.Context(), usecase.NewGetProductsReq(r.URL.Query().Get("category"), available, limit))
	if err != nil {
		h.logger.Warnf("%s", err.Error())
		WriteError(w, err)
		return
	}

	WriteSuccess(w, http.StatusOK, toProductsResponse(res))
}

// getCategories
//
//	@Summary		Список категорий
//	@Description	Возвращает уникальные категории каталога, первая — All
//	@Tags			catalog
//	@Produce		json
//	@Success		200	{object}	CategoriesResponse	"Категории"
//	@Failure		503	{object}	ErrorResponse		"Индекс не загружен"
//	@Router			/categories [get]
func (h *CatalogHandler) getCategories(w http.ResponseWriter, r *http.Request) {
	res, err := h.catalogUsecase.GetCategories(r.Context())
	if err != nil {
		h.logger.Warnf("%s", err.Error())
		WriteError(w, err)
		return
	}

	WriteSuccess(w, http.StatusOK, &CategoriesResponse{Categories: res.Categories})
}

// health
//
//	@Summary		Состояние сервиса
//	@Description	Состояние индекса и энкодера; degraded, если хотя бы один недоступен
//	@Tags			catalog
//	@Produce		json
//	@Success		200	{object}	HealthResponse	"Состояние"
//	@Router			/health [get]
func (h *CatalogHandler) health(w http.ResponseWriter, r *http.Request) {
	WriteSuccess(w, http.StatusOK, toHealthResponse(h.catalogUsecase.Health(r.Context())))
}
