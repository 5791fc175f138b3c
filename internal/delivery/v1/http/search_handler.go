package http

import (
	"net/http"

	"github.com/DRSN-tech/visual-search/internal/usecase"
	"github.com/DRSN-tech/visual-search/pkg/e"
	"github.com/DRSN-tech/visual-search/pkg/logger"
)

type SearchHandler struct {
	searchUsecase usecase.SearchUC
	logger        logger.Logger
}

func NewSearchHandler(searchUsecase usecase.SearchUC, logger logger.Logger) *SearchHandler {
	return &SearchHandler{searchUsecase: searchUsecase, logger: logger}
}

// searchSimilar
//
//	@Summary		Поиск визуально похожих товаров
//	@Description	Принимает изображение файлом или ссылкой и возвращает похожие товары каталога, отсортированные по убыванию близости
//	@Tags			search
//	@Accept			multipart/form-data
//	@Produce		json
//	@Param			file					formData	file			false	"Изображение-запрос (jpeg/png/webp)"
//	@Param			image_url				formData	string			false	"URL изображения (используется, если файл не передан)"
//	@Param			top_k					formData	integer			false	"Максимум результатов"
//	@Param			similarity_threshold	formData	number			false	"Минимальная косинусная близость"
//	@Success		200						{object}	SearchResponse	"Результаты поиска"
//	@Failure		400						{object}	ErrorResponse	"Ошибка валидации"
//	@Failure		422						{object}	ErrorResponse	"Изображение по URL недоступно"
//	@Failure		503						{object}	ErrorResponse	"Индекс или энкодер недоступны"
//	@Router			/search [post]
func (h *SearchHandler) searchSimilar(w http.ResponseWriter, r *http.Request) {
	const (
		maxTotalRequestSize = 20 << 20
		maxMemory           = 16 << 20
		maxFileSize         = 15 << 20
	)

	r.Body = http.MaxBytesReader(w, r.Body, maxTotalRequestSize)

	if err := ensureMultipartForm(r, maxMemory); err != nil {
		h.logger.Warnf("%d %s: %s", http.StatusBadRequest, e.ErrStatusBadRequest.Error(), r.Header.Get("Content-Type"))
		WriteError(w, err)
		return
	}

	params, err := parseSearchForm(r)
	if err != nil {
		h.logger.Warnf("%d %s: %s", http.StatusBadRequest, e.ErrStatusBadRequest.Error(), err.Error())
		WriteError(w, err)
		return
	}

	var fileData []byte
	var fileName string
	if files := r.MultipartForm.File["file"]; len(files) > 0 {
		fileData, err = readFile(files[0], maxFileSize)
		if err != nil {
			h.logger.Warnf("%d %s: %s", http.StatusBadRequest, e.ErrStatusBadRequest.Error(), err.Error())
			WriteError(w, err)
			return
		}
		fileName = files[0].Filename
	}

	res, err := h.searchUsecase.Search(r.Context(), usecase.NewSearchReq(fileData, fileName, params.ImageURL, params.TopK, params.Threshold))
	if err != nil {
		h.logger.Warnf("%s", err.Error())
		WriteError(w, err)
		return
	}

	WriteSuccess(w, http.StatusOK, toSearchResponse(res))
}
