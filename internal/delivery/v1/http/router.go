package http

import (
	"net/http"

	_ "github.com/DRSN-tech/visual-search/docs" // Импорт сгенерированных файлов
	"github.com/DRSN-tech/visual-search/internal/cfg"
	"github.com/DRSN-tech/visual-search/internal/usecase"
	"github.com/DRSN-tech/visual-search/pkg/logger"
	"github.com/go-chi/chi/v5"
	"github.com/rs/cors"
	httpSwagger "github.com/swaggo/http-swagger/v2"
)

type Router struct {
	router *chi.Mux
	logger logger.Logger
}

func NewRouter(router *chi.Mux, logger logger.Logger) *Router {
	return &Router{router: router, logger: logger}
}

func (r *Router) Init(searchUC usecase.SearchUC, catalogUC usecase.CatalogUC, cfg *cfg.HTTPConfig) {
	r.router.Use(cors.New(cors.Options{
		AllowedOrigins: cfg.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"*"},
	}).Handler)

	r.router.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("http://localhost:8080/swagger/doc.json"), // ссылка на JSON
	))

	// Изображения каталога для фронтенда
	r.router.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.Dir(cfg.StaticDir))))

	r.router.Route("/api/v1", func(v1 chi.Router) {
		searchHandler := NewSearchHandler(searchUC, r.logger)
		catalogHandler := NewCatalogHandler(catalogUC, r.logger)
		registerSearchRoutes(v1, searchHandler)
		registerCatalogRoutes(v1, catalogHandler)
	})
}

func registerSearchRoutes(router chi.Router, h *SearchHandler) {
	router.Post("/search", h.searchSimilar)
}

func registerCatalogRoutes(router chi.Router, h *CatalogHandler) {
	router.Get("/products", h.getProducts)
	router.Get("/categories", h.getCategories)
	router.Get("/health", h.health)
}
