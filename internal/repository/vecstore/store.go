// Package vecstore — резидентное хранилище эмбеддингов каталога.
// Снимок неизменяем после загрузки и подменяется целиком (atomic pointer swap),
// поэтому конкурентные чтения не требуют блокировок.
package vecstore

import (
	"sync/atomic"

	"github.com/DRSN-tech/visual-search/internal/cfg"
	"github.com/DRSN-tech/visual-search/internal/domain"
	"github.com/DRSN-tech/visual-search/internal/repository/vecstore/artifact"
	"github.com/DRSN-tech/visual-search/internal/usecase"
	"github.com/DRSN-tech/visual-search/pkg/e"
	"github.com/DRSN-tech/visual-search/pkg/logger"
	"github.com/jimlawless/whereami"
)

type record struct {
	productID string
	vector    []float32 // единичной длины; нулевой вектор хранится как есть
}

// Snapshot — неизменяемый снимок индекса: записи в порядке каталога
// плюс индекс по идентификатору товара.
type Snapshot struct {
	dim      int
	records  []record
	products []domain.Product
	byID     map[string]int
}

func (snap *Snapshot) Len() int {
	return len(snap.records)
}

func (snap *Snapshot) Dim() int {
	return snap.dim
}

// Store хранит текущий снимок индекса и умеет перечитывать артефакты.
type Store struct {
	cfg      *cfg.StoreCfg
	logger   logger.Logger
	snapshot atomic.Pointer[Snapshot]
}

func NewStore(cfg *cfg.StoreCfg, logger logger.Logger) *Store {
	return &Store{
		cfg:    cfg,
		logger: logger,
	}
}

// Load строит снимок из пары артефактов и атомарно подменяет текущий.
// При любой ошибке прежний снимок остаётся активным — запросы в полёте
// видят либо полностью старый, либо полностью новый индекс.
func (s *Store) Load() error {
	const op = "Store.Load"

	snap, err := s.buildSnapshot()
	if err != nil {
		return e.Wrap(op, err)
	}

	s.snapshot.Store(snap)
	s.logger.Infof("embedding store loaded: %d products, dim %d", snap.Len(), snap.Dim())

	return nil
}

// Ready сообщает, загружен ли индекс.
func (s *Store) Ready() bool {
	return s.snapshot.Load() != nil
}

// Search выполняет поиск по текущему снимку индекса.
func (s *Store) Search(query []float32, threshold float64, topK int) ([]usecase.RankedProduct, error) {
	snap := s.snapshot.Load()
	if snap == nil {
		return nil, e.ErrStoreUnavailable
	}

	return snap.Search(query, threshold, topK)
}

// Products возвращает товары в порядке каталога.
func (s *Store) Products() ([]domain.Product, error) {
	snap := s.snapshot.Load()
	if snap == nil {
		return nil, e.ErrStoreUnavailable
	}

	return snap.products, nil
}

// Dim возвращает размерность векторов индекса.
func (s *Store) Dim() (int, error) {
	snap := s.snapshot.Load()
	if snap == nil {
		return 0, e.ErrStoreUnavailable
	}

	return snap.dim, nil
}

// Len возвращает количество записей индекса (0 до загрузки).
func (s *Store) Len() int {
	snap := s.snapshot.Load()
	if snap == nil {
		return 0
	}

	return snap.Len()
}

func (s *Store) buildSnapshot() (*Snapshot, error) {
	dim, embeddings, err := artifact.ReadVectors(s.cfg.VectorsPath)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	products, err := artifact.ReadProducts(s.cfg.ProductsPath)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	// Позиционное соответствие таблиц — ключ соединения.
	// Любое расхождение означает, что артефакты собраны из разных запусков.
	if len(embeddings) != len(products) {
		return nil, e.Wrap(whereami.WhereAmI(), e.ErrVectorProductDrift)
	}

	snap := &Snapshot{
		dim:      dim,
		records:  make([]record, 0, len(embeddings)),
		products: products,
		byID:     make(map[string]int, len(embeddings)),
	}

	for i, emb := range embeddings {
		if emb.ProductID != products[i].ID {
			return nil, e.Wrap(whereami.WhereAmI(), e.ErrVectorProductDrift)
		}
		if _, ok := snap.byID[emb.ProductID]; ok {
			return nil, e.Wrap(whereami.WhereAmI(), e.ErrVectorProductDrift)
		}

		// Сборка уже пишет единичные векторы, нормализация здесь — защита
		// от артефактов, собранных старым индексатором
		vector := L2Normalize(emb.Vector)
		if Norm(vector) == 0 {
			s.logger.Warnf("product %s has a zero embedding, it will never match", emb.ProductID)
		}

		snap.byID[emb.ProductID] = i
		snap.records = append(snap.records, record{productID: emb.ProductID, vector: vector})
	}

	return snap, nil
}
