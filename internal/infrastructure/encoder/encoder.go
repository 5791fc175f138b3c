// Package encoder — клиент внешнего inference-сервиса, отдающего эмбеддинг
// по нормализованному тензору изображения. Модель для клиента непрозрачна:
// он знает только адрес, размерность и версию, полученные при рукопожатии.
package encoder

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/DRSN-tech/visual-search/internal/cfg"
	"github.com/DRSN-tech/visual-search/internal/domain"
	"github.com/DRSN-tech/visual-search/internal/usecase"
	"github.com/DRSN-tech/visual-search/pkg/e"
	"github.com/DRSN-tech/visual-search/pkg/logger"
)

type modelInfoResponse struct {
	ModelVersion string `json:"model_version"`
	Dim          int    `json:"dim"`
}

type embedRequest struct {
	Shape []int     `json:"shape"` // [height, width, channels]
	Data  []float32 `json:"data"`
}

type embedResponse struct {
	Vector       []float32 `json:"vector"`
	ModelVersion string    `json:"model_version"`
}

// Encoder ограничивает число одновременных запросов на векторизацию:
// inference-сервис работает на ограниченном CPU, безудержный параллелизм
// лишь раздувает память и латентность.
type Encoder struct {
	client       *http.Client
	cfg          *cfg.EncoderCfg
	logger       logger.Logger
	sem          chan struct{}
	dim          int
	modelVersion string
}

func NewEncoder(cfg *cfg.EncoderCfg, logger logger.Logger) *Encoder {
	return &Encoder{
		client: &http.Client{Timeout: cfg.Timeout},
		cfg:    cfg,
		logger: logger,
		sem:    make(chan struct{}, cfg.MaxConcurrent),
	}
}

// Init выполняет рукопожатие с inference-сервисом и запоминает размерность
// и версию модели. Вызывается один раз до начала обслуживания запросов;
// недоступность модели на старте фатальна для сервиса.
func (enc *Encoder) Init(ctx context.Context) error {
	const op = "Encoder.Init"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, enc.cfg.Addr+"/v1/model", nil)
	if err != nil {
		return e.Wrap(op, err)
	}

	resp, err := enc.client.Do(req)
	if err != nil {
		return e.Wrap(op, fmt.Errorf("inference service unreachable: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return e.Wrap(op, fmt.Errorf("inference service returned status %d", resp.StatusCode))
	}

	var info modelInfoResponse
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return e.Wrap(op, err)
	}
	if info.Dim <= 0 {
		return e.Wrap(op, fmt.Errorf("inference service reported invalid dimension %d", info.Dim))
	}

	enc.dim = info.Dim
	enc.modelVersion = info.ModelVersion
	enc.logger.Infof("encoder ready: model %s, dim %d", info.ModelVersion, info.Dim)

	return nil
}

// Dim возвращает размерность эмбеддинга (0 до Init).
func (enc *Encoder) Dim() int {
	return enc.dim
}

func (enc *Encoder) ModelVersion() string {
	return enc.modelVersion
}

// EmbedTensor отправляет тензор на векторизацию. Повторов нет: модель
// детерминирована, её сбой почти никогда не бывает преходящим.
func (enc *Encoder) EmbedTensor(ctx context.Context, tensor *domain.Tensor) (*usecase.EmbedRes, error) {
	const op = "Encoder.EmbedTensor"

	if tensor == nil || len(tensor.Data) == 0 || len(tensor.Data) != tensor.Len() {
		return nil, e.Wrap(op, e.ErrEncodingFailed)
	}

	select {
	case enc.sem <- struct{}{}:
	case <-ctx.Done():
		return nil, e.Wrap(op, ctx.Err())
	}
	defer func() { <-enc.sem }()

	body, err := json.Marshal(embedRequest{
		Shape: []int{tensor.Height, tensor.Width, tensor.Channels},
		Data:  tensor.Data,
	})
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, enc.cfg.Addr+"/v1/embed", bytes.NewReader(body))
	if err != nil {
		return nil, e.Wrap(op, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := enc.client.Do(req)
	if err != nil {
		return nil, e.Wrap(op, fmt.Errorf("%v: %w", err, e.ErrEncodingFailed))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, e.Wrap(op, fmt.Errorf("status %d: %w", resp.StatusCode, e.ErrEncodingFailed))
	}

	var out embedResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, e.Wrap(op, fmt.Errorf("%v: %w", err, e.ErrEncodingFailed))
	}

	if len(out.Vector) == 0 {
		return nil, e.Wrap(op, e.ErrEncodingFailed)
	}
	if enc.dim > 0 && len(out.Vector) != enc.dim {
		return nil, e.Wrap(op, e.ErrDimensionMismatch)
	}

	return usecase.NewEmbedRes(out.Vector, out.ModelVersion), nil
}
