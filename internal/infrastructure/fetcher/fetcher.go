// Package fetcher загружает изображение-запрос по внешнему URL.
package fetcher

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/DRSN-tech/visual-search/internal/cfg"
	"github.com/DRSN-tech/visual-search/pkg/e"
	"github.com/DRSN-tech/visual-search/pkg/logger"
	"github.com/cenkalti/backoff/v4"
)

// Fetcher выполняет ограниченное число повторов с экспоненциальной задержкой.
// Повторяются только ошибки, похожие на преходящие (сеть, 5xx);
// 4xx и не-изображение в ответе — окончательный отказ.
type Fetcher struct {
	client *http.Client
	cfg    *cfg.FetcherCfg
	logger logger.Logger
}

func NewFetcher(cfg *cfg.FetcherCfg, logger logger.Logger) *Fetcher {
	return &Fetcher{
		client: &http.Client{Timeout: cfg.Timeout},
		cfg:    cfg,
		logger: logger,
	}
}

// FetchImage скачивает изображение по URL с проверкой размера и содержимого.
func (f *Fetcher) FetchImage(ctx context.Context, rawURL string) ([]byte, error) {
	const op = "Fetcher.FetchImage"

	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, e.Wrap(op, e.ErrInvalidURL)
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewExponentialBackOff(), uint64(f.cfg.MaxRetries)),
		ctx,
	)

	data, err := backoff.RetryWithData(func() ([]byte, error) {
		return f.fetchOnce(ctx, rawURL)
	}, policy)
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	return data, nil
}

func (f *Fetcher) fetchOnce(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, backoff.Permanent(e.ErrInvalidURL)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		// Сетевые сбои и таймауты считаем преходящими
		f.logger.Warnf("image fetch failed, will retry: %v", err)
		return nil, fmt.Errorf("%v: %w", err, e.ErrFetchFailed)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 500:
		f.logger.Warnf("image fetch returned status %d, will retry", resp.StatusCode)
		return nil, fmt.Errorf("status %d: %w", resp.StatusCode, e.ErrFetchFailed)
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return nil, backoff.Permanent(fmt.Errorf("status %d: %w", resp.StatusCode, e.ErrFetchFailed))
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, f.cfg.MaxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("%v: %w", err, e.ErrFetchFailed)
	}
	if int64(len(data)) > f.cfg.MaxBytes {
		return nil, backoff.Permanent(e.ErrFileTooLarge)
	}
	if len(data) == 0 {
		return nil, backoff.Permanent(fmt.Errorf("empty body: %w", e.ErrFetchFailed))
	}

	// Тип содержимого определяем по байтам, а не по заголовку:
	// заголовку внешнего сервера доверять нельзя
	detected := http.DetectContentType(data[:min(len(data), 512)])
	if !strings.HasPrefix(detected, "image/") {
		return nil, backoff.Permanent(fmt.Errorf("content type %s: %w", detected, e.ErrFetchFailed))
	}

	return data, nil
}
