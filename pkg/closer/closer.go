// Package closer обеспечивает упорядоченное освобождение ресурсов при остановке приложения.
package closer

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// Func — сигнатура функции закрытия ресурса.
type Func func(ctx context.Context) error

// Closer накапливает функции закрытия и запускает их в порядке LIFO.
type Closer struct {
	mu    sync.Mutex
	once  sync.Once
	funcs []Func
}

func New() *Closer {
	return &Closer{}
}

// Add регистрирует функцию закрытия. Порядок регистрации определяет порядок закрытия (LIFO).
func (c *Closer) Add(f Func) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.funcs = append(c.funcs, f)
}

// Close закрывает все зарегистрированные ресурсы в обратном порядке.
// При отмене контекста оставшиеся функции не запускаются, их количество попадает в ошибку.
func (c *Closer) Close(ctx context.Context) error {
	var err error
	c.once.Do(func() {
		c.mu.Lock()
		funcs := c.funcs
		c.mu.Unlock()

		var msgs []string
		for i := len(funcs) - 1; i >= 0; i-- {
			select {
			case <-ctx.Done():
				msgs = append(msgs, fmt.Sprintf("[!] %d resource(s) skipped: %v", i+1, ctx.Err()))
				err = fmt.Errorf("shutdown interrupted:\n%s", strings.Join(msgs, "\n"))
				return
			default:
			}

			if closeErr := funcs[i](ctx); closeErr != nil {
				msgs = append(msgs, fmt.Sprintf("[!] %v", closeErr))
			}
		}

		if len(msgs) > 0 {
			err = fmt.Errorf("shutdown finished with error(s):\n%s", strings.Join(msgs, "\n"))
		}
	})

	return err
}
