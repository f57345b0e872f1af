package inmemory

import (
	"context"
	"sync"

	"blogapi/internal/service"
)

var _ service.TxManager = (*TxManager)(nil)

// TxManager runs one mutation at a time. There is no rollback, so callers
// must make the write their last step. Do is not reentrant.
type TxManager struct {
	mu sync.Mutex
}

func NewTxManager() *TxManager {
	return &TxManager{}
}

func (m *TxManager) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	return fn(ctx)
}
