package mocks

import (
	"context"

	"github.com/metinatakli/payment-gateway/internal/domain"
)

type MockPaymentLocker struct {
	LockFunc func(ctx context.Context, key string) (domain.UnlockFunc, error)
}

func (m *MockPaymentLocker) Lock(ctx context.Context, key string) (domain.UnlockFunc, error) {
	if m.LockFunc == nil {
		return func(context.Context) error { return nil }, nil
	}

	return m.LockFunc(ctx, key)
}
