package domain

import "context"

type UnlockFunc func(ctx context.Context) error

// PaymentLocker serialises operations on one payment across processes, e.g. a
// webhook delivery racing a caller initiated execute.
type PaymentLocker interface {
	Lock(ctx context.Context, key string) (UnlockFunc, error)
}
