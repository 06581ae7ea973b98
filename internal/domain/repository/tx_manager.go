package repository

import (
	"context"
	"errors"
)

// ErrDuplicateKey is returned by repositories when an insert violates a unique constraint
var ErrDuplicateKey = errors.New("duplicate key")

// TxManager runs fn inside a single storage transaction. Repositories called
// with the ctx passed to fn join that transaction. Returning an error from fn
// rolls everything back.
type TxManager interface {
	WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
