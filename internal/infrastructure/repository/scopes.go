package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

type ctxKey string

const txKey ctxKey = "gorm_tx"

// dbFromContext returns the transaction started by WithinTransaction, or db
// when ctx carries none. Every repository query goes through it.
func dbFromContext(ctx context.Context, db *gorm.DB) *gorm.DB {
	if tx, ok := ctx.Value(txKey).(*gorm.DB); ok {
		return tx.WithContext(ctx)
	}
	return db.WithContext(ctx)
}

// BusinessDayScope restricts a query to rows whose column falls on day
func BusinessDayScope(column string, day time.Time) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where(column+" = ?", day.Format("2006-01-02"))
	}
}

// isUniqueViolation reports a postgres unique_violation, whether it surfaces as
// the raw pgconn error or as gorm's translated ErrDuplicatedKey.
func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
