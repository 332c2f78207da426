package persistence

import (
	"context"

	"github.com/erp/ordersync/internal/domain/integration"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type txKey struct{}

// GormTxManager implements integration.TxManager with GORM transactions.
// The transaction travels in the context; nested calls join the outer one.
type GormTxManager struct {
	db *gorm.DB
}

// NewGormTxManager creates a new GormTxManager.
func NewGormTxManager(db *gorm.DB) *GormTxManager {
	return &GormTxManager{db: db}
}

// WithinTx runs fn inside a transaction. If fn returns an error the
// transaction is rolled back, otherwise it is committed.
func (m *GormTxManager) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(txKey{}).(*gorm.DB); ok {
		return fn(ctx)
	}
	return m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(context.WithValue(ctx, txKey{}, tx))
	})
}

// conn returns the transaction carried by ctx, or db bound to ctx.
func conn(ctx context.Context, db *gorm.DB) *gorm.DB {
	if tx, ok := ctx.Value(txKey{}).(*gorm.DB); ok {
		return tx.WithContext(ctx)
	}
	return db.WithContext(ctx)
}

// forUpdate adds a row lock on databases that support one.
func forUpdate(q *gorm.DB) *gorm.DB {
	if q.Dialector.Name() == "postgres" {
		return q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return q
}

var _ integration.TxManager = (*GormTxManager)(nil)
