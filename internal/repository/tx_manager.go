package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"
)

type contextKey string

const (
	txKey    contextKey = "gorm_tx"
	hooksKey contextKey = "commit_hooks"
)

// ErrStaleWrite is returned by guarded updates that matched no row because
// another transaction moved the row on first.
var ErrStaleWrite = errors.New("stale write: row version changed")

// TransactionManager manages database transactions via context injection.
// Repositories called with the txCtx join the transaction.
type TransactionManager interface {
	RunInTx(ctx context.Context, fn func(txCtx context.Context) error) error
}

type transactionManager struct {
	db *gorm.DB
}

func NewTransactionManager(db *gorm.DB) TransactionManager {
	return &transactionManager{db: db}
}

// RunInTx reuses an outer transaction when ctx already carries one, so
// services can compose without opening nested transactions.
func (t *transactionManager) RunInTx(ctx context.Context, fn func(txCtx context.Context) error) error {
	if _, ok := ctx.Value(txKey).(*gorm.DB); ok {
		return fn(ctx)
	}
	ctx, flush := WithCommitHooks(ctx)
	err := t.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		txCtx := context.WithValue(ctx, txKey, tx)
		return fn(txCtx)
	})
	flush(err == nil)
	return err
}

type commitHooks struct {
	fns []func()
}

// WithCommitHooks opens a hook list for an outermost transaction. flush runs
// the collected hooks in order when committed is true and drops them otherwise.
func WithCommitHooks(ctx context.Context) (context.Context, func(committed bool)) {
	hooks := &commitHooks{}
	return context.WithValue(ctx, hooksKey, hooks), func(committed bool) {
		fns := hooks.fns
		hooks.fns = nil
		if !committed {
			return
		}
		for _, fn := range fns {
			fn()
		}
	}
}

// AfterCommit defers fn until the transaction carried by ctx commits. Outside
// a transaction fn runs immediately.
func AfterCommit(ctx context.Context, fn func()) {
	if hooks, ok := ctx.Value(hooksKey).(*commitHooks); ok {
		hooks.fns = append(hooks.fns, fn)
		return
	}
	fn()
}

// InTx reports whether ctx belongs to an open transaction.
func InTx(ctx context.Context) bool {
	_, ok := ctx.Value(hooksKey).(*commitHooks)
	return ok
}

// GetDB extracts the transaction DB from context if present, otherwise returns root DB.
func GetDB(ctx context.Context, rootDB *gorm.DB) *gorm.DB {
	if tx, ok := ctx.Value(txKey).(*gorm.DB); ok {
		return tx.WithContext(ctx)
	}
	return rootDB.WithContext(ctx)
}
