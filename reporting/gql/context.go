package gql

import (
	"context"

	"gorm.io/gorm"
)

type contextKey string

const txnContextKey contextKey = "txn"

// WithTxn binds the request-scoped transaction to the context. Every resolver
// and permission check in the request operates on this single session; none
// of them opens its own.
func WithTxn(ctx context.Context, txn *gorm.DB) context.Context {
	return context.WithValue(ctx, txnContextKey, txn)
}

func TxnFromContext(ctx context.Context) *gorm.DB {
	txn, _ := ctx.Value(txnContextKey).(*gorm.DB)
	return txn
}
