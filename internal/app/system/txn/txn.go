// Package txn runs multi-document writes inside a MongoDB transaction when the
// deployment supports one, and directly otherwise.
package txn

import (
	"context"
	"errors"
	"strings"

	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Runner executes functions inside a session transaction.
type Runner struct {
	client *mongo.Client
	log    *zap.Logger
}

func New(client *mongo.Client, log *zap.Logger) *Runner {
	return &Runner{client: client, log: log}
}

// InTx runs fn in a transaction. Standalone servers reject transactions; in
// that case fn runs without one and a warning is logged.
func (r *Runner) InTx(ctx context.Context, fn func(ctx context.Context) error) error {
	sess, err := r.client.StartSession()
	if err != nil {
		if IsNotSupported(err) {
			return r.direct(ctx, fn, err)
		}
		return err
	}
	defer sess.EndSession(ctx)

	// A server without transaction support rejects the first operation in
	// the transaction, so nothing has been written when we fall back.
	_, err = sess.WithTransaction(ctx, func(sc mongo.SessionContext) (any, error) {
		return nil, fn(sc)
	})
	if err != nil && IsNotSupported(err) {
		return r.direct(ctx, fn, err)
	}
	return err
}

func (r *Runner) direct(ctx context.Context, fn func(ctx context.Context) error, cause error) error {
	r.log.Warn("transactions not supported; running without one", zap.Error(cause))
	return fn(ctx)
}

// IsNotSupported reports whether err means the server cannot run transactions
// (standalone mongod, some hosted vendors).
func IsNotSupported(err error) bool {
	if err == nil {
		return false
	}
	var ce mongo.CommandError
	if errors.As(err, &ce) {
		switch ce.Code {
		case 20, 51, 263: // IllegalOperation, IllegalOperation (legacy), OperationNotSupportedInTransaction
			return true
		}
	}
	// Fall back to message matching; any two of these together are enough.
	s := strings.ToLower(err.Error())
	hits := 0
	for _, kw := range notSupportedKeywords {
		if strings.Contains(s, kw) {
			hits++
		}
	}
	return hits >= 2
}

var notSupportedKeywords = []string{"transaction", "replica set", "session", "not supported", "illegal operation"}
