// internal/app/system/txn/txn.go
package txn

import (
	"context"
	"errors"
	"strings"

	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Run executes fn as one multi-document transaction.
//
// Standalone mongod cannot run transactions. When the server reports that,
// fn is executed again without a transaction and its writes land one by one.
// Callers that care about the partial-write window document it at the call
// site. Nothing is retried beyond that single fallback.
func Run(ctx context.Context, client *mongo.Client, log *zap.Logger, fn func(ctx context.Context) error) error {
	sess, err := client.StartSession()
	if err != nil {
		if IsNotSupported(err) {
			return fn(ctx)
		}
		return err
	}
	defer sess.EndSession(ctx)

	err = mongo.WithSession(ctx, sess, func(sc mongo.SessionContext) error {
		if err := sess.StartTransaction(); err != nil {
			return err
		}
		if err := fn(sc); err != nil {
			_ = sess.AbortTransaction(context.Background())
			return err
		}
		return sess.CommitTransaction(sc)
	})
	if err != nil && IsNotSupported(err) {
		if log != nil {
			log.Warn("transactions unavailable, writing without one", zap.Error(err))
		}
		return fn(ctx)
	}
	return err
}

// IsNotSupported reports whether err means the deployment cannot run
// multi-document transactions.
func IsNotSupported(err error) bool {
	if err == nil {
		return false
	}

	var ce mongo.CommandError
	if errors.As(err, &ce) {
		switch ce.Code {
		case 20, // IllegalOperation: "Transaction numbers are only allowed on a replica set member or mongos"
			51,  // legacy illegal operation
			263: // OperationNotSupportedInTransaction
			return true
		}
	}

	msg := strings.ToLower(err.Error())
	hits := 0
	for _, kw := range []string{"transaction", "replica set", "session", "not supported", "illegal operation"} {
		if strings.Contains(msg, kw) {
			hits++
		}
	}
	return hits >= 2
}
