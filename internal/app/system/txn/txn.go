// Package txn runs multi-document writes inside a MongoDB transaction when
// the deployment supports one (replica set or sharded cluster), and falls
// back to plain sequential execution on standalone servers.
//
// Callers that fall back lose atomicity. They are told so through the
// Atomic flag on the returned Result and are expected to compensate.
package txn

import (
	"context"
	"errors"
	"strings"
	"sync"

	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Result describes how a unit of work was executed.
type Result struct {
	Atomic bool
}

// Runner executes units of work. The zero value is not usable; use New.
type Runner struct {
	client *mongo.Client
	log    *zap.Logger

	once        sync.Once
	unsupported bool
	mu          sync.RWMutex
}

// New returns a Runner bound to client.
func New(client *mongo.Client, logger *zap.Logger) *Runner {
	return &Runner{client: client, log: logger}
}

// Do runs fn inside a transaction. The context passed to fn carries the
// session; every store call made with it joins the transaction.
//
// When the server reports that transactions are not supported, Do
// remembers that and runs fn directly from then on.
func (r *Runner) Do(ctx context.Context, fn func(ctx context.Context) error) (Result, error) {
	if r.client == nil || r.isUnsupported() {
		return Result{Atomic: false}, fn(ctx)
	}

	sess, err := r.client.StartSession()
	if err != nil {
		if IsNotSupported(err) {
			r.markUnsupported(err)
			return Result{Atomic: false}, fn(ctx)
		}
		return Result{}, err
	}
	defer sess.EndSession(ctx)

	_, err = sess.WithTransaction(ctx, func(sc mongo.SessionContext) (any, error) {
		return nil, fn(sc)
	})
	if err != nil && IsNotSupported(err) {
		r.markUnsupported(err)
		return Result{Atomic: false}, fn(ctx)
	}
	return Result{Atomic: true}, err
}

func (r *Runner) isUnsupported() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.unsupported
}

func (r *Runner) markUnsupported(err error) {
	r.mu.Lock()
	r.unsupported = true
	r.mu.Unlock()
	r.once.Do(func() {
		if r.log != nil {
			r.log.Warn("transactions not supported; falling back to compensating writes",
				zap.Error(err))
		}
	})
}

// IsNotSupported reports whether err means the server cannot run
// multi-document transactions.
func IsNotSupported(err error) bool {
	if err == nil {
		return false
	}

	var ce mongo.CommandError
	if errors.As(err, &ce) {
		switch ce.Code {
		case 20, // IllegalOperation
			51,  // CannotUseSession / replica-set-only
			263: // OperationNotSupportedInTransaction
			return true
		}
	}

	// Any two keywords; one alone ("transaction failed") is too vague.
	s := strings.ToLower(err.Error())
	hits := 0
	for _, kw := range []string{"transaction", "replica set", "session", "not supported", "illegal operation"} {
		if strings.Contains(s, kw) {
			hits++
		}
	}
	return hits >= 2
}
