package main

import (
	"context"
	"time"

	dErrors "campaign/pkg/domain-errors"
	txcontext "campaign/pkg/platform/tx"
)

const defaultTxTimeout = 5 * time.Second

// boundedTx gives every transaction a deadline unless the caller set one.
// Split-test creation and decisions run through it.
type boundedTx struct {
	runner  txcontext.Runner
	timeout time.Duration
}

func newBoundedTx(runner txcontext.Runner) *boundedTx {
	return &boundedTx{runner: runner, timeout: defaultTxTimeout}
}

func (t *boundedTx) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeStoreFailure, "transaction aborted: context cancelled")
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.timeout)
		defer cancel()
	}
	return t.runner.RunInTx(ctx, fn)
}
