package resilience

import (
	"context"
	"errors"
	"net/http"
	"time"

	apperrors "github.com/Adithya-Monish-Kumar-K/Query-Expansion-Evaluation/pkg/errors"
)

// WithTimeout runs fn with a context cancelled after timeout. If fn has not
// returned by then, WithTimeout returns an ErrTimeout error without waiting
// for it. A panic in fn is returned as an ErrInternal error. Cancellation
// of the parent context is returned as ctx.Err().
func WithTimeout(ctx context.Context, timeout time.Duration, name string, fn func(ctx context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if timeout <= 0 {
		return recovered(ctx, name, fn)
	}
	timeoutCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	done := make(chan error, 1)
	go func() {
		done <- recovered(timeoutCtx, name, fn)
	}()

	expired := func() error {
		if err := ctx.Err(); err != nil {
			return err
		}
		return apperrors.Newf(apperrors.ErrTimeout, http.StatusGatewayTimeout, "%s exceeded %v", name, timeout)
	}
	select {
	case err := <-done:
		if err != nil && errors.Is(timeoutCtx.Err(), context.DeadlineExceeded) {
			return expired()
		}
		return err
	case <-timeoutCtx.Done():
		return expired()
	}
}

func recovered(ctx context.Context, name string, fn func(ctx context.Context) error) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = apperrors.Newf(apperrors.ErrInternal, http.StatusInternalServerError, "%s panicked: %v", name, p)
		}
	}()
	return fn(ctx)
}
