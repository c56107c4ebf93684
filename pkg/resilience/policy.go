// Package resilience retries calls to peers that may be temporarily unavailable.
package resilience

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"
)

// DefaultInterval is the fixed wait between attempts when a Policy leaves Interval unset.
const DefaultInterval = 3 * time.Second

// Class is the retry classification of an attempt error.
type Class int

const (
	Transient Class = iota
	Permanent
)

// Outcome is how a retried call ended.
type Outcome int

const (
	Succeeded Outcome = iota
	// Rejected means the last error was classified Permanent.
	Rejected
	// Exhausted means MaxAttempts was reached while errors were still transient.
	Exhausted
	// Canceled means the caller's context ended.
	Canceled
)

func (o Outcome) String() string {
	switch o {
	case Succeeded:
		return "succeeded"
	case Rejected:
		return "rejected"
	case Exhausted:
		return "exhausted"
	case Canceled:
		return "canceled"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// Result describes a finished retry loop. Err is nil only when Outcome is Succeeded.
type Result struct {
	Outcome  Outcome
	Attempts int
	Err      error
}

// OK reports whether the call succeeded.
func (r Result) OK() bool { return r.Outcome == Succeeded }

// StatusError is returned by HTTP operations for a response status they did not accept.
type StatusError struct {
	Method     string
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s: unexpected status %d", e.Method, e.URL, e.StatusCode)
}

// Policy retries an operation with a fixed backoff. The zero value retries forever every
// DefaultInterval with no per-attempt timeout.
type Policy struct {
	Interval       time.Duration
	AttemptTimeout time.Duration
	// MaxAttempts bounds the loop. Zero or negative retries forever.
	MaxAttempts int
	Classify    func(error) Class
	Logger      *zap.Logger
}

type step int

const (
	stepAttempt step = iota
	stepClassify
	stepWait
	stepDone
)

// Do runs op until it succeeds, fails permanently, exhausts MaxAttempts or ctx ends.
// Each attempt gets its own context bounded by AttemptTimeout, so op must finish all
// work that depends on the context (including reading a response body) before returning.
func Do[T any](ctx context.Context, p Policy, op func(ctx context.Context) (T, error)) (T, Result) {
	var (
		zero  T
		value T
		err   error
		res   Result
	)
	log := p.logger()

	st := stepAttempt
	for st != stepDone {
		switch st {
		case stepAttempt:
			if ctx.Err() != nil {
				res.Outcome, res.Err = Canceled, canceledErr(ctx, err)
				st = stepDone
				continue
			}
			res.Attempts++
			value, err = runAttempt(ctx, p.AttemptTimeout, op)
			if err == nil {
				res.Outcome, res.Err = Succeeded, nil
				st = stepDone
				continue
			}
			st = stepClassify

		case stepClassify:
			switch {
			case ctx.Err() != nil:
				res.Outcome, res.Err = Canceled, canceledErr(ctx, err)
				st = stepDone
			case p.classify(err) == Permanent:
				res.Outcome, res.Err = Rejected, err
				st = stepDone
			case p.MaxAttempts > 0 && res.Attempts >= p.MaxAttempts:
				res.Outcome, res.Err = Exhausted, err
				st = stepDone
			default:
				st = stepWait
			}

		case stepWait:
			log.Warn("transient failure, retrying",
				zap.Int("attempt", res.Attempts),
				zap.Duration("backoff", p.interval()),
				zap.Error(err))
			if !sleep(ctx, p.interval()) {
				res.Outcome, res.Err = Canceled, canceledErr(ctx, err)
				st = stepDone
				continue
			}
			st = stepAttempt
		}
	}

	if res.Outcome != Succeeded {
		return zero, res
	}
	return value, res
}

func runAttempt[T any](ctx context.Context, timeout time.Duration, op func(ctx context.Context) (T, error)) (T, error) {
	if timeout <= 0 {
		return op(ctx)
	}
	actx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return op(actx)
}

func (p Policy) interval() time.Duration {
	if p.Interval <= 0 {
		return DefaultInterval
	}
	return p.Interval
}

func (p Policy) classify(err error) Class {
	if p.Classify != nil {
		return p.Classify(err)
	}
	return Classify(err)
}

func (p Policy) logger() *zap.Logger {
	if p.Logger == nil {
		return zap.NewNop()
	}
	return p.Logger
}

// Classify treats transport failures, attempt timeouts and the statuses a starting or
// overloaded peer answers with (404, 408, 429, 5xx) as transient. Anything else,
// such as a body that fails to decode, is permanent.
func Classify(err error) Class {
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return classifyStatus(statusErr.StatusCode)
	}

	var urlErr *url.Error
	var netErr net.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return Transient
	case errors.As(err, &urlErr), errors.As(err, &netErr):
		return Transient
	case errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
		return Transient
	}
	return Permanent
}

func classifyStatus(code int) Class {
	switch {
	case code == http.StatusNotFound,
		code == http.StatusRequestTimeout,
		code == http.StatusTooManyRequests,
		code >= 500:
		return Transient
	}
	return Permanent
}

func canceledErr(ctx context.Context, last error) error {
	if last == nil {
		return ctx.Err()
	}
	return fmt.Errorf("%w (last error: %v)", ctx.Err(), last)
}

func sleep(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}
