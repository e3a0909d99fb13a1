// package retry wraps catalog calls with a bounded retry loop.
//
// A call is attempted once and then retried up to [MaxRetries] times while it keeps
// failing with a transient error. The delay before each retry depends on how many
// retries remain, escalating from one second to ten minutes. Running out of retries
// yields an [ExhaustedError], which callers treat as fatal for the whole run.
package retry

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"runtime/debug"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/plsync/internal/shared"
)

// MaxRetries is the number of retries after the initial attempt.
const MaxRetries = 5

// DefaultSchedule maps remaining retries to the delay before the next attempt.
var DefaultSchedule = map[int]time.Duration{
	5: time.Second,
	4: 10 * time.Second,
	3: time.Minute,
	2: 5 * time.Minute,
	1: 10 * time.Minute,
}

// Sleeper pauses between attempts. It must return early with ctx.Err() when ctx ends.
type Sleeper func(ctx context.Context, d time.Duration) error

// Policy retries transient failures on a fixed schedule.
type Policy struct {
	Retries  int
	Schedule map[int]time.Duration
	Sleep    Sleeper
	Logger   *log.Logger
}

// New returns a Policy with the default schedule and a context-aware sleep.
func New(logger *log.Logger) *Policy {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &Policy{
		Retries:  MaxRetries,
		Schedule: DefaultSchedule,
		Sleep:    SleepWithContext,
		Logger:   logger,
	}
}

// ExhaustedError reports a call that kept failing after every retry.
type ExhaustedError struct {
	Op       string
	Args     []any
	Attempts int
	Err      error
	Stack    []byte
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("%s failed after %d attempts: %v", e.Op, e.Attempts, e.Err)
}

func (e *ExhaustedError) Unwrap() error {
	return e.Err
}

// Do invokes fn until it succeeds, fails with a non-transient error, or retries run out.
//
// op and args describe the call and are only used for logging and the exhaustion report.
func Do[T any](ctx context.Context, p *Policy, op string, args []any, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	if p == nil {
		p = New(nil)
	}

	sleep := p.Sleep
	if sleep == nil {
		sleep = SleepWithContext
	}

	attempts := 0
	for remaining := p.Retries; ; remaining-- {
		attempts++
		v, err := fn(ctx)
		if err == nil {
			return v, nil
		}
		if !IsTransient(err) {
			return zero, err
		}
		if remaining <= 0 {
			if p.Logger != nil {
				p.Logger.Error("could not be recovered", "op", op, "err", err)
			}
			return zero, &ExhaustedError{Op: op, Args: args, Attempts: attempts, Err: err, Stack: debug.Stack()}
		}

		if p.Logger != nil {
			p.Logger.Warn("retrying", "op", op, "remaining", remaining, "err", err)
		}
		if serr := sleep(ctx, p.delay(remaining)); serr != nil {
			return zero, serr
		}
	}
}

// Run is [Do] for calls without a result.
func Run(ctx context.Context, p *Policy, op string, args []any, fn func(context.Context) error) error {
	_, err := Do(ctx, p, op, args, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}

func (p *Policy) delay(remaining int) time.Duration {
	if d, ok := p.Schedule[remaining]; ok {
		return d
	}
	return time.Second
}

// IsTransient reports whether err is worth retrying: rate limiting, transport
// failures and remote API errors. Context cancellation, missing resources and
// rejected credentials never are.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if errors.Is(err, shared.ErrNotFound) || errors.Is(err, shared.ErrNotAuthenticated) {
		return false
	}
	if errors.Is(err, shared.ErrRateLimited) ||
		errors.Is(err, shared.ErrAPIRequest) ||
		errors.Is(err, shared.ErrServiceUnavailable) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return true
	}

	msg := strings.ToLower(err.Error())
	for _, token := range []string{"connection reset", "connection refused", "broken pipe", "unexpected eof"} {
		if strings.Contains(msg, token) {
			return true
		}
	}
	return false
}

// SleepWithContext blocks for d, returning early if ctx is cancelled.
func SleepWithContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
