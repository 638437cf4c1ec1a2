package retry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand/v2"
	"net/http"
	"time"

	"github.com/amishk599/jobsieve/internal/model"
)

// Policy is a bounded exponential backoff schedule.
type Policy struct {
	MaxAttempts int           // attempts per page, including the first
	BaseDelay   time.Duration // delay after the first failure
	MaxDelay    time.Duration // cap on any single delay
	Jitter      time.Duration // upper bound of the random perturbation added to each delay
}

// DefaultPolicy returns the policy used when config leaves retry unset.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts: 3,
		BaseDelay:   2 * time.Second,
		MaxDelay:    time.Minute,
		Jitter:      500 * time.Millisecond,
	}
}

// Delay computes min(BaseDelay*2^attempt + jitter, MaxDelay). attempt is
// zero for the first retry. Without a MaxDelay the doubling saturates at
// math.MaxInt64 instead of overflowing.
func (p Policy) Delay(attempt int, jitter time.Duration) time.Duration {
	d := p.BaseDelay
	for i := 0; i < attempt; i++ {
		if p.MaxDelay > 0 && d >= p.MaxDelay {
			break
		}
		if d > math.MaxInt64/2 {
			d = math.MaxInt64
			break
		}
		d *= 2
	}
	if jitter > 0 && d > math.MaxInt64-jitter {
		d = math.MaxInt64
	} else {
		d += jitter
	}
	if p.MaxDelay > 0 && d > p.MaxDelay {
		d = p.MaxDelay
	}
	return d
}

// Phase is a step of the per-source request lifecycle.
type Phase int

const (
	Idle Phase = iota
	Waiting
	Requesting
	Backoff
)

func (p Phase) String() string {
	switch p {
	case Idle:
		return "idle"
	case Waiting:
		return "waiting"
	case Requesting:
		return "requesting"
	case Backoff:
		return "backoff"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// State is the backoff state of one source. It is owned by the caller that
// runs the source and is not safe for concurrent use: pages of a source are
// fetched one at a time.
type State struct {
	policy  Policy
	phase   Phase
	attempt int           // consecutive failures on the current page
	delay   time.Duration // last computed backoff delay
	random  func() float64
}

// NewState creates an idle state for the given policy.
func NewState(p Policy) *State {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = 1
	}
	return &State{policy: p, random: rand.Float64}
}

func (s *State) Phase() Phase { return s.phase }

func (s *State) Attempt() int { return s.attempt }

// Delay is the most recent backoff delay for the current page.
func (s *State) Delay() time.Duration { return s.delay }

func (s *State) Policy() Policy { return s.policy }

// Wait marks the source as waiting for its next request slot.
func (s *State) Wait() { s.phase = Waiting }

// Request marks a request as in flight.
func (s *State) Request() { s.phase = Requesting }

// Succeed returns to idle and clears the failure count.
func (s *State) Succeed() { s.reset() }

// Fail records a failed attempt. It returns the delay to wait before the next
// attempt, or exhausted=true once MaxAttempts consecutive failures have been
// seen, in which case the state resets for the next page. retryAfter, when
// positive, raises the computed delay (still capped at MaxDelay).
func (s *State) Fail(retryAfter time.Duration) (delay time.Duration, exhausted bool) {
	s.attempt++
	if s.attempt >= s.policy.MaxAttempts {
		s.reset()
		return 0, true
	}

	var jitter time.Duration
	if s.policy.Jitter > 0 {
		jitter = time.Duration(s.random() * float64(s.policy.Jitter))
	}
	d := s.policy.Delay(s.attempt-1, jitter)
	if retryAfter > d {
		d = retryAfter
		if s.policy.MaxDelay > 0 && d > s.policy.MaxDelay {
			d = s.policy.MaxDelay
		}
	}
	// Delays within one page never shrink.
	if d < s.delay {
		d = s.delay
	}
	s.delay = d
	s.phase = Backoff
	return d, false
}

// Abort resets the state without counting a failure (permanent errors, cancellation).
func (s *State) Abort() { s.reset() }

func (s *State) reset() {
	s.phase = Idle
	s.attempt = 0
	s.delay = 0
}

// Do runs op until it succeeds, fails permanently, exhausts the policy or ctx
// is cancelled. Retry exhaustion is reported as *model.TransientFetchError and
// non-retryable failures as *model.PermanentFetchError.
func Do[T any](ctx context.Context, state *State, logger *slog.Logger, target string, op func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	attempts := 0
	for {
		state.Request()
		v, err := op(ctx)
		attempts++
		if err == nil {
			state.Succeed()
			return v, nil
		}

		if ctx.Err() != nil {
			state.Abort()
			return zero, fmt.Errorf("fetch %s: %w", target, ctx.Err())
		}

		if !IsRetryable(err) {
			state.Abort()
			var perm *model.PermanentFetchError
			if errors.As(err, &perm) {
				return zero, err
			}
			return zero, &model.PermanentFetchError{URL: target, Err: err}
		}

		delay, exhausted := state.Fail(retryAfter(err))
		if exhausted {
			return zero, &model.TransientFetchError{URL: target, Attempts: attempts, Err: err}
		}

		logger.Warn("retrying after transient error",
			"target", target,
			"attempt", attempts,
			"max_attempts", state.policy.MaxAttempts,
			"delay", delay,
			"error", err,
		)

		state.Wait()
		select {
		case <-ctx.Done():
			state.Abort()
			return zero, fmt.Errorf("retry cancelled: %w", ctx.Err())
		case <-time.After(delay):
		}
	}
}

func retryAfter(err error) time.Duration {
	var httpErr *model.HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.RetryAfter
	}
	return 0
}

// IsRetryable reports whether err is a transient failure: network errors,
// parse failures, 408, 429, 5xx and other unexpected statuses. Client
// errors such as 404 are permanent.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var perm *model.PermanentFetchError
	if errors.As(err, &perm) {
		return false
	}

	var parseErr *model.ParseError
	if errors.As(err, &parseErr) {
		return true
	}

	var httpErr *model.HTTPError
	if errors.As(err, &httpErr) {
		switch {
		case httpErr.StatusCode == http.StatusTooManyRequests,
			httpErr.StatusCode == http.StatusRequestTimeout:
			return true
		case httpErr.StatusCode >= 500:
			return true
		case httpErr.StatusCode >= 400:
			return false
		}
		return true
	}

	// Network, DNS, truncated bodies.
	return true
}
