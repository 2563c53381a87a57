package retry

import (
	"errors"
	"math/rand"
	"time"

	"github.com/code-payments/mov-swap/pkg/retry/backoff"
)

// Strategy decides whether an action that failed on the given attempt should
// run again. Strategies may sleep.
type Strategy func(attempts uint, err error) bool

// Limit caps the total number of attempts, including the first one.
func Limit(maxAttempts uint) Strategy {
	return func(attempts uint, _ error) bool {
		return attempts < maxAttempts
	}
}

// Retriable retries only errors accepted by the predicate.
func Retriable(predicate func(error) bool) Strategy {
	return func(_ uint, err error) bool {
		return predicate(err)
	}
}

// RetriableErrors retries only errors matching one of the targets.
func RetriableErrors(targets ...error) Strategy {
	return Retriable(func(err error) bool {
		return matchesAny(err, targets)
	})
}

// NonRetriableErrors retries everything except errors matching one of the
// targets.
func NonRetriableErrors(targets ...error) Strategy {
	return Retriable(func(err error) bool {
		return !matchesAny(err, targets)
	})
}

// Backoff sleeps for the delay given by the backoff strategy, capped at
// maxBackoff, and always allows the retry.
func Backoff(strategy backoff.Strategy, maxBackoff time.Duration) Strategy {
	return BackoffWithJitter(strategy, maxBackoff, 0)
}

// BackoffWithJitter is Backoff with the capped delay spread uniformly over
// +/- jitter of itself. A jitter of 0.1 turns a 100ms delay into 90ms..110ms.
func BackoffWithJitter(strategy backoff.Strategy, maxBackoff time.Duration, jitter float64) Strategy {
	return func(attempts uint, _ error) bool {
		delay := strategy(attempts)
		if delay > maxBackoff {
			delay = maxBackoff
		}

		if jitter > 0 {
			delay = time.Duration(float64(delay) * (1 + jitter*(2*rand.Float64()-1)))
		}

		sleeperImpl.Sleep(delay)
		return true
	}
}

func matchesAny(err error, targets []error) bool {
	for _, target := range targets {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

type sleeper interface {
	Sleep(time.Duration)
}

type realSleeper struct{}

func (realSleeper) Sleep(d time.Duration) { time.Sleep(d) }

var sleeperImpl sleeper = realSleeper{}
