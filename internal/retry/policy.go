package retry

import (
	"time"
)

const (
	defaultBase           = 2 * time.Second
	defaultRateLimitCap   = 64 * time.Second
	defaultServerErrorCap = 32 * time.Second
	defaultMaxTotalWait   = 3 * time.Minute
	defaultJitter         = time.Second
)

// Policy bounds how often and how long an operation is retried.
type Policy struct {
	// MaxAttempts counts every call of the operation, including the first.
	MaxAttempts int
	// Base is the first backoff delay; each further retry doubles it.
	Base time.Duration
	// RateLimitCap bounds the delay after rate-limit or quota failures.
	RateLimitCap time.Duration
	// ServerErrorCap bounds the delay after transient server failures.
	ServerErrorCap time.Duration
	// MaxTotalWait bounds the summed sleep time across all retries. Zero means
	// only MaxAttempts applies.
	MaxTotalWait time.Duration
	// Jitter is the upper bound of the random delay added to each backoff.
	Jitter time.Duration
}

// Default returns the policy used for inference calls.
func Default() Policy {
	return Policy{
		MaxAttempts:    3,
		Base:           defaultBase,
		RateLimitCap:   defaultRateLimitCap,
		ServerErrorCap: defaultServerErrorCap,
		MaxTotalWait:   defaultMaxTotalWait,
		Jitter:         defaultJitter,
	}
}

// Transfer returns the policy used for asset downloads.
func Transfer() Policy {
	p := Default()
	p.MaxAttempts = 5
	return p
}

func (p Policy) attempts() int {
	if p.MaxAttempts <= 0 {
		return 1
	}
	return p.MaxAttempts
}

func (p Policy) capFor(class Class) time.Duration {
	switch class {
	case ClassRateLimited:
		if p.RateLimitCap > 0 {
			return p.RateLimitCap
		}
		return defaultRateLimitCap
	default:
		if p.ServerErrorCap > 0 {
			return p.ServerErrorCap
		}
		return defaultServerErrorCap
	}
}

// backoff returns the delay before retry number attempt (1-based) without
// jitter: Base, 2*Base, 4*Base, ... clamped to the class cap.
func (p Policy) backoff(class Class, attempt int) time.Duration {
	if p.Base <= 0 {
		return 0
	}
	if attempt <= 0 {
		attempt = 1
	}
	limit := p.capFor(class)
	delay := p.Base
	for i := 1; i < attempt; i++ {
		if delay > limit/2 {
			return limit
		}
		delay *= 2
	}
	if delay > limit {
		return limit
	}
	return delay
}
