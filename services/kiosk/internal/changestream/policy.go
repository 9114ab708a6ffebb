package changestream

import "time"

const (
	DefaultInitialDelay = 2 * time.Second
	DefaultMaxRetries   = 5
	MaxDelay            = 5 * time.Minute
)

// Policy decides how long to wait after the n-th consecutive subscription
// failure and when to give up.
type Policy struct {
	InitialDelay time.Duration
	MaxRetries   int
}

func DefaultPolicy() Policy {
	return Policy{InitialDelay: DefaultInitialDelay, MaxRetries: DefaultMaxRetries}
}

// Delay for failure n (n >= 1) is InitialDelay * 2^(n-1), capped at
// MaxDelay or InitialDelay, whichever is larger.
func (p Policy) Delay(n int) time.Duration {
	if n < 1 {
		n = 1
	}
	if p.InitialDelay <= 0 {
		return 0
	}
	ceiling := MaxDelay
	if p.InitialDelay > ceiling {
		ceiling = p.InitialDelay
	}
	shift := uint(n - 1)
	if shift >= 63 || p.InitialDelay > ceiling>>shift {
		return ceiling
	}
	return p.InitialDelay << shift
}

// Exhausted reports whether failure n is fatal.
func (p Policy) Exhausted(n int) bool {
	return n >= p.MaxRetries
}
