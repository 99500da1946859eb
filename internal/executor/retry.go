package executor

import "github.com/alanyoungcy/polycopy/internal/domain"

// RetryController counts execution attempts per trade key for the life of
// the process. A key whose count reaches the ceiling is never worked again;
// MarkDone jumps straight to the ceiling. It is owned by the poll loop and is
// not safe for concurrent use.
type RetryController struct {
	attempts map[domain.TradeKey]int
	ceiling  int
}

// NewRetryController creates a controller with the given ceiling. Values
// below one are raised to one.
func NewRetryController(ceiling int) *RetryController {
	if ceiling < 1 {
		ceiling = 1
	}
	return &RetryController{
		attempts: make(map[domain.TradeKey]int),
		ceiling:  ceiling,
	}
}

// Attempts returns the number of attempts recorded against key.
func (r *RetryController) Attempts(key domain.TradeKey) int {
	return r.attempts[key]
}

// RecordAttempt increments the attempt count for key and returns the new
// value.
func (r *RetryController) RecordAttempt(key domain.TradeKey) int {
	r.attempts[key]++
	return r.attempts[key]
}

// MarkDone retires key permanently.
func (r *RetryController) MarkDone(key domain.TradeKey) {
	r.attempts[key] = r.ceiling
}

// IsExhausted reports whether key must not be worked again.
func (r *RetryController) IsExhausted(key domain.TradeKey) bool {
	return r.attempts[key] >= r.ceiling
}

// Ceiling returns the configured attempt ceiling.
func (r *RetryController) Ceiling() int {
	return r.ceiling
}
