package domain

import "errors"

var (
	ErrNotFound       = errors.New("not found")
	ErrRateLimited    = errors.New("rate limited")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrInvalidOrder   = errors.New("invalid order parameters")
	ErrOrderRejected  = errors.New("order rejected")
	ErrSigningFailed  = errors.New("signing failed")
	ErrMissingAddress = errors.New("wallet address not configured")
	ErrUpstream       = errors.New("upstream error")
)
