package core

import (
	"errors"
	"fmt"
)

var (
	// ErrCacheMiss is returned when a cache entry is absent or expired
	ErrCacheMiss = errors.New("cache entry not found")
	// ErrUserBanned is returned when the requesting user is banned
	ErrUserBanned = errors.New("user is banned")
)

// ResolveError is an error object returned by the card data API
// (not found, ambiguous name, rate limited). It is never cached.
type ResolveError struct {
	Status   int
	Details  string
	Warnings []string
}

func (e *ResolveError) Error() string {
	if e.Details == "" {
		return fmt.Sprintf("card API error (status %d)", e.Status)
	}
	return e.Details
}

// NotFound reports whether the resolver found no match for the query
func (e *ResolveError) NotFound() bool {
	return e.Status == 404
}
