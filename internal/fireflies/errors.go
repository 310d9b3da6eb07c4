// Firesync - Fireflies Transcript to Obsidian Vault Sync
// Copyright 2026 Firesync Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/firesync/firesync

package fireflies

import (
	"errors"
	"fmt"
	"time"
)

// ErrNotFound is returned when a transcript does not exist or is not
// accessible to the API key. Matched with errors.Is; the concrete error is
// an *APIError carrying the upstream code.
var ErrNotFound = errors.New("transcript not found")

// Category classifies an upstream failure for retry decisions.
type Category string

const (
	// CategoryRateLimited covers HTTP 429 and the GraphQL too_many_requests
	// code. Retried with backoff, honoring a server-provided Retry-After.
	CategoryRateLimited Category = "rate-limited"

	// CategoryForbidden covers invalid/expired API keys and plan
	// restrictions. Never retried.
	CategoryForbidden Category = "forbidden"

	// CategoryNotFound covers object_not_found. Never retried.
	CategoryNotFound Category = "not-found"

	// CategoryInvalidArgument covers malformed queries and missing
	// arguments. Never retried.
	CategoryInvalidArgument Category = "invalid-argument"

	// CategoryTransient covers network errors, timeouts and 5xx responses.
	// Retried with exponential backoff.
	CategoryTransient Category = "transient"
)

// APIError is a classified Fireflies API failure.
type APIError struct {
	Category Category
	// Code is the upstream error code when one was provided
	// (e.g. "object_not_found", "too_many_requests").
	Code    string
	Message string
	// RetryAfter is a server-provided retry hint; zero when absent.
	// When set it overrides the computed backoff delay.
	RetryAfter time.Duration
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("fireflies: %s (code: %s)", e.Message, e.Code)
	}
	return "fireflies: " + e.Message
}

// Temporary reports whether the failure is worth retrying.
func (e *APIError) Temporary() bool {
	return e.Category == CategoryTransient || e.Category == CategoryRateLimited
}

// Is lets errors.Is(err, ErrNotFound) match not-found API errors.
func (e *APIError) Is(target error) bool {
	return target == ErrNotFound && e.Category == CategoryNotFound
}

// errorCodeCategories maps Fireflies GraphQL extension codes to categories.
// Codes the API may grow later default to transient so they get retried.
var errorCodeCategories = map[string]Category{
	"object_not_found":  CategoryNotFound,
	"too_many_requests": CategoryRateLimited,
	"forbidden":         CategoryForbidden,
	"paid_required":     CategoryForbidden,
	"invalid_arguments": CategoryInvalidArgument,
	"args_required":     CategoryInvalidArgument,
}

// categoryForCode classifies an upstream GraphQL error code.
func categoryForCode(code string) Category {
	if cat, ok := errorCodeCategories[code]; ok {
		return cat
	}
	return CategoryTransient
}

// newCodeError builds an APIError from a GraphQL error code and message.
func newCodeError(code, message string) *APIError {
	return &APIError{
		Category: categoryForCode(code),
		Code:     code,
		Message:  message,
	}
}

// transientErr wraps a low-level failure (network, 5xx) as retryable.
func transientErr(format string, args ...interface{}) *APIError {
	return &APIError{
		Category: CategoryTransient,
		Message:  fmt.Sprintf(format, args...),
	}
}
