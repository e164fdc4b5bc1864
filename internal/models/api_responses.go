// Praxis - Education Portfolio Platform
// Copyright 2026 Praxis contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/praxis-edu/praxis

package models

import "time"

// APIResponse is the standardized envelope returned by every HTTP endpoint.
//
// Status is "success" or "error". On success Data carries the payload; on
// error the Error field is populated and Data is null. Metadata always
// carries the server timestamp plus cache information for observability.
type APIResponse struct {
	Status   string    `json:"status"`
	Data     any       `json:"data"`
	Metadata Metadata  `json:"metadata"`
	Error    *APIError `json:"error,omitempty"`
}

// Metadata carries per-response observability fields.
//
// QueryTimeMS is the backing-store fetch time in milliseconds and is zero
// for cache hits; Cached marks responses served from the response cache.
type Metadata struct {
	Timestamp   time.Time `json:"timestamp"`
	QueryTimeMS int64     `json:"query_time_ms,omitempty"`
	Cached      bool      `json:"cached,omitempty"`
}

// APIError is the structured error body.
//
// Common codes: VALIDATION_ERROR, AUTHENTICATION_ERROR, AUTHORIZATION_ERROR,
// NOT_FOUND, RATE_LIMIT_EXCEEDED, STORAGE_ERROR.
type APIError struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

// ListParams are the common query parameters for collection endpoints.
// They feed the cache key derivation, so equal parameters must compare
// equal after JSON serialization.
type ListParams struct {
	Page   int    `json:"page"`
	Limit  int    `json:"limit"`
	Sort   string `json:"sort,omitempty"`
	Filter string `json:"filter,omitempty"`
}

// LoginRequest is the body of POST /api/v1/auth/login. The password is
// plaintext in transit; HTTPS termination is assumed upstream.
type LoginRequest struct {
	Username   string `json:"username"`
	Password   string `json:"password"`
	RememberMe bool   `json:"remember_me"`
}

// LoginResponse returns the signed JWT for subsequent requests, sent as
// Authorization: Bearer <token>.
type LoginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	Username  string    `json:"username"`
	Role      string    `json:"role"`
	UserID    string    `json:"user_id"`
}
