// Praxis - Education Portfolio Platform
// Copyright 2026 Praxis contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/praxis-edu/praxis

package api

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/praxis-edu/praxis/internal/logging"
	"github.com/praxis-edu/praxis/internal/models"
	"github.com/praxis-edu/praxis/internal/validation"
)

// maxRequestBody bounds request body decoding. Entities are small; anything
// larger is either an attachment (which goes to media storage, not here) or
// abuse.
const maxRequestBody = 1 << 20 // 1 MB

// sanitizeLogValue removes control characters from strings to prevent log
// injection via attacker-controlled error text.
func sanitizeLogValue(s string) string {
	var result strings.Builder
	result.Grow(len(s))
	for _, r := range s {
		if r < 0x20 || r == 0x7F {
			result.WriteString(fmt.Sprintf("\\x%02x", r))
		} else {
			result.WriteRune(r)
		}
	}
	return result.String()
}

// respondJSON sends a JSON response with proper headers.
func respondJSON(w http.ResponseWriter, status int, response *models.APIResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache")

	data, err := json.Marshal(response)
	if err != nil {
		logging.Error().Err(err).Msg("Failed to marshal JSON response")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.WriteHeader(status)
	if _, err := w.Write(data); err != nil {
		logging.Error().Err(err).Msg("Failed to write JSON response")
	}
}

// respondData wraps a successful payload in the standard envelope.
func respondData(w http.ResponseWriter, status int, data any, meta models.Metadata) {
	if meta.Timestamp.IsZero() {
		meta.Timestamp = time.Now().UTC()
	}
	respondJSON(w, status, &models.APIResponse{
		Status:   "success",
		Data:     data,
		Metadata: meta,
	})
}

// respondError sends an error response.
func respondError(w http.ResponseWriter, status int, code, message string, err error) {
	if err != nil {
		logging.Error().
			Str("code", sanitizeLogValue(code)).
			Str("error", sanitizeLogValue(err.Error())).
			Msg("API Error")
	}

	respondJSON(w, status, &models.APIResponse{
		Status:   "error",
		Data:     nil,
		Metadata: models.Metadata{Timestamp: time.Now().UTC()},
		Error: &models.APIError{
			Code:    code,
			Message: message,
		},
	})
}

// decodeBody decodes and validates a JSON request body into v. On failure
// the error response has already been written and false is returned.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBody)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", "invalid JSON body", err)
		return false
	}

	if verr := validation.ValidateStruct(v); verr != nil {
		respondJSON(w, http.StatusBadRequest, &models.APIResponse{
			Status:   "error",
			Metadata: models.Metadata{Timestamp: time.Now().UTC()},
			Error: &models.APIError{
				Code:    "VALIDATION_ERROR",
				Message: verr.Error(),
				Details: verr.Details(),
			},
		})
		return false
	}
	return true
}

// getIntParam extracts an integer query parameter with a default value.
func getIntParam(r *http.Request, name string, def int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return n
}

// listParams extracts the common pagination parameters.
func listParams(r *http.Request) models.ListParams {
	return models.ListParams{
		Page:   getIntParam(r, "page", 1),
		Limit:  getIntParam(r, "limit", 50),
		Sort:   r.URL.Query().Get("sort"),
		Filter: r.URL.Query().Get("filter"),
	}
}

// listMetadata builds the envelope metadata for a cached list read.
func listMetadata(cached bool, queryTime time.Duration) models.Metadata {
	return models.Metadata{
		Timestamp:   time.Now().UTC(),
		QueryTimeMS: queryTime.Milliseconds(),
		Cached:      cached,
	}
}
