// LinkTally - URL Shortening and Click Analytics Service
// Copyright 2026 R. Marins (rmarins)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rmarins/linktally

package models

import "time"

// APIResponse is the envelope every JSON endpoint returns.
type APIResponse struct {
	Status   string           `json:"status"`
	Data     interface{}      `json:"data,omitempty"`
	Metadata ResponseMetadata `json:"metadata"`
	Error    *APIError        `json:"error,omitempty"`
}

// ResponseMetadata carries per-response bookkeeping.
type ResponseMetadata struct {
	Timestamp time.Time `json:"timestamp"`
	RequestID string    `json:"request_id,omitempty"`
}

// APIError is the error payload inside a failed APIResponse.
type APIError struct {
	Code    string   `json:"code"`
	Message string   `json:"message"`
	Details []string `json:"details,omitempty"`
}

// NewSuccessResponse wraps data in a success envelope.
func NewSuccessResponse(data interface{}, requestID string) *APIResponse {
	return &APIResponse{
		Status: "success",
		Data:   data,
		Metadata: ResponseMetadata{
			Timestamp: time.Now().UTC(),
			RequestID: requestID,
		},
	}
}

// NewErrorResponse builds an error envelope.
func NewErrorResponse(code, message, requestID string, details ...string) *APIResponse {
	return &APIResponse{
		Status: "error",
		Metadata: ResponseMetadata{
			Timestamp: time.Now().UTC(),
			RequestID: requestID,
		},
		Error: &APIError{
			Code:    code,
			Message: message,
			Details: details,
		},
	}
}
