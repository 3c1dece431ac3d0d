// LinkTally - URL Shortening and Click Analytics Service
// Copyright 2026 R. Marins (rmarins)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rmarins/linktally

package models

// CreateLinkRequest is the body of POST /api/shorten. ExpiresIn is in
// hours; zero or absent means the link never expires.
type CreateLinkRequest struct {
	URL         string `json:"url" validate:"required"`
	CustomCode  string `json:"custom_code,omitempty" validate:"omitempty,shortcode"`
	Title       string `json:"title,omitempty" validate:"omitempty,max=200"`
	Description string `json:"description,omitempty" validate:"omitempty,max=1000"`
	ExpiresIn   int    `json:"expires_in,omitempty" validate:"omitempty,min=1,max=87600"`
}

// UpdateLinkRequest is the body of the admin link update endpoint.
// Nil fields are left unchanged; ExpiresIn of zero clears the expiry.
type UpdateLinkRequest struct {
	OriginalURL *string `json:"original_url,omitempty"`
	CustomCode  *string `json:"custom_code,omitempty" validate:"omitempty,shortcode"`
	Title       *string `json:"title,omitempty" validate:"omitempty,max=200"`
	Description *string `json:"description,omitempty" validate:"omitempty,max=1000"`
	ExpiresIn   *int    `json:"expires_in,omitempty" validate:"omitempty,min=0,max=87600"`
	IsActive    *bool   `json:"is_active,omitempty"`
}

// LoginRequest is the body of POST /admin/api/login. Username also
// accepts the account's email address.
type LoginRequest struct {
	Username string `json:"username" validate:"required,min=3,max=100"`
	Password string `json:"password" validate:"required,min=8,max=128"`
}

// ChangePasswordRequest is the body of POST /admin/api/change-password.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,min=8,max=128"`
}

// CreateUserRequest is the body of POST /admin/api/users.
type CreateUserRequest struct {
	Username string `json:"username" validate:"required,min=3,max=50,alphanum"`
	Email    string `json:"email" validate:"required,email,max=100"`
	Password string `json:"password" validate:"required,min=8,max=128"`
	FullName string `json:"full_name,omitempty" validate:"omitempty,max=100"`
}
