// LinkTally - URL Shortening and Click Analytics Service
// Copyright 2026 R. Marins (rmarins)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rmarins/linktally

package validation

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"
)

// Sentinel errors for URL policy failures. The API layer maps each to a
// client-facing message; callers branch with errors.Is.
var (
	ErrURLMalformed     = errors.New("url is not a valid absolute URL")
	ErrURLScheme        = errors.New("url scheme must be http or https")
	ErrURLTooLong       = errors.New("url exceeds maximum length")
	ErrURLPrivateTarget = errors.New("url targets a private or loopback address")
)

// URLPolicy validates link targets before they are shortened.
type URLPolicy struct {
	// MaxLength caps the target URL length in bytes.
	MaxLength int

	// AllowPrivateTargets permits loopback, RFC 1918, and link-local
	// hosts when true. Off in any deployment reachable from untrusted
	// clients; a shortener that redirects into the operator's network
	// is an SSRF pivot.
	AllowPrivateTargets bool
}

// Check validates target against the policy. The returned error wraps
// one of the package sentinels.
func (p URLPolicy) Check(target string) error {
	if p.MaxLength > 0 && len(target) > p.MaxLength {
		return fmt.Errorf("%w (%d bytes, max %d)", ErrURLTooLong, len(target), p.MaxLength)
	}

	u, err := url.Parse(target)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrURLMalformed, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%w, got %q", ErrURLScheme, u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("%w: missing host", ErrURLMalformed)
	}

	if !p.AllowPrivateTargets && privateHost(u.Hostname()) {
		return fmt.Errorf("%w: %s", ErrURLPrivateTarget, u.Hostname())
	}
	return nil
}

// privateHost reports whether host is a literal address or name that
// resolves trivially to private space. Only literal IPs and well-known
// names are checked; DNS resolution at validation time would race with
// resolution at click time anyway.
func privateHost(host string) bool {
	lower := strings.ToLower(host)
	if lower == "localhost" || strings.HasSuffix(lower, ".localhost") || strings.HasSuffix(lower, ".local") || strings.HasSuffix(lower, ".internal") {
		return true
	}

	ip := net.ParseIP(host)
	if ip == nil {
		return false
	}
	return ip.IsLoopback() ||
		ip.IsPrivate() ||
		ip.IsLinkLocalUnicast() ||
		ip.IsLinkLocalMulticast() ||
		ip.IsUnspecified()
}
