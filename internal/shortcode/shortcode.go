// LinkTally - URL Shortening and Click Analytics Service
// Copyright 2026 R. Marins (rmarins)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rmarins/linktally

// Package shortcode generates random short link codes.
package shortcode

import (
	"crypto/rand"
	"fmt"
)

// Alphabet is the character set for generated codes. 62 characters keeps
// codes copy-paste safe in any URL context without escaping.
const Alphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// Length is the size of generated codes. 62^6 is roughly 56 billion
// combinations, comfortably sparse for this service's scale.
const Length = 6

// maxUsableByte is the largest multiple of len(Alphabet) below 256.
// Bytes at or above it are discarded; reducing them modulo 62 would
// skew the draw toward the start of the alphabet.
const maxUsableByte = byte(256 / len(Alphabet) * len(Alphabet))

// Generate returns a new random code of Length characters, each drawn
// uniformly from Alphabet. Randomness comes from crypto/rand so codes
// are not guessable from prior observations.
func Generate() (string, error) {
	code := make([]byte, Length)
	buf := make([]byte, 2*Length)
	filled := 0
	for filled < Length {
		if _, err := rand.Read(buf); err != nil {
			return "", fmt.Errorf("reading random bytes: %w", err)
		}
		for _, b := range buf {
			if b >= maxUsableByte {
				continue
			}
			code[filled] = Alphabet[int(b)%len(Alphabet)]
			filled++
			if filled == Length {
				break
			}
		}
	}
	return string(code), nil
}
