// Corelate - Item Similarity Analytics for Rating Logs
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/corelate

package logging

import "strings"

// maxIdentifierLen caps logged identifier length. User and item IDs come
// from rating logs and event payloads, so an attacker controls their size.
const maxIdentifierLen = 128

// ScrubIdentifier neutralizes an untrusted identifier for logging.
// Control characters are replaced with '?' so embedded newlines cannot
// forge log lines, and overlong values are truncated.
//
//	logging.Warn().Str("item", logging.ScrubIdentifier(id)).Msg("rejected")
func ScrubIdentifier(s string) string {
	cleaned := strings.Map(func(r rune) rune {
		if r < 0x20 || r == 0x7f {
			return '?'
		}
		return r
	}, s)
	return truncateString(cleaned, maxIdentifierLen)
}

// ScrubRecord neutralizes a raw input record for logging, such as the
// offending line reported by a parse error. Same rules as ScrubIdentifier
// but with a larger cap so the record stays recognizable.
func ScrubRecord(s string) string {
	cleaned := strings.Map(func(r rune) rune {
		if r < 0x20 || r == 0x7f {
			return '?'
		}
		return r
	}, s)
	return truncateString(cleaned, 512)
}

// truncateString truncates a string to a maximum length.
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
