// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package sanitize scrubs credentials and local paths out of error text
// before it is logged.
package sanitize

import (
	"regexp"
	"strings"
)

const mask = "[REDACTED]"

type rule struct {
	pattern *regexp.Regexp
	replace string
}

var rules = []rule{
	// Provider keys.
	{regexp.MustCompile(`\bsk-ant-[A-Za-z0-9_\-]{20,}`), mask},
	{regexp.MustCompile(`\bsk-or-[A-Za-z0-9_\-]{20,}`), mask},
	{regexp.MustCompile(`\bfc-[A-Za-z0-9]{20,}`), mask},
	{regexp.MustCompile(`\bsk-[A-Za-z0-9_\-]{20,}`), mask},
	{regexp.MustCompile(`\bAIza[0-9A-Za-z\-_]{35}\b`), mask},
	{regexp.MustCompile(`\bAKIA[0-9A-Z]{16}\b`), mask},
	{regexp.MustCompile(`\bgh[pousr]_[A-Za-z0-9]{36,}\b`), mask},

	{regexp.MustCompile(`\beyJ[A-Za-z0-9_\-]+\.eyJ[A-Za-z0-9_\-]+\.[A-Za-z0-9_\-]+\b`), mask},
	{regexp.MustCompile(`(?i)\bbearer\s+[A-Za-z0-9_\-\.=]{8,}`), "Bearer " + mask},

	// key=value and "key": "value" forms.
	{regexp.MustCompile(`(?i)\b((?:x-)?api[_\-]?key|token|access[_\-]?token|secret|password|passwd|authorization)(["']?\s*[:=]\s*["']?)[^\s"'&,]+`), "${1}${2}" + mask},

	// Credentials embedded in connection URLs.
	{regexp.MustCompile(`(?i)\b([a-z][a-z0-9+.\-]*://)[^\s/:@]+:[^\s/@]+@`), "${1}" + mask + "@"},

	// Query strings may carry keys.
	{regexp.MustCompile(`(https?://[^\s?"']+)\?[^\s"']*`), "${1}?" + mask},

	// Absolute file-system paths.
	{regexp.MustCompile(`(^|[\s"'(=])(/(?:[A-Za-z0-9._\-]+/)+[A-Za-z0-9._\-]*)`), "${1}" + "<path>"},
	{regexp.MustCompile(`\b[A-Za-z]:\\(?:[^\\\s"']+\\)*[^\\\s"']*`), "<path>"},
}

// Redact returns s with secrets, URL query strings, and absolute paths masked.
func Redact(s string) string {
	for _, r := range rules {
		s = r.pattern.ReplaceAllString(s, r.replace)
	}
	return s
}

// Error is Redact applied to err.Error(). A nil error yields "".
func Error(err error) string {
	if err == nil {
		return ""
	}
	return Redact(err.Error())
}

// Truncate shortens s to at most n runes for log fields.
func Truncate(s string, n int) string {
	r := []rune(strings.TrimSpace(s))
	if n <= 0 || len(r) <= n {
		return string(r)
	}
	return string(r[:n]) + "..."
}
