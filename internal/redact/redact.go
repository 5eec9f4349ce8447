// Package redact strips secrets and personal data from error text before it
// reaches logs or API responses.
package redact

import "regexp"

type rule struct {
	re          *regexp.Regexp
	placeholder string
}

// Rules run in order; connection strings go first so their embedded
// passwords are removed as a unit.
var rules = []rule{
	{regexp.MustCompile(`(?i)\b(postgres(?:ql)?|pgx)://[^\s@]+@`), "[REDACTED_DSN]@"},
	{regexp.MustCompile(`(?i)\bbearer\s+[A-Za-z0-9._~+/=-]{8,}`), "Bearer [REDACTED_KEY]"},
	{regexp.MustCompile(`(?i)\b(api[_-]?key|token|secret|password)(["']?\s*[:=]\s*["']?)[^\s"'&,]{4,}`), "${1}${2}[REDACTED_KEY]"},
	{regexp.MustCompile(`\bbot\d{6,}:[A-Za-z0-9_-]{20,}`), "bot[REDACTED_KEY]"},
	{regexp.MustCompile(`\bsk-[A-Za-z0-9_-]{16,}`), "[REDACTED_KEY]"},
	{regexp.MustCompile(`[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}`), "[REDACTED_EMAIL]"},
	{regexp.MustCompile(`(?is)\b(SELECT|INSERT INTO|UPDATE|DELETE FROM)\b.*`), "[REDACTED_SQL]"},
}

// String returns s with every known sensitive pattern replaced.
func String(s string) string {
	for _, r := range rules {
		s = r.re.ReplaceAllString(s, r.placeholder)
	}
	return s
}

// Error redacts err.Error(). A nil error yields "".
func Error(err error) string {
	if err == nil {
		return ""
	}
	return String(err.Error())
}
