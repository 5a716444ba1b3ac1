package logging

import (
	"log/slog"
	"regexp"
	"strings"
)

// Redacted replaces values that must never reach a log sink.
const Redacted = "[REDACTED]"

var (
	bearerPattern = regexp.MustCompile(`(?i)bearer\s+[a-z0-9\-._~+/]+=*`)
	apiKeyPattern = regexp.MustCompile(`(?i)(api[-_]?key=)[^&\s]+`)
)

// sensitiveKeys are attribute name fragments whose values are always masked.
var sensitiveKeys = []string{
	"authorization",
	"password",
	"passwd",
	"secret",
	"token",
	"api_key",
	"apikey",
	"bearer",
	"cookie",
	"private_key",
}

// Redactor masks credentials in log attributes. Values under sensitive
// attribute names are replaced entirely; other string values have bearer
// tokens and api_key query parameters scrubbed.
type Redactor struct {
	keys []string
}

// NewRedactor creates a redactor with the built-in sensitive names.
func NewRedactor() *Redactor {
	return &Redactor{keys: sensitiveKeys}
}

// ReplaceAttr is a slog.HandlerOptions.ReplaceAttr hook.
func (r *Redactor) ReplaceAttr(groups []string, a slog.Attr) slog.Attr {
	if a.Key == slog.MessageKey || a.Key == slog.TimeKey || a.Key == slog.LevelKey || a.Key == slog.SourceKey {
		return a
	}

	if r.IsSensitiveKey(a.Key) {
		if a.Value.Kind() == slog.KindString && a.Value.String() == "" {
			return a
		}
		return slog.String(a.Key, Redacted)
	}

	switch a.Value.Kind() {
	case slog.KindString:
		if s := a.Value.String(); s != "" {
			if scrubbed := r.RedactString(s); scrubbed != s {
				return slog.String(a.Key, scrubbed)
			}
		}
	case slog.KindAny:
		if err, ok := a.Value.Any().(error); ok {
			if scrubbed := r.RedactString(err.Error()); scrubbed != err.Error() {
				return slog.String(a.Key, scrubbed)
			}
		}
	}
	return a
}

// IsSensitiveKey reports whether an attribute name marks a credential.
func (r *Redactor) IsSensitiveKey(key string) bool {
	lower := strings.ToLower(key)
	for _, k := range r.keys {
		if strings.Contains(lower, k) {
			return true
		}
	}
	return false
}

// RedactString scrubs bearer tokens and api_key parameters from s.
func (r *Redactor) RedactString(s string) string {
	s = bearerPattern.ReplaceAllString(s, "Bearer "+Redacted)
	s = apiKeyPattern.ReplaceAllString(s, "${1}"+Redacted)
	return s
}
