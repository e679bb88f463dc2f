package logger

import (
	"net/url"
	"strings"
	"unicode/utf8"
)

const redacted = "[REDACTED]"

// SanitizedEmail masks an address for operational logs: the first character
// of the mailbox and the top-level domain survive ("a****@*******.com").
func SanitizedEmail(email string) string {
	at := strings.LastIndexByte(email, '@')
	if at <= 0 || at == len(email)-1 {
		return "[invalid-email]"
	}
	local, domain := email[:at], email[at+1:]

	_, size := utf8.DecodeRuneInString(local)
	masked := local[:size] + strings.Repeat("*", utf8.RuneCountInString(local[size:]))

	labels := strings.Split(domain, ".")
	for i := 0; i < len(labels)-1; i++ {
		labels[i] = strings.Repeat("*", utf8.RuneCountInString(labels[i]))
	}
	return masked + "@" + strings.Join(labels, ".")
}

// RedactQuery returns rawQuery with the value of every sensitive parameter
// replaced. Parameter order and non-sensitive values are kept as sent.
func RedactQuery(rawQuery string) string {
	if rawQuery == "" {
		return ""
	}
	pairs := strings.Split(rawQuery, "&")
	for i, pair := range pairs {
		key, _, hasValue := strings.Cut(pair, "=")
		if name, err := url.QueryUnescape(key); err == nil && !isSensitiveParam(name) {
			continue
		}
		if hasValue || key != "" {
			pairs[i] = key + "=" + redacted
		}
	}
	return strings.Join(pairs, "&")
}

func isSensitiveParam(name string) bool {
	name = strings.ToLower(name)
	for _, fragment := range sensitiveParams {
		if strings.Contains(name, fragment) {
			return true
		}
	}
	return false
}

// Substrings of parameter names whose values never reach logs.
var sensitiveParams = []string{
	"password",
	"token",
	"secret",
	"email",
	"code",
	"remember",
	"csrf",
}
