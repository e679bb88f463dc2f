package auth

import (
	"crypto/subtle"

	pkgauth "github.com/BradenHooton/spendwise/pkg/auth"
)

const (
	CSRFFieldName  = "csrf_token"
	CSRFHeaderName = "X-CSRF-Token"
	csrfTokenBytes = 32 // 256 bits
)

// IssueCSRFToken returns the session's token, generating one on first use.
func IssueCSRFToken(s *Session) (string, error) {
	if s.CSRFToken != "" {
		return s.CSRFToken, nil
	}

	token, err := pkgauth.GenerateSecureToken(csrfTokenBytes)
	if err != nil {
		return "", err
	}
	s.CSRFToken = token
	s.dirty = true
	return token, nil
}

// VerifyCSRFToken compares in constant time. A session without a token
// never verifies.
func VerifyCSRFToken(s *Session, submitted string) bool {
	if s == nil || s.CSRFToken == "" || submitted == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(s.CSRFToken), []byte(submitted)) == 1
}
