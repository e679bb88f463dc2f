//go:build integration

package integration

import (
	"fmt"
	"regexp"
	"time"

	"golang.org/x/crypto/bcrypt"
)

const (
	testBcryptCost = bcrypt.MinCost
	testPassword   = "TestPassword123!"
	newPassword    = "N3wPassword456?"
)

var codePattern = regexp.MustCompile(`\b(\d{6})\b`)

// TestUser generates unique test user credentials using timestamp
func TestUser(suffix string) (username, email string) {
	ts := time.Now().UnixNano()
	username = fmt.Sprintf("user_%d_%s", ts, suffix)
	email = fmt.Sprintf("test-%d-%s@example.com", ts, suffix)
	return
}

// ExtractCode returns the first six-digit code in an email body
func ExtractCode(body string) string {
	m := codePattern.FindStringSubmatch(body)
	if len(m) < 2 {
		return ""
	}
	return m[1]
}
