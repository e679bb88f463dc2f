package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssueCSRFToken_GeneratesOncePerSession(t *testing.T) {
	sess := &Session{}

	first, err := IssueCSRFToken(sess)
	require.NoError(t, err)
	assert.Len(t, first, 64) // 32 bytes hex encoded

	second, err := IssueCSRFToken(sess)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestIssueCSRFToken_DistinctAcrossSessions(t *testing.T) {
	a, err := IssueCSRFToken(&Session{})
	require.NoError(t, err)
	b, err := IssueCSRFToken(&Session{})
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
}

func TestVerifyCSRFToken(t *testing.T) {
	sess := &Session{}
	token, err := IssueCSRFToken(sess)
	require.NoError(t, err)

	flipped := []byte(token)
	if flipped[63] == '0' {
		flipped[63] = '1'
	} else {
		flipped[63] = '0'
	}

	tests := []struct {
		name      string
		session   *Session
		submitted string
		want      bool
	}{
		{"matching token", sess, token, true},
		{"wrong token", sess, string(flipped), false},
		{"empty submission", sess, "", false},
		{"session without token", &Session{}, token, false},
		{"nil session", nil, token, false},
		{"truncated token", sess, token[:32], false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, VerifyCSRFToken(tt.session, tt.submitted))
		})
	}
}

func TestEstablishRotatesCSRFToken(t *testing.T) {
	h := newSessionHarness(t)
	sess := &Session{}
	before, err := IssueCSRFToken(sess)
	require.NoError(t, err)

	h.manager.Establish(sess, SessionUser{ID: "user-1", Role: "user"})

	assert.False(t, VerifyCSRFToken(sess, before))
}
