package security

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/hungnqdz/exam-management/app/models"
)

var testKey = []byte(strings.Repeat("s", MinKeyBytes))

func testAccount() *models.Account {
	return &models.Account{ID: "acc-1", Username: "alice", FullName: "Alice A", Role: models.RoleStudent}
}

func TestHasherRoundTrip(t *testing.T) {
	h, err := NewHasher(bcrypt.MinCost)
	require.NoError(t, err)

	hash, err := h.Hash("correct horse")
	require.NoError(t, err)
	assert.NotEqual(t, "correct horse", hash)
	assert.True(t, h.Check("correct horse", hash))
	assert.False(t, h.Check("wrong", hash))
	assert.False(t, h.Check("correct horse", "not-a-hash"))
}

func TestHasherSaltsEachPassword(t *testing.T) {
	h, err := NewHasher(bcrypt.MinCost)
	require.NoError(t, err)
	a, err := h.Hash("same")
	require.NoError(t, err)
	b, err := h.Hash("same")
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestNewHasherRejectsBadCost(t *testing.T) {
	_, err := NewHasher(2)
	assert.Error(t, err)
}

func TestNewTokensRejectsShortKey(t *testing.T) {
	_, err := NewTokens([]byte("short"), "iss", "aud")
	assert.Error(t, err)
}

func TestTokenIssueAndParse(t *testing.T) {
	tokens, err := NewTokens(testKey, "iss", "aud")
	require.NoError(t, err)

	raw, exp, err := tokens.Issue(testAccount())
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(TokenTTL), exp, time.Minute)

	claims, err := tokens.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "acc-1", claims.Subject)
	assert.Equal(t, "alice", claims.Username)
	assert.Equal(t, models.RoleStudent, claims.Role)
	assert.Equal(t, "Alice A", claims.FullName)
	assert.NotEmpty(t, claims.ID)
}

func TestTokenExpired(t *testing.T) {
	tokens, err := NewTokens(testKey, "iss", "aud")
	require.NoError(t, err)
	tokens.now = func() time.Time { return time.Now().Add(-8 * 24 * time.Hour) }
	raw, _, err := tokens.Issue(testAccount())
	require.NoError(t, err)

	tokens.now = time.Now
	_, err = tokens.Parse(raw)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenWrongKeyOrAudience(t *testing.T) {
	tokens, err := NewTokens(testKey, "iss", "aud")
	require.NoError(t, err)
	raw, _, err := tokens.Issue(testAccount())
	require.NoError(t, err)

	other, err := NewTokens([]byte(strings.Repeat("x", MinKeyBytes)), "iss", "aud")
	require.NoError(t, err)
	_, err = other.Parse(raw)
	assert.ErrorIs(t, err, ErrInvalidToken)

	otherAud, err := NewTokens(testKey, "iss", "someone-else")
	require.NoError(t, err)
	_, err = otherAud.Parse(raw)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenRejectsNoneAlgorithm(t *testing.T) {
	tokens, err := NewTokens(testKey, "iss", "aud")
	require.NoError(t, err)

	claims := Claims{
		Username: "mallory",
		Role:     models.RoleAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        "x",
			Subject:   "acc-9",
			Issuer:    "iss",
			Audience:  jwt.ClaimStrings{"aud"},
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	raw, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = tokens.Parse(raw)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestCSRFBoundToSession(t *testing.T) {
	c := NewCSRF(testKey)
	tok := c.Token("session-a")

	assert.True(t, c.Verify("session-a", tok))
	assert.False(t, c.Verify("session-b", tok))
	assert.False(t, c.Verify("session-a", ""))
	assert.False(t, c.Verify("", tok))
	assert.False(t, c.Verify("session-a", "present-but-wrong"))
	assert.False(t, NewCSRF([]byte(strings.Repeat("z", MinKeyBytes))).Verify("session-a", tok))
}
