package tokenexchange

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSigner_IssueAssertion(t *testing.T) {
	key := newECKey(t)
	issuedAt := time.Now().Truncate(time.Second)
	signer := NewSigner("0oa-client", "https://idp.example.com/oauth2/v1/token",
		encodeKeyMaterial(t, key, "kid-42", ""), WithClock(func() time.Time { return issuedAt }))

	assertion, err := signer.IssueAssertion()
	require.NoError(t, err)

	claims := &jwt.RegisteredClaims{}
	parsed, err := jwt.ParseWithClaims(assertion, claims, func(tok *jwt.Token) (any, error) {
		return &key.PublicKey, nil
	}, jwt.WithValidMethods([]string{"ES256"}))
	require.NoError(t, err)
	require.True(t, parsed.Valid)

	assert.Equal(t, "kid-42", parsed.Header["kid"])
	assert.Equal(t, "0oa-client", claims.Issuer)
	assert.Equal(t, "0oa-client", claims.Subject)
	assert.Equal(t, jwt.ClaimStrings{"https://idp.example.com/oauth2/v1/token"}, claims.Audience)
	assert.True(t, issuedAt.Equal(claims.IssuedAt.Time))
	assert.True(t, issuedAt.Add(AssertionLifetime).Equal(claims.ExpiresAt.Time))
	assert.NotEmpty(t, claims.ID)
}

func TestSigner_FreshAssertionPerCall(t *testing.T) {
	signer := NewSigner("c", "https://idp.example.com/oauth2/v1/token", encodeKeyMaterial(t, newECKey(t), "k", ""))

	first, err := signer.IssueAssertion()
	require.NoError(t, err)
	second, err := signer.IssueAssertion()
	require.NoError(t, err)
	assert.NotEqual(t, first, second)
}

func TestSigner_KeyMaterialError(t *testing.T) {
	signer := NewSigner("c", "https://idp.example.com/oauth2/v1/token", "not-base64!")

	for range 2 {
		_, err := signer.IssueAssertion()
		var kmErr *KeyMaterialError
		assert.True(t, errors.As(err, &kmErr))
	}
}

func TestSigningError(t *testing.T) {
	cause := errors.New("hsm offline")
	err := &SigningError{Err: cause}
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "sign client assertion: hsm offline", err.Error())
}
