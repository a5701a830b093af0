package tokenexchange

import (
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// AssertionLifetime is the validity window of a client assertion.
const AssertionLifetime = 5 * time.Minute

// Signer issues client assertions: JWTs where issuer and subject are the
// client id and the audience is the token endpoint.
type Signer struct {
	clientID string
	audience string
	encoded  string
	now      func() time.Time

	once   sync.Once
	key    *KeyPair
	keyErr error
}

// SignerOption configures a Signer.
type SignerOption func(*Signer)

// WithClock overrides the time source.
func WithClock(now func() time.Time) SignerOption {
	return func(s *Signer) {
		s.now = now
	}
}

// NewSigner constructs a Signer for clientID whose assertions target tokenURL.
// encodedKey is decoded on first use; see DecodeKeyPair for the format.
func NewSigner(clientID, tokenURL, encodedKey string, opts ...SignerOption) *Signer {
	s := &Signer{
		clientID: clientID,
		audience: tokenURL,
		encoded:  encodedKey,
		now:      time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// KeyPair returns the decoded key pair, decoding it on first call.
func (s *Signer) KeyPair() (*KeyPair, error) {
	s.once.Do(func() {
		s.key, s.keyErr = DecodeKeyPair(s.encoded)
	})
	return s.key, s.keyErr
}

// IssueAssertion builds and signs a fresh assertion. Assertions are never
// reused: every token exchange gets a new one.
func (s *Signer) IssueAssertion() (string, error) {
	key, err := s.KeyPair()
	if err != nil {
		return "", err
	}

	now := s.now()
	token := jwt.NewWithClaims(key.Method, jwt.RegisteredClaims{
		Issuer:    s.clientID,
		Subject:   s.clientID,
		Audience:  jwt.ClaimStrings{s.audience},
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(AssertionLifetime)),
		ID:        uuid.NewString(),
	})
	token.Header["kid"] = key.KeyID

	signed, err := token.SignedString(key.Key)
	if err != nil {
		return "", &SigningError{Err: err}
	}
	return signed, nil
}
