package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/hongminglow/dealer-gateway/internal/identity"
)

// AssertionSigner issues short-lived signed copies of a request identity so the
// query service can trust the scope it is handed. One assertion covers one
// outbound call; nothing is returned to end users.
type AssertionSigner struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

// IdentityClaims is the JWT payload carried to the query service.
type IdentityClaims struct {
	Username string `json:"username"`
	Role     string `json:"role"`
	DealerID *int64 `json:"dealer_id,omitempty"`
	jwt.RegisteredClaims
}

// NewAssertionSigner creates a signer with the provided secret, issuer, and lifetime.
func NewAssertionSigner(secret, issuer string, ttl time.Duration) *AssertionSigner {
	return &AssertionSigner{
		secret: []byte(secret),
		issuer: issuer,
		ttl:    ttl,
		now:    time.Now,
	}
}

// Sign returns an HS256 token for the identity.
func (s *AssertionSigner) Sign(id identity.Context) (string, error) {
	now := s.now()
	claims := IdentityClaims{
		Username: id.Username,
		Role:     id.Role,
		DealerID: id.DealerID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			Subject:   strconv.FormatInt(id.UserID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// Parse validates a token issued by Sign and returns the identity it carries.
// It is the verifying half for query services built against this module that
// share the assertion secret.
func (s *AssertionSigner) Parse(token string) (identity.Context, error) {
	claims := &IdentityClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.issuer),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return identity.Context{}, fmt.Errorf("parse assertion: %w", err)
	}
	userID, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil {
		return identity.Context{}, errors.New("parse assertion: subject is not a user id")
	}
	return identity.Context{
		UserID:   userID,
		Username: claims.Username,
		Role:     claims.Role,
		DealerID: claims.DealerID,
	}, nil
}
