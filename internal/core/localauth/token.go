package localauth

import (
	"errors"

	"github.com/golang-jwt/jwt/v5"
)

// SessionClaims identify the locally authenticated account.
type SessionClaims struct {
	Email string `json:"email"`
	Type  string `json:"type,omitempty"`
	jwt.RegisteredClaims
}

// issueSessionToken signs an HS256 session token for the account.
func (a *Authority) issueSessionToken(acct Account) (*SessionToken, error) {
	now := a.now()
	exp := now.Add(a.sessionTTL)
	claims := SessionClaims{
		Email: acct.Email,
		Type:  acct.Profile.Type,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   acct.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(a.secret)
	if err != nil {
		return nil, err
	}
	return &SessionToken{Token: signed, ExpiresIn: int(a.sessionTTL.Seconds())}, nil
}

// ParseSessionToken verifies a locally issued session token and returns its claims.
func (a *Authority) ParseSessionToken(tokenString string) (*SessionClaims, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &SessionClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method for session token")
		}
		return a.secret, nil
	})
	if err != nil {
		return nil, err
	}
	claims, ok := parsed.Claims.(*SessionClaims)
	if !ok || !parsed.Valid {
		return nil, errors.New("invalid session token")
	}
	return claims, nil
}
