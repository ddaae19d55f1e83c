// Package resettoken issues and checks the signed tokens carried by
// password reset links.
package resettoken

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// ErrInvalid covers expired, tampered and malformed tokens alike; callers
// show one message for all of them.
var ErrInvalid = errors.New("reset link is invalid or has expired")

const purpose = "password_reset"

type claims struct {
	Purpose string `json:"pur"`
	// Stamp ties the token to the password it replaces: once the password
	// changes, outstanding links stop working.
	Stamp string `json:"stm"`
	jwt.RegisteredClaims
}

// Issuer signs reset tokens with an HMAC secret.
type Issuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewIssuer returns an Issuer. ttl bounds how long a link stays usable.
func NewIssuer(secret string, ttl time.Duration) *Issuer {
	return &Issuer{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Issue returns a token for userID. stamp is derived from the current
// password hash (see Stamp).
func (i *Issuer) Issue(userID, stamp string) (string, error) {
	now := i.now()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		Purpose: purpose,
		Stamp:   stamp,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
		},
	})
	return tok.SignedString(i.secret)
}

// Verify returns the user id and stamp carried by token.
func (i *Issuer) Verify(token string) (userID, stamp string, err error) {
	var c claims
	_, err = jwt.ParseWithClaims(token, &c, func(t *jwt.Token) (any, error) {
		return i.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(i.now),
	)
	if err != nil || c.Purpose != purpose || c.Subject == "" {
		return "", "", ErrInvalid
	}
	return c.Subject, c.Stamp, nil
}

// Stamp shortens a password hash into a token stamp. An account without a
// password gets a fixed stamp.
func Stamp(passwordHash *string) string {
	if passwordHash == nil || len(*passwordHash) < 12 {
		return "none"
	}
	h := *passwordHash
	return h[len(h)-12:]
}
