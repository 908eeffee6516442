// Package token signs the JWT access tokens consumed by the httpkit
// auth middleware.
package token

import (
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const accessTokenType = "access"

// SignAccess issues an HS256 access token for the user. The subject is the
// numeric user id; roles carries the user type for route authorization.
func SignAccess(userID int64, userType string, ttl time.Duration, secret string) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":   strconv.FormatInt(userID, 10),
		"type":  accessTokenType,
		"roles": []string{userType},
		"exp":   now.Add(ttl).Unix(),
		"iat":   now.Unix(),
	}

	tokenObj := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return tokenObj.SignedString([]byte(secret))
}
