package jwt

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func Issue(secret string, userID int64, role string, ttlHours int) (string, error) {
	claims := jwt.MapClaims{
		"sub":  userID,
		"role": role,
		"exp":  time.Now().Add(time.Duration(ttlHours) * time.Hour).Unix(),
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString([]byte(secret))
}

// Identity reads the subject and role written by Issue.
// Numeric claims come back from JSON as float64.
func Identity(claims jwt.MapClaims) (userID int64, role string, err error) {
	sub, ok := claims["sub"].(float64)
	if !ok || sub <= 0 {
		return 0, "", errors.New("sub missing in claims")
	}
	role, _ = claims["role"].(string)
	return int64(sub), role, nil
}
