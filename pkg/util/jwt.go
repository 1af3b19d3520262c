package util

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims are the identity fields carried by an access token.
type Claims struct {
	UserID int
	// Role is empty for tokens issued without one.
	Role string
}

// GenerateJWT signs a token for userID valid for ttl.
func GenerateJWT(userID int, secret string, ttl time.Duration) (string, error) {
	return GenerateJWTWithRole(userID, "", secret, ttl)
}

// GenerateJWTWithRole signs a token carrying a role claim.
func GenerateJWTWithRole(userID int, role, secret string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"user_id": userID,
		"exp":     now.Add(ttl).Unix(),
		"iat":     now.Unix(),
	}
	if role != "" {
		claims["role"] = role
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// ParseJWT validates tokenStr and extracts the user id.
func ParseJWT(tokenStr, secret string) (int, error) {
	claims, err := ParseClaims(tokenStr, secret)
	if err != nil {
		return 0, err
	}
	return claims.UserID, nil
}

// ParseClaims validates tokenStr (HS256 only) and extracts its claims.
func ParseClaims(tokenStr, secret string) (Claims, error) {
	if secret == "" {
		return Claims{}, errors.New("jwt secret not configured")
	}

	token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return Claims{}, err
	}

	mc, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return Claims{}, jwt.ErrTokenInvalidClaims
	}

	userIDFloat, ok := mc["user_id"].(float64)
	if !ok || userIDFloat <= 0 {
		return Claims{}, jwt.ErrTokenMalformed
	}

	role, _ := mc["role"].(string)
	return Claims{UserID: int(userIDFloat), Role: role}, nil
}

// ExtractToken returns the bearer token of r, or "".
func ExtractToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if auth == "" {
		return ""
	}

	scheme, token, ok := strings.Cut(auth, " ")
	if !ok || !strings.EqualFold(scheme, "bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}
