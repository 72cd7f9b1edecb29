package v1

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

const (
	issuer = "finbrief"

	userIDContextKey = "finbrief-user-id"
)

// GenerateAccessToken issues an HS256 token whose subject is the user id.
func GenerateAccessToken(userID int32, secret string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Issuer:    issuer,
		Subject:   strconv.FormatInt(int64(userID), 10),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// parseAccessToken validates the token signature and expiry and returns
// the user id from the subject claim.
func parseAccessToken(tokenString, secret string) (int32, error) {
	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return 0, err
	}
	if !token.Valid {
		return 0, fmt.Errorf("invalid token")
	}
	userID, err := strconv.ParseInt(claims.Subject, 10, 32)
	if err != nil || userID <= 0 {
		return 0, fmt.Errorf("invalid subject claim %q", claims.Subject)
	}
	return int32(userID), nil
}

// AuthMiddleware authenticates every request with a Bearer token and
// stores the resolved user id in the echo context.
func (s *APIV1Service) AuthMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		authHeader := c.Request().Header.Get("Authorization")
		tokenString, ok := strings.CutPrefix(authHeader, "Bearer ")
		if !ok || tokenString == "" {
			return c.JSON(http.StatusUnauthorized, errorResponse("UNAUTHORIZED", "missing access token"))
		}

		userID, err := parseAccessToken(tokenString, s.Secret)
		if err != nil {
			return c.JSON(http.StatusUnauthorized, errorResponse("UNAUTHORIZED", "invalid access token"))
		}

		c.Set(userIDContextKey, userID)
		return next(c)
	}
}

func userIDFromContext(c echo.Context) (int32, bool) {
	userID, ok := c.Get(userIDContextKey).(int32)
	return userID, ok
}
