package jwtutil

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"spicesense/pkg/config"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

var jwtConfig *config.JWTConfig

// UserClaims carries the authenticated identity: id, role and email.
type UserClaims struct {
	UserID uint   `json:"id"`
	Role   string `json:"role"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}

// Initialize sets up the JWT utility with configuration
func Initialize(config *config.JWTConfig) {
	jwtConfig = config
}

// GenerateToken creates a new JWT token for a user
func GenerateToken(userID uint, role, email string) (string, error) {
	if jwtConfig == nil {
		return "", errors.New("JWT configuration not initialized")
	}

	// Get signing key from configuration
	signingKey := jwtConfig.SigningKey

	// Token expiration time from configuration
	expirationHours := jwtConfig.ExpirationHours

	// Create the claims
	claims := &UserClaims{
		UserID: userID,
		Role:   role,
		Email:  email,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Duration(expirationHours) * time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}

	// Create token
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	// Generate encoded token
	return token.SignedString([]byte(signingKey))
}

// ValidateToken validates the token and returns the claims
func ValidateToken(tokenString string) (*UserClaims, error) {
	if jwtConfig == nil {
		return nil, errors.New("JWT configuration not initialized")
	}

	// Get signing key from configuration
	signingKey := jwtConfig.SigningKey

	// Parse the token
	token, err := jwt.ParseWithClaims(
		tokenString,
		&UserClaims{},
		func(token *jwt.Token) (interface{}, error) {
			// Validate the signing method
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return []byte(signingKey), nil
		},
	)

	if err != nil {
		return nil, err
	}

	// Validate the token and extract claims
	if claims, ok := token.Claims.(*UserClaims); ok && token.Valid {
		return claims, nil
	}

	return nil, errors.New("invalid token")
}

// SetTokenCookie writes the signed token into an HTTP-only cookie on the response.
func SetTokenCookie(c echo.Context, token string) {
	c.SetCookie(&http.Cookie{
		Name:     jwtConfig.CookieName,
		Value:    token,
		Path:     "/",
		Expires:  time.Now().Add(time.Duration(jwtConfig.ExpirationHours) * time.Hour),
		HttpOnly: true,
		Secure:   jwtConfig.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

// ClearTokenCookie expires the auth cookie on the response.
func ClearTokenCookie(c echo.Context) {
	c.SetCookie(&http.Cookie{
		Name:     jwtConfig.CookieName,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   jwtConfig.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

// CookieName returns the configured auth cookie name.
func CookieName() string {
	if jwtConfig == nil {
		return "token"
	}
	return jwtConfig.CookieName
}
