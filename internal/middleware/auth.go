package middleware

import (
	"net/http"
	"strings"

	"spicesense/pkg/jwtutil"
	"spicesense/pkg/logger"
	"spicesense/prometheus"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// AuthMiddleware verifies the JWT token and extracts claims. The token is
// read from the HTTP-only auth cookie; an Authorization bearer header is
// accepted as a fallback for non-browser clients.
func AuthMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		log := logger.FromContext(c)

		// Track authentication attempts
		prometheus.AuthAttemptsCounter.Inc()

		var tokenString string
		if cookie, err := c.Cookie(jwtutil.CookieName()); err == nil {
			tokenString = cookie.Value
		}
		if tokenString == "" {
			tokenString = c.Request().Header.Get("Authorization")
			// Remove "Bearer " prefix if present
			if len(tokenString) > 7 && strings.ToUpper(tokenString[0:7]) == "BEARER " {
				tokenString = tokenString[7:]
			}
		}
		if tokenString == "" {
			log.Warn("Missing authentication token")
			prometheus.AuthErrorsCounter.Inc()
			return c.JSON(http.StatusUnauthorized, echo.Map{"success": false, "message": "authentication required"})
		}

		// Validate the token
		claims, err := jwtutil.ValidateToken(tokenString)
		if err != nil {
			log.Warn("Invalid token", zap.Error(err))
			prometheus.AuthErrorsCounter.Inc()
			return c.JSON(http.StatusUnauthorized, echo.Map{"success": false, "message": "invalid token"})
		}

		// Increment successful auth counter
		prometheus.AuthSuccessCounter.Inc()

		// Store user information in the context
		c.Set("user_id", claims.UserID)
		c.Set("role", claims.Role)
		c.Set("email", claims.Email)

		// Update logger with user information
		log = log.With(
			zap.Uint("user_id", claims.UserID),
			zap.String("role", claims.Role),
		)
		c.Set("logger", log)

		// Call the next handler
		return next(c)
	}
}

// RequireRole ensures the authenticated user carries the given role.
func RequireRole(role string) echo.MiddlewareFunc {
	return RequireRoles(role)
}

// RequireRoles ensures the authenticated user carries one of the given roles.
func RequireRoles(roles ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			log := logger.FromContext(c)

			current, ok := c.Get("role").(string)
			if ok {
				for _, role := range roles {
					if current == role {
						return next(c)
					}
				}
			}

			log.Warn("Role not permitted for this resource",
				zap.Strings("required_roles", roles),
				zap.String("role", current))
			return c.JSON(http.StatusForbidden, echo.Map{
				"success": false,
				"message": "you do not have permission to access this resource",
			})
		}
	}
}
