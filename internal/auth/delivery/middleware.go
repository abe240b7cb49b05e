package delivery

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"abdiwave-backend/pkg/apperr"
)

// AuthMiddleware authenticates the caller from a Bearer token and stores the
// caller identity as "userID" on the context. Every callable entry point
// requires a non-empty caller identity.
func AuthMiddleware(jwtSecret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			abortUnauthenticated(c, "authorization header required")
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			abortUnauthenticated(c, "invalid authorization header format")
			return
		}

		token, err := jwt.Parse(parts[1], func(token *jwt.Token) (interface{}, error) {
			return []byte(jwtSecret), nil
		})
		if err != nil || !token.Valid {
			abortUnauthenticated(c, "invalid or expired token")
			return
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			abortUnauthenticated(c, "invalid token claims")
			return
		}

		userID, ok := claims["user_id"].(string)
		if !ok || userID == "" {
			abortUnauthenticated(c, "invalid token claims")
			return
		}

		c.Set("userID", userID)
		c.Next()
	}
}

func abortUnauthenticated(c *gin.Context, message string) {
	appErr := apperr.Unauthenticated(message)
	c.AbortWithStatusJSON(apperr.HTTPStatus(appErr.Code), gin.H{"error": appErr})
}
