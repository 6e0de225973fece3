package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/terminal-bench/timevault/internal/vault"
)

const principalKey = "principal"

// Claims are the JWT claims carried by callers; the subject is the
// principal identity.
type Claims struct {
	jwt.RegisteredClaims
}

// Auth validates the bearer token and stores the calling principal in the
// gin context.
func Auth(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing authorization header"})
			return
		}

		tokenString := strings.TrimPrefix(authHeader, "Bearer ")
		if tokenString == authHeader {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid authorization header format"})
			return
		}

		claims := &Claims{}
		token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, errors.New("unexpected signing method")
			}
			return []byte(secret), nil
		})
		if err != nil || !token.Valid {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		if claims.Subject == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "token missing subject"})
			return
		}

		c.Set(principalKey, vault.Principal(claims.Subject))
		c.Next()
	}
}

// GetPrincipal extracts the authenticated principal from the context.
func GetPrincipal(c *gin.Context) (vault.Principal, bool) {
	val, ok := c.Get(principalKey)
	if !ok {
		return vault.NoPrincipal, false
	}
	p, ok := val.(vault.Principal)
	return p, ok
}
