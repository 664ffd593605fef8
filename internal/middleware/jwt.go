package middleware

import (
	"errors"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

var secret = []byte(getJWTSecret())

func getJWTSecret() string {
	if val := os.Getenv("JWT_SECRET"); val != "" {
		return val
	}
	return "supersecret" // fallback
}

// Session is the authenticated caller, materialized from token claims and
// passed explicitly to controllers. Core packages never read ambient auth
// state.
type Session struct {
	UserID uint   `json:"user_id"`
	Name   string `json:"name"`
	Role   string `json:"role"`
}

// Claims is the JWT payload.
type Claims struct {
	UserID uint   `json:"user_id"`
	Name   string `json:"name"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

const sessionKey = "session"

func GenerateToken(userID uint, name, role string) (string, error) {
	claims := Claims{
		UserID: userID,
		Name:   name,
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(72 * time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret)
}

// ValidateToken parses and verifies a token string, returning its claims.
func ValidateToken(tokenStr string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		return secret, nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}

// GetSession returns the Session injected by RequireAuth. Only call it from
// routes behind RequireAuth.
func GetSession(c *gin.Context) Session {
	return c.MustGet(sessionKey).(Session)
}

// RequireAuth ensures a valid JWT is present and injects the Session.
func RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "error": "Missing or invalid Authorization header"})
			return
		}

		tokenString := strings.TrimPrefix(authHeader, "Bearer ")
		claims, err := ValidateToken(tokenString)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "error": "Invalid or expired token"})
			return
		}

		c.Set(sessionKey, Session{UserID: claims.UserID, Name: claims.Name, Role: claims.Role})
		c.Next()
	}
}

// RequireAuthWithRole ensures the JWT is valid and the user has one of the
// given roles.
func RequireAuthWithRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		// First ensure basic auth
		req := RequireAuth()
		req(c)
		if c.IsAborted() {
			return
		}

		session := GetSession(c)
		for _, role := range roles {
			if session.Role == role {
				c.Next()
				return
			}
		}
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"success": false, "error": "Insufficient permissions"})
	}
}
