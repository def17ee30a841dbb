package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

// Context keys set by the auth middleware.
const (
	ctxUserID  = "userId"
	ctxAdminID = "adminId"
	ctxEmail   = "email"
)

// Claims is the JWT payload this API accepts. User tokens carry userId,
// admin tokens carry adminId; issuance happens elsewhere.
type Claims struct {
	UserID  string `json:"userId,omitempty"`
	AdminID string `json:"adminId,omitempty"`
	Email   string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// Auth verifies the bearer token and requires a user identity.
func Auth(secret []byte) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := parseToken(c, secret)
		if !ok {
			return
		}
		if claims.UserID == "" {
			abortUnauthorized(c)
			return
		}
		c.Set(ctxUserID, claims.UserID)
		c.Set(ctxEmail, claims.Email)
		c.Next()
	}
}

// AdminAuth verifies the bearer token and requires an admin identity.
func AdminAuth(secret []byte) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := parseToken(c, secret)
		if !ok {
			return
		}
		if claims.AdminID == "" {
			failWith(c, http.StatusForbidden, "admin access required")
			c.Abort()
			return
		}
		c.Set(ctxAdminID, claims.AdminID)
		c.Next()
	}
}

func parseToken(c *gin.Context, secret []byte) (*Claims, bool) {
	header := c.GetHeader("Authorization")
	raw, found := strings.CutPrefix(header, "Bearer ")
	if !found || raw == "" {
		abortUnauthorized(c)
		return nil, false
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return secret, nil
	})
	if err != nil || !token.Valid {
		abortUnauthorized(c)
		return nil, false
	}
	return claims, true
}

func abortUnauthorized(c *gin.Context) {
	failWith(c, http.StatusUnauthorized, "unauthorized")
	c.Abort()
}

// userID returns the authenticated user id set by Auth.
func userID(c *gin.Context) string {
	return c.GetString(ctxUserID)
}

// userEmail returns the authenticated user's email claim, if present.
func userEmail(c *gin.Context) string {
	return c.GetString(ctxEmail)
}
