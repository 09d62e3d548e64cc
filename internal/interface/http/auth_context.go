package http

import (
	"time"

	"github.com/gin-gonic/gin"
)

const authClaimsKey = "auth_claims"

// Claims is the verified identity attached to an API request.
type Claims struct {
	Subject   string
	ExpiresAt time.Time
}

func setClaims(c *gin.Context, claims Claims) {
	c.Set(authClaimsKey, claims)
}

func getClaims(c *gin.Context) (Claims, bool) {
	value, ok := c.Get(authClaimsKey)
	if !ok {
		return Claims{}, false
	}
	claims, ok := value.(Claims)
	return claims, ok
}
