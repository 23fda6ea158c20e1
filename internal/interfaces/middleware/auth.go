package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/nexuscrm/forcemapper/internal/domain/security"
)

// ContextKeySecurity is the gin context key of the request's security context
const ContextKeySecurity = "securityContext"

// RequireSecurityContext lets the request through when the store holds a valid
// security context. Otherwise the client is redirected to loginURL, or gets a
// 401 when no login URL is configured.
func RequireSecurityContext(store security.Store, loginURL string) gin.HandlerFunc {
	return func(c *gin.Context) {
		sc, err := store.Retrieve(c.Request)
		if err == nil && sc != nil {
			err = sc.Validate()
		}
		if err != nil || sc == nil {
			if loginURL != "" {
				c.Redirect(http.StatusFound, loginURL)
				c.Abort()
				return
			}
			message := "No security context found"
			if err != nil {
				message = err.Error()
			}
			c.JSON(http.StatusUnauthorized, gin.H{
				"error":   "Unauthorized",
				"message": message,
				"code":    "UNAUTHORIZED",
				"data":    nil,
			})
			c.Abort()
			return
		}

		c.Set(ContextKeySecurity, sc)
		c.Request = c.Request.WithContext(security.WithContext(c.Request.Context(), sc))
		c.Next()
	}
}

// SecurityContext returns the context set by RequireSecurityContext
func SecurityContext(c *gin.Context) (*security.SecurityContext, bool) {
	v, ok := c.Get(ContextKeySecurity)
	if !ok {
		return nil, false
	}
	sc, ok := v.(*security.SecurityContext)
	return sc, ok
}
