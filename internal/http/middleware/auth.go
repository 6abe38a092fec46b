package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-leads-backend/internal/auth"
	"github.com/tbourn/go-leads-backend/internal/http/errcode"
)

// BasicRealm is advertised in WWW-Authenticate challenges.
const BasicRealm = "leads"

// BasicAuth verifies HTTP Basic credentials with authn. Missing or wrong
// credentials get 401 with a Basic challenge and the standard error
// envelope; on success the username is stored under UserIDKey. An
// authenticator failure other than auth.ErrUnauthorized is a 500.
func BasicAuth(authn auth.Authenticator) gin.HandlerFunc {
	challenge := `Basic realm="` + BasicRealm + `"`

	return func(c *gin.Context) {
		user, pass, ok := c.Request.BasicAuth()
		if ok {
			id, err := authn.Authenticate(c.Request.Context(), user, pass)
			if err == nil {
				c.Set(UserIDKey, id.Username)
				c.Next()
				return
			}
			if !errors.Is(err, auth.ErrUnauthorized) {
				LoggerFrom(c).Error().Err(err).Msg("authenticator failed")
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
					"request_id": RequestIDFrom(c),
					"code":       errcode.Internal,
					"message":    "internal server error",
				})
				return
			}
		}

		authFailures.Inc()
		c.Header("WWW-Authenticate", challenge)
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
			"request_id": RequestIDFrom(c),
			"code":       errcode.Unauthorized,
			"message":    "invalid or missing credentials",
		})
	}
}
