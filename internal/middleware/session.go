package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const userIDKey = "squad.userID"

// Authenticator resolves a session token to a user id.
type Authenticator interface {
	Authenticate(token string) (uuid.UUID, error)
}

// TokenFromRequest returns the session token from the named cookie, an
// "Authorization: Bearer" header or the "token" query parameter, in that order.
func TokenFromRequest(r *http.Request, cookieName string) string {
	if ck, err := r.Cookie(cookieName); err == nil && ck.Value != "" {
		return ck.Value
	}
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	}
	return r.URL.Query().Get("token")
}

// RequireSession authenticates the request and stores the user id in the
// context. On failure it calls unauthorized, which must write the response.
func RequireSession(auth Authenticator, cookieName string, unauthorized gin.HandlerFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, err := auth.Authenticate(TokenFromRequest(c.Request, cookieName))
		if err != nil {
			_ = c.Error(err)
			unauthorized(c)
			c.Abort()
			return
		}
		c.Set(userIDKey, userID)
		c.Next()
	}
}

// UserID returns the id stored by RequireSession.
func UserID(c *gin.Context) (uuid.UUID, bool) {
	v, ok := c.Get(userIDKey)
	if !ok {
		return uuid.Nil, false
	}
	id, ok := v.(uuid.UUID)
	return id, ok
}
