package handlers

import (
	"net/http"
	"strings"

	"disaster-classifier/internal/session"

	"github.com/gin-gonic/gin"
)

const (
	SessionCookie = "dc_session"
	sessionKey    = "session"
)

// SessionMiddleware attaches the caller's session store to the context,
// issuing a new session cookie when the request has none.
func SessionMiddleware(registry *session.Registry) gin.HandlerFunc {
	return gin.HandlerFunc(func(c *gin.Context) {
		path := c.Request.URL.Path
		if path == "/health" || strings.HasPrefix(path, "/static/") || strings.HasPrefix(path, "/api/") {
			c.Next()
			return
		}

		id, err := c.Cookie(SessionCookie)
		if err != nil || !session.ValidID(id) {
			id = session.NewID()
			http.SetCookie(c.Writer, &http.Cookie{
				Name:     SessionCookie,
				Value:    id,
				Path:     "/",
				HttpOnly: true,
				SameSite: http.SameSiteLaxMode,
			})
		}

		c.Set(sessionKey, registry.Get(id))
		c.Next()
	})
}

func storeFrom(c *gin.Context) *session.Store {
	return c.MustGet(sessionKey).(*session.Store)
}
