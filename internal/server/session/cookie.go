package session

import (
	"net/http"
	"strings"
	"time"
)

// CookieName - имя cookie с токеном сессии
const CookieName = "app_session_id"

// IsSecureRequest reports whether the client connection is encrypted,
// directly or behind a TLS-terminating proxy
func IsSecureRequest(r *http.Request) bool {
	if r.TLS != nil {
		return true
	}
	proto := r.Header.Get("X-Forwarded-Proto")
	for _, p := range strings.Split(proto, ",") {
		if strings.EqualFold(strings.TrimSpace(p), "https") {
			return true
		}
	}
	return false
}

// Cookie builds the session cookie for the request.
// SameSite=None needs Secure, so it is used only on encrypted connections.
func Cookie(r *http.Request, value string, maxAge time.Duration) *http.Cookie {
	c := &http.Cookie{
		Name:     CookieName,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(maxAge.Seconds()),
	}

	if IsSecureRequest(r) {
		c.Secure = true
		c.SameSite = http.SameSiteNoneMode
	}

	if maxAge > 0 {
		c.Expires = time.Now().Add(maxAge)
	}

	return c
}

// SetCookie writes the session cookie
func SetCookie(w http.ResponseWriter, r *http.Request, token string, ttl time.Duration) {
	http.SetCookie(w, Cookie(r, token, ttl))
}

// ClearCookie expires the session cookie on the client
func ClearCookie(w http.ResponseWriter, r *http.Request) {
	c := Cookie(r, "", 0)
	c.MaxAge = -1
	c.Expires = time.Unix(0, 0)
	http.SetCookie(w, c)
}

// TokenFromRequest returns the session token from the cookie
func TokenFromRequest(r *http.Request) (string, bool) {
	c, err := r.Cookie(CookieName)
	if err != nil || c.Value == "" {
		return "", false
	}
	return c.Value, true
}
