package auth

import (
	"net/http"
	"time"
)

// CookieConfig holds cookie configuration settings
type CookieConfig struct {
	Domain   string // Empty string = current host only
	Secure   bool   // HTTPS only
	SameSite string // "strict", "lax", or "none"
}

// setCookie writes an httpOnly cookie. A zero maxAge makes it a browser-session cookie.
func setCookie(w http.ResponseWriter, name, value string, maxAge time.Duration, config CookieConfig) {
	cookie := &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Domain:   config.Domain,
		HttpOnly: true,
		Secure:   config.Secure,
		SameSite: parseSameSite(config.SameSite),
	}
	if maxAge > 0 {
		cookie.MaxAge = int(maxAge.Seconds())
		cookie.Expires = time.Now().Add(maxAge)
	}
	http.SetCookie(w, cookie)
}

func clearCookie(w http.ResponseWriter, name string, config CookieConfig) {
	cookie := &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		Domain:   config.Domain,
		MaxAge:   -1, // Negative MaxAge deletes the cookie
		Expires:  time.Unix(0, 0),
		HttpOnly: true,
		Secure:   config.Secure,
		SameSite: parseSameSite(config.SameSite),
	}
	http.SetCookie(w, cookie)
}

// RememberCookie reads and writes the persistent login cookie.
type RememberCookie struct {
	Name   string
	TTL    time.Duration
	Config CookieConfig
}

func (rc RememberCookie) Set(w http.ResponseWriter, value string) {
	setCookie(w, rc.Name, value, rc.TTL, rc.Config)
}

func (rc RememberCookie) Clear(w http.ResponseWriter) {
	clearCookie(w, rc.Name, rc.Config)
}

// Get returns the cookie value or "" when absent.
func (rc RememberCookie) Get(r *http.Request) string {
	cookie, err := r.Cookie(rc.Name)
	if err != nil {
		return ""
	}
	return cookie.Value
}

// parseSameSite converts string to http.SameSite constant
func parseSameSite(sameSite string) http.SameSite {
	switch sameSite {
	case "strict":
		return http.SameSiteStrictMode
	case "lax":
		return http.SameSiteLaxMode
	case "none":
		return http.SameSiteNoneMode
	default:
		return http.SameSiteLaxMode
	}
}
