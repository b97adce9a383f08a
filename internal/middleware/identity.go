package middleware

// identity.go holds the helpers that read the authenticated user back out
// of the Echo context once JWTAuth has run.

import (
	"strconv"

	"github.com/labstack/echo/v4"
)

// CurrentUserID returns the user id stored by JWTAuth.  The claim arrives
// as a float64 from the JSON decoder, so every numeric shape is accepted.
func CurrentUserID(c echo.Context) (uint64, bool) {
	switch v := c.Get("user_id").(type) {
	case uint64:
		return v, v > 0
	case int64:
		return uint64(v), v > 0
	case int:
		return uint64(v), v > 0
	case float64:
		return uint64(v), v > 0
	case string:
		n, err := strconv.ParseUint(v, 10, 64)
		return n, err == nil && n > 0
	}
	return 0, false
}

// CurrentRole returns the role claim or "" when unauthenticated.
func CurrentRole(c echo.Context) string {
	r, _ := c.Get("role").(string)
	return r
}

// requesterKey identifies the caller for rate limiting.  Anonymous callers
// share the "anon" bucket and are further split by IP when the key
// strategy includes it.
func requesterKey(c echo.Context) string {
	if id, ok := CurrentUserID(c); ok {
		return strconv.FormatUint(id, 10)
	}
	return "anon"
}
