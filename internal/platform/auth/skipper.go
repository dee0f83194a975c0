package auth

import (
	"github.com/labstack/echo/v4"
)

// publicPaths bypass session verification. They either run before a
// session exists or are infrastructure endpoints.
var publicPaths = map[string]bool{
	"/health":          true,
	"/health/db":       true,
	"/metrics":         true,
	"/api/auth/login":  true,
	"/api/auth/verify": true,
	"/api/auth/lookup": true,
	"/api/auth/logout": true,
}

// AuthSkipper returns true for requests whose route should skip session
// verification.
func AuthSkipper(c echo.Context) bool {
	return publicPaths[c.Path()]
}

// IsPublicPath reports whether path bypasses session verification.
func IsPublicPath(path string) bool {
	return publicPaths[path]
}
