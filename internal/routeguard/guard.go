// Package routeguard decides redirect-before-render for the protected and
// auth-only regions of the app. The decision is a pure function of the
// request path and credential presence; the routing layer consumes it
// before any protected page's content is produced.
package routeguard

import "strings"

// DefaultPrefix is the protected section root used when none is configured.
const DefaultPrefix = "/app"

// Decision is the guard's verdict for one request. An empty Redirect means
// passthrough.
type Decision struct {
	Redirect string
}

// Passthrough reports whether the request may proceed unredirected.
func (d Decision) Passthrough() bool {
	return d.Redirect == ""
}

// Guard evaluates requests against one protected section.
type Guard struct {
	prefix        string
	loginPath     string
	registerPath  string
	dashboardPath string
}

// New creates a Guard for the protected section rooted at prefix.
func New(prefix string) *Guard {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	prefix = strings.TrimSuffix(prefix, "/")
	return &Guard{
		prefix:        prefix,
		loginPath:     prefix + "/login",
		registerPath:  prefix + "/register",
		dashboardPath: prefix + "/dashboard",
	}
}

// Decide applies the guard rules in order:
//
//  1. credential present on an auth-only page -> dashboard
//  2. protected section root -> dashboard or login by credential
//  3. protected page without credential -> login
//  4. anything else passes through
func (g *Guard) Decide(path string, credentialPresent bool) Decision {
	isAuthPage := g.isAuthPage(path)

	if credentialPresent && isAuthPage {
		return Decision{Redirect: g.dashboardPath}
	}

	if path == g.prefix || path == g.prefix+"/" {
		if credentialPresent {
			return Decision{Redirect: g.dashboardPath}
		}
		return Decision{Redirect: g.loginPath}
	}

	if strings.HasPrefix(path, g.prefix) && !isAuthPage && !credentialPresent {
		return Decision{Redirect: g.loginPath}
	}

	return Decision{}
}

// isAuthPage matches the login and register pages, trailing slash included.
func (g *Guard) isAuthPage(path string) bool {
	return path == g.loginPath || path == g.loginPath+"/" ||
		path == g.registerPath || path == g.registerPath+"/"
}
