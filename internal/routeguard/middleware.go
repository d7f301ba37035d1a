package routeguard

import (
	"net/http"

	"github.com/gorilla/mux"
)

// Middleware returns a mux.MiddlewareFunc applying the guard before any
// protected handler runs. Credential presence is read from the named
// request cookie.
func (g *Guard) Middleware(cookieName string) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			present := false
			if c, err := r.Cookie(cookieName); err == nil && c.Value != "" {
				present = true
			}

			if d := g.Decide(r.URL.Path, present); !d.Passthrough() {
				http.Redirect(w, r, d.Redirect, http.StatusTemporaryRedirect)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
