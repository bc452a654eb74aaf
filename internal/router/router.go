// Package router decides, from a path and the authenticated flag alone, which
// view may be shown.
package router

import (
	"net/http"
	"path"
	"strings"
)

type Policy int

const (
	Public Policy = iota
	Authenticated
)

func (p Policy) String() string {
	if p == Authenticated {
		return "authenticated"
	}
	return "public"
}

const (
	PathRoot     = "/"
	PathLogin    = "/login"
	PathProducts = "/products"
	PathCart     = "/cart"
	PathCheckout = "/checkout"
)

// Route is one entry of the route table. A route with RedirectTo set has no
// view of its own.
type Route struct {
	Path       string
	Policy     Policy
	RedirectTo string
}

var routes = map[string]Route{
	PathRoot:     {Path: PathRoot, Policy: Public, RedirectTo: PathLogin},
	PathLogin:    {Path: PathLogin, Policy: Public},
	PathProducts: {Path: PathProducts, Policy: Authenticated},
	PathCart:     {Path: PathCart, Policy: Authenticated},
	PathCheckout: {Path: PathCheckout, Policy: Authenticated},
}

// Decision is the outcome of Resolve. When Redirect is set, Path is where to
// go instead; Replace means the history entry is replaced, not pushed.
type Decision struct {
	Path     string
	Redirect bool
	Replace  bool
	NotFound bool
}

// Clean normalizes a requested path: leading slash, no trailing slash, no dot
// segments.
func Clean(p string) string {
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return path.Clean(p)
}

// Lookup returns the table entry for p.
func Lookup(p string) (Route, bool) {
	r, ok := routes[Clean(p)]
	return r, ok
}

// Resolve is pure: the same inputs always give the same decision. A protected
// path is never admitted unauthenticated.
func Resolve(p string, authenticated bool) Decision {
	r, ok := Lookup(p)
	if !ok {
		return Decision{Path: Clean(p), NotFound: true}
	}
	if r.RedirectTo != "" {
		return Decision{Path: r.RedirectTo, Redirect: true, Replace: true}
	}
	if r.Policy == Authenticated && !authenticated {
		return Decision{Path: PathLogin, Redirect: true, Replace: true}
	}
	return Decision{Path: r.Path}
}

// RequireAuth applies the same table to HTTP requests: unauthenticated access
// to a protected path is answered with 303 See Other to the login view. Paths
// outside the table pass through untouched.
func RequireAuth(authenticated func() bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			route, ok := Lookup(r.URL.Path)
			if ok && route.Policy == Authenticated && !authenticated() {
				http.Redirect(w, r, PathLogin, http.StatusSeeOther)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
