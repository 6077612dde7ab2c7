package routeguard

import (
	"github.com/pamoja-sacco/pamoja-sacco/internal/shared"
)

// Session is the client-side cached authentication state: the token issued
// at login plus the principal summary that came with it. A zero Session is
// an unauthenticated one.
type Session struct {
	Token     string
	Principal *shared.PrincipalRef
}

// Reason explains a redirect decision. The client has no dedicated
// "unauthorized" view, so both failure reasons redirect to the login path;
// callers can still tell them apart.
type Reason int

const (
	ReasonNone Reason = iota
	ReasonUnauthenticated
	ReasonRoleMismatch
)

// Decision is the outcome of evaluating a navigation. When RedirectTo is
// set the history entry is replaced, so back-navigation cannot loop into
// the protected tree.
type Decision struct {
	Authorized     bool
	RedirectTo     string
	ReplaceHistory bool
	Reason         Reason
}

// Evaluate runs the guard for one navigation. It is pure and synchronous:
// a function of (route, session) only.
func Evaluate(route Route, sess Session) Decision {
	if route.RequiredRole == nil {
		return Decision{Authorized: true}
	}
	if sess.Token == "" || sess.Principal == nil {
		return Decision{
			RedirectTo:     LoginPath,
			ReplaceHistory: true,
			Reason:         ReasonUnauthenticated,
		}
	}
	if sess.Principal.Role != *route.RequiredRole {
		return Decision{
			RedirectTo:     LoginPath,
			ReplaceHistory: true,
			Reason:         ReasonRoleMismatch,
		}
	}
	return Decision{Authorized: true}
}
