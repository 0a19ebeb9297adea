// Package auth resolves the requesting user's identity. Illude does not do
// its own credential handling: identity either arrives from a fronting
// authentication proxy via trusted headers, or a fixed identity is served
// for local development.
package auth

import (
	"context"
	"errors"
	"net/http"
)

// ErrNoSession is returned when a request carries no resolvable identity.
var ErrNoSession = errors.New("no session")

// Session identifies the authenticated user for one request.
type Session struct {
	UserID string
	Email  string
	Name   string
}

// Provider resolves a session from an incoming request.
type Provider interface {
	// SessionFromRequest returns the request's session, or ErrNoSession
	// when the request is unauthenticated.
	SessionFromRequest(r *http.Request) (*Session, error)
}

// HeaderProvider trusts identity headers set by a fronting auth proxy.
// The proxy must strip these headers from client-supplied requests.
type HeaderProvider struct{}

// Header names populated by the auth proxy.
const (
	HeaderUserID = "X-Auth-User-Id"
	HeaderEmail  = "X-Auth-Email"
	HeaderName   = "X-Auth-Name"
)

// SessionFromRequest resolves the session from the proxy headers.
func (HeaderProvider) SessionFromRequest(r *http.Request) (*Session, error) {
	id := r.Header.Get(HeaderUserID)
	if id == "" {
		return nil, ErrNoSession
	}
	return &Session{
		UserID: id,
		Email:  r.Header.Get(HeaderEmail),
		Name:   r.Header.Get(HeaderName),
	}, nil
}

// StaticProvider serves one fixed identity for every request. Intended for
// single-user local deployments and tests.
type StaticProvider struct {
	Session Session
}

// SessionFromRequest returns the fixed session.
func (p StaticProvider) SessionFromRequest(*http.Request) (*Session, error) {
	if p.Session.UserID == "" {
		return nil, ErrNoSession
	}
	s := p.Session
	return &s, nil
}

type contextKey struct{}

// WithSession returns a context carrying the session.
func WithSession(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, contextKey{}, s)
}

// SessionFromContext returns the session stored by WithSession, or nil.
func SessionFromContext(ctx context.Context) *Session {
	s, _ := ctx.Value(contextKey{}).(*Session)
	return s
}
