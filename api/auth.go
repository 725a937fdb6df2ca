package api

import (
	"errors"
	"net/http"

	"github.com/sagefy-edu/sagefy/internal/identity"
)

// ErrUnauthenticated is returned when a request carries no usable identity.
var ErrUnauthenticated = errors.New("unauthenticated")

// Identity headers set by the upstream gateway after token validation.
const (
	HeaderUserEmail = "X-User-Email"
	HeaderUserRole  = "X-User-Role"
	HeaderClassCode = "X-Class-Code"
)

// Authenticator resolves the caller of a request. Token issuance and
// validation happen upstream; implementations only map what the gateway
// forwarded into an identity.
type Authenticator interface {
	Authenticate(r *http.Request) (identity.Identity, error)
}

// HeaderAuthenticator trusts the identity headers set by the gateway.
type HeaderAuthenticator struct{}

// Authenticate implements Authenticator.
func (HeaderAuthenticator) Authenticate(r *http.Request) (identity.Identity, error) {
	email := r.Header.Get(HeaderUserEmail)
	role := r.Header.Get(HeaderUserRole)
	if email == "" {
		return identity.Identity{}, ErrUnauthenticated
	}
	if !identity.ValidRole(role) {
		return identity.Identity{}, ErrUnauthenticated
	}
	return identity.Identity{
		Email:     email,
		Role:      role,
		ClassCode: r.Header.Get(HeaderClassCode),
	}, nil
}
