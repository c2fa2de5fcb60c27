package http

import (
	"errors"
	"net/http"
	"strings"
)

// ErrUnauthenticated is returned when a request carries no usable
// owner identity.
var ErrUnauthenticated = errors.New("missing or invalid owner identity")

// Authenticator resolves the owner identity of a request. Every data
// operation is scoped to the resolved owner.
type Authenticator interface {
	Authenticate(r *http.Request) (ownerID string, err error)
}

// HeaderAuthenticator trusts an identity header set by the fronting
// proxy. Suitable behind a gateway that terminates real authentication.
type HeaderAuthenticator struct {
	Header string
}

func NewHeaderAuthenticator() *HeaderAuthenticator {
	return &HeaderAuthenticator{Header: "X-Owner-ID"}
}

func (a *HeaderAuthenticator) Authenticate(r *http.Request) (string, error) {
	owner := strings.TrimSpace(r.Header.Get(a.Header))
	if owner == "" {
		return "", ErrUnauthenticated
	}
	return owner, nil
}
