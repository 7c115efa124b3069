package transport

import (
	"net/http"

	"github.com/agentstation/bomsync/internal/utils/ptr"
)

// Authenticator applies credentials to outgoing requests.
type Authenticator interface {
	Apply(req *http.Request)
}

// NoAuth sends requests without credentials.
type NoAuth struct{}

// Apply implements Authenticator.
func (NoAuth) Apply(*http.Request) {}

// BearerAuth sends the key as a Bearer token.
type BearerAuth struct {
	Token string
}

// Apply implements Authenticator.
func (a BearerAuth) Apply(req *http.Request) {
	if a.Token != "" {
		req.Header.Set("Authorization", "Bearer "+a.Token)
	}
}

// HeaderAuth sends the key in a custom header.
type HeaderAuth struct {
	Header string
	Key    string
}

// Apply implements Authenticator.
func (a HeaderAuth) Apply(req *http.Request) {
	if a.Key != "" {
		req.Header.Set(a.Header, a.Key)
	}
}

// QueryAuth sends the key as a query parameter.
type QueryAuth struct {
	Param string
	Key   string
}

// Apply implements Authenticator.
func (a QueryAuth) Apply(req *http.Request) {
	if req.URL == nil || a.Key == "" {
		return
	}
	query := req.URL.Query()
	query.Set(a.Param, a.Key)
	req.URL.RawQuery = query.Encode()
}

// authFor picks bearer auth when a key is configured.
func authFor(apiKey *string) Authenticator {
	key := ptr.Value(apiKey)
	if key == "" {
		return NoAuth{}
	}
	return BearerAuth{Token: key}
}
