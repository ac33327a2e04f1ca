package transport

import (
	"fmt"
	"net/http"
	"time"

	"github.com/qualifire-dev/rogue/types"
)

const defaultHTTPTimeout = 120 * time.Second

// authHeader maps an auth mode to the header it injects. Returns empty
// strings for no_auth.
func authHeader(authType types.AuthType, credentials string) (key, value string, err error) {
	switch authType {
	case types.AuthTypeNone, "":
		return "", "", nil
	case types.AuthTypeAPIKey:
		return "X-API-Key", credentials, nil
	case types.AuthTypeBearer:
		return "Authorization", "Bearer " + credentials, nil
	case types.AuthTypeBasic:
		return "Authorization", "Basic " + credentials, nil
	default:
		return "", "", fmt.Errorf("unknown auth type %q", authType)
	}
}

// authHeaders returns the auth header as a map, for clients that accept
// header maps instead of a round tripper.
func authHeaders(authType types.AuthType, credentials string) (map[string]string, error) {
	key, value, err := authHeader(authType, credentials)
	if err != nil {
		return nil, err
	}
	if key == "" {
		return nil, nil
	}
	return map[string]string{key: value}, nil
}

// authRoundTripper injects the auth header into every outgoing request.
type authRoundTripper struct {
	base   http.RoundTripper
	header string
	value  string
}

func (t *authRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	if t.header != "" {
		req = req.Clone(req.Context())
		req.Header.Set(t.header, t.value)
	}
	return t.base.RoundTrip(req)
}

// newHTTPClient builds an HTTP client that authenticates with the target.
func newHTTPClient(authType types.AuthType, credentials string) (*http.Client, error) {
	key, value, err := authHeader(authType, credentials)
	if err != nil {
		return nil, err
	}
	return &http.Client{
		Timeout: defaultHTTPTimeout,
		Transport: &authRoundTripper{
			base:   http.DefaultTransport,
			header: key,
			value:  value,
		},
	}, nil
}
