package extractor

import (
	"errors"
	"net/http"
	"strings"
)

// Extractor reads identity and attestation metadata from the forwarded
// request headers. The upstream gateway verifies the bearer token and
// injects the x-* identity headers; this layer only trusts and reads them.
type Extractor interface {
	Get(h http.Header, name string) []string
	GetFirst(h http.Header, name string) string
	GetUserID(h http.Header) (string, error)
	GetRoleIDs(h http.Header) []string
	GetAppID(h http.Header) string
	GetRequestID(h http.Header) string
	GetAttestation(h http.Header) string
	GetBearer(h http.Header) (string, error)
	GetEmailVerified(h http.Header) bool
}

type extractor struct {
}

func New() Extractor {
	return &extractor{}
}

func (t *extractor) Get(h http.Header, name string) []string {
	return h.Values(name)
}

func (t *extractor) GetFirst(h http.Header, name string) string {
	values := t.Get(h, name)
	if len(values) == 0 {
		return ""
	}

	return values[0]
}

func (t *extractor) GetUserID(h http.Header) (string, error) {
	values := t.Get(h, UserID)
	if len(values) == 0 {
		return "", errors.New("request does not have x-user-id")
	}

	return values[0], nil
}

func (t *extractor) GetRoleIDs(h http.Header) []string {
	return t.Get(h, RoleID)
}

func (t *extractor) GetAppID(h http.Header) string {
	return t.GetFirst(h, AppID)
}

func (t *extractor) GetRequestID(h http.Header) string {
	return t.GetFirst(h, RequestID)
}

func (t *extractor) GetAttestation(h http.Header) string {
	return t.GetFirst(h, AppCheck)
}

func (t *extractor) GetBearer(h http.Header) (string, error) {
	value := t.GetFirst(h, Authorization)
	if value == "" {
		return "", errors.New("request does not have an Authorization header")
	}
	token, ok := strings.CutPrefix(value, "Bearer ")
	if !ok || token == "" {
		return "", errors.New("Authorization header is not a bearer token")
	}
	return token, nil
}

func (t *extractor) GetEmailVerified(h http.Header) bool {
	return t.GetFirst(h, EmailStatus) == "true"
}
