package script

import (
	"errors"
	"net/http"
	"strings"
)

// Kind classifies a text-service failure for recovery routing.
type Kind int

const (
	KindUnknown Kind = iota
	KindCredentialMissing
	KindTransient
)

func (k Kind) String() string {
	switch k {
	case KindCredentialMissing:
		return "credential_missing"
	case KindTransient:
		return "transient"
	default:
		return "unknown"
	}
}

// ServiceError is a failure reported by a text service, tagged at the
// boundary where the transport status is still known.
type ServiceError struct {
	Kind    Kind
	Service string
	Message string
	Err     error
}

func (e *ServiceError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Service + " error"
}

func (e *ServiceError) Unwrap() error { return e.Err }

// KindOf returns the kind of a tagged error. Untagged errors fall back to
// matching "Key" in the message, which is how the console has always
// detected credential failures.
func KindOf(err error) Kind {
	if err == nil {
		return KindUnknown
	}
	var se *ServiceError
	if errors.As(err, &se) {
		return se.Kind
	}
	if strings.Contains(err.Error(), "Key") {
		return KindCredentialMissing
	}
	return KindUnknown
}

// kindForStatus maps an HTTP status to a failure kind.
func kindForStatus(status int) Kind {
	switch {
	case status == http.StatusUnauthorized, status == http.StatusForbidden:
		return KindCredentialMissing
	case status == http.StatusTooManyRequests, status >= http.StatusInternalServerError:
		return KindTransient
	default:
		return KindUnknown
	}
}

// ErrMissingAPIKey is raised before any request when no key is configured.
var ErrMissingAPIKey = errors.New("API Key not configured")

func missingKey(service, name string) error {
	return &ServiceError{
		Kind:    KindCredentialMissing,
		Service: service,
		Message: service + ": " + name + " is not set (API Key missing)",
		Err:     ErrMissingAPIKey,
	}
}
