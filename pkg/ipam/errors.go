package ipam

import (
	"fmt"
	"net/http"

	"github.com/pkg/errors"
)

// ErrConfigurationMissing is returned when the IPAM server settings are
// unset or still the shipped placeholder. It must halt a workflow before
// any request is sent.
var ErrConfigurationMissing = errors.New("IPAM configuration must be defined")

// TransportError is a failure to get any HTTP response from the server.
type TransportError struct {
	Method string
	URL    string
	Err    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Method, e.URL, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// StatusError is a non-2xx response. Text holds the error text reported
// by the server, if it sent one.
type StatusError struct {
	Method     string
	URL        string
	StatusCode int
	Text       string
}

func (e *StatusError) Error() string {
	if e.Text == "" {
		return fmt.Sprintf("%s %s: unexpected status %d", e.Method, e.URL, e.StatusCode)
	}
	return fmt.Sprintf("%s %s: unexpected status %d: %s", e.Method, e.URL, e.StatusCode, e.Text)
}

// DecodeError is a 2xx response whose body is not the expected JSON.
type DecodeError struct {
	URL string
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("malformed response from %s: %v", e.URL, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// IsConfigurationMissing checks if an error is caused by an unset IPAM configuration.
func IsConfigurationMissing(err error) bool {
	return errors.Is(err, ErrConfigurationMissing)
}

// IsTransportError checks if an error is a transport failure.
func IsTransportError(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}

// IsResponseError checks if an error is a non-2xx status or a malformed body.
func IsResponseError(err error) bool {
	var se *StatusError
	var de *DecodeError
	return errors.As(err, &se) || errors.As(err, &de)
}

// IsNotFound checks if the server answered with 404.
func IsNotFound(err error) bool {
	var se *StatusError
	if errors.As(err, &se) {
		return se.StatusCode == http.StatusNotFound
	}
	return false
}

// StatusCode returns the HTTP status of a StatusError, 0 otherwise.
func StatusCode(err error) int {
	var se *StatusError
	if errors.As(err, &se) {
		return se.StatusCode
	}
	return 0
}
