package grobid

import (
	"errors"
	"fmt"
)

// ErrServiceBusy means every processing slot of the service is taken (HTTP 503).
var ErrServiceBusy = errors.New("service busy")

// TransportError is a network level failure: refused connection, timeout,
// malformed or truncated response.
type TransportError struct {
	URL string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("request to %s failed: %v", e.URL, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// ServiceError is any response status other than 200 and 503.
type ServiceError struct {
	StatusCode int
	Status     string
}

func (e *ServiceError) Error() string {
	return fmt.Sprintf("call to GROBID service failed with error %d", e.StatusCode)
}

func IsServiceBusy(err error) bool {
	return errors.Is(err, ErrServiceBusy)
}

func IsTransport(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}
