package provider

import (
	"errors"
	"fmt"
)

var (
	ErrConfiguration  = errors.New("configuration error")
	ErrAuthentication = errors.New("authentication error")
	ErrValidation     = errors.New("validation error")
	ErrTransport      = errors.New("transport error")
	ErrUnsupported    = errors.New("unsupported operation")
)

// TransportError is a non-2xx reply or a failed round trip.
type TransportError struct {
	StatusCode int
	Body       string
	Err        error
}

func (e *TransportError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("transport: %v", e.Err)
	}
	return fmt.Sprintf("transport: status=%d body=%q", e.StatusCode, e.Body)
}

func (e *TransportError) Unwrap() error { return e.Err }

func (e *TransportError) Is(target error) bool { return target == ErrTransport }

// ProviderError is a semantic error reported inside a backend response.
type ProviderError struct {
	Context string
	Message string
	Code    int
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s: %s (%d)", e.Context, e.Message, e.Code)
}
