package tablo

import "errors"

// ClientError is the generic client-level failure (malformed payloads and the
// like). AuthenticationError and ConnectionError refine the taxonomy; callers
// should test with the Is* helpers rather than type-switch directly.
type ClientError struct {
	Message string
	Err     error
}

func (e *ClientError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *ClientError) Unwrap() error { return e.Err }

// AuthenticationError reports a credential or protocol-semantic failure
// during the login sequence.
type AuthenticationError struct {
	Message string
	Err     error
}

func (e *AuthenticationError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *AuthenticationError) Unwrap() error { return e.Err }

// ConnectionError reports a transport failure, timeout or non-2xx response
// from either the cloud or the local device.
type ConnectionError struct {
	Message string
	Err     error
}

func (e *ConnectionError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// IsAuthenticationError reports whether err is an AuthenticationError.
func IsAuthenticationError(err error) bool {
	var target *AuthenticationError
	return errors.As(err, &target)
}

// IsConnectionError reports whether err is a ConnectionError.
func IsConnectionError(err error) bool {
	var target *ConnectionError
	return errors.As(err, &target)
}
