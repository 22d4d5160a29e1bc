// Package apperrors defines the error taxonomy shared by all components.
// Handlers map these to HTTP statuses; components never surface untyped errors.
package apperrors

import "fmt"

// ConfigError means a required account-level setting is absent. It is raised
// before any network activity and is never retried.
type ConfigError struct {
	Setting string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("missing required configuration: %s", e.Setting)
}

// ValidationError means caller-supplied input violates a precondition.
// Fatal to the single call, no retry.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

// TransportError is a network-level failure: no response, abort, DNS, timeout.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// RemoteError is a well-formed error response from the remote platform.
// Message is the platform's own message where one was provided.
type RemoteError struct {
	Status  int
	Message string
}

func (e *RemoteError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("remote platform returned status %d", e.Status)
}
