package client

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

var (
	// ErrAuthExpired matches any call that came back 401.
	ErrAuthExpired = errors.New("authorization expired")
	// ErrMalformedBody means the response body was not valid JSON.
	ErrMalformedBody = errors.New("malformed response body")
	// ErrUnexpectedResponse means valid JSON that does not fit the contract.
	ErrUnexpectedResponse = errors.New("unexpected response shape")
	ErrNotFound           = errors.New("not found")
)

// NetworkError covers every failure to complete an exchange: the transport
// gave up or the body could not be read or parsed.
type NetworkError struct {
	Method string
	URL    string
	Status int // zero when no response arrived
	Err    error
}

func (e *NetworkError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s %s: status %d: %v", e.Method, e.URL, e.Status, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Method, e.URL, e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// AuthExpiredError is returned alongside whatever body the 401 carried. By the
// time the caller sees it the session has already been invalidated.
type AuthExpiredError struct {
	Method string
	URL    string
	Body   json.RawMessage
}

func (e *AuthExpiredError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Method, e.URL, ErrAuthExpired)
}

func (e *AuthExpiredError) Is(target error) bool {
	return target == ErrAuthExpired
}

// LogicalError is a well-formed response whose payload reports a failure,
// e.g. {"error":"email already registered"}.
type LogicalError struct {
	Message string
}

func (e *LogicalError) Error() string {
	return e.Message
}

// LogicalErrorFrom inspects a payload for the {error: ...} convention the
// backends share. It returns nil for anything else.
func LogicalErrorFrom(raw json.RawMessage) error {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil
	}

	var payload struct {
		Error json.RawMessage `json:"error"`
	}
	if err := json.Unmarshal(trimmed, &payload); err != nil {
		return nil
	}
	if len(payload.Error) == 0 || bytes.Equal(payload.Error, []byte("null")) {
		return nil
	}

	var msg string
	if err := json.Unmarshal(payload.Error, &msg); err != nil {
		return &LogicalError{Message: string(payload.Error)}
	}
	if msg == "" {
		return nil
	}
	return &LogicalError{Message: msg}
}

func decodeInto(raw json.RawMessage, v any) error {
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("%w: %v", ErrUnexpectedResponse, err)
	}
	return nil
}

func isNull(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}
