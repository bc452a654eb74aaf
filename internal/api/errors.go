package api

import (
	"encoding/json"
	"errors"
	"fmt"
)

// NetworkError means the request never produced an HTTP response: dial or
// read failure, timeout, or an open circuit breaker.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s: request failed: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// ServerError is a non-2xx response. Message is the server-provided text when
// the body carried one.
type ServerError struct {
	Op      string
	Status  int
	Message string
}

func (e *ServerError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: server returned %d: %s", e.Op, e.Status, e.Message)
	}
	return fmt.Sprintf("%s: server returned %d", e.Op, e.Status)
}

// ServerMessage returns the message of a ServerError in err's chain.
func ServerMessage(err error) (string, bool) {
	var se *ServerError
	if !errors.As(err, &se) || se.Message == "" {
		return "", false
	}
	return se.Message, true
}

func IsNetwork(err error) bool {
	var ne *NetworkError
	return errors.As(err, &ne)
}

// messageFromBody pulls a human message out of an error body. FastAPI puts it
// under "detail"; validation errors carry a list there, which is skipped.
func messageFromBody(body []byte) string {
	var payload map[string]any
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	for _, key := range []string{"detail", "message", "error"} {
		if s, ok := payload[key].(string); ok && s != "" {
			return s
		}
	}
	return ""
}
