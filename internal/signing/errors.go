package signing

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	ErrInvalidPIN  = errors.New("signing: invalid pin")
	ErrKeyNotFound = errors.New("signing: key not found")
	ErrUnavailable = errors.New("signing: service unavailable")
	ErrRejected    = errors.New("signing: request rejected")
)

// Error codes in the service's error envelope.
const (
	CodeInvalidPIN  = "invalid_pin"
	CodeKeyNotFound = "key_not_found"
)

// HTTPError is a non-2xx response from the signing service.
type HTTPError struct {
	StatusCode int
	Code       string
	Message    string
	Body       string
}

func (e *HTTPError) Error() string {
	if e == nil {
		return "signing http error"
	}
	msg := strings.TrimSpace(e.Message)
	if msg == "" {
		msg = http.StatusText(e.StatusCode)
	}
	if e.Code != "" {
		return fmt.Sprintf("signing http error: status=%d code=%s message=%s", e.StatusCode, e.Code, msg)
	}
	return fmt.Sprintf("signing http error: status=%d message=%s", e.StatusCode, msg)
}

// Unwrap classifies the response by status and envelope code.
func (e *HTTPError) Unwrap() error {
	if e == nil {
		return nil
	}
	switch {
	case e.Code == CodeInvalidPIN, e.StatusCode == http.StatusUnauthorized:
		return ErrInvalidPIN
	case e.Code == CodeKeyNotFound, e.StatusCode == http.StatusNotFound:
		return ErrKeyNotFound
	case e.StatusCode == http.StatusTooManyRequests, e.StatusCode >= 500:
		return ErrUnavailable
	default:
		return ErrRejected
	}
}

func parseHTTPError(status int, raw []byte) error {
	herr := &HTTPError{
		StatusCode: status,
		Body:       strings.TrimSpace(string(raw)),
	}
	var env struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(raw, &env); err == nil {
		herr.Code = strings.TrimSpace(env.Error.Code)
		herr.Message = strings.TrimSpace(env.Error.Message)
	}
	return herr
}

// Retryable reports whether the failure is transient.
func Retryable(err error) bool {
	return errors.Is(err, ErrUnavailable)
}
