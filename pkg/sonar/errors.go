package sonar

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

// APIError is returned for any non-2xx response.
type APIError struct {
	HTTPStatus int
	Messages   []string // "msg" entries of the error body, possibly empty
	Context    string   // what the client was doing
}

func (e *APIError) Error() string {
	msg := fmt.Sprintf("%s: API error (HTTP %d)", e.Context, e.HTTPStatus)
	if len(e.Messages) > 0 {
		msg += ": " + strings.Join(e.Messages, "; ")
	}
	return msg
}

// IsUnauthorized reports whether the server rejected the credentials.
func (e *APIError) IsUnauthorized() bool {
	return e.HTTPStatus == http.StatusUnauthorized
}

// IsNotFound reports whether the target entity does not exist.
func (e *APIError) IsNotFound() bool {
	return e.HTTPStatus == http.StatusNotFound
}

type errorBody struct {
	Errors []struct {
		Msg string `json:"msg"`
	} `json:"errors"`
}

func newAPIError(status int, body []byte, op string) *APIError {
	apiErr := &APIError{HTTPStatus: status, Context: op}
	var eb errorBody
	if len(body) > 0 && json.Unmarshal(body, &eb) == nil {
		for _, e := range eb.Errors {
			apiErr.Messages = append(apiErr.Messages, e.Msg)
		}
	}
	return apiErr
}
