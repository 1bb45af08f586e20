package backend

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// APIError is a non-2xx answer from the backend.
type APIError struct {
	Status int
	Detail string
	Err    error
}

func (e *APIError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("backend returned %d", e.Status)
	}
	return fmt.Sprintf("backend returned %d: %s", e.Status, e.Detail)
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// NewAPIError builds an APIError from a response status and body.
func NewAPIError(status int, body []byte, err error) *APIError {
	return &APIError{Status: status, Detail: parseDetail(body), Err: err}
}

// parseDetail extracts a human readable message from an error body. The backend answers
// either {"detail": "..."} or a map of field name to messages for validation failures.
func parseDetail(body []byte) string {
	if len(body) == 0 {
		return ""
	}

	var detail struct {
		Detail string `json:"detail"`
	}
	if err := json.Unmarshal(body, &detail); err == nil && detail.Detail != "" {
		return detail.Detail
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err == nil && len(fields) > 0 {
		names := make([]string, 0, len(fields))
		for name := range fields {
			names = append(names, name)
		}
		sort.Strings(names)

		parts := make([]string, 0, len(names))
		for _, name := range names {
			var messages []string
			if err := json.Unmarshal(fields[name], &messages); err == nil {
				parts = append(parts, name+": "+strings.Join(messages, " "))
				continue
			}
			var message string
			if err := json.Unmarshal(fields[name], &message); err == nil {
				parts = append(parts, name+": "+message)
			}
		}
		if len(parts) > 0 {
			return strings.Join(parts, "; ")
		}
	}

	text := strings.TrimSpace(string(body))
	if len(text) > 200 {
		text = text[:200]
	}
	return text
}
