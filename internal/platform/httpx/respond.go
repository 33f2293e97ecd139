// Package httpx writes JSON and RFC 7807 problem responses and maps domain
// errors onto status codes.
package httpx

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
)

// maxBodyBytes caps request bodies read by DecodeJSON.
const maxBodyBytes = 1 << 20

// ErrTrailingData reports a request body holding more than one JSON value.
var ErrTrailingData = errors.New("httpx: unexpected data after JSON body")

// ProblemDetail is an RFC 7807 problem document.
type ProblemDetail struct {
	Type   string `json:"type"`
	Title  string `json:"title"`
	Status int    `json:"status"`
	Detail string `json:"detail,omitempty"`
}

// JSON writes data with the given status code.
func JSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// Problem writes an application/problem+json response.
func Problem(w http.ResponseWriter, status int, title, detail string) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(ProblemDetail{
		Type:   "about:blank",
		Title:  title,
		Status: status,
		Detail: detail,
	})
}

// DecodeJSON decodes a single JSON value from the request body into target.
// Bodies over 1 MiB fail to decode.
func DecodeJSON(r *http.Request, target any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(target); err != nil {
		return err
	}
	if dec.More() {
		return ErrTrailingData
	}
	return nil
}
