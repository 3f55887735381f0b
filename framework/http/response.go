package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/km-arc/go-inject/framework/container"
)

// ── Response ─────────────────────────────────────────────────────────────────

// Response writes JSON bodies for controller actions.
type Response struct {
	w http.ResponseWriter
}

// NewResponse wraps a ResponseWriter.
func NewResponse(w http.ResponseWriter) *Response {
	return &Response{w: w}
}

// Raw returns the underlying ResponseWriter.
func (res *Response) Raw() http.ResponseWriter { return res.w }

// JSON sends data with the given status.
//
//	res.JSON(http.StatusOK, map[string]any{"message": "ok"})
func (res *Response) JSON(status int, data any) error {
	res.w.Header().Set("Content-Type", "application/json")
	res.w.WriteHeader(status)
	return json.NewEncoder(res.w).Encode(data)
}

// Success sends 200 JSON: {"data": v}
func (res *Response) Success(v any) error {
	return res.JSON(http.StatusOK, envelope{"data": v})
}

// NoContent sends 204 with no body.
func (res *Response) NoContent() {
	res.w.WriteHeader(http.StatusNoContent)
}

// Error sends {"message": message} with status.
func (res *Response) Error(status int, message string) error {
	return res.JSON(status, envelope{"message": message})
}

// Fail sends 500 for err. Injection failures also carry their code and token:
//
//	{"message": "...", "code": "TOKEN_NOT_REGISTERED", "token": "mailer"}
func (res *Response) Fail(err error) error {
	body := envelope{"message": err.Error()}
	var ie *container.InjectionError
	if errors.As(err, &ie) {
		body["code"] = ie.Code
		if ie.Token != "" {
			body["token"] = ie.Token
		}
	}
	return res.JSON(http.StatusInternalServerError, body)
}

type envelope map[string]any
