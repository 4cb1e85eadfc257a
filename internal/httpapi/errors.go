package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
)

type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error carries the status and code an error is reported with.
type Error struct {
	Status int
	Code   string
	Err    error
}

func NewError(status int, code string, err error) *Error {
	return &Error{Status: status, Code: code, Err: err}
}

func (e *Error) Error() string { return e.Err.Error() }

func (e *Error) Unwrap() error { return e.Err }

// WriteJSON writes v as an uncached JSON response; every payload here is
// live table state.
func WriteJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func WriteError(w http.ResponseWriter, code int, errCode, msg string) {
	WriteJSON(w, code, ErrorResponse{Code: errCode, Message: msg})
}

// WriteErr reports err using the status and code of the first *Error in
// its chain. Anything else is a 500 whose text is not exposed.
func WriteErr(w http.ResponseWriter, err error) {
	var he *Error
	if errors.As(err, &he) {
		WriteError(w, he.Status, he.Code, he.Err.Error())
		return
	}
	WriteError(w, http.StatusInternalServerError, "internal", "internal error")
}
