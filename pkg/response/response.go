// Package response writes the storefront JSON envelope:
//
//	{"success": true, "message": "...", "<payload key>": ...}
//
// Every endpoint answers with this shape, errors included.
package response

import (
	"encoding/json"
	"net/http"
)

// M is the payload merged next to success/message.
type M map[string]any

// Write sends status with the envelope. Payload keys "success" and "message"
// are overwritten.
func Write(w http.ResponseWriter, status int, success bool, message string, payload M) {
	body := make(map[string]any, len(payload)+2)
	for k, v := range payload {
		body[k] = v
	}
	body["success"] = success
	if message != "" {
		body["message"] = message
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body) //nolint:errcheck
}

// OK sends a 200 success envelope.
func OK(w http.ResponseWriter, message string, payload M) {
	Write(w, http.StatusOK, true, message, payload)
}

// Created sends a 201 success envelope.
func Created(w http.ResponseWriter, message string, payload M) {
	Write(w, http.StatusCreated, true, message, payload)
}

// Error sends a failure envelope with the given status.
func Error(w http.ResponseWriter, status int, message string) {
	Write(w, status, false, message, nil)
}

// ValidationError sends a 400 with the field-level error map under "errors".
func ValidationError(w http.ResponseWriter, message string, errs map[string]string) {
	if message == "" {
		message = "Validation failed"
	}
	Write(w, http.StatusBadRequest, false, message, M{"errors": errs})
}

func Unauthorized(w http.ResponseWriter) {
	Error(w, http.StatusUnauthorized, "Unauthorized")
}

// Forbidden writes the role-check failure with the configured status
// (403, or 401 in compatibility mode).
func Forbidden(w http.ResponseWriter, status int) {
	if status == 0 {
		status = http.StatusForbidden
	}
	Error(w, status, "Forbidden")
}

func NotFound(w http.ResponseWriter) {
	Error(w, http.StatusNotFound, "Not found")
}

func InternalError(w http.ResponseWriter) {
	Error(w, http.StatusInternalServerError, "Internal Server Error")
}
