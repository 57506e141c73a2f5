// internal/app/system/respond/respond.go
package respond

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/sparktrack/sparktrack/internal/app/system/apperr"
	"github.com/sparktrack/sparktrack/internal/app/system/limits"
	"go.uber.org/zap"
)

type successBody struct {
	Success   bool   `json:"success"`
	Message   string `json:"message"`
	Data      any    `json:"data"`
	Timestamp string `json:"timestamp"`
}

type errorBody struct {
	Success   bool           `json:"success"`
	Message   string         `json:"message"`
	Errors    []apperr.Item  `json:"errors,omitempty"`
	Details   map[string]any `json:"details,omitempty"`
	Timestamp string         `json:"timestamp"`
}

// now is swapped in tests.
var now = func() time.Time { return time.Now().UTC() }

func stamp() string { return now().Format(time.RFC3339) }

// JSON writes a success envelope with the given status.
func JSON(w http.ResponseWriter, status int, message string, data any) {
	write(w, status, successBody{
		Success:   true,
		Message:   message,
		Data:      data,
		Timestamp: stamp(),
	})
}

// OK writes a 200 success envelope.
func OK(w http.ResponseWriter, message string, data any) {
	JSON(w, http.StatusOK, message, data)
}

// Created writes a 201 success envelope.
func Created(w http.ResponseWriter, message string, data any) {
	JSON(w, http.StatusCreated, message, data)
}

// Error writes a failure envelope for err. Internal errors are logged with
// their cause and rendered with a generic message.
func Error(w http.ResponseWriter, r *http.Request, log *zap.Logger, err error) {
	e, ok := apperr.As(err)
	if !ok {
		e = apperr.Internal("internal server error", err)
	}

	msg := e.Message
	if e.Kind == apperr.KindInternal {
		if log != nil {
			log.Error("request failed",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.String("request_id", middleware.GetReqID(r.Context())),
				zap.Error(err))
		}
		if msg == "" {
			msg = "internal server error"
		}
	}

	write(w, apperr.HTTPStatus(e.Kind), errorBody{
		Success:   false,
		Message:   msg,
		Errors:    e.Items,
		Details:   e.Details,
		Timestamp: stamp(),
	})
}

// DecodeJSON reads a JSON request body into dst. Malformed or oversized
// bodies produce a BadRequest.
func DecodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, limits.MaxJSONBodySize)
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		var mbe *http.MaxBytesError
		switch {
		case errors.Is(err, io.EOF):
			return apperr.BadRequest("request body is required")
		case errors.As(err, &mbe):
			return apperr.BadRequest("request body too large")
		default:
			return apperr.BadRequest("malformed JSON body")
		}
	}
	return nil
}

func write(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
