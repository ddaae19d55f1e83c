// internal/app/features/errors/errors.go
package errors

import (
	"net/http"

	"github.com/clanforge/clanhub/internal/app/system/auth"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// ErrorLogger logs a failure with request context and writes the JSON
// error response the client sees. The internal message and error go to the
// log; only userMsg reaches the client.
type ErrorLogger struct {
	Log *zap.Logger
}

// NewErrorLogger constructs an ErrorLogger.
func NewErrorLogger(logger *zap.Logger) *ErrorLogger {
	return &ErrorLogger{Log: logger}
}

func (e *ErrorLogger) fields(r *http.Request, err error) []zap.Field {
	fields := []zap.Field{
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
	}
	if id := middleware.GetReqID(r.Context()); id != "" {
		fields = append(fields, zap.String("request_id", id))
	}
	if u, ok := auth.CurrentUser(r); ok {
		fields = append(fields, zap.String("user_id", u.ID))
	}
	if err != nil {
		fields = append(fields, zap.Error(err))
	}
	return fields
}

// LogServerError logs at error level and responds 500.
func (e *ErrorLogger) LogServerError(w http.ResponseWriter, r *http.Request, msg string, err error, userMsg string) {
	e.Log.Error(msg, e.fields(r, err)...)
	Write(w, http.StatusInternalServerError, userMsg)
}

// LogBadRequest logs at warn level and responds 400.
func (e *ErrorLogger) LogBadRequest(w http.ResponseWriter, r *http.Request, msg string, err error, userMsg string) {
	e.Log.Warn(msg, e.fields(r, err)...)
	Write(w, http.StatusBadRequest, userMsg)
}

// LogForbidden logs at warn level and responds 403.
func (e *ErrorLogger) LogForbidden(w http.ResponseWriter, r *http.Request, msg string, err error, userMsg string) {
	e.Log.Warn(msg, e.fields(r, err)...)
	Write(w, http.StatusForbidden, userMsg)
}

// LogBadGateway is for failures of an upstream service other than the
// database.
func (e *ErrorLogger) LogBadGateway(w http.ResponseWriter, r *http.Request, msg string, err error, userMsg string) {
	e.Log.Error(msg, e.fields(r, err)...)
	Write(w, http.StatusBadGateway, userMsg)
}

// Handler serves the router's fallback responses.
type Handler struct{}

func NewHandler() *Handler {
	return &Handler{}
}

// NotFound is the router's 404 handler.
func (h *Handler) NotFound(w http.ResponseWriter, r *http.Request) {
	NotFound(w, "Not found.")
}

// MethodNotAllowed is the router's 405 handler.
func (h *Handler) MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	Write(w, http.StatusMethodNotAllowed, "Method not allowed.")
}
