package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"go.uber.org/zap"

	"newsletter/internal/app"
	"newsletter/internal/domain"
	"newsletter/internal/middleware"
)

const maxBodyBytes = 1 << 20

type Handlers struct {
	app *app.Application
}

func New(application *app.Application) *Handlers {
	return &Handlers{app: application}
}

func (h *Handlers) Echo(w http.ResponseWriter, r *http.Request) {
	name := "world"
	if v, ok := r.URL.Query()["name"]; ok && len(v) > 0 {
		name = v[0]
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprintf(w, "Hello, %s!", name)
}

func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("healthy"))
}

// errEmptyBody is returned by decodeJSON when the request has no body.
// Compare it with ==, errors.Is matches every validation error.
var errEmptyBody = domain.Validation("body", "request body is empty")

// decodeJSON reads the request body into v. The returned status is the one the
// caller should answer with when err is not nil.
func decodeJSON(r *http.Request, v any) (int, error) {
	if r.Body == nil {
		return http.StatusBadRequest, errEmptyBody
	}
	body := io.LimitReader(r.Body, maxBodyBytes)

	err := json.NewDecoder(body).Decode(v)
	var typeErr *json.UnmarshalTypeError
	switch {
	case err == nil:
		return 0, nil
	case errors.Is(err, io.EOF):
		return http.StatusBadRequest, errEmptyBody
	case errors.As(err, &typeErr):
		return http.StatusUnprocessableEntity, domain.Validation("body", err.Error())
	default:
		return http.StatusBadRequest, domain.Validation("body", err.Error())
	}
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		middleware.Logger(r.Context()).Error("Error encoding response", zap.Error(err))
		writeError(w, r, domain.Internal("failed to encode response: %v", err))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(data)
}

// writeError answers with the status derived from err.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var derr *domain.Error
	if !errors.As(err, &derr) {
		derr = domain.Internal("%v", err)
	}
	if derr.Kind == domain.KindInternal {
		middleware.Logger(r.Context()).Error("Request failed", zap.Error(derr))
	}
	writeErrorStatus(w, derr.StatusCode(), derr)
}

func writeErrorStatus(w http.ResponseWriter, status int, err error) {
	body, _ := json.Marshal(map[string]string{"error": err.Error()})
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(body)
}
