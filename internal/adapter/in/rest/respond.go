package rest

import (
	"encoding/json"
	"errors"
	"net/http"

	"blogapi/internal/service"
	"blogapi/pkg/logger"
	"blogapi/pkg/schema"
)

const authRealm = `Basic realm="Authentication Required"`

type message struct {
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, data any) {
	body, err := json.Marshal(data)
	if err != nil {
		logger.FromContext(r.Context()).Error("marshal response", "error", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(body); err != nil {
		logger.FromContext(r.Context()).Warn("write response", "error", err)
	}
}

func writeMessage(w http.ResponseWriter, r *http.Request, status int, msg string) {
	writeJSON(w, r, status, message{Message: msg})
}

func writeUnauthorized(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("WWW-Authenticate", authRealm)
	writeMessage(w, r, http.StatusUnauthorized, service.ErrUnauthorized.Error())
}

// writeError maps service and schema errors onto status codes. Anything it
// does not recognise is logged and reported as a bare 500.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		verr     *schema.ViolationError
		entity   *service.EntityError
		tooLarge *http.MaxBytesError
	)

	switch {
	case errors.As(err, &tooLarge):
		writeMessage(w, r, http.StatusRequestEntityTooLarge, "request body too large")
	case errors.Is(err, schema.ErrUnreadableBody):
		writeMessage(w, r, http.StatusBadRequest, schema.ErrUnreadableBody.Error())
	case errors.Is(err, schema.ErrNoInputData):
		writeMessage(w, r, http.StatusBadRequest, schema.ErrNoInputData.Error())
	case errors.As(err, &verr):
		writeJSON(w, r, http.StatusBadRequest, verr.Fields)
	case errors.Is(err, service.ErrUnauthorized):
		writeUnauthorized(w, r)
	case errors.As(err, &entity):
		status := http.StatusNotFound
		if errors.Is(entity, service.ErrForbidden) {
			status = http.StatusForbidden
		}
		writeMessage(w, r, status, entity.Error())
	case errors.Is(err, service.ErrNotFound):
		writeMessage(w, r, http.StatusNotFound, "resource not found")
	case errors.Is(err, service.ErrInvalidRequest):
		writeMessage(w, r, http.StatusBadRequest, err.Error())
	default:
		logger.FromContext(r.Context()).Error("request failed", "error", err)
		writeMessage(w, r, http.StatusInternalServerError, "internal server error")
	}
}
