package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/soaringjerry/Huddle/internal/services"
)

const maxBodyBytes = 1 << 20

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// decodeJSON reads a single JSON document from the request body. An empty
// body decodes to the zero value when allowEmpty is set.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any, allowEmpty bool) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) && allowEmpty {
			return nil
		}
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return services.NewInvalidError("request body too large")
		}
		return services.NewInvalidError("invalid JSON body")
	}
	return nil
}

var codeStatus = map[services.ErrorCode]int{
	services.ErrorInvalid:      http.StatusBadRequest,
	services.ErrorUnauthorized: http.StatusUnauthorized,
	services.ErrorForbidden:    http.StatusForbidden,
	services.ErrorNotFound:     http.StatusNotFound,
	services.ErrorConflict:     http.StatusConflict,
}

// fail writes err as {"error": ...}. Service errors keep their message;
// anything else is a storage failure and the client only sees fallback.
func (rt *Router) fail(w http.ResponseWriter, op, workshopID string, err error, fallback string) {
	entry := rt.log.WithFields(logrus.Fields{"op": op, "workshop_id": workshopID})
	if se, ok := services.AsServiceError(err); ok {
		if status, ok := codeStatus[se.Code]; ok {
			entry.WithField("code", se.Code).Info(se.Message)
			writeJSON(w, status, map[string]string{"error": se.Message})
			return
		}
	}
	entry.WithError(err).Error("request failed")
	writeJSON(w, http.StatusInternalServerError, map[string]string{"error": fallback})
}

// etagMatches reports whether an If-None-Match header names etag.
func etagMatches(header, etag string) bool {
	for _, part := range strings.Split(header, ",") {
		part = strings.TrimPrefix(strings.TrimSpace(part), "W/")
		if part == "*" || part == etag {
			return true
		}
	}
	return false
}
