package middleware

import (
	"mime"
	"net/http"

	apperrors "metro/pkg/errors"
	httputil "metro/pkg/http"
	"metro/pkg/logger"
)

// ContentTypeValidation rejects bodies that are not declared as JSON.
func ContentTypeValidation(log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !requiresContentType(r.Method) {
				next.ServeHTTP(w, r)
				return
			}

			mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
			if err != nil || mediaType != "application/json" {
				log.Warn("Invalid Content-Type header",
					"request_id", logger.RequestID(r.Context()),
					"content_type", r.Header.Get("Content-Type"),
					"path", r.URL.Path,
					"method", r.Method,
				)
				if err := httputil.WriteError(w, apperrors.UnsupportedMediaType("Content-Type must be application/json")); err != nil {
					log.Error("failed to write error response", "error", err)
				}
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func requiresContentType(method string) bool {
	return method == http.MethodPost || method == http.MethodPut || method == http.MethodPatch
}
