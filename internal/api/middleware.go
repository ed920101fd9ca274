package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"receiving/pkg/authtoken"
	"receiving/pkg/config"
)

// BearerAuth validates operator tokens on the booking API.
//
// Expected header:
// - Authorization: Bearer <JWT>
//
// Outside prod, an unset AUTH_JWT_SECRET disables the check so local runs
// need no token.
func BearerAuth(cfg config.Config, log *logrus.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if cfg.Auth.JWTSecret == "" {
				if cfg.AppEnv != "prod" {
					next.ServeHTTP(w, r)
					return
				}
				WriteError(w, http.StatusInternalServerError, CodeInternal, "auth not configured")
				return
			}

			authz := strings.TrimSpace(r.Header.Get("Authorization"))
			if !strings.HasPrefix(strings.ToLower(authz), "bearer ") {
				WriteError(w, http.StatusUnauthorized, CodeUnauthorized, "missing bearer token")
				return
			}
			id, err := authtoken.Verify(strings.TrimSpace(authz[7:]), cfg.Auth.Audience, cfg.Auth.JWTSecret, time.Now())
			if err != nil {
				if log != nil {
					log.WithFields(logrus.Fields{
						"module":    "api",
						"requestId": RequestIDFromContext(r.Context()),
					}).WithError(err).Info("rejected bearer token")
				}
				WriteError(w, http.StatusUnauthorized, CodeUnauthorized, "invalid bearer token")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
		})
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

// RequestLogger tags each request with an id and logs one line when it
// completes.
func RequestLogger(log *logrus.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			reqID := strings.TrimSpace(r.Header.Get("X-Request-Id"))
			if reqID == "" {
				reqID = uuid.NewString()
			}
			w.Header().Set("X-Request-Id", reqID)

			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			start := time.Now()
			next.ServeHTTP(rec, r.WithContext(WithRequestID(r.Context(), reqID)))

			log.WithFields(logrus.Fields{
				"requestId":  reqID,
				"method":     r.Method,
				"path":       r.URL.Path,
				"status":     rec.status,
				"durationMs": time.Since(start).Milliseconds(),
			}).Info("http request")
		})
	}
}
