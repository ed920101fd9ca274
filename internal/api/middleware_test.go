package api

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"receiving/pkg/authtoken"
	"receiving/pkg/config"
)

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func TestBearerAuth_DevWithoutSecretPassesThrough(t *testing.T) {
	var called bool
	h := BearerAuth(config.Config{AppEnv: "dev"}, quietLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		assert.Nil(t, IdentityFromContext(r.Context()))
	}))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	assert.True(t, called)
}

func TestBearerAuth_ProdWithoutSecretFailsClosed(t *testing.T) {
	h := BearerAuth(config.Config{AppEnv: "prod"}, quietLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestBearerAuth_AttachesIdentity(t *testing.T) {
	cfg := config.Config{AppEnv: "prod", Auth: config.AuthConfig{JWTSecret: "k", Audience: "receiving"}}
	var subject string
	h := BearerAuth(cfg, quietLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id := IdentityFromContext(r.Context()); id != nil {
			subject = id.Subject
		}
	}))

	tok, err := authtoken.Issue("k", "receiving", "op-9", time.Minute, time.Now())
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "bearer "+tok)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "op-9", subject)
}

func TestRequestLogger(t *testing.T) {
	var buf bytes.Buffer
	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})
	log.SetOutput(&buf)

	var seen string
	h := RequestLogger(log)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = RequestIDFromContext(r.Context())
		WriteError(w, http.StatusTeapot, "TEAPOT", "short and stout")
	}))

	req := httptest.NewRequest(http.MethodGet, "/v1/bookings", nil)
	req.Header.Set("X-Request-Id", "req-123")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, "req-123", seen)
	assert.Equal(t, "req-123", rec.Header().Get("X-Request-Id"))

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "req-123", line["requestId"])
	assert.Equal(t, float64(http.StatusTeapot), line["status"])
	assert.Equal(t, "/v1/bookings", line["path"])

	var env ErrorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	assert.Equal(t, "TEAPOT", env.Error.Code)
}
