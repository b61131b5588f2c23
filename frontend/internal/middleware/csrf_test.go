package middleware

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestGenerateCSRFToken(t *testing.T) {
	var seen string
	handler := GenerateCSRFToken(CSRFConfig{SecureCookies: false})(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			seen = GetCSRFTokenFromContext(r)
		}),
	)

	t.Run("new visitor gets a cookie", func(t *testing.T) {
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

		require.NotEmpty(t, seen)
		var cookie *http.Cookie
		for _, c := range w.Result().Cookies() {
			if c.Name == csrfCookieName {
				cookie = c
			}
		}
		require.NotNil(t, cookie)
		assert.Equal(t, seen, cookie.Value)
		assert.True(t, cookie.HttpOnly)
	})

	t.Run("existing cookie is reused", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(&http.Cookie{Name: csrfCookieName, Value: "existing"})
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)

		assert.Equal(t, "existing", seen)
		assert.Empty(t, w.Result().Cookies())
	})
}

func TestValidateCSRFToken_Form(t *testing.T) {
	token := "test-token-123"

	tests := []struct {
		name           string
		method         string
		cookie         *http.Cookie
		formToken      string
		expectedStatus int
	}{
		{"valid POST request", http.MethodPost, &http.Cookie{Name: csrfCookieName, Value: token}, token, http.StatusOK},
		{"GET request (no validation)", http.MethodGet, nil, "", http.StatusOK},
		{"missing cookie", http.MethodPost, nil, token, http.StatusForbidden},
		{"missing form token", http.MethodPost, &http.Cookie{Name: csrfCookieName, Value: token}, "", http.StatusForbidden},
		{"mismatched tokens", http.MethodPost, &http.Cookie{Name: csrfCookieName, Value: token}, "different-token", http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			form := url.Values{}
			if tt.formToken != "" {
				form.Set(csrfFormField, tt.formToken)
			}
			req := httptest.NewRequest(tt.method, "/", strings.NewReader(form.Encode()))
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
			if tt.cookie != nil {
				req.AddCookie(tt.cookie)
			}

			w := httptest.NewRecorder()
			ValidateCSRFToken(0)(okHandler()).ServeHTTP(w, req)
			assert.Equal(t, tt.expectedStatus, w.Code)
		})
	}
}

func multipartRequest(t *testing.T, token string, fileSize int) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mpw := multipart.NewWriter(&body)
	require.NoError(t, mpw.WriteField(csrfFormField, token))
	part, err := mpw.CreateFormFile("file", "a.png")
	require.NoError(t, err)
	_, err = part.Write(bytes.Repeat([]byte{'x'}, fileSize))
	require.NoError(t, err)
	require.NoError(t, mpw.Close())

	req := httptest.NewRequest(http.MethodPost, "/submit", &body)
	req.Header.Set("Content-Type", mpw.FormDataContentType())
	req.AddCookie(&http.Cookie{Name: csrfCookieName, Value: token})
	return req
}

func TestValidateCSRFToken_Multipart(t *testing.T) {
	t.Run("within limit", func(t *testing.T) {
		w := httptest.NewRecorder()
		ValidateCSRFToken(64*1024)(okHandler()).ServeHTTP(w, multipartRequest(t, "tok", 1024))
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("over limit is rejected", func(t *testing.T) {
		w := httptest.NewRecorder()
		ValidateCSRFToken(1024)(okHandler()).ServeHTTP(w, multipartRequest(t, "tok", 8*1024))
		assert.GreaterOrEqual(t, w.Code, http.StatusBadRequest)
		assert.NotEqual(t, http.StatusOK, w.Code)
	})
}
