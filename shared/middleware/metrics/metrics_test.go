package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
)

func scrape(t *testing.T) string {
	t.Helper()
	rr := httptest.NewRecorder()
	Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	return rr.Body.String()
}

func TestMiddleware_UsesRoutePattern(t *testing.T) {
	r := chi.NewRouter()
	r.Use(Middleware)
	r.Get("/admin-messages/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	for _, id := range []string{"1", "2", "3"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/admin-messages/"+id, nil))
	}

	body := scrape(t)
	assert.Contains(t, body, `echobox_http_requests_total{method="GET",route="/admin-messages/{id}",status="418"} 3`)
	assert.NotContains(t, body, `route="/admin-messages/1"`)
}

func TestHandler_ExposesSubmissions(t *testing.T) {
	Submissions.WithLabelValues("text", "ok").Inc()
	assert.Contains(t, scrape(t), `echobox_submissions_total{mode="text",outcome="ok"}`)
}
