package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func echoUser(w http.ResponseWriter, r *http.Request) {
	if id, ok := GetUserID(r.Context()); ok {
		w.Header().Set("X-Seen", "yes")
		w.WriteHeader(int(200 + id%2))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func TestIdentity(t *testing.T) {
	h := Identity(http.HandlerFunc(echoUser))

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"anonymous", "", http.StatusNoContent},
		{"even id", "4", http.StatusOK},
		{"odd id", "7", http.StatusCreated},
		{"garbage", "abc", http.StatusUnauthorized},
		{"negative", "-3", http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set(UserHeader, tt.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}

func TestMetrics_LabelsByRoutePattern(t *testing.T) {
	reg := prometheus.NewRegistry()

	r := chi.NewRouter()
	r.Use(Metrics(reg))
	r.Get("/bills/{id}", func(w http.ResponseWriter, r *http.Request) {})

	for _, path := range []string{"/bills/1", "/bills/2"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	n, err := testutil.GatherAndCount(reg, "splitthebill_http_requests_total")
	assert.NoError(t, err)
	assert.Equal(t, 1, n, "both requests share one series")
}
