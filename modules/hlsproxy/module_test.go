package hlsproxy

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/m1k1o/go-mediapipe/pkg/hlsproxy"
)

func storage(t *testing.T, body string) *httptest.Server {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/videos/u1/v1/hls_720p/segment_000.ts" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte(body))
	}))
	t.Cleanup(ts.Close)
	return ts
}

func get(m http.Handler, target string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	m.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestModule(t *testing.T) {
	first := storage(t, "first")
	second := storage(t, "second")

	m := New("/hls/", &hlsproxy.Config{StorageBaseURL: first.URL})
	defer m.Shutdown()

	if rec := get(m, "/other/u1/v1/hls_720p/segment_000.ts"); rec.Code != http.StatusNotFound {
		t.Errorf("foreign prefix status = %d", rec.Code)
	}

	if rec := get(m, "/hls/u1/v1/hls_720p/segment_000.ts"); rec.Body.String() != "first" {
		t.Errorf("body = %q, want first", rec.Body)
	}

	m.ConfigReload(&hlsproxy.Config{StorageBaseURL: second.URL})

	if rec := get(m, "/hls/u1/v1/hls_720p/segment_000.ts"); rec.Body.String() != "second" {
		t.Errorf("body after reload = %q, want second", rec.Body)
	}
}
