package serve

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/spf13/viper"
)

func storage(t *testing.T, body string) string {
	t.Helper()

	s := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(body))
	}))
	t.Cleanup(s.Close)
	return s.URL
}

func get(main *Main, target string) *httptest.ResponseRecorder {
	main.mu.Lock()
	handler := main.server
	main.mu.Unlock()

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestConfigReload(t *testing.T) {
	t.Cleanup(viper.Reset)

	first := storage(t, "first")
	second := storage(t, "second")
	viper.Set("storage-url", first)

	main := NewCommand()
	main.Config.Server.Bind = "127.0.0.1:0"
	main.Config.Gateway.Set()
	main.Preflight()

	// reload racing with startup
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 50; i++ {
			main.ConfigReload()
		}
	}()

	main.start()
	wg.Wait()
	t.Cleanup(main.shutdown)

	if rec := get(main, "/hls/u1/v1/hls_720p/segment_000.ts"); rec.Body.String() != "first" {
		t.Errorf("before reload body = %q, want %q", rec.Body, "first")
	}

	viper.Set("storage-url", second)
	main.ConfigReload()

	if rec := get(main, "/hls/u1/v1/hls_720p/segment_000.ts"); rec.Body.String() != "second" {
		t.Errorf("after reload body = %q, want %q", rec.Body, "second")
	}
}
