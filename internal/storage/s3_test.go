package storage

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
)

type putRequest struct {
	path        string
	contentType string
	body        string
}

func fakeS3(t *testing.T) (*httptest.Server, func() []putRequest) {
	t.Helper()

	var mu sync.Mutex
	var puts []putRequest

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut {
			http.Error(w, "unexpected method", http.StatusMethodNotAllowed)
			return
		}

		body, _ := io.ReadAll(r.Body)

		mu.Lock()
		puts = append(puts, putRequest{
			path:        r.URL.Path,
			contentType: r.Header.Get("Content-Type"),
			body:        string(body),
		})
		mu.Unlock()

		w.Header().Set("ETag", `"d41d8cd98f00b204e9800998ecf8427e"`)
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(ts.Close)

	return ts, func() []putRequest {
		mu.Lock()
		defer mu.Unlock()
		return append([]putRequest(nil), puts...)
	}
}

func TestS3StorePut(t *testing.T) {
	ts, puts := fakeS3(t)

	store, err := NewS3Store(context.Background(), S3Config{
		Bucket:    "media",
		Region:    "us-east-1",
		Endpoint:  ts.URL,
		AccessKey: "test",
		SecretKey: "test",
		PathStyle: true,
	})
	if err != nil {
		t.Fatalf("NewS3Store() error = %v", err)
	}

	key := ObjectKey("u1", "v1", "hls_720p/playlist.m3u8")
	body := "#EXTM3U\n"
	if err := store.Put(context.Background(), key, strings.NewReader(body), int64(len(body)), "application/vnd.apple.mpegurl"); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	got := puts()
	if len(got) != 1 {
		t.Fatalf("received %d uploads, want 1", len(got))
	}
	if got[0].path != "/media/videos/u1/v1/hls_720p/playlist.m3u8" {
		t.Errorf("upload path = %q", got[0].path)
	}
	if got[0].contentType != "application/vnd.apple.mpegurl" {
		t.Errorf("upload content type = %q", got[0].contentType)
	}
	if got[0].body != body {
		t.Errorf("upload body = %q", got[0].body)
	}
}

func TestNewS3StoreRequiresBucket(t *testing.T) {
	if _, err := NewS3Store(context.Background(), S3Config{}); err == nil {
		t.Error("NewS3Store() without bucket succeeded")
	}
}

func TestObjectKey(t *testing.T) {
	tests := []struct {
		user, video, rel string
		want             string
	}{
		{"u1", "v1", "master.m3u8", "videos/u1/v1/master.m3u8"},
		{"u1", "v1", "hls_360p/segment_000.ts", "videos/u1/v1/hls_360p/segment_000.ts"},
	}
	for _, tt := range tests {
		if got := ObjectKey(tt.user, tt.video, tt.rel); got != tt.want {
			t.Errorf("ObjectKey(%q, %q, %q) = %q, want %q", tt.user, tt.video, tt.rel, got, tt.want)
		}
	}
}

func TestVisibilityValid(t *testing.T) {
	for _, v := range []Visibility{VisibilityPublic, VisibilityUnlisted, VisibilityPrivate} {
		if !v.Valid() {
			t.Errorf("%q is not valid", v)
		}
	}
	if Visibility("secret").Valid() {
		t.Error("unknown visibility is valid")
	}
}

func TestContentType(t *testing.T) {
	tests := map[string]string{
		"master.m3u8":             "application/vnd.apple.mpegurl",
		"hls_720p/PLAYLIST.M3U8":  "application/vnd.apple.mpegurl",
		"hls_720p/segment_001.ts": "video/MP2T",
		"thumbnail.jpg":           "application/octet-stream",
		"noext":                   "application/octet-stream",
	}
	for name, want := range tests {
		if got := ContentType(name); got != want {
			t.Errorf("ContentType(%q) = %q, want %q", name, got, want)
		}
	}
}
