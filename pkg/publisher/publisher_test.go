package publisher

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"testing"

	"github.com/m1k1o/go-mediapipe/internal/storage"
	"github.com/m1k1o/go-mediapipe/pkg/encoder"
	"github.com/m1k1o/go-mediapipe/pkg/ladder"
	"github.com/m1k1o/go-mediapipe/pkg/orchestrator"
)

type memoryStore struct {
	fail string

	mu      sync.Mutex
	objects map[string]string
	types   map[string]string
}

func (s *memoryStore) Put(ctx context.Context, key string, body io.ReadSeeker, size int64, contentType string) error {
	if key == s.fail {
		return errors.New("connection reset")
	}

	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	if int64(len(data)) != size {
		return errors.New("size mismatch")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.objects == nil {
		s.objects = map[string]string{}
		s.types = map[string]string{}
	}
	s.objects[key] = string(data)
	s.types[key] = contentType
	return nil
}

type memoryMeta struct {
	err    error
	assets []*storage.VideoAsset
}

func (m *memoryMeta) Insert(ctx context.Context, asset *storage.VideoAsset) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	m.assets = append(m.assets, asset)
	return asset.ID, nil
}

func writeTree(t *testing.T) (string, *orchestrator.MasterManifest) {
	t.Helper()
	dir := t.TempDir()

	files := map[string]string{
		"master.m3u8":             "#EXTM3U\n",
		"hls_360p/playlist.m3u8":  "#EXTM3U\nsegment_000.ts\n",
		"hls_360p/segment_000.ts": "ts-data",
	}
	for rel, content := range files {
		path := filepath.Join(dir, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
	}

	spec, _ := ladder.Lookup("360p")
	manifest := &orchestrator.MasterManifest{
		Entries: []orchestrator.Entry{{
			Spec:      spec,
			Bandwidth: spec.Bandwidth(),
			Output: encoder.RenditionOutput{
				Label:        spec.Label,
				Resolution:   spec.Resolution(),
				PlaylistPath: spec.PlaylistPath(),
				SegmentDir:   spec.SegmentDir(),
				Encoder:      encoder.KindSoftware,
			},
		}},
	}
	return dir, manifest
}

func TestPublish(t *testing.T) {
	dir, manifest := writeTree(t)
	store := &memoryStore{}
	meta := &memoryMeta{}

	asset, err := New(store, meta, Config{UploadConcurrency: 2}).Publish(context.Background(), Request{
		OutputDir: dir,
		Manifest:  manifest,
		UserID:    "u1",
		VideoID:   "v1",
		Title:     "Clip",
		Duration:  4,
		Tags:      []string{"demo"},
	})
	if err != nil {
		t.Fatalf("Publish() error = %v", err)
	}

	keys := []string{}
	for key := range store.objects {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	wantKeys := []string{
		"videos/u1/v1/hls_360p/playlist.m3u8",
		"videos/u1/v1/hls_360p/segment_000.ts",
		"videos/u1/v1/master.m3u8",
	}
	if len(keys) != len(wantKeys) {
		t.Fatalf("uploaded keys = %v, want %v", keys, wantKeys)
	}
	for i := range keys {
		if keys[i] != wantKeys[i] {
			t.Errorf("uploaded key[%d] = %q, want %q", i, keys[i], wantKeys[i])
		}
	}

	if got := store.types["videos/u1/v1/hls_360p/segment_000.ts"]; got != "video/MP2T" {
		t.Errorf("segment content type = %q", got)
	}
	if got := store.types["videos/u1/v1/master.m3u8"]; got != "application/vnd.apple.mpegurl" {
		t.Errorf("master content type = %q", got)
	}

	if len(meta.assets) != 1 {
		t.Fatalf("inserted %d records, want 1", len(meta.assets))
	}
	if asset.MasterPlaylist != "videos/u1/v1/master.m3u8" || asset.KeyPrefix != "videos/u1/v1" {
		t.Errorf("asset = %+v", asset)
	}
	if asset.Visibility != storage.VisibilityPublic || asset.Status != storage.StatusReady {
		t.Errorf("asset visibility = %q, status = %q", asset.Visibility, asset.Status)
	}
	if len(asset.Renditions) != 1 || asset.Renditions[0].Encoder != "software" {
		t.Errorf("asset renditions = %+v", asset.Renditions)
	}
}

func TestPublishUploadFailure(t *testing.T) {
	dir, manifest := writeTree(t)
	store := &memoryStore{fail: "videos/u1/v1/hls_360p/segment_000.ts"}
	meta := &memoryMeta{}

	_, err := New(store, meta, Config{}).Publish(context.Background(), Request{
		OutputDir: dir,
		Manifest:  manifest,
		UserID:    "u1",
		VideoID:   "v1",
	})

	var publishErr *PublishError
	if !errors.As(err, &publishErr) {
		t.Fatalf("Publish() error = %v, want PublishError", err)
	}
	if publishErr.Key != store.fail {
		t.Errorf("PublishError.Key = %q", publishErr.Key)
	}
	if len(meta.assets) != 0 {
		t.Error("metadata was written after a failed upload")
	}
}

func TestPublishMetadataFailure(t *testing.T) {
	dir, manifest := writeTree(t)
	meta := &memoryMeta{err: errors.New("duplicate key")}

	_, err := New(&memoryStore{}, meta, Config{}).Publish(context.Background(), Request{
		OutputDir: dir,
		Manifest:  manifest,
		UserID:    "u1",
		VideoID:   "v1",
	})

	var publishErr *PublishError
	if !errors.As(err, &publishErr) {
		t.Fatalf("Publish() error = %v, want PublishError", err)
	}
	if publishErr.Key != "" {
		t.Errorf("PublishError.Key = %q, want empty", publishErr.Key)
	}
}

func TestPublishRequiresRenditions(t *testing.T) {
	_, err := New(&memoryStore{}, &memoryMeta{}, Config{}).Publish(context.Background(), Request{
		OutputDir: t.TempDir(),
		Manifest:  &orchestrator.MasterManifest{},
		UserID:    "u1",
		VideoID:   "v1",
	})
	if err == nil {
		t.Error("Publish() without renditions succeeded")
	}
}
