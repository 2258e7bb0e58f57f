package publisher

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/m1k1o/go-mediapipe/internal/storage"
	"github.com/m1k1o/go-mediapipe/pkg/orchestrator"
)

type ObjectStore interface {
	Put(ctx context.Context, key string, body io.ReadSeeker, size int64, contentType string) error
}

type MetadataStore interface {
	Insert(ctx context.Context, asset *storage.VideoAsset) (string, error)
}

type Config struct {
	UploadConcurrency int
}

func (c Config) withDefaultValues() Config {
	if c.UploadConcurrency <= 0 {
		c.UploadConcurrency = 8
	}
	return c
}

type Request struct {
	OutputDir string
	Manifest  *orchestrator.MasterManifest

	UserID      string
	VideoID     string
	Title       string
	Description string
	Duration    float64
	Category    string
	Genre       string
	Tags        []string
	Visibility  storage.Visibility
}

type PublishError struct {
	Key string // empty when the metadata insert failed
	Err error
}

func (e *PublishError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("unable to store video metadata: %v", e.Err)
	}
	return fmt.Sprintf("unable to upload %s: %v", e.Key, e.Err)
}

func (e *PublishError) Unwrap() error {
	return e.Err
}

type PublisherCtx struct {
	logger zerolog.Logger
	config Config

	store ObjectStore
	meta  MetadataStore
}

func New(store ObjectStore, meta MetadataStore, config Config) *PublisherCtx {
	return &PublisherCtx{
		logger: log.With().Str("module", "publisher").Logger(),
		config: config.withDefaultValues(),
		store:  store,
		meta:   meta,
	}
}

func (p *PublisherCtx) Publish(ctx context.Context, req Request) (*storage.VideoAsset, error) {
	if req.UserID == "" || req.VideoID == "" {
		return nil, fmt.Errorf("user and video id are required")
	}
	if req.Manifest == nil || len(req.Manifest.Entries) == 0 {
		return nil, fmt.Errorf("nothing to publish")
	}

	files, err := collect(req.OutputDir)
	if err != nil {
		return nil, err
	}

	logger := p.logger.With().Str("user_id", req.UserID).Str("video_id", req.VideoID).Logger()
	logger.Info().Int("files", len(files)).Msg("uploading video")

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.config.UploadConcurrency)

	for _, rel := range files {
		rel := rel
		g.Go(func() error {
			return p.upload(gctx, req, rel)
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	renditions := make([]storage.Rendition, 0, len(req.Manifest.Entries))
	for _, output := range req.Manifest.Outputs() {
		renditions = append(renditions, storage.Rendition{
			Label:        output.Label,
			Resolution:   output.Resolution,
			PlaylistPath: output.PlaylistPath,
			Encoder:      string(output.Encoder),
		})
	}

	visibility := req.Visibility
	if visibility == "" {
		visibility = storage.VisibilityPublic
	}

	asset := &storage.VideoAsset{
		ID:             req.VideoID,
		UserID:         req.UserID,
		Title:          req.Title,
		Description:    req.Description,
		Duration:       req.Duration,
		KeyPrefix:      storage.KeyPrefix(req.UserID, req.VideoID),
		MasterPlaylist: storage.ObjectKey(req.UserID, req.VideoID, orchestrator.MasterPlaylistName),
		Renditions:     renditions,
		Category:       req.Category,
		Genre:          req.Genre,
		Tags:           req.Tags,
		Visibility:     visibility,
		Status:         storage.StatusReady,
	}

	id, err := p.meta.Insert(ctx, asset)
	if err != nil {
		return nil, &PublishError{Err: err}
	}
	asset.ID = id

	logger.Info().Str("id", id).Msg("video published")
	return asset, nil
}

func (p *PublisherCtx) upload(ctx context.Context, req Request, rel string) error {
	key := storage.ObjectKey(req.UserID, req.VideoID, rel)

	file, err := os.Open(filepath.Join(req.OutputDir, filepath.FromSlash(rel)))
	if err != nil {
		return &PublishError{Key: key, Err: err}
	}
	defer file.Close()

	stat, err := file.Stat()
	if err != nil {
		return &PublishError{Key: key, Err: err}
	}

	if err := p.store.Put(ctx, key, file, stat.Size(), storage.ContentType(rel)); err != nil {
		return &PublishError{Key: key, Err: err}
	}

	return nil
}

// collect returns slash separated paths of all regular files below root.
func collect(root string) ([]string, error) {
	files := []string{}
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}

		files = append(files, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("unable to list output directory: %w", err)
	}
	return files, nil
}
