package hlsproxy

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"regexp"
	"strconv"
	"strings"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/m1k1o/go-mediapipe/internal/metrics"
	"github.com/m1k1o/go-mediapipe/internal/storage"
)

var resourceRegex = regexp.MustCompile(`^[0-9A-Za-z_-]+$`)

// headers copied from upstream segment responses
var passthroughHeaders = []string{
	"Content-Length",
	"Content-Range",
	"ETag",
	"Last-Modified",
	"Accept-Ranges",
}

const (
	kindPlaylist = "playlist"
	kindSegment  = "segment"

	validationRange = "bytes=0-4095"
	validationLimit = 4096
)

type ManagerCtx struct {
	logger zerolog.Logger
	config Config

	client *retryablehttp.Client
	cache  validationCache
}

func New(config *Config) *ManagerCtx {
	logger := log.With().Str("module", "hlsproxy").Str("submodule", "manager").Logger()
	conf := config.withDefaultValues()

	return &ManagerCtx{
		logger: logger,
		config: conf,
		client: newClient(conf, logger),
		cache:  newValidationCache(conf, logger),
	}
}

func (m *ManagerCtx) Shutdown() {
	if m.cache != nil {
		m.cache.Shutdown()
	}
	m.client.HTTPClient.CloseIdleConnections()
}

type resource struct {
	userID  string
	videoID string
	path    string // cleaned, relative to the video prefix
}

func (r resource) key() string {
	return storage.ObjectKey(r.userID, r.videoID, r.path)
}

func (m *ManagerCtx) parse(urlPath string) (resource, bool) {
	if !strings.HasPrefix(urlPath, m.config.PathPrefix) {
		return resource{}, false
	}

	// remove path prefix
	p := strings.TrimPrefix(urlPath, m.config.PathPrefix)

	// split path to user, video and rest
	s := strings.SplitN(p, "/", 3)
	if len(s) != 3 || s[2] == "" {
		return resource{}, false
	}

	// check if parameters match regex
	if !resourceRegex.MatchString(s[0]) || !resourceRegex.MatchString(s[1]) {
		return resource{}, false
	}

	// rest must stay within the video prefix
	for _, part := range strings.Split(s[2], "/") {
		if part == ".." {
			return resource{}, false
		}
	}

	rest := strings.TrimPrefix(path.Clean("/"+s[2]), "/")
	if rest == "" {
		return resource{}, false
	}

	return resource{userID: s[0], videoID: s[1], path: rest}, true
}

func (m *ManagerCtx) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	setCORS(w.Header())

	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusOK)
		return
	}

	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET, OPTIONS")
		writeError(w, http.StatusMethodNotAllowed, http.StatusText(http.StatusMethodNotAllowed))
		return
	}

	res, ok := m.parse(r.URL.Path)
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid video path")
		metrics.ObserveGatewayRequest("invalid", http.StatusBadRequest)
		return
	}

	kind, serve := kindSegment, m.serveSegment
	if strings.HasSuffix(res.path, ".m3u8") {
		kind, serve = kindPlaylist, m.servePlaylist
	}

	metrics.ObserveGatewayRequest(kind, serve(w, r, res))
}

func (m *ManagerCtx) servePlaylist(w http.ResponseWriter, r *http.Request, res resource) int {
	logger := m.logger.With().Str("key", res.key()).Logger()

	ctx, cancel := context.WithTimeout(r.Context(), m.config.PlaylistTimeout)
	defer cancel()

	resp, err := m.fetch(ctx, res.key(), "")
	if err != nil {
		return m.upstreamError(w, r, logger, err)
	}
	defer resp.Body.Close()

	buf, err := io.ReadAll(resp.Body)
	if err != nil {
		return m.upstreamError(w, r, logger, fmt.Errorf("%w: %v", ErrUpstreamTransient, err))
	}

	text := string(buf)
	if strings.HasSuffix(res.path, "master.m3u8") {
		text = m.validateMaster(ctx, res, text)
	}

	prefix := m.config.PathPrefix + res.userID + "/" + res.videoID + "/"
	text = rewritePlaylist(text, prefix, path.Dir(res.path))

	w.Header().Set("Content-Type", storage.ContentType(res.path))
	w.Header().Set("Content-Length", strconv.Itoa(len(text)))
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)

	if _, err := io.WriteString(w, text); err != nil {
		logger.Debug().Err(err).Msg("unable to write playlist")
	}
	return http.StatusOK
}

// validateMaster drops stream entries whose rendition playlist is not reachable.
func (m *ManagerCtx) validateMaster(ctx context.Context, res resource, text string) string {
	lines := strings.Split(text, "\n")
	variants := masterVariants(lines)
	if len(variants) == 0 {
		return text
	}

	dir := path.Dir(res.path)
	valid := make([]bool, len(variants))

	g, gctx := errgroup.WithContext(ctx)
	for i, v := range variants {
		i, v := i, v
		g.Go(func() error {
			variantRes := res
			variantRes.path = path.Join(dir, v.uri)
			valid[i] = m.checkVariant(gctx, variantRes.key())
			return nil
		})
	}
	_ = g.Wait()

	drop := []variant{}
	for i, v := range variants {
		if !valid[i] {
			drop = append(drop, v)
		}
	}

	if len(drop) == 0 {
		return text
	}

	m.logger.Warn().
		Str("key", res.key()).
		Int("dropped", len(drop)).
		Int("variants", len(variants)).
		Msg("removed unreachable variants from master playlist")
	metrics.AddVariantsDropped(len(drop))

	return strings.Join(dropVariants(lines, drop), "\n")
}

func (m *ManagerCtx) checkVariant(ctx context.Context, key string) bool {
	if m.cache != nil {
		if valid, ok := m.cache.Get(ctx, key); ok {
			return valid
		}
	}

	valid := m.probeVariant(ctx, key)

	// do not remember outcomes of aborted checks
	if m.cache != nil && ctx.Err() == nil {
		m.cache.Set(ctx, key, valid)
	}

	return valid
}

func (m *ManagerCtx) probeVariant(ctx context.Context, key string) bool {
	resp, err := m.fetch(ctx, key, validationRange)
	if err != nil {
		m.logger.Debug().Err(err).Str("key", key).Msg("variant check failed")
		return false
	}
	defer resp.Body.Close()

	head, err := io.ReadAll(io.LimitReader(resp.Body, validationLimit))
	if err != nil {
		return false
	}

	return strings.HasPrefix(strings.TrimSpace(string(head)), "#EXTM3U")
}

func (m *ManagerCtx) serveSegment(w http.ResponseWriter, r *http.Request, res resource) int {
	logger := m.logger.With().Str("key", res.key()).Logger()

	ctx, cancel := context.WithTimeout(r.Context(), m.config.SegmentTimeout)
	defer cancel()

	resp, err := m.fetch(ctx, res.key(), r.Header.Get("Range"))
	if err != nil {
		return m.upstreamError(w, r, logger, err)
	}
	defer resp.Body.Close()

	for _, header := range passthroughHeaders {
		if value := resp.Header.Get(header); value != "" {
			w.Header().Set(header, value)
		}
	}
	w.Header().Set("Content-Type", storage.ContentType(res.path))
	w.WriteHeader(resp.StatusCode)

	if _, err := io.Copy(w, resp.Body); err != nil {
		if r.Context().Err() != nil {
			logger.Debug().Msg("client disconnected")
			return resp.StatusCode
		}

		// headers are already sent, the client must see a broken response
		logger.Warn().Err(err).Msg("upstream failed while streaming")
		panic(http.ErrAbortHandler)
	}

	return resp.StatusCode
}

// fetch returns 2xx responses only, anything else is an error.
func (m *ManagerCtx) fetch(ctx context.Context, key string, byteRange string) (*http.Response, error) {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, m.objectURL(key), nil)
	if err != nil {
		return nil, err
	}

	if byteRange != "" {
		req.Header.Set("Range", byteRange)
	}

	resp, err := m.client.Do(req)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		resp.Body.Close()
		return nil, &UpstreamStatusError{Key: key, StatusCode: resp.StatusCode}
	}

	return resp, nil
}

func (m *ManagerCtx) objectURL(key string) string {
	return m.config.StorageBaseURL + "/" + (&url.URL{Path: key}).EscapedPath()
}

func (m *ManagerCtx) upstreamError(w http.ResponseWriter, r *http.Request, logger zerolog.Logger, err error) int {
	if r.Context().Err() != nil {
		logger.Debug().Err(err).Msg("client disconnected")
		return 499
	}

	code := http.StatusInternalServerError

	var statusErr *UpstreamStatusError
	switch {
	case errors.As(err, &statusErr):
		code = statusErr.StatusCode
	case errors.Is(err, ErrUpstreamTransient):
		code = http.StatusBadGateway
	case errors.Is(err, context.DeadlineExceeded):
		code = http.StatusGatewayTimeout
	}

	if code >= 500 {
		logger.Err(err).Int("code", code).Msg("unable to load from upstream")
	} else {
		logger.Debug().Err(err).Int("code", code).Msg("upstream rejected request")
	}

	writeError(w, code, "Failed to load video segment")
	return code
}

func setCORS(h http.Header) {
	h.Set("Access-Control-Allow-Origin", "*")
	h.Set("Access-Control-Allow-Methods", "GET, OPTIONS")
	h.Set("Access-Control-Allow-Headers", "Range")
	h.Set("Access-Control-Expose-Headers", "Content-Length, Content-Range")
}

type errorResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func writeError(w http.ResponseWriter, code int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(errorResponse{Success: false, Message: message})
}
