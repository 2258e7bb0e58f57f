package storage

import (
	"path"
	"strings"
	"time"
)

type Visibility string

const (
	VisibilityPublic   Visibility = "public"
	VisibilityUnlisted Visibility = "unlisted"
	VisibilityPrivate  Visibility = "private"
)

func (v Visibility) Valid() bool {
	switch v {
	case VisibilityPublic, VisibilityUnlisted, VisibilityPrivate:
		return true
	}
	return false
}

const StatusReady = "ready"

type Rendition struct {
	Label        string `json:"label"`
	Resolution   string `json:"resolution"`
	PlaylistPath string `json:"playlistPath"`
	Encoder      string `json:"encoder"`
}

// VideoAsset is the metadata record of one published video.
type VideoAsset struct {
	ID          string
	UserID      string
	Title       string
	Description string
	Duration    float64

	KeyPrefix      string
	MasterPlaylist string
	Renditions     []Rendition

	Category   string
	Genre      string
	Tags       []string
	Visibility Visibility

	Status    string
	CreatedAt time.Time
}

// KeyPrefix returns the object key prefix shared by every file of a video.
func KeyPrefix(userID, videoID string) string {
	return path.Join("videos", userID, videoID)
}

func ObjectKey(userID, videoID, relativePath string) string {
	return path.Join(KeyPrefix(userID, videoID), relativePath)
}

// ContentType maps HLS file names to their media types.
func ContentType(name string) string {
	switch strings.ToLower(path.Ext(name)) {
	case ".m3u8":
		return "application/vnd.apple.mpegurl"
	case ".ts":
		return "video/MP2T"
	default:
		return "application/octet-stream"
	}
}
