package pipeline

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/m1k1o/go-mediapipe/internal/storage"
)

const DefaultUserID = "anonymous"

// Job describes one source file to be transcoded and published.
// Empty UserID, VideoID and Visibility are filled with defaults.
type Job struct {
	SourcePath string

	Title       string
	Description string
	UserID      string
	VideoID     string
	Category    string
	Genre       string
	Tags        []string
	Visibility  storage.Visibility
}

func (j Job) withDefaultValues() Job {
	if j.UserID == "" {
		j.UserID = DefaultUserID
	}
	if j.VideoID == "" {
		j.VideoID = uuid.NewString()
	}
	if j.Visibility == "" {
		j.Visibility = storage.VisibilityPublic
	}
	return j
}

func (j Job) validate() error {
	if j.SourcePath == "" {
		return fmt.Errorf("source path is required")
	}
	if j.Title == "" {
		return fmt.Errorf("title is required")
	}
	if !j.Visibility.Valid() {
		return fmt.Errorf("invalid visibility %q", j.Visibility)
	}
	return nil
}
