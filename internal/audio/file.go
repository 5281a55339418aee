package audio

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/spigell/evalia/internal/domain"
)

// PathFunc asks the user for the audio file answering the given question.
type PathFunc func(ctx context.Context, round domain.RoundType, idx int) (string, error)

var audioMIMETypes = map[string]string{
	".wav":  "audio/wav",
	".mp3":  "audio/mp3",
	".ogg":  "audio/ogg",
	".flac": "audio/flac",
	".aac":  "audio/aac",
	".m4a":  "audio/aac",
	".aiff": "audio/aiff",
}

// FileCapture reads prerecorded answers from disk.
type FileCapture struct {
	path   PathFunc
	logger *zap.Logger
}

func NewFileCapture(path PathFunc, logger *zap.Logger) (*FileCapture, error) {
	if path == nil {
		return nil, errors.New("path function is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FileCapture{path: path, logger: logger}, nil
}

func (c *FileCapture) Capture(ctx context.Context, round domain.RoundType, idx int) (*domain.Artifact, error) {
	path, err := c.path(ctx, round, idx)
	if err != nil {
		return nil, err
	}
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, ErrNoAudio
	}

	mimeType, ok := audioMIMETypes[strings.ToLower(filepath.Ext(path))]
	if !ok {
		return nil, fmt.Errorf("unsupported audio file %q", filepath.Base(path))
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read audio file: %w", err)
	}
	if len(data) == 0 {
		return nil, ErrNoAudio
	}

	c.logger.Info("answer loaded from file",
		zap.String("artifact", domain.ArtifactID(round, idx)),
		zap.String("path", path),
		zap.Int("bytes", len(data)),
	)

	return &domain.Artifact{Round: round, Index: idx, MIMEType: mimeType, Data: data}, nil
}
