// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package media

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/olegiv/newsdesk/internal/imaging"
	"github.com/olegiv/newsdesk/internal/util"
)

// Local stores normalized images below a directory served at urlPrefix.
type Local struct {
	dir       string
	urlPrefix string
	processor *imaging.Processor
	logger    *slog.Logger
	now       func() time.Time
}

// NewLocal creates a local uploader rooted at dir, creating it if needed.
func NewLocal(dir, urlPrefix string, logger *slog.Logger) (*Local, error) {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolving uploads directory: %w", err)
	}
	if err := os.MkdirAll(absDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating uploads directory: %w", err)
	}
	return &Local{
		dir:       absDir,
		urlPrefix: strings.TrimSuffix(urlPrefix, "/"),
		processor: imaging.NewProcessor(0, 0),
		logger:    logger.With("component", "media", "provider", "local"),
		now:       time.Now,
	}, nil
}

// Provider implements Uploader.
func (l *Local) Provider() string { return "local" }

// Dir returns the absolute uploads directory.
func (l *Local) Dir() string { return l.dir }

// Upload implements Uploader. The image is normalized before it is written;
// files that cannot be decoded as a raster image are rejected.
func (l *Local) Upload(ctx context.Context, f File) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	img, err := l.processor.Process(f.Body)
	if err != nil {
		if errors.Is(err, imaging.ErrUnsupportedFormat) {
			return nil, fmt.Errorf("%w: %v", ErrUnsupportedImage, err)
		}
		return nil, err
	}

	name := objectName(l.now(), img.Ext)
	if err := l.write(name, img.Data); err != nil {
		return nil, err
	}

	l.logger.Info("image stored", "path", name, "width", img.Width, "height", img.Height, "bytes", len(img.Data))
	return &Result{URL: l.urlPrefix + "/" + name, PublicID: name}, nil
}

// write saves data at the slash-separated name below dir. The target is
// verified to stay inside dir.
func (l *Local) write(name string, data []byte) error {
	clean := path.Clean(name)
	if clean == "." || strings.HasPrefix(clean, "../") || path.IsAbs(clean) {
		return fmt.Errorf("invalid object name %q", name)
	}

	target, err := util.SafeJoinPath(l.dir, filepath.FromSlash(clean))
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("creating directory: %w", err)
	}
	if err := os.WriteFile(target, data, 0o644); err != nil {
		return fmt.Errorf("saving image: %w", err)
	}
	return nil
}
