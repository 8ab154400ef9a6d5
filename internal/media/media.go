// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package media stores uploaded article images with a hosted provider
// (Cloudinary or Supabase Storage) or on the local filesystem.
package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/olegiv/newsdesk/internal/config"
)

// Folder is the remote folder uploads are placed in.
const Folder = "newsblogs"

// Errors returned by uploaders.
var (
	// ErrNotConfigured means the selected provider lacks credentials.
	ErrNotConfigured = errors.New("media storage is not configured")

	// ErrUnsupportedImage means the provider could not process the file as
	// an image.
	ErrUnsupportedImage = errors.New("unsupported image")
)

// File is an image to store.
type File struct {
	Body        io.Reader
	Filename    string
	ContentType string
	Size        int64
}

// Result describes a stored image.
type Result struct {
	URL      string `json:"url"`
	PublicID string `json:"publicId"`
}

// Uploader stores images and returns their public URL.
type Uploader interface {
	Upload(ctx context.Context, f File) (*Result, error)
	Provider() string
}

// New returns the uploader selected by cfg.MediaProvider. It returns
// ErrNotConfigured when that provider's credentials are missing so that the
// server can still start and report uploads as unavailable.
func New(cfg *config.Config, logger *slog.Logger) (Uploader, error) {
	switch cfg.MediaProvider {
	case config.MediaCloudinary:
		if !cfg.CloudinaryConfigured() {
			return nil, fmt.Errorf("%w: CLOUDINARY_CLOUD_NAME, CLOUDINARY_API_KEY and CLOUDINARY_API_SECRET are required", ErrNotConfigured)
		}
		return NewCloudinary(cfg.CloudinaryCloudName, cfg.CloudinaryAPIKey, cfg.CloudinaryAPISecret, logger)
	case config.MediaSupabase:
		if !cfg.SupabaseConfigured() {
			return nil, fmt.Errorf("%w: SUPABASE_URL and SUPABASE_KEY are required", ErrNotConfigured)
		}
		return NewSupabase(cfg.SupabaseURL, cfg.SupabaseKey, cfg.SupabaseBucket, logger)
	case config.MediaLocal:
		return NewLocal(cfg.UploadsDir, "/uploads", logger)
	default:
		return nil, fmt.Errorf("unknown media provider %q", cfg.MediaProvider)
	}
}

// objectName returns a unique, date-partitioned object name such as
// 2026/01/3f2a...-9c.jpg.
func objectName(now time.Time, ext string) string {
	return path.Join(now.UTC().Format("2006/01"), uuid.NewString()+strings.ToLower(ext))
}

// extForType maps an image MIME type to a file extension.
func extForType(contentType, filename string) string {
	switch strings.ToLower(contentType) {
	case "image/jpeg", "image/jpg":
		return ".jpg"
	case "image/png":
		return ".png"
	case "image/gif":
		return ".gif"
	case "image/webp":
		return ".webp"
	case "image/svg+xml":
		return ".svg"
	case "image/avif":
		return ".avif"
	}
	if ext := path.Ext(filename); ext != "" && len(ext) <= 6 {
		return strings.ToLower(ext)
	}
	return ".img"
}
