// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package media

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	storage "github.com/supabase-community/storage-go"
	supabase "github.com/supabase-community/supabase-go"
)

// objectStorage is the subset of the Supabase storage client used here.
type objectStorage interface {
	UploadFile(bucketID, relativePath string, data io.Reader, opts ...storage.FileOptions) (storage.FileUploadResponse, error)
	GetPublicUrl(bucketID, filePath string, opts ...storage.UrlOptions) storage.SignedUrlResponse
}

// Supabase stores images in a public Supabase Storage bucket.
type Supabase struct {
	storage objectStorage
	bucket  string
	logger  *slog.Logger
	now     func() time.Time
}

// NewSupabase creates a Supabase Storage uploader for bucket.
func NewSupabase(projectURL, apiKey, bucket string, logger *slog.Logger) (*Supabase, error) {
	client, err := supabase.NewClient(projectURL, apiKey, nil)
	if err != nil {
		return nil, fmt.Errorf("initialize supabase SDK: %w", err)
	}
	return newSupabase(client.Storage, bucket, logger), nil
}

func newSupabase(s objectStorage, bucket string, logger *slog.Logger) *Supabase {
	if bucket == "" {
		bucket = Folder
	}
	return &Supabase{
		storage: s,
		bucket:  bucket,
		logger:  logger.With("component", "media", "provider", "supabase"),
		now:     time.Now,
	}
}

// Provider implements Uploader.
func (s *Supabase) Provider() string { return "supabase" }

// Upload implements Uploader. The storage client has no context support, so
// ctx is only checked before the request starts.
func (s *Supabase) Upload(ctx context.Context, f File) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	name := objectName(s.now(), extForType(f.ContentType, f.Filename))
	contentType := f.ContentType
	upsert := false
	if _, err := s.storage.UploadFile(s.bucket, name, f.Body, storage.FileOptions{
		ContentType: &contentType,
		Upsert:      &upsert,
	}); err != nil {
		return nil, fmt.Errorf("supabase upload: %w", err)
	}

	url := s.storage.GetPublicUrl(s.bucket, name).SignedURL
	s.logger.Info("image uploaded", "bucket", s.bucket, "path", name)
	return &Result{URL: url, PublicID: name}, nil
}
