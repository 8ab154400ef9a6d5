// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package media

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	storage "github.com/supabase-community/storage-go"

	"github.com/olegiv/newsdesk/internal/config"
)

var discard = slog.New(slog.DiscardHandler)

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		img.Set(x, 0, color.RGBA{R: 200, A: 255})
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestLocalUpload(t *testing.T) {
	dir := t.TempDir()
	l, err := NewLocal(dir, "/uploads/", discard)
	require.NoError(t, err)
	l.now = func() time.Time { return time.Date(2026, 2, 3, 0, 0, 0, 0, time.UTC) }

	res, err := l.Upload(context.Background(), File{
		Body:        bytes.NewReader(pngBytes(t, 12, 8)),
		Filename:    "photo.png",
		ContentType: "image/png",
	})
	require.NoError(t, err)

	assert.Regexp(t, regexp.MustCompile(`^/uploads/2026/02/[0-9a-f-]{36}\.png$`), res.URL)
	assert.Equal(t, strings.TrimPrefix(res.URL, "/uploads/"), res.PublicID)

	data, err := os.ReadFile(filepath.Join(dir, filepath.FromSlash(res.PublicID)))
	require.NoError(t, err)
	assert.Equal(t, "image/png", http.DetectContentType(data))
}

func TestLocalUploadRejectsNonImage(t *testing.T) {
	l, err := NewLocal(t.TempDir(), "/uploads", discard)
	require.NoError(t, err)

	_, err = l.Upload(context.Background(), File{
		Body:        strings.NewReader("<svg xmlns='http://www.w3.org/2000/svg'/>"),
		Filename:    "logo.svg",
		ContentType: "image/svg+xml",
	})
	assert.ErrorIs(t, err, ErrUnsupportedImage)
}

func TestLocalWriteStaysInsideDir(t *testing.T) {
	l, err := NewLocal(t.TempDir(), "/uploads", discard)
	require.NoError(t, err)

	for _, name := range []string{"../escape.png", "/etc/passwd", ".", "a/../../b.png"} {
		assert.Error(t, l.write(name, []byte("x")), name)
	}
	assert.NoError(t, l.write("2026/01/ok.png", []byte("x")))
}

type fakeStorage struct {
	bucket, path, contentType string
	body                      []byte
	err                       error
}

func (f *fakeStorage) UploadFile(bucketID, relativePath string, data io.Reader, opts ...storage.FileOptions) (storage.FileUploadResponse, error) {
	if f.err != nil {
		return storage.FileUploadResponse{}, f.err
	}
	f.bucket, f.path = bucketID, relativePath
	f.body, _ = io.ReadAll(data)
	if len(opts) > 0 && opts[0].ContentType != nil {
		f.contentType = *opts[0].ContentType
	}
	return storage.FileUploadResponse{}, nil
}

func (f *fakeStorage) GetPublicUrl(bucketID, filePath string, _ ...storage.UrlOptions) storage.SignedUrlResponse {
	return storage.SignedUrlResponse{SignedURL: "https://proj.supabase.co/storage/v1/object/public/" + bucketID + "/" + filePath}
}

func TestSupabaseUpload(t *testing.T) {
	fs := &fakeStorage{}
	s := newSupabase(fs, "", discard)
	s.now = func() time.Time { return time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC) }

	res, err := s.Upload(context.Background(), File{
		Body:        strings.NewReader("jpeg-bytes"),
		Filename:    "x.JPG",
		ContentType: "image/jpeg",
	})
	require.NoError(t, err)

	assert.Equal(t, Folder, fs.bucket)
	assert.True(t, strings.HasPrefix(fs.path, "2026/05/"))
	assert.True(t, strings.HasSuffix(fs.path, ".jpg"))
	assert.Equal(t, "image/jpeg", fs.contentType)
	assert.Equal(t, "jpeg-bytes", string(fs.body))
	assert.Equal(t, fs.path, res.PublicID)
	assert.Contains(t, res.URL, "/public/newsblogs/2026/05/")
}

func TestSupabaseUploadError(t *testing.T) {
	s := newSupabase(&fakeStorage{err: errors.New("bucket not found")}, "media", discard)
	_, err := s.Upload(context.Background(), File{Body: strings.NewReader("x"), ContentType: "image/png"})
	assert.ErrorContains(t, err, "bucket not found")
}

func TestNewSelectsProvider(t *testing.T) {
	base := config.Config{UploadsDir: t.TempDir()}

	t.Run("cloudinary without credentials", func(t *testing.T) {
		cfg := base
		cfg.MediaProvider = config.MediaCloudinary
		_, err := New(&cfg, discard)
		assert.ErrorIs(t, err, ErrNotConfigured)
	})

	t.Run("supabase without credentials", func(t *testing.T) {
		cfg := base
		cfg.MediaProvider = config.MediaSupabase
		_, err := New(&cfg, discard)
		assert.ErrorIs(t, err, ErrNotConfigured)
	})

	t.Run("cloudinary configured", func(t *testing.T) {
		cfg := base
		cfg.MediaProvider = config.MediaCloudinary
		cfg.CloudinaryCloudName, cfg.CloudinaryAPIKey, cfg.CloudinaryAPISecret = "demo", "key", "secret"
		u, err := New(&cfg, discard)
		require.NoError(t, err)
		assert.Equal(t, "cloudinary", u.Provider())
	})

	t.Run("local", func(t *testing.T) {
		cfg := base
		cfg.MediaProvider = config.MediaLocal
		u, err := New(&cfg, discard)
		require.NoError(t, err)
		assert.Equal(t, "local", u.Provider())
	})
}

func TestExtForType(t *testing.T) {
	assert.Equal(t, ".jpg", extForType("image/jpeg", "a.jpeg"))
	assert.Equal(t, ".webp", extForType("IMAGE/WEBP", ""))
	assert.Equal(t, ".heic", extForType("image/heic", "IMG_1.HEIC"))
	assert.Equal(t, ".img", extForType("image/x-unknown", "noext"))
}

func TestCloudinaryError(t *testing.T) {
	tests := []struct {
		msg  string
		want error
	}{
		{"Invalid image file", ErrUnsupportedImage},
		{"Unsupported source URL: x", ErrUnsupportedImage},
		{"Invalid Signature 3f9a. String to sign - 'folder=newsblogs'.", ErrNotConfigured},
		{"Unknown API key 1234", ErrNotConfigured},
		{"Must supply api_key", ErrNotConfigured},
		{"Invalid cloud_name demo", ErrNotConfigured},
		{"Account is disabled", ErrNotConfigured},
		{"Rate limit exceeded", nil},
	}
	for _, tt := range tests {
		t.Run(tt.msg, func(t *testing.T) {
			err := cloudinaryError(tt.msg)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.msg)
			if tt.want == nil {
				assert.NotErrorIs(t, err, ErrUnsupportedImage)
				assert.NotErrorIs(t, err, ErrNotConfigured)
				return
			}
			assert.ErrorIs(t, err, tt.want)
		})
	}
}
