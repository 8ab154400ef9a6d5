// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package media

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
)

// Cloudinary stores images in a Cloudinary account.
type Cloudinary struct {
	cld    *cloudinary.Cloudinary
	logger *slog.Logger
}

// NewCloudinary creates a Cloudinary uploader.
func NewCloudinary(cloudName, apiKey, apiSecret string, logger *slog.Logger) (*Cloudinary, error) {
	cld, err := cloudinary.NewFromParams(cloudName, apiKey, apiSecret)
	if err != nil {
		return nil, fmt.Errorf("creating cloudinary client: %w", err)
	}
	cld.Config.URL.Secure = true
	return &Cloudinary{cld: cld, logger: logger.With("component", "media", "provider", "cloudinary")}, nil
}

// Provider implements Uploader.
func (c *Cloudinary) Provider() string { return "cloudinary" }

// Upload implements Uploader.
func (c *Cloudinary) Upload(ctx context.Context, f File) (*Result, error) {
	resp, err := c.cld.Upload.Upload(ctx, f.Body, uploader.UploadParams{
		Folder:       Folder,
		ResourceType: "image",
	})
	if err != nil {
		return nil, fmt.Errorf("cloudinary upload: %w", err)
	}
	if resp.Error.Message != "" {
		c.logger.Warn("cloudinary rejected upload", "filename", f.Filename, "error", resp.Error.Message)
		return nil, cloudinaryError(resp.Error.Message)
	}
	if resp.SecureURL == "" {
		return nil, errors.New("cloudinary upload returned no URL")
	}

	c.logger.Info("image uploaded", "public_id", resp.PublicID, "bytes", resp.Bytes)
	return &Result{URL: resp.SecureURL, PublicID: resp.PublicID}, nil
}

// Cloudinary reports API errors as a message only. These fragments identify
// the two kinds callers act on; anything else is a plain upload failure.
var (
	cloudinaryImageErrors = []string{
		"invalid image file",
		"unsupported",
		"unknown file format",
		"image file is corrupt",
	}
	cloudinaryAccountErrors = []string{
		"api_key",
		"api key",
		"signature",
		"cloud_name",
		"cloud name",
		"account",
		"disabled",
	}
)

// cloudinaryError maps a Cloudinary error message to ErrUnsupportedImage
// for files it could not process, ErrNotConfigured for credential and
// account problems, and a generic error otherwise.
func cloudinaryError(msg string) error {
	lower := strings.ToLower(msg)
	for _, frag := range cloudinaryImageErrors {
		if strings.Contains(lower, frag) {
			return fmt.Errorf("%w: %s", ErrUnsupportedImage, msg)
		}
	}
	for _, frag := range cloudinaryAccountErrors {
		if strings.Contains(lower, frag) {
			return fmt.Errorf("%w: cloudinary: %s", ErrNotConfigured, msg)
		}
	}
	return fmt.Errorf("cloudinary upload: %s", msg)
}
