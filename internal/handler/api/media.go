// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/olegiv/newsdesk/internal/media"
	"github.com/olegiv/newsdesk/internal/middleware"
	"github.com/olegiv/newsdesk/internal/util"
)

// DefaultUploadMaxBytes is the upload ceiling when none is configured.
const DefaultUploadMaxBytes int64 = 4_718_592 // 4.5MB

// multipartOverhead is allowed on top of the file ceiling for the form
// framing, so an oversized file is reported from its own size.
const multipartOverhead int64 = 1 << 20

// Upload error codes.
const (
	CodeInvalidForm         = "INVALID_FORM"
	CodeNoFile              = "NO_FILE"
	CodeInvalidFileType     = "INVALID_FILE_TYPE"
	CodeFileTooLarge        = "FILE_TOO_LARGE"
	CodeUploadNotConfigured = "UPLOAD_NOT_CONFIGURED"
	CodeUploadFailed        = "UPLOAD_FAILED"
)

// UploadResponse is the body of a successful upload.
type UploadResponse struct {
	Success bool `json:"success"`
	*media.Result
}

// Upload handles POST /api/upload. It accepts a single image in the
// multipart field "file" and answers JSON on every path.
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	if middleware.GetUser(r) == nil {
		WriteError(w, r, http.StatusUnauthorized, middleware.MsgUnauthorized, middleware.CodeUnauthorized)
		return
	}
	if h.uploader == nil {
		WriteError(w, r, http.StatusInternalServerError, "Image upload is not configured", CodeUploadNotConfigured)
		return
	}

	limit := h.opts.UploadMaxBytes
	tooLarge := fmt.Sprintf("File size exceeds the %s limit", formatBytes(limit))

	r.Body = http.MaxBytesReader(w, r.Body, limit+multipartOverhead)
	if err := r.ParseMultipartForm(limit); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			WriteError(w, r, http.StatusRequestEntityTooLarge, tooLarge, CodeFileTooLarge)
			return
		}
		WriteError(w, r, http.StatusBadRequest, "Invalid form data", CodeInvalidForm)
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	file, header, err := r.FormFile("file")
	if err != nil {
		WriteError(w, r, http.StatusBadRequest, "No file provided", CodeNoFile)
		return
	}
	defer func() { _ = file.Close() }()

	contentType := strings.ToLower(strings.TrimSpace(header.Header.Get("Content-Type")))
	if !strings.HasPrefix(contentType, "image/") {
		WriteError(w, r, http.StatusBadRequest, "Only image files are allowed", CodeInvalidFileType)
		return
	}
	if header.Size > limit {
		WriteError(w, r, http.StatusRequestEntityTooLarge, tooLarge, CodeFileTooLarge)
		return
	}

	filename, err := util.SanitizeFilename(header.Filename)
	if err != nil {
		filename = "upload"
	}

	res, err := h.uploader.Upload(r.Context(), media.File{
		Body:        file,
		Filename:    filename,
		ContentType: contentType,
		Size:        header.Size,
	})
	switch {
	case errors.Is(err, media.ErrUnsupportedImage):
		WriteError(w, r, http.StatusBadRequest, "The file could not be processed as an image", CodeInvalidFileType)
		return
	case errors.Is(err, media.ErrNotConfigured):
		WriteError(w, r, http.StatusInternalServerError, "Image upload is not configured", CodeUploadNotConfigured)
		return
	case err != nil:
		h.logger.Error("upload failed",
			"provider", h.uploader.Provider(),
			"filename", filename,
			"size", header.Size,
			"error", err,
		)
		WriteError(w, r, http.StatusInternalServerError, "Upload failed. Please try again.", CodeUploadFailed)
		return
	}

	h.logger.Info("image uploaded",
		"provider", h.uploader.Provider(),
		"public_id", res.PublicID,
		"size", header.Size,
		"user_id", middleware.GetUserID(r),
	)
	WriteJSON(w, r, http.StatusOK, UploadResponse{Success: true, Result: res})
}

// formatBytes renders n as a short size such as "4.5MB".
func formatBytes(n int64) string {
	const mb = 1 << 20
	if n >= mb {
		s := fmt.Sprintf("%.1f", float64(n)/mb)
		return strings.TrimSuffix(s, ".0") + "MB"
	}
	return fmt.Sprintf("%dKB", n>>10)
}
