package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/cloudinary/cloudinary-go/v2"
	cldconfig "github.com/cloudinary/cloudinary-go/v2/config"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"

	"github.com/HammerMeetNail/dailydoodle/internal/config"
)

var ErrMediaUpload = errors.New("media upload failed")

// MediaUploader stores an image and returns its public URL.
type MediaUploader interface {
	Upload(ctx context.Context, filename string, file io.Reader) (string, error)
}

// unsignedUploadAPI is the part of the Cloudinary upload API the uploader uses.
type unsignedUploadAPI interface {
	UnsignedUpload(ctx context.Context, file interface{}, uploadPreset string, uploadParams uploader.UploadParams) (*uploader.UploadResult, error)
}

// CloudinaryUploader sends files to an unsigned upload preset.
type CloudinaryUploader struct {
	api    unsignedUploadAPI
	preset string
}

func NewCloudinaryUploader(cfg config.MediaConfig) (*CloudinaryUploader, error) {
	if strings.TrimSpace(cfg.CloudName) == "" || strings.TrimSpace(cfg.UploadPreset) == "" {
		return nil, errors.New("media cloud name and upload preset are required")
	}

	// Unsigned uploads need no API key or secret.
	cldCfg, err := cldconfig.NewFromParams(cfg.CloudName, "", "")
	if err != nil {
		return nil, fmt.Errorf("configuring cloudinary: %w", err)
	}
	if cfg.BaseURL != "" {
		cldCfg.API.UploadPrefix = strings.TrimRight(cfg.BaseURL, "/")
	}

	cld, err := cloudinary.NewFromConfiguration(*cldCfg)
	if err != nil {
		return nil, fmt.Errorf("configuring cloudinary: %w", err)
	}
	return &CloudinaryUploader{api: &cld.Upload, preset: cfg.UploadPreset}, nil
}

func (u *CloudinaryUploader) Upload(ctx context.Context, filename string, file io.Reader) (string, error) {
	res, err := u.api.UnsignedUpload(ctx, file, u.preset, uploader.UploadParams{
		FilenameOverride: filename,
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrMediaUpload, err)
	}
	if res == nil {
		return "", fmt.Errorf("%w: empty response", ErrMediaUpload)
	}
	if res.Error.Message != "" {
		return "", fmt.Errorf("%w: %s", ErrMediaUpload, res.Error.Message)
	}
	if res.SecureURL == "" {
		return "", fmt.Errorf("%w: response missing secure_url", ErrMediaUpload)
	}
	return res.SecureURL, nil
}
