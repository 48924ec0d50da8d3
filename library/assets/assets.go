// Package assets stores uploaded payloads in an external object store.
//
// Drivers have no retry policy of their own, callers decide whether to retry.
package assets

import (
	"context"
	"fmt"
	"io"
	"path"
	"regexp"
	"strings"

	"github.com/Laisky/errors/v2"
	"github.com/google/uuid"

	"github.com/Laisky/fingenius-compliance/library/config"
)

// Object is a payload to store.
type Object struct {
	Body        io.Reader
	Size        int64
	Filename    string
	ContentType string
	// Folder groups objects, like "compliance-files"
	Folder string
}

// Asset is the durable pointer returned by the store.
type Asset struct {
	URL string
	// AssetID is the opaque id used for deletion
	AssetID string
}

// Store is the asset store boundary.
type Store interface {
	Store(ctx context.Context, obj Object) (*Asset, error)
	Delete(ctx context.Context, assetID string) error
	// Ping checks connectivity and credentials
	Ping(ctx context.Context) error
}

// New builds the driver selected by settings.Driver.
func New(ctx context.Context, settings config.AssetSettings) (Store, error) {
	if settings.Bucket == "" {
		return nil, errors.New("asset bucket is empty")
	}
	if settings.AccessKey == "" || settings.SecretKey == "" {
		return nil, errors.New("asset credentials are empty")
	}

	switch settings.Driver {
	case "", config.AssetDriverMinio:
		return NewMinio(settings)
	case config.AssetDriverS3:
		return NewS3(ctx, settings)
	default:
		return nil, errors.Errorf("unknown asset driver %q", settings.Driver)
	}
}

// NormalizeType drops parameters and lowercases a declared MIME type,
// so `image/PNG; charset=binary` becomes `image/png`.
func NormalizeType(contentType string) string {
	if i := strings.IndexByte(contentType, ';'); i >= 0 {
		contentType = contentType[:i]
	}

	return strings.ToLower(strings.TrimSpace(contentType))
}

var unsafeNameChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// SanitizeName reduces name to a URL-safe base name.
func SanitizeName(name string) string {
	name = path.Base(strings.ReplaceAll(name, "\\", "/"))
	name = unsafeNameChars.ReplaceAllString(name, "_")
	name = strings.Trim(name, "._")
	if name == "" {
		return "file"
	}

	return name
}

// objectKey builds `<folder>/<uuid>-<name>`, unique per call.
func objectKey(folder, filename string) string {
	key := fmt.Sprintf("%s-%s", uuid.NewString(), SanitizeName(filename))
	if folder = strings.Trim(folder, "/"); folder != "" {
		key = folder + "/" + key
	}

	return key
}

// publicURL joins the public base URL and the object key.
func publicURL(base, key string) string {
	return strings.TrimSuffix(base, "/") + "/" + strings.TrimPrefix(key, "/")
}

// endpointBase derives the public base URL of a bucket behind an S3-compatible endpoint.
func endpointBase(settings config.AssetSettings) string {
	if settings.PublicURL != "" {
		return settings.PublicURL
	}

	endpoint := settings.Endpoint
	if !strings.Contains(endpoint, "://") {
		scheme := "http"
		if settings.UseSSL {
			scheme = "https"
		}
		endpoint = scheme + "://" + endpoint
	}

	return publicURL(endpoint, settings.Bucket)
}
