package assets

import (
	"context"
	"strings"

	"github.com/Laisky/errors/v2"
	"github.com/minio/minio-go/v7"
	minioCreds "github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/Laisky/fingenius-compliance/library/config"
)

// Minio stores assets in a minio (or any S3-compatible) bucket.
type Minio struct {
	cli     *minio.Client
	bucket  string
	baseURL string
}

// NewMinio creates the minio driver, no network call is made.
func NewMinio(settings config.AssetSettings) (*Minio, error) {
	if settings.Endpoint == "" {
		return nil, errors.New("minio endpoint is empty")
	}

	endpoint := settings.Endpoint
	secure := settings.UseSSL
	switch {
	case strings.HasPrefix(endpoint, "https://"):
		endpoint, secure = strings.TrimPrefix(endpoint, "https://"), true
	case strings.HasPrefix(endpoint, "http://"):
		endpoint = strings.TrimPrefix(endpoint, "http://")
	}

	cli, err := minio.New(endpoint, &minio.Options{
		Creds:  minioCreds.NewStaticV4(settings.AccessKey, settings.SecretKey, ""),
		Secure: secure,
		Region: settings.Region,
	})
	if err != nil {
		return nil, errors.Wrap(err, "new minio client")
	}

	settings.UseSSL = secure
	settings.Endpoint = endpoint
	return &Minio{
		cli:     cli,
		bucket:  settings.Bucket,
		baseURL: endpointBase(settings),
	}, nil
}

// Store uploads obj and returns its public URL.
func (m *Minio) Store(ctx context.Context, obj Object) (*Asset, error) {
	key := objectKey(obj.Folder, obj.Filename)
	if _, err := m.cli.PutObject(ctx, m.bucket, key, obj.Body, obj.Size,
		minio.PutObjectOptions{
			ContentType: obj.ContentType,
		},
	); err != nil {
		return nil, errors.Wrapf(err, "put object %q", key)
	}

	return &Asset{
		URL:     publicURL(m.baseURL, key),
		AssetID: key,
	}, nil
}

// Delete removes the object, a missing object is not an error for minio.
func (m *Minio) Delete(ctx context.Context, assetID string) error {
	if err := m.cli.RemoveObject(ctx, m.bucket, assetID, minio.RemoveObjectOptions{}); err != nil {
		return errors.Wrapf(err, "remove object %q", assetID)
	}

	return nil
}

// Ping verifies the bucket is reachable.
func (m *Minio) Ping(ctx context.Context) error {
	ok, err := m.cli.BucketExists(ctx, m.bucket)
	if err != nil {
		return errors.Wrapf(err, "check bucket %q", m.bucket)
	}
	if !ok {
		return errors.Errorf("bucket %q not found", m.bucket)
	}

	return nil
}
