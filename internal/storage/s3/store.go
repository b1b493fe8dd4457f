// Package s3 keeps parquet store snapshots in an S3-compatible bucket.
package s3

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"path"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/omniretail/omnidesk/internal/config"
	"github.com/omniretail/omnidesk/internal/storage"
)

// objectAPI is the slice of the minio client the bucket needs.
type objectAPI interface {
	PutObject(ctx context.Context, bucket, key string, body io.Reader, size int64, contentType string) (storage.ObjectInfo, error)
	GetObject(ctx context.Context, bucket, key string) (io.ReadCloser, error)
	StatObject(ctx context.Context, bucket, key string) (storage.ObjectInfo, error)
	ListObjects(ctx context.Context, bucket, prefix string) ([]storage.ObjectInfo, error)
	RemoveObject(ctx context.Context, bucket, key string) error
	BucketExists(ctx context.Context, bucket string) (bool, error)
	MakeBucket(ctx context.Context, bucket, region string) error
}

// Bucket is a storage.ObjectStore rooted at an optional key prefix, so
// several deployments can share one bucket.
type Bucket struct {
	api  objectAPI
	name string
	root string
}

// Open connects to the configured endpoint. The bucket is only contacted
// when AutoCreateBucket asks for it to exist.
func Open(ctx context.Context, cfg config.ObjectStoreConfig) (*Bucket, error) {
	name := strings.TrimSpace(cfg.Bucket)
	if strings.TrimSpace(cfg.Endpoint) == "" {
		return nil, fmt.Errorf("object store endpoint is required")
	}
	if name == "" {
		return nil, fmt.Errorf("object store bucket is required")
	}
	host, secure, err := splitEndpoint(cfg.Endpoint, cfg.UseSSL)
	if err != nil {
		return nil, err
	}
	client, err := minio.New(host, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: secure,
		Region: strings.TrimSpace(cfg.Region),
	})
	if err != nil {
		return nil, fmt.Errorf("create s3 client: %w", err)
	}

	b := &Bucket{api: minioAPI{client: client}, name: name, root: cleanRoot(cfg.Prefix)}
	if cfg.AutoCreateBucket {
		if err := b.ensure(ctx, strings.TrimSpace(cfg.Region)); err != nil {
			return nil, err
		}
	}
	return b, nil
}

func newBucket(api objectAPI, name, root string) *Bucket {
	return &Bucket{api: api, name: name, root: cleanRoot(root)}
}

func (b *Bucket) Put(ctx context.Context, key string, body io.Reader, size int64, opts storage.PutOptions) (storage.ObjectInfo, error) {
	full, err := b.fullKey(key)
	if err != nil {
		return storage.ObjectInfo{}, err
	}
	info, err := b.api.PutObject(ctx, b.name, full, body, size, opts.ContentType)
	if err != nil {
		return storage.ObjectInfo{}, fmt.Errorf("upload %s: %w", full, err)
	}
	info.Key = b.relativeKey(info.Key)
	return info, nil
}

func (b *Bucket) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	full, err := b.fullKey(key)
	if err != nil {
		return nil, err
	}
	body, err := b.api.GetObject(ctx, b.name, full)
	if err != nil {
		return nil, wrapMissing("download", full, err)
	}
	return body, nil
}

func (b *Bucket) Stat(ctx context.Context, key string) (storage.ObjectInfo, error) {
	full, err := b.fullKey(key)
	if err != nil {
		return storage.ObjectInfo{}, err
	}
	info, err := b.api.StatObject(ctx, b.name, full)
	if err != nil {
		return storage.ObjectInfo{}, wrapMissing("stat", full, err)
	}
	info.Key = b.relativeKey(info.Key)
	return info, nil
}

// List returns every object whose key starts with prefix, keys relative to
// the bucket root.
func (b *Bucket) List(ctx context.Context, prefix string) ([]storage.ObjectInfo, error) {
	full, err := b.fullKey(prefix)
	if err != nil {
		return nil, err
	}
	if strings.HasSuffix(prefix, "/") {
		full += "/"
	}
	infos, err := b.api.ListObjects(ctx, b.name, full)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", full, err)
	}
	for i := range infos {
		infos[i].Key = b.relativeKey(infos[i].Key)
	}
	return infos, nil
}

// Delete treats a missing object as already deleted.
func (b *Bucket) Delete(ctx context.Context, key string) error {
	full, err := b.fullKey(key)
	if err != nil {
		return err
	}
	if err := b.api.RemoveObject(ctx, b.name, full); err != nil && !errors.Is(err, storage.ErrObjectNotFound) {
		return fmt.Errorf("remove %s: %w", full, err)
	}
	return nil
}

func (b *Bucket) ensure(ctx context.Context, region string) error {
	exists, err := b.api.BucketExists(ctx, b.name)
	if err != nil {
		return fmt.Errorf("check bucket %s: %w", b.name, err)
	}
	if exists {
		return nil
	}
	if err := b.api.MakeBucket(ctx, b.name, region); err != nil {
		return fmt.Errorf("create bucket %s: %w", b.name, err)
	}
	return nil
}

func (b *Bucket) fullKey(key string) (string, error) {
	trimmed := strings.Trim(strings.TrimSpace(key), "/")
	if trimmed == "" {
		return "", fmt.Errorf("object key is required")
	}
	for _, segment := range strings.Split(trimmed, "/") {
		if segment == ".." || segment == "." {
			return "", fmt.Errorf("invalid object key: %q", key)
		}
	}
	return path.Join(b.root, path.Clean(trimmed)), nil
}

func (b *Bucket) relativeKey(full string) string {
	if b.root == "" {
		return full
	}
	return strings.TrimPrefix(full, b.root+"/")
}

func wrapMissing(op, key string, err error) error {
	if errors.Is(err, storage.ErrObjectNotFound) {
		return fmt.Errorf("%s %s: %w", op, key, storage.ErrObjectNotFound)
	}
	return fmt.Errorf("%s %s: %w", op, key, err)
}

func cleanRoot(prefix string) string {
	root := path.Clean("/" + strings.TrimSpace(prefix))
	return strings.TrimPrefix(root, "/")
}

// splitEndpoint accepts a bare host:port or a URL; an https URL forces TLS.
func splitEndpoint(raw string, useSSL bool) (string, bool, error) {
	raw = strings.TrimSpace(raw)
	if !strings.Contains(raw, "://") {
		if raw == "" {
			return "", false, fmt.Errorf("object store endpoint is required")
		}
		return raw, useSSL, nil
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return "", false, fmt.Errorf("parse endpoint %q: %w", raw, err)
	}
	if parsed.Host == "" {
		return "", false, fmt.Errorf("endpoint %q has no host", raw)
	}
	return parsed.Host, useSSL || parsed.Scheme == "https", nil
}

type minioAPI struct {
	client *minio.Client
}

func (m minioAPI) PutObject(ctx context.Context, bucket, key string, body io.Reader, size int64, contentType string) (storage.ObjectInfo, error) {
	info, err := m.client.PutObject(ctx, bucket, key, body, size, minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return storage.ObjectInfo{}, notFound(err)
	}
	return storage.ObjectInfo{Key: info.Key, Size: info.Size, ETag: info.ETag, LastModified: info.LastModified}, nil
}

// GetObject stats before returning so a missing key fails here rather than on
// the first read.
func (m minioAPI) GetObject(ctx context.Context, bucket, key string) (io.ReadCloser, error) {
	obj, err := m.client.GetObject(ctx, bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, notFound(err)
	}
	if _, err := obj.Stat(); err != nil {
		_ = obj.Close()
		return nil, notFound(err)
	}
	return obj, nil
}

func (m minioAPI) StatObject(ctx context.Context, bucket, key string) (storage.ObjectInfo, error) {
	info, err := m.client.StatObject(ctx, bucket, key, minio.StatObjectOptions{})
	if err != nil {
		return storage.ObjectInfo{}, notFound(err)
	}
	return objectInfo(info), nil
}

func (m minioAPI) ListObjects(ctx context.Context, bucket, prefix string) ([]storage.ObjectInfo, error) {
	var out []storage.ObjectInfo
	for info := range m.client.ListObjects(ctx, bucket, minio.ListObjectsOptions{Prefix: prefix, Recursive: true}) {
		if info.Err != nil {
			return nil, notFound(info.Err)
		}
		out = append(out, objectInfo(info))
	}
	return out, nil
}

func (m minioAPI) RemoveObject(ctx context.Context, bucket, key string) error {
	return notFound(m.client.RemoveObject(ctx, bucket, key, minio.RemoveObjectOptions{}))
}

func (m minioAPI) BucketExists(ctx context.Context, bucket string) (bool, error) {
	exists, err := m.client.BucketExists(ctx, bucket)
	return exists, notFound(err)
}

func (m minioAPI) MakeBucket(ctx context.Context, bucket, region string) error {
	return notFound(m.client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{Region: region}))
}

func objectInfo(info minio.ObjectInfo) storage.ObjectInfo {
	return storage.ObjectInfo{Key: info.Key, Size: info.Size, ETag: info.ETag, LastModified: info.LastModified}
}

// notFound maps minio's missing-key and missing-bucket codes onto
// storage.ErrObjectNotFound.
func notFound(err error) error {
	if err == nil {
		return nil
	}
	switch minio.ToErrorResponse(err).Code {
	case "NoSuchKey", "NoSuchBucket", "NotFound":
		return storage.ErrObjectNotFound
	}
	return err
}
