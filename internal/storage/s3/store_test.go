package s3

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sort"
	"strings"
	"testing"

	"github.com/omniretail/omnidesk/internal/config"
	"github.com/omniretail/omnidesk/internal/storage"
)

func TestPutJoinsRootAndReturnsRelativeKey(t *testing.T) {
	api := newFakeAPI()
	bucket := newBucket(api, "omnidesk-snapshots", "/prod/stores/")

	info, err := bucket.Put(context.Background(), "/ShopCore/Orders.parquet", bytes.NewBufferString("abc"), 3, storage.PutOptions{ContentType: "application/vnd.apache.parquet"})
	if err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	if _, ok := api.objects["prod/stores/ShopCore/Orders.parquet"]; !ok {
		t.Fatalf("objects = %v", api.keys())
	}
	if info.Key != "ShopCore/Orders.parquet" {
		t.Fatalf("Put().Key = %q", info.Key)
	}
	if api.contentTypes["prod/stores/ShopCore/Orders.parquet"] != "application/vnd.apache.parquet" {
		t.Fatalf("content types = %#v", api.contentTypes)
	}
}

func TestKeysRejectTraversalAndBlank(t *testing.T) {
	bucket := newBucket(newFakeAPI(), "omnidesk-snapshots", "")
	for _, key := range []string{"../ShopCore/Users.parquet", "ShopCore/../../etc", "  ", "/"} {
		if _, err := bucket.Put(context.Background(), key, bytes.NewBufferString("x"), 1, storage.PutOptions{}); err == nil {
			t.Fatalf("Put(%q) expected error", key)
		}
	}
}

func TestGetAndStatReportMissingObjects(t *testing.T) {
	bucket := newBucket(newFakeAPI(), "omnidesk-snapshots", "snapshots")

	if _, err := bucket.Get(context.Background(), "PayGuard/Wallets.parquet"); !errors.Is(err, storage.ErrObjectNotFound) {
		t.Fatalf("Get() error = %v, want ErrObjectNotFound", err)
	}
	_, err := bucket.Stat(context.Background(), "PayGuard/Wallets.parquet")
	if !errors.Is(err, storage.ErrObjectNotFound) {
		t.Fatalf("Stat() error = %v, want ErrObjectNotFound", err)
	}
	if !strings.Contains(err.Error(), "snapshots/PayGuard/Wallets.parquet") {
		t.Fatalf("Stat() error = %v, want full key", err)
	}
}

func TestListReturnsKeysUnderPrefixOnly(t *testing.T) {
	api := newFakeAPI()
	bucket := newBucket(api, "omnidesk-snapshots", "prod")
	ctx := context.Background()
	for _, key := range []string{"CareDesk/Tickets.parquet", "CareDesk/TicketMessages.parquet", "CareDeskArchive/Tickets.parquet", "PayGuard/Wallets.parquet"} {
		if _, err := bucket.Put(ctx, key, bytes.NewBufferString("x"), 1, storage.PutOptions{}); err != nil {
			t.Fatalf("Put(%q) error = %v", key, err)
		}
	}

	infos, err := bucket.List(ctx, "CareDesk/")
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	got := make([]string, 0, len(infos))
	for _, info := range infos {
		got = append(got, info.Key)
	}
	sort.Strings(got)
	if strings.Join(got, ",") != "CareDesk/TicketMessages.parquet,CareDesk/Tickets.parquet" {
		t.Fatalf("List() keys = %v", got)
	}
	if api.lastListPrefix != "prod/CareDesk/" {
		t.Fatalf("list prefix = %q", api.lastListPrefix)
	}
}

func TestDeleteRemovesObjectAndIgnoresMissing(t *testing.T) {
	api := newFakeAPI()
	bucket := newBucket(api, "omnidesk-snapshots", "")
	ctx := context.Background()
	if _, err := bucket.Put(ctx, "CareDesk/Tickets.parquet", bytes.NewBufferString("x"), 1, storage.PutOptions{}); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	if err := bucket.Delete(ctx, "CareDesk/Tickets.parquet"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if len(api.objects) != 0 {
		t.Fatalf("objects after delete = %v", api.keys())
	}
	if err := bucket.Delete(ctx, "CareDesk/Tickets.parquet"); err != nil {
		t.Fatalf("Delete(missing) error = %v", err)
	}

	api.removeErr = errors.New("access denied")
	if err := bucket.Delete(ctx, "CareDesk/Tickets.parquet"); err == nil {
		t.Fatal("expected delete error to propagate")
	}
}

func TestEnsureCreatesMissingBucket(t *testing.T) {
	api := newFakeAPI()
	bucket := newBucket(api, "omnidesk-snapshots", "")

	if err := bucket.ensure(context.Background(), "us-east-1"); err != nil {
		t.Fatalf("ensure() error = %v", err)
	}
	if api.madeBucket != "omnidesk-snapshots" {
		t.Fatalf("made bucket = %q", api.madeBucket)
	}

	api.madeBucket = ""
	api.bucketExists = true
	if err := bucket.ensure(context.Background(), "us-east-1"); err != nil {
		t.Fatalf("ensure() error = %v", err)
	}
	if api.madeBucket != "" {
		t.Fatal("existing bucket was recreated")
	}
}

func TestSplitEndpoint(t *testing.T) {
	tests := []struct {
		raw    string
		useSSL bool
		host   string
		secure bool
	}{
		{raw: "https://minio.example.com", host: "minio.example.com", secure: true},
		{raw: "http://localhost:9000", host: "localhost:9000"},
		{raw: "http://localhost:9000", useSSL: true, host: "localhost:9000", secure: true},
		{raw: "localhost:9000", host: "localhost:9000"},
	}
	for _, tt := range tests {
		host, secure, err := splitEndpoint(tt.raw, tt.useSSL)
		if err != nil {
			t.Fatalf("splitEndpoint(%q) error = %v", tt.raw, err)
		}
		if host != tt.host || secure != tt.secure {
			t.Fatalf("splitEndpoint(%q) = %q/%v", tt.raw, host, secure)
		}
	}
	if _, _, err := splitEndpoint("http://", false); err == nil {
		t.Fatal("expected error for endpoint without host")
	}
}

func TestOpenDoesNotDialWithoutAutoCreate(t *testing.T) {
	bucket, err := Open(context.Background(), config.ObjectStoreConfig{
		Endpoint:        "http://localhost:9000",
		Region:          "us-east-1",
		Bucket:          "omnidesk",
		AccessKeyID:     "minio",
		SecretAccessKey: "miniostorage",
		Prefix:          "/snapshots/",
	})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if bucket.name != "omnidesk" || bucket.root != "snapshots" {
		t.Fatalf("bucket name/root = %q/%q", bucket.name, bucket.root)
	}

	if _, err := Open(context.Background(), config.ObjectStoreConfig{Endpoint: "localhost:9000"}); err == nil {
		t.Fatal("expected error without bucket")
	}
}

type fakeAPI struct {
	objects        map[string][]byte
	contentTypes   map[string]string
	bucketExists   bool
	madeBucket     string
	lastListPrefix string
	removeErr      error
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{objects: map[string][]byte{}, contentTypes: map[string]string{}}
}

func (f *fakeAPI) keys() []string {
	out := make([]string, 0, len(f.objects))
	for key := range f.objects {
		out = append(out, key)
	}
	sort.Strings(out)
	return out
}

func (f *fakeAPI) PutObject(_ context.Context, _, key string, body io.Reader, _ int64, contentType string) (storage.ObjectInfo, error) {
	raw, err := io.ReadAll(body)
	if err != nil {
		return storage.ObjectInfo{}, err
	}
	f.objects[key] = raw
	f.contentTypes[key] = contentType
	return storage.ObjectInfo{Key: key, Size: int64(len(raw)), ETag: "etag-1"}, nil
}

func (f *fakeAPI) GetObject(_ context.Context, _, key string) (io.ReadCloser, error) {
	raw, ok := f.objects[key]
	if !ok {
		return nil, storage.ErrObjectNotFound
	}
	return io.NopCloser(bytes.NewReader(raw)), nil
}

func (f *fakeAPI) StatObject(_ context.Context, _, key string) (storage.ObjectInfo, error) {
	raw, ok := f.objects[key]
	if !ok {
		return storage.ObjectInfo{}, storage.ErrObjectNotFound
	}
	return storage.ObjectInfo{Key: key, Size: int64(len(raw))}, nil
}

func (f *fakeAPI) ListObjects(_ context.Context, _, prefix string) ([]storage.ObjectInfo, error) {
	f.lastListPrefix = prefix
	var out []storage.ObjectInfo
	for _, key := range f.keys() {
		if strings.HasPrefix(key, prefix) {
			out = append(out, storage.ObjectInfo{Key: key, Size: int64(len(f.objects[key]))})
		}
	}
	return out, nil
}

func (f *fakeAPI) RemoveObject(_ context.Context, _, key string) error {
	if f.removeErr != nil {
		return f.removeErr
	}
	if _, ok := f.objects[key]; !ok {
		return storage.ErrObjectNotFound
	}
	delete(f.objects, key)
	return nil
}

func (f *fakeAPI) BucketExists(context.Context, string) (bool, error) {
	return f.bucketExists, nil
}

func (f *fakeAPI) MakeBucket(_ context.Context, bucket, _ string) error {
	f.madeBucket = bucket
	return nil
}
