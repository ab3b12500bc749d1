package filesystem

import (
	"bytes"
	"context"
	"io"
	"sort"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/Guru2308/rag-code/internal/kberrors"
	"github.com/Guru2308/rag-code/internal/logger"
)

// MinIOConfig configures a MinIOFileSystem.
type MinIOConfig struct {
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	BucketName      string
	UseSSL          bool
}

// MinIOFileSystem implements FileSystem as object keys "kb_id/doc_id/name"
// in a single bucket, for deployments that keep page-image artifacts off
// the node running ingest.
type MinIOFileSystem struct {
	client *minio.Client
	bucket string
}

// NewMinIOFileSystem connects to MinIO and ensures the target bucket
// exists.
func NewMinIOFileSystem(cfg MinIOConfig) (*MinIOFileSystem, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, kberrors.Wrap(err, kberrors.ErrorTypeExternal, "failed to create MinIO client")
	}

	ctx := context.Background()
	exists, err := client.BucketExists(ctx, cfg.BucketName)
	if err != nil {
		return nil, kberrors.Wrap(err, kberrors.ErrorTypeExternal, "failed to check bucket existence")
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.BucketName, minio.MakeBucketOptions{}); err != nil {
			return nil, kberrors.Wrap(err, kberrors.ErrorTypeExternal, "failed to create bucket")
		}
	}

	return &MinIOFileSystem{client: client, bucket: cfg.BucketName}, nil
}

func objectKey(kbID, docID, name string) string {
	return kbID + "/" + docID + "/" + name
}

func objectPrefix(parts ...string) string {
	return strings.Join(parts, "/") + "/"
}

// LoadData reads a single named artifact for a document.
func (f *MinIOFileSystem) LoadData(ctx context.Context, kbID, docID, name string) ([]byte, error) {
	obj, err := f.client.GetObject(ctx, f.bucket, objectKey(kbID, docID, name), minio.GetObjectOptions{})
	if err != nil {
		return nil, kberrors.Wrap(err, kberrors.ErrorTypeExternal, "failed to open artifact")
	}
	defer obj.Close()

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, obj); err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return nil, kberrors.NotFoundError("artifact not found: " + name)
		}
		return nil, kberrors.Wrap(err, kberrors.ErrorTypeExternal, "failed to read artifact")
	}
	return buf.Bytes(), nil
}

// GetFiles lists page-image object keys for a document, filtered to the
// given inclusive page range, sorted by page number.
func (f *MinIOFileSystem) GetFiles(ctx context.Context, kbID, docID string, pageStart, pageEnd *int) ([]string, error) {
	prefix := objectPrefix(kbID, docID)

	type paged struct {
		page int
		key  string
	}
	var matches []paged
	for obj := range f.client.ListObjects(ctx, f.bucket, minio.ListObjectsOptions{Prefix: prefix}) {
		if obj.Err != nil {
			return nil, kberrors.Wrap(obj.Err, kberrors.ErrorTypeExternal, "failed to list document artifacts")
		}
		name := strings.TrimPrefix(obj.Key, prefix)
		page, ok := parsePageNumber(name)
		if !ok || !inPageRange(page, pageStart, pageEnd) {
			continue
		}
		matches = append(matches, paged{page: page, key: obj.Key})
	}
	sort.Slice(matches, func(i, j int) bool { return matches[i].page < matches[j].page })

	keys := make([]string, len(matches))
	for i, m := range matches {
		keys[i] = m.key
	}
	return keys, nil
}

func (f *MinIOFileSystem) removeByPrefix(ctx context.Context, prefix string) error {
	objectsCh := make(chan minio.ObjectInfo)
	go func() {
		defer close(objectsCh)
		for obj := range f.client.ListObjects(ctx, f.bucket, minio.ListObjectsOptions{Prefix: prefix, Recursive: true}) {
			if obj.Err != nil {
				continue
			}
			objectsCh <- obj
		}
	}()

	for errInfo := range f.client.RemoveObjects(ctx, f.bucket, objectsCh, minio.RemoveObjectsOptions{}) {
		if errInfo.Err != nil {
			return kberrors.Wrap(errInfo.Err, kberrors.ErrorTypeExternal, "failed to remove artifact")
		}
	}
	logger.Info("removed artifacts from MinIO", "prefix", prefix)
	return nil
}

// DeleteDirectory removes every artifact for a single document.
func (f *MinIOFileSystem) DeleteDirectory(ctx context.Context, kbID, docID string) error {
	return f.removeByPrefix(ctx, objectPrefix(kbID, docID))
}

// DeleteKB removes every artifact for every document in a knowledge base.
func (f *MinIOFileSystem) DeleteKB(ctx context.Context, kbID string) error {
	return f.removeByPrefix(ctx, kbID+"/")
}
