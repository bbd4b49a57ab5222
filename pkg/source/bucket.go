package source

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/pangeorg/rusty-stl/pkg/discover"
)

// BucketConfig holds the object store connection settings.
type BucketConfig struct {
	Endpoint  string
	Region    string
	AccessKey string
	SecretKey string
	UseSSL    bool
}

// objectLister is the part of *minio.Client used for listing.
type objectLister interface {
	ListObjects(ctx context.Context, bucket string, opts minio.ListObjectsOptions) <-chan minio.ObjectInfo
}

// Bucket is a Source over the STL objects below one or more bucket prefixes.
// Listed names have the form s3://bucket/key.
type Bucket struct {
	lister    objectLister
	get       func(ctx context.Context, bucket, key string) (io.ReadCloser, error)
	locations []Location
}

// NewBucket connects to the object store. It does not create buckets.
func NewBucket(cfg BucketConfig, locs ...Location) (*Bucket, error) {
	cli, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("source: minio client: %w", err)
	}
	get := func(ctx context.Context, bucket, key string) (io.ReadCloser, error) {
		obj, err := cli.GetObject(ctx, bucket, key, minio.GetObjectOptions{})
		if err != nil {
			return nil, err
		}
		return obj, nil
	}
	return &Bucket{lister: cli, get: get, locations: locs}, nil
}

// List returns every object with the STL extension below the configured
// prefixes.
func (b *Bucket) List(ctx context.Context) ([]string, error) {
	var out []string
	for _, loc := range b.locations {
		objects := b.lister.ListObjects(ctx, loc.Bucket, minio.ListObjectsOptions{
			Prefix:    loc.Prefix,
			Recursive: true,
		})
		for obj := range objects {
			if obj.Err != nil {
				return out, fmt.Errorf("source: list %s%s/%s: %w", BucketScheme, loc.Bucket, loc.Prefix, obj.Err)
			}
			if discover.IsSTL(obj.Key) {
				out = append(out, BucketScheme+loc.Bucket+"/"+obj.Key)
			}
		}
	}
	return out, nil
}

// Open fetches one object by its s3:// name.
func (b *Bucket) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	loc, ok, err := ParseLocation(name)
	if err != nil {
		return nil, err
	}
	if !ok || loc.Prefix == "" || strings.HasSuffix(loc.Prefix, "/") {
		return nil, fmt.Errorf("source: %q is not an object name", name)
	}
	return b.get(ctx, loc.Bucket, loc.Prefix)
}
