package source

import (
	"bytes"
	"context"
	"io"
	"path"
	"strings"

	gcs "cloud.google.com/go/storage"
	"github.com/pkg/errors"
)

// gcsSource is the GCS-backed Source, grounded on cloud.google.com/go/storage
// appearing in the teacher's go.mod.
type gcsSource struct {
	client *gcs.Client
	bucket string
	key    string
}

func newGCS(uri string) (*gcsSource, error) {
	bucket, key, _ := strings.Cut(uri, "/")

	client, err := gcs.NewClient(context.Background())
	if err != nil {
		return nil, errors.Wrap(err, "source: create gcs client")
	}
	return &gcsSource{client: client, bucket: bucket, key: key}, nil
}

func (g *gcsSource) IsRemote() bool { return true }
func (g *gcsSource) Path() string   { return "" }

func (g *gcsSource) Resolve(subpath string) Source {
	return &gcsSource{client: g.client, bucket: g.bucket, key: path.Join(g.key, subpath)}
}

func (g *gcsSource) get(key string) ([]byte, error) {
	ctx := context.Background()
	r, err := g.client.Bucket(g.bucket).Object(key).NewReader(ctx)
	if err != nil {
		if err == gcs.ErrObjectNotExist {
			return nil, errNotFound
		}
		return nil, errors.Wrapf(err, "source: get gs://%s/%s", g.bucket, key)
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrapf(err, "source: read body gs://%s/%s", g.bucket, key)
	}
	return data, nil
}

func (g *gcsSource) GetRoot() ([]byte, error) { return g.get(g.key) }

func (g *gcsSource) GetAsString(key string) (string, error) {
	data, err := g.get(path.Join(g.key, key))
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func (g *gcsSource) Put(key string, data []byte) error {
	ctx := context.Background()
	w := g.client.Bucket(g.bucket).Object(path.Join(g.key, key)).NewWriter(ctx)
	if _, err := io.Copy(w, bytes.NewReader(data)); err != nil {
		_ = w.Close()
		return errors.Wrapf(err, "source: put gs://%s/%s", g.bucket, path.Join(g.key, key))
	}
	if err := w.Close(); err != nil {
		return errors.Wrapf(err, "source: close writer gs://%s/%s", g.bucket, path.Join(g.key, key))
	}
	return nil
}
