// Package publish uploads run artifacts (reports, screenshots) to Google
// Cloud Storage.
package publish

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"mime"
	"os"
	"path"
	"path/filepath"

	"cloud.google.com/go/storage"
	"github.com/golang/glog"
	"golang.org/x/sync/errgroup"
	"google.golang.org/api/option"
)

// maxParallelUploads bounds concurrent object writes.
const maxParallelUploads = 8

// Publisher writes files into one bucket.
type Publisher struct {
	client *storage.Client
	bucket string
}

// New returns a Publisher for bucket. Credentials come from the environment
// unless opts say otherwise.
func New(ctx context.Context, bucket string, opts ...option.ClientOption) (*Publisher, error) {
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("cannot create a storage client for bucket %q: %v", bucket, err)
	}
	return &Publisher{client: client, bucket: bucket}, nil
}

// Close releases the storage client.
func (p *Publisher) Close() error {
	return p.client.Close()
}

// UploadDir copies every regular file under dir to gs://<bucket>/<prefix>/,
// keeping relative paths, and returns the object names written.
func (p *Publisher) UploadDir(ctx context.Context, dir, prefix string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.Type().IsRegular() {
			files = append(files, p)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("listing %q: %w", dir, err)
	}

	names := make([]string, len(files))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallelUploads)
	for i, f := range files {
		f := f
		name, err := ObjectName(prefix, dir, f)
		if err != nil {
			return nil, err
		}
		names[i] = name
		g.Go(func() error {
			return p.upload(ctx, f, name)
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	glog.Infof("Published %d files from %q to gs://%s/%s", len(names), dir, p.bucket, prefix)
	return names, nil
}

func (p *Publisher) upload(ctx context.Context, file, name string) (err error) {
	f, err := os.Open(file)
	if err != nil {
		return err
	}
	defer f.Close()

	w := p.client.Bucket(p.bucket).Object(name).NewWriter(ctx)
	if ct := mime.TypeByExtension(filepath.Ext(file)); ct != "" {
		w.ContentType = ct
	}
	if _, err := io.Copy(w, f); err != nil {
		w.Close()
		return fmt.Errorf("uploading %q to gs://%s/%s: %w", file, p.bucket, name, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("finalizing gs://%s/%s: %w", p.bucket, name, err)
	}
	glog.V(1).Infof("Uploaded %q to gs://%s/%s", file, p.bucket, name)
	return nil
}

// ObjectName maps file, which lives under root, to its object name below
// prefix. Object names always use forward slashes.
func ObjectName(prefix, root, file string) (string, error) {
	rel, err := filepath.Rel(root, file)
	if err != nil {
		return "", err
	}
	if rel == ".." || len(rel) > 2 && rel[:3] == ".."+string(filepath.Separator) {
		return "", fmt.Errorf("%q is outside %q", file, root)
	}
	return path.Join(prefix, filepath.ToSlash(rel)), nil
}
