package filebroker

import (
	"context"
	"errors"
	"io"
	"regexp"
	"strings"

	"github.com/cloudforge/jobbroker/internal/objects"
)

// LocalBroker serves files rooted under a configured data root, delegating
// the actual reads/writes to an objects.FilesystemObjectStore (the same
// path-traversal-safe filesystem backend the rest of the module's generic
// object-store abstraction uses) and layering FileBroker's URL-rewriting
// and permission semantics on top (§4.1's path-scoping policy).
type LocalBroker struct {
	store objects.ObjectStore
}

// NewLocalBroker builds a LocalBroker rooted at root, going through
// objects.NewObjectStore so the "filesystem" backend selection stays in one
// place.
func NewLocalBroker(root string) *LocalBroker {
	store, err := objects.NewObjectStore(objects.ObjectStoreConfig{
		Type:   "filesystem",
		Config: map[string]string{"base_path": root},
	})
	if err != nil {
		// NewObjectStore only errors on an unrecognized Type, which "filesystem"
		// never is.
		panic(err)
	}
	return &LocalBroker{store: store}
}

// NewLocalBrokerWithStore builds a LocalBroker over an arbitrary
// objects.ObjectStore, e.g. an in-memory store in tests that would
// otherwise need real files on disk.
func NewLocalBrokerWithStore(store objects.ObjectStore) *LocalBroker {
	return &LocalBroker{store: store}
}

// key strips the optional "local/" scheme prefix a path may carry, leaving
// the object key the underlying FilesystemObjectStore expects.
func key(path string) string {
	return strings.TrimPrefix(path, "local/")
}

func mapObjectsErr(err error) error {
	switch {
	case errors.Is(err, objects.ErrNotFound):
		return ErrNotFound
	case errors.Is(err, objects.ErrInvalidKey):
		return ErrPermissionDenied
	default:
		return err
	}
}

func (b *LocalBroker) GetFile(ctx context.Context, path string) (io.ReadCloser, error) {
	rc, err := b.store.Get(ctx, key(path))
	if err != nil {
		return nil, mapObjectsErr(err)
	}
	return rc, nil
}

// urlSuffixPattern anchors the rewrite to the terminal occurrence of
// suffix, so a path that merely contains the suffix text mid-string is
// left untouched (§4.1's explicit warning about non-anchored replacement).
func urlSuffixPattern(suffix string) *regexp.Regexp {
	return regexp.MustCompile(regexp.QuoteMeta(suffix) + "$")
}

func (b *LocalBroker) GetFileURL(ctx context.Context, path, authHeader, urlSuffix, downloadSuffix string) (*FileHTTPRequest, error) {
	// path is the full request path, terminated by urlSuffix (e.g.
	// ".../output.txt/url"); the storage key is that same path with the
	// suffix anchored off, so a path that merely contains the suffix text
	// mid-string (a directory literally named "url") is untouched.
	storageKey := urlSuffixPattern(urlSuffix).ReplaceAllString(path, "")

	exists, err := b.store.Exists(ctx, key(storageKey))
	if err != nil {
		return nil, mapObjectsErr(err)
	}
	if !exists {
		return nil, ErrNotFound
	}

	rewritten := urlSuffixPattern(urlSuffix).ReplaceAllString(path, downloadSuffix)
	req := &FileHTTPRequest{
		Method: "GET",
		URL:    rewritten,
	}
	if authHeader != "" {
		req.Headers = map[string]string{"Authorization": authHeader}
	}
	return req, nil
}

func (b *LocalBroker) PostFile(ctx context.Context, path string, data io.Reader) error {
	if err := b.store.Put(ctx, key(path), data, ""); err != nil {
		return mapObjectsErr(err)
	}
	return nil
}

func (b *LocalBroker) PostFileURL(ctx context.Context, path, urlSuffix, uploadSuffix string) (*FileHTTPRequest, error) {
	rewritten := urlSuffixPattern(urlSuffix).ReplaceAllString(path, uploadSuffix)
	return &FileHTTPRequest{
		Method: "POST",
		URL:    rewritten,
	}, nil
}
