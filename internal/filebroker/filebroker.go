// Package filebroker implements the §4.1 FileBroker contract: translating a
// logical object path into either a direct stream, a presigned download
// request, or a presigned upload request, while enforcing the path-scoping
// that is the broker's only layer of authorization. It is built on top of
// internal/objects' generic ObjectStore, the way the teacher layers
// handler-level concerns over a lower-level storage primitive.
package filebroker

import (
	"context"
	"errors"
	"io"
)

// ErrPermissionDenied is raised for any scope violation: a path escaping
// the local read-root, a bucket mismatch, or an operation the backend does
// not support (e.g. direct streaming on S3).
var ErrPermissionDenied = errors.New("filebroker: permission denied")

// ErrNotFound is raised when the referenced object does not exist.
var ErrNotFound = errors.New("filebroker: not found")

// FileHTTPRequest describes an HTTP request a client can issue itself to
// perform a download or upload against the object store, without ever
// holding real credentials (§4.1).
type FileHTTPRequest struct {
	Method  string            `json:"method"`
	URL     string            `json:"url"`
	Headers map[string]string `json:"headers,omitempty"`
	Data    map[string]string `json:"data,omitempty"`
}

// FileBroker is the closed two-implementation trait the spec describes:
// local filesystem or S3, selected once at startup (§9 "Polymorphism").
type FileBroker interface {
	// GetFile streams path directly. Only the local backend supports this;
	// S3 always returns ErrPermissionDenied, forcing clients onto the
	// presigned-URL path.
	GetFile(ctx context.Context, path string) (io.ReadCloser, error)

	// GetFileURL builds a FileHTTPRequest for downloading path. authHeader
	// is forwarded to local downloads; urlSuffix/downloadSuffix drive the
	// local backend's anchored terminal-segment rewrite.
	GetFileURL(ctx context.Context, path, authHeader, urlSuffix, downloadSuffix string) (*FileHTTPRequest, error)

	// PostFile writes data to path directly. Local backend only; S3
	// always returns ErrPermissionDenied.
	PostFile(ctx context.Context, path string, data io.Reader) error

	// PostFileURL builds a FileHTTPRequest suitable for a multipart
	// upload. urlSuffix/uploadSuffix parallel GetFileURL's rewrite on the
	// local backend; on S3 they are unused since the client uploads
	// straight to the presigned POST target.
	PostFileURL(ctx context.Context, path, urlSuffix, uploadSuffix string) (*FileHTTPRequest, error)
}
